// Package database opens and migrates the core's SQLite store, which
// holds control value history.
//
// Open configures the driver for a single-writer embedded workload:
// one connection, WAL journaling when enabled, foreign keys on, and a
// busy timeout from config. Migrate applies the embedded *.up.sql
// files in version order, each in its own transaction, recording them
// in schema_migrations; migrations are additive and reruns are no-ops.
//
//	db, err := database.Open(database.Config{Path: path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
