package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS carries the embedded schema files. The migrations
// package assigns it from an init func, so a blank import of that
// package is all a binary needs to get the control-history schema.
var MigrationsFS embed.FS

// MigrationsDir is the directory inside MigrationsFS holding the
// files, "." when they sit at the root of the embedded filesystem.
var MigrationsDir = "migrations"

// migration is one schema step, keyed by the YYYYMMDD_HHMMSS prefix of
// its filename. A step may carry a down script; steps without one
// cannot be rolled back.
type migration struct {
	version string
	name    string
	up      string
	down    string
}

// Migrate applies every schema step not yet recorded in
// schema_migrations, oldest first, each in its own transaction. A
// failing step is rolled back and stops the run; the steps before it
// stay committed, and a later Migrate continues from the failure.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.ensureVersionTable(ctx); err != nil {
		return err
	}

	steps, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	done, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range steps {
		if done[m.version] {
			continue
		}
		if err := db.runStep(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied step. Meant for
// development databases; the daemon never calls it.
func (db *DB) MigrateDown(ctx context.Context) error {
	if err := db.ensureVersionTable(ctx); err != nil {
		return err
	}
	done, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}
	if len(done) == 0 {
		return nil
	}

	latest := ""
	for v := range done {
		if v > latest {
			latest = v
		}
	}

	steps, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	var target *migration
	for i := range steps {
		if steps[i].version == latest {
			target = &steps[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found in embedded filesystem", latest)
	}
	if target.down == "" {
		return fmt.Errorf("migration %s has no down script", latest)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, target.down); err != nil {
		return fmt.Errorf("rolling back %s: %w", latest, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = ?", latest); err != nil {
		return fmt.Errorf("removing migration record: %w", err)
	}
	return tx.Commit()
}

func (db *DB) ensureVersionTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// runStep executes one up script and records its version, atomically.
func (db *DB) runStep(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}

// loadMigrations reads every *.up.sql/*.down.sql pair from the
// embedded filesystem, sorted oldest first. An unset MigrationsFS
// yields no steps, which lets infrastructure tests run without the
// schema package.
func loadMigrations() ([]migration, error) {
	var empty embed.FS
	if MigrationsFS == empty {
		return nil, nil
	}
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, nil
	}

	byVersion := make(map[string]*migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, up, ok := parseMigrationFilename(entry.Name())
		if !ok {
			continue
		}
		sql, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		m := byVersion[version]
		if m == nil {
			m = &migration{version: version, name: name}
			byVersion[version] = m
		}
		if up {
			m.up = string(sql)
		} else {
			m.down = string(sql)
		}
	}

	steps := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" {
			return nil, fmt.Errorf("migration %s has a down script but no up script", m.version)
		}
		steps = append(steps, *m)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// parseMigrationFilename splits
// "20260830_120000_initial_schema.up.sql" into the version
// "20260830_120000", the name "initial_schema", and the direction.
func parseMigrationFilename(filename string) (version, name string, up, ok bool) {
	base := strings.TrimSuffix(filename, ".sql")
	if base == filename {
		return "", "", false, false
	}
	switch {
	case strings.HasSuffix(base, ".up"):
		up = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", "", false, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 3 {
		return "", "", false, false
	}
	return parts[0] + "_" + parts[1], parts[2], up, true
}
