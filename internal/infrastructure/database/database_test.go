package database

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "ardour.db"),
		WALMode:     true,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ardour.db")
	db, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after open: %v", err)
	}
}

func TestOpenAppliesWALMode(t *testing.T) {
	db := openTestDB(t)

	var mode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestOpenWithoutWALMode(t *testing.T) {
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "ardour.db"),
		WALMode:     false,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if mode == "wal" {
		t.Error("journal_mode should not be wal when disabled")
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheckAfterClose(t *testing.T) {
	db := openTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail on a closed database")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	// database/sql tolerates a second close.
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestControlHistoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// The shape the history repository relies on.
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE control_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			control_id TEXT NOT NULL,
			value REAL NOT NULL,
			source TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		t.Fatalf("creating control_history: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO control_history (control_id, value, source, created_at) VALUES (?, ?, ?, ?)",
		"ctl-1f0a", 0.75, "command", "2026-08-30T12:00:00Z"); err != nil {
		t.Fatalf("inserting row: %v", err)
	}

	var value float64
	if err := db.QueryRowContext(ctx,
		"SELECT value FROM control_history WHERE control_id = ?", "ctl-1f0a").Scan(&value); err != nil {
		t.Fatalf("reading row back: %v", err)
	}
	if value != 0.75 {
		t.Errorf("value = %v, want 0.75", value)
	}
}
