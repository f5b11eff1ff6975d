package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupHistoryTestDB creates an in-memory SQLite database with the control_history table.
func setupHistoryTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE control_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			control_id TEXT NOT NULL,
			value REAL NOT NULL,
			source TEXT NOT NULL DEFAULT 'command',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);
		CREATE INDEX idx_control_history_control_created ON control_history(control_id, created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// insertHistoryRow inserts a history row with a specific timestamp.
func insertHistoryRow(t *testing.T, db *sql.DB, controlID string, value float64, source string, createdAt time.Time) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO control_history (control_id, value, source, created_at) VALUES (?, ?, ?, ?)",
		controlID,
		value,
		source,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to insert history row: %v", err)
	}
}

// TestRecord verifies history writes and retrieval.
func TestRecord(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Record(ctx, "ctl-1", 0.75, SourceCommand); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "ctl-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.ControlID != "ctl-1" {
		t.Errorf("ControlID = %q, want ctl-1", entry.ControlID)
	}
	if entry.Value != 0.75 {
		t.Errorf("Value = %v, want 0.75", entry.Value)
	}
	if entry.Source != SourceCommand {
		t.Errorf("Source = %q, want %q", entry.Source, SourceCommand)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

// TestRecordDefaultsSource verifies an empty source falls back to command.
func TestRecordDefaultsSource(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Record(ctx, "ctl-1", 1.0, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "ctl-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if entries[0].Source != SourceCommand {
		t.Errorf("Source = %q, want %q", entries[0].Source, SourceCommand)
	}
}

// TestRecordRequiresControlID verifies empty control IDs are rejected.
func TestRecordRequiresControlID(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteRepository(db)

	if err := repo.Record(context.Background(), "", 1.0, SourceCommand); err == nil {
		t.Error("expected an error for empty control id")
	}
}

// TestGetHistoryOrdering verifies entries come back newest first.
func TestGetHistoryOrdering(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	insertHistoryRow(t, db, "ctl-1", 0.1, SourceCommand, now.Add(-3*time.Hour))
	insertHistoryRow(t, db, "ctl-1", 0.2, SourceMaster, now.Add(-2*time.Hour))
	insertHistoryRow(t, db, "ctl-1", 0.3, SourceAutomation, now.Add(-1*time.Hour))
	insertHistoryRow(t, db, "ctl-2", 0.9, SourceCommand, now)

	entries, err := repo.GetHistory(ctx, "ctl-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries length = %d, want 3", len(entries))
	}
	if entries[0].Value != 0.3 || entries[1].Value != 0.2 || entries[2].Value != 0.1 {
		t.Errorf("unexpected order: %v %v %v", entries[0].Value, entries[1].Value, entries[2].Value)
	}
}

// TestGetHistoryLimits verifies limit defaulting and clamping.
func TestGetHistoryLimits(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 60; i++ {
		insertHistoryRow(t, db, "ctl-1", float64(i), SourceCommand, now.Add(time.Duration(i)*time.Second))
	}

	entries, err := repo.GetHistory(ctx, "ctl-1", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != defaultHistoryLimit {
		t.Errorf("entries length = %d, want default %d", len(entries), defaultHistoryLimit)
	}

	entries, err = repo.GetHistory(ctx, "ctl-1", 1000)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 60 {
		t.Errorf("entries length = %d, want 60", len(entries))
	}
}

// TestPrune verifies old entries are deleted.
func TestPrune(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	insertHistoryRow(t, db, "ctl-1", 0.1, SourceCommand, now.Add(-48*time.Hour))
	insertHistoryRow(t, db, "ctl-1", 0.2, SourceCommand, now.Add(-1*time.Hour))

	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, err := repo.GetHistory(ctx, "ctl-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}
	if entries[0].Value != 0.2 {
		t.Errorf("remaining value = %v, want 0.2", entries[0].Value)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("expected an error for non-positive retention")
	}
}
