package history

import (
	"context"
	"time"
)

// History source values.
const (
	SourceCommand    = "command"
	SourceMaster     = "master"
	SourceAutomation = "automation"
	SourceBridge     = "bridge"
)

// Entry represents a single recorded control value change.
//
// Each entry stores the effective value at the time the change was
// observed. This provides a local audit trail even when the time-series
// database is unavailable.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// ControlID is the unique identifier of the control.
	ControlID string `json:"control_id"`

	// Value is the effective value after the change.
	Value float64 `json:"value"`

	// Source identifies how the change was triggered (command, master,
	// automation, bridge).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves control value change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record records a control value change.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - controlID: Unique control identifier
	//   - value: Effective value after the change
	//   - source: Origin of the change (command, master, automation, bridge)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, controlID string, value float64, source string) error

	// GetHistory returns recent value change history for the control.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - controlID: Unique control identifier
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []Entry: Ordered newest-first history entries (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	GetHistory(ctx context.Context, controlID string, limit int) ([]Entry, error)
}
