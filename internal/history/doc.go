// Package history provides the persistent audit trail of control value
// changes.
//
// Every observed value change can be recorded with its origin (a direct
// command, a master, automation playback, or the control-surface
// bridge). The SQLite-backed repository is the system of record; the
// time-series database carries the same data for dashboards but may be
// unavailable.
package history
