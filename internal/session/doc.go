// Package session owns the control graph of a running engine instance.
//
// A Session creates and registers slavable controls, provides the
// shared transport position and render scratch buffer they depend on,
// and enforces graph-level rules (no self-mastering, no cycles) that
// individual controls cannot check on their own.
//
// Sessions serialise to YAML documents. Master assignments load in two
// phases so documents may list controls in any order.
package session
