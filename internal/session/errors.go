package session

import "errors"

// Domain errors for the session package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, session.ErrControlNotFound) {
//	    // handle not found case
//	}
var (
	// ErrControlNotFound is returned when a control ID does not exist.
	ErrControlNotFound = errors.New("session: control not found")

	// ErrControlExists is returned when restoring a control whose ID is
	// already registered.
	ErrControlExists = errors.New("session: control already exists")

	// ErrSelfAssignment is returned when a control is assigned as its
	// own master.
	ErrSelfAssignment = errors.New("session: control cannot master itself")

	// ErrMasterCycle is returned when an assignment would create a
	// cycle in the master graph.
	ErrMasterCycle = errors.New("session: assignment would create a cycle")

	// ErrClosed is returned when an operation is attempted on a closed
	// session.
	ErrClosed = errors.New("session: closed")
)
