package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when a command arrives on a connection that never authenticated.
	ErrNotAuthenticated = errors.New("connection not authenticated")
	// ErrUnknownCommand is returned for a command kind without a handler.
	ErrUnknownCommand = errors.New("unknown command")
)

// RejectError describes why authentication did not succeed. Kind is the event
// already queued on the connection.
type RejectError struct {
	Kind   EventKind
	Reason string
	Err    error
}

func (e *RejectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *RejectError) Unwrap() error {
	return e.Err
}
