package session

import "errors"

var (
	// ErrStopped is returned when the controller no longer accepts input.
	ErrStopped = errors.New("session stopped")
	// ErrNoTransport is returned when an effect targets a connection that no
	// longer exists.
	ErrNoTransport = errors.New("no transport for connection")
)
