package stream

import "errors"

var (
	// ErrLaneClosed is returned when Run is called on a lane that already ran.
	ErrLaneClosed = errors.New("lane already closed")
	// ErrDraining refuses new lanes once the handler is draining.
	ErrDraining = errors.New("server is draining lanes")
)
