package simulator

import "errors"

var (
	// ErrNoSessions is returned when a run names no sessions.
	ErrNoSessions = errors.New("no sessions to stream")
	// ErrMissingURL is returned when a run has no base URL.
	ErrMissingURL = errors.New("base url is required")
)
