package model

import "errors"

// Error kinds shared by the core and its adapters.
var (
	// ErrInvalidSample marks a sample that failed validation.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrOutOfOrder marks a streamed sample older than its predecessor.
	ErrOutOfOrder = errors.New("sample out of order")
	// ErrCollaborator marks a failure in a persistence collaborator.
	ErrCollaborator = errors.New("collaborator failure")
	// ErrTransportClosed marks the normal end of a streaming lane.
	ErrTransportClosed = errors.New("transport closed")
	// ErrNotFound marks a missing athlete or session.
	ErrNotFound = errors.New("not found")
)
