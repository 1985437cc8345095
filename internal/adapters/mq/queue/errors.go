package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("reassessment queue full")
	ErrClosed = errors.New("reassessment queue closed")
)
