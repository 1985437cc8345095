package riskboard

import "errors"

// Sentinel kinds for risk board errors.
var (
	ErrNotFound       = errors.New("athlete not on risk board")
	ErrInvalidLimit   = errors.New("invalid risk board limit")
	ErrInvalidRisk    = errors.New("risk must be within [0, 1]")
	ErrEmptyAthleteID = errors.New("athlete id must not be empty")
)
