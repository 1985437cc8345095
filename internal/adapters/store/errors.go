package store

import (
	"errors"
	"fmt"

	"github.com/okian/aclguard/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrWriterClosed  = errors.New("sample writer closed")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrMissingDSN    = errors.New("store dsn is required")
	ErrInvalidLimit  = errors.New("invalid limit")
)

// collaborator wraps a backend failure so callers can match model.ErrCollaborator.
func collaborator(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrCollaborator, op, err)
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, model.ErrNotFound)
}
