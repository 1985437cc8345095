package api

import (
	"errors"
	"fmt"
)

// ErrBadRequest marks request decoding and query failures.
var ErrBadRequest = errors.New("bad request")

// WrapKind tags kind and its cause with the operation.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Wrap annotates err with the operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
