package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/aclguard/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrEmptyBatch        = errors.New("no samples in batch")
	ErrNoAthletes        = errors.New("no athlete ids given")
	ErrTooManyAthletes   = errors.New("too many athletes in one request")
	ErrDuplicateInFlight = errors.New("request with this idempotency key is still in progress")
	ErrInvalidSession    = errors.New("invalid session")
	ErrInvalidAthlete    = errors.New("invalid athlete profile")
)

// BatchError lists the invalid samples of a rejected batch by index.
type BatchError struct {
	Problems map[int]string
}

func (e *BatchError) Error() string {
	idx := make([]int, 0, len(e.Problems))
	for i := range e.Problems {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	parts := make([]string, len(idx))
	for n, i := range idx {
		parts[n] = fmt.Sprintf("[%d] %s", i, e.Problems[i])
	}
	return fmt.Sprintf("%d invalid samples: %s", len(idx), strings.Join(parts, "; "))
}

// Unwrap makes errors.Is(err, model.ErrInvalidSample) hold.
func (e *BatchError) Unwrap() error { return model.ErrInvalidSample }
