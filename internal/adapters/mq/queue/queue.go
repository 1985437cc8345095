// Package queue carries reassessment requests from the ingestion paths to
// the worker pool. Requests for an athlete that is already pending are
// coalesced: the pending request will read the newest data anyway.
package queue

import (
	"context"
	"sync"

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Request is the payload flowing through the queue.
type Request = model.AssessmentRequest

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request. It returns ErrFull or ErrClosed when the
	// request was not accepted.
	Enqueue(ctx context.Context, r Request) error

	// Dequeue returns a channel of requests. It is closed after Close once
	// the backlog is drained.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the number of queued requests.
	Len(ctx context.Context) int

	// Close stops accepting requests.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	out      chan Request
	capacity int
	relay    sync.Once

	mu      sync.RWMutex
	pending map[string]struct{}
	closed  bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)
	q.out = make(chan Request)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordError("queue", "closed")
		return ErrClosed
	}
	if _, ok := q.pending[r.AthleteID]; ok {
		return nil
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordError("queue", "context_cancelled")
		return ctx.Err()
	default:
	}

	select {
	case q.requests <- r:
		q.pending[r.AthleteID] = struct{}{}
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.requests))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordError("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the shared output channel. Every consumer reads from the
// same channel, so each request is delivered once.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	q.relay.Do(func() {
		go q.forward(ctx)
	})
	return q.out
}

func (q *InMemoryQueue) forward(ctx context.Context) {
	defer close(q.out)
	for r := range q.requests {
		q.mu.Lock()
		delete(q.pending, r.AthleteID)
		q.mu.Unlock()
		metrics.UpdateQueueSize(len(q.requests))

		select {
		case q.out <- r:
		case <-ctx.Done():
			return
		}
	}
}

// Len returns the number of queued requests.
func (q *InMemoryQueue) Len(_ context.Context) int {
	n := len(q.requests)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops accepting requests. Queued requests are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
