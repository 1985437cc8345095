// Package dedupe tracks idempotency keys for batch sample uploads so a
// retried upload is answered from the first attempt instead of storing the
// samples twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Status of a reserved key.
type Status int

const (
	// StatusNew means the key was not known and is now reserved by the caller.
	StatusNew Status = iota
	// StatusPending means another request holds the key and has not completed.
	StatusPending
	// StatusDone means the key completed; the stored response is returned.
	StatusDone
)

// Deduper records idempotency keys and the response produced for them.
type Deduper interface {
	// Reserve atomically checks key and reserves it when unknown. For a
	// completed key it returns the stored response.
	Reserve(ctx context.Context, key string) (Status, []byte)

	// Complete stores the response for a reserved key.
	Complete(ctx context.Context, key string, response []byte)

	// Release forgets a reserved key so the request can be retried.
	Release(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key      string
	done     bool
	response []byte
}

// inMemoryDeduper keeps keys in insertion order. When bounded, the oldest
// key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key scopes an idempotency key to the session it was sent for.
func Key(sessionID, idempotencyKey string) string {
	return sessionID + "\x00" + idempotencyKey
}

func (d *inMemoryDeduper) Reserve(_ context.Context, key string) (Status, []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		if !e.done {
			return StatusPending, nil
		}
		return StatusDone, e.response
	}

	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(&entry{key: key})
	d.size.Add(1)
	return StatusNew, nil
}

func (d *inMemoryDeduper) Complete(_ context.Context, key string, response []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.seen[key]
	if !ok {
		return
	}
	e := el.Value.(*entry)
	e.done = true
	e.response = append([]byte(nil), response...)
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest prefers completed keys; a pending key is only evicted when
// nothing else is left. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	victim := d.order.Front()
	for el := victim; el != nil; el = el.Next() {
		if el.Value.(*entry).done {
			victim = el
			break
		}
	}
	if victim == nil {
		return
	}
	d.order.Remove(victim)
	delete(d.seen, victim.Value.(*entry).key)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
