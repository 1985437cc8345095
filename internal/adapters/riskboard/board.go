// Package riskboard ranks athletes by their latest overall risk. It backs
// the team risk board endpoints and is refreshed whenever an assessment is
// computed.
package riskboard

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/aclguard/internal/domain/types"
	"github.com/okian/aclguard/pkg/metrics"
)

type record struct {
	risk       float64
	assessedAt time.Time
}

// Board is a treap-backed ranking. Athletes with equal risk share a rank
// and ties are listed by athlete id. It is safe for concurrent use.
type Board struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
	rng  *rand.Rand
}

// New returns an empty board.
func New(opts ...Option) *Board {
	b := &Board{
		byID: make(map[string]record),
		rng:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)), //nolint:gosec // treap priorities
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Upsert sets the athlete's current risk, replacing any previous value.
func (b *Board) Upsert(_ context.Context, athleteID string, risk float64, assessedAt time.Time) error {
	if athleteID == "" {
		return ErrEmptyAthleteID
	}
	if math.IsNaN(risk) || risk < 0 || risk > 1 {
		return ErrInvalidRisk
	}

	b.mu.Lock()
	if old, ok := b.byID[athleteID]; ok {
		b.root = remove(b.root, athleteID, old.risk)
	}
	b.byID[athleteID] = record{risk: risk, assessedAt: assessedAt}
	b.root = insert(b.root, athleteID, risk, assessedAt, b.rng)
	size := len(b.byID)
	b.mu.Unlock()

	metrics.UpdateRiskBoardSize(size)
	return nil
}

// Remove drops an athlete from the board. Unknown ids are ignored.
func (b *Board) Remove(_ context.Context, athleteID string) {
	b.mu.Lock()
	if old, ok := b.byID[athleteID]; ok {
		b.root = remove(b.root, athleteID, old.risk)
		delete(b.byID, athleteID)
	}
	size := len(b.byID)
	b.mu.Unlock()

	metrics.UpdateRiskBoardSize(size)
}

// Rank returns the athlete's position. Rank 1 is the highest risk.
func (b *Board) Rank(_ context.Context, athleteID string) (types.BoardEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.byID[athleteID]
	if !ok {
		metrics.RecordError("riskboard", "not_found")
		return types.BoardEntry{}, ErrNotFound
	}
	return types.BoardEntry{
		Rank:        1 + countAbove(b.root, rec.risk),
		AthleteID:   athleteID,
		OverallRisk: rec.risk,
		Bucket:      types.BucketOf(rec.risk),
		AssessedAt:  rec.assessedAt,
	}, nil
}

// TopN returns up to n entries, riskiest first.
func (b *Board) TopN(_ context.Context, n int) ([]types.BoardEntry, error) {
	if n < 1 {
		metrics.RecordError("riskboard", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	b.mu.RLock()
	nodes := make([]*node, 0, min(n, len(b.byID)))
	collect(b.root, n, &nodes)
	out := make([]types.BoardEntry, len(nodes))
	for i, nd := range nodes {
		rank := i + 1
		if i > 0 && nd.risk == nodes[i-1].risk {
			rank = out[i-1].Rank
		}
		out[i] = types.BoardEntry{
			Rank:        rank,
			AthleteID:   nd.id,
			OverallRisk: nd.risk,
			Bucket:      types.BucketOf(nd.risk),
			AssessedAt:  nd.assessedAt,
		}
	}
	b.mu.RUnlock()
	return out, nil
}

// Count returns the number of ranked athletes.
func (b *Board) Count(_ context.Context) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}
