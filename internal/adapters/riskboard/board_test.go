package riskboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okian/aclguard/internal/domain/types"
)

var at = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func TestBoard_BasicOperations(t *testing.T) {
	ctx := context.Background()
	b := New(WithSeed(1))

	if n := b.Count(ctx); n != 0 {
		t.Fatalf("expected empty board, got %d", n)
	}
	if _, err := b.Rank(ctx, "a1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for id, risk := range map[string]float64{"a1": 0.3, "a2": 0.8, "a3": 0.55} {
		if err := b.Upsert(ctx, id, risk, at); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	top, err := b.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("topN: %v", err)
	}
	want := []string{"a2", "a3", "a1"}
	buckets := []types.Bucket{types.BucketHigh, types.BucketModerate, types.BucketLow}
	for i, e := range top {
		if e.AthleteID != want[i] || e.Rank != i+1 {
			t.Errorf("position %d: got %+v, want %s at rank %d", i, e, want[i], i+1)
		}
		if e.Bucket != buckets[i] {
			t.Errorf("position %d: bucket %q, want %q", i, e.Bucket, buckets[i])
		}
	}

	e, err := b.Rank(ctx, "a1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if e.Rank != 3 || e.OverallRisk != 0.3 || e.Bucket != types.BucketLow || !e.AssessedAt.Equal(at) {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestBoard_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	b := New(WithSeed(2))
	_ = b.Upsert(ctx, "a1", 0.9, at)
	_ = b.Upsert(ctx, "a2", 0.5, at)

	// risk can go down after intervention
	if err := b.Upsert(ctx, "a1", 0.1, at.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if n := b.Count(ctx); n != 2 {
		t.Fatalf("expected 2 athletes, got %d", n)
	}
	e, _ := b.Rank(ctx, "a1")
	if e.Rank != 2 || e.OverallRisk != 0.1 {
		t.Errorf("expected a1 at rank 2 with 0.1, got %+v", e)
	}

	b.Remove(ctx, "a2")
	b.Remove(ctx, "unknown")
	e, _ = b.Rank(ctx, "a1")
	if e.Rank != 1 || b.Count(ctx) != 1 {
		t.Errorf("expected a1 alone at rank 1, got %+v", e)
	}
}

func TestBoard_Ties(t *testing.T) {
	ctx := context.Background()
	b := New(WithSeed(3))
	_ = b.Upsert(ctx, "c", 0.6, at)
	_ = b.Upsert(ctx, "a", 0.6, at)
	_ = b.Upsert(ctx, "b", 0.2, at)

	top, _ := b.TopN(ctx, 3)
	if top[0].AthleteID != "a" || top[1].AthleteID != "c" {
		t.Fatalf("ties must list by id, got %+v", top)
	}
	if top[0].Rank != 1 || top[1].Rank != 1 || top[2].Rank != 3 {
		t.Errorf("expected ranks 1,1,3 got %d,%d,%d", top[0].Rank, top[1].Rank, top[2].Rank)
	}
	e, _ := b.Rank(ctx, "c")
	if e.Rank != 1 {
		t.Errorf("tied athlete rank %d, want 1", e.Rank)
	}
}

func TestBoard_Validation(t *testing.T) {
	ctx := context.Background()
	b := New()
	if err := b.Upsert(ctx, "", 0.2, at); err != ErrEmptyAthleteID {
		t.Errorf("expected ErrEmptyAthleteID, got %v", err)
	}
	if err := b.Upsert(ctx, "a", 1.2, at); err != ErrInvalidRisk {
		t.Errorf("expected ErrInvalidRisk, got %v", err)
	}
	if _, err := b.TopN(ctx, 0); err != ErrInvalidLimit {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestBoard_MatchesSortedReference(t *testing.T) {
	ctx := context.Background()
	b := New(WithSeed(4))
	rng := rand.New(rand.NewPCG(7, 7))
	ref := map[string]float64{}

	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("ath-%03d", rng.IntN(300))
		risk := float64(rng.IntN(21)) / 20
		if err := b.Upsert(ctx, id, risk, at); err != nil {
			t.Fatal(err)
		}
		ref[id] = risk
	}

	ids := make([]string, 0, len(ref))
	for id := range ref {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ref[ids[i]] != ref[ids[j]] {
			return ref[ids[i]] > ref[ids[j]]
		}
		return ids[i] < ids[j]
	})

	top, _ := b.TopN(ctx, len(ids))
	if len(top) != len(ids) {
		t.Fatalf("got %d entries, want %d", len(top), len(ids))
	}
	for i, e := range top {
		if e.AthleteID != ids[i] {
			t.Fatalf("position %d: got %s want %s", i, e.AthleteID, ids[i])
		}
		r, _ := b.Rank(ctx, e.AthleteID)
		if r.Rank != e.Rank {
			t.Fatalf("rank mismatch for %s: %d vs %d", e.AthleteID, r.Rank, e.Rank)
		}
	}
}

func TestBoard_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	b := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("w%d-%d", w, i%20)
				_ = b.Upsert(ctx, id, float64(i%10)/10, at)
				_, _ = b.TopN(ctx, 5)
				_, _ = b.Rank(ctx, id)
			}
		}(w)
	}
	wg.Wait()
	if n := b.Count(ctx); n != 160 {
		t.Errorf("expected 160 athletes, got %d", n)
	}
}

func BenchmarkBoard_Upsert(b *testing.B) {
	ctx := context.Background()
	board := New(WithSeed(5))
	ids := make([]string, 10_000)
	for i := range ids {
		ids[i] = fmt.Sprintf("ath-%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = board.Upsert(ctx, ids[i%len(ids)], float64(i%100)/100, at)
	}
}

func BenchmarkBoard_TopN(b *testing.B) {
	ctx := context.Background()
	board := New(WithSeed(6))
	for i := 0; i < 10_000; i++ {
		_ = board.Upsert(ctx, fmt.Sprintf("ath-%d", i), float64(i%100)/100, at)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = board.TopN(ctx, 50)
	}
}
