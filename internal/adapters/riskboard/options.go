package riskboard

import "math/rand/v2"

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithSeed makes treap priorities reproducible.
func WithSeed(seed uint64) Option {
	return func(b *Board) {
		b.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // treap priorities
	}
}
