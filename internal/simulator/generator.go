package simulator

import (
	"math/rand/v2"
	"time"

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
	"github.com/okian/aclguard/internal/domain/validate"
)

// Generator produces plausible samples with strictly increasing timestamps.
// The same seed and start produce the same sequence. Not safe for
// concurrent use.
type Generator struct {
	rng      *rand.Rand
	next     time.Time
	interval time.Duration
	highRisk float64
}

// NewGenerator returns a generator starting at start.
func NewGenerator(seed uint64, start time.Time, interval time.Duration, highRiskRatio float64) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		next:     start.UTC(),
		interval: interval,
		highRisk: highRiskRatio,
	}
}

// Next returns the next sample.
func (g *Generator) Next() model.Sample {
	s := model.Sample{
		Timestamp:  g.next,
		KneeAngle:  g.between(10, 80),
		HipAngle:   g.between(5, 70),
		AnkleAngle: g.between(-15, 25),
		Movement:   model.MovementTypes[g.rng.IntN(len(model.MovementTypes))],
	}
	g.next = g.next.Add(g.interval)

	if g.rng.Float64() < g.highRisk {
		// Breach at least one threshold, sometimes both.
		switch g.rng.IntN(3) {
		case 0:
			s.KneeValgus = g.between(scoring.ValgusThreshold+0.5, 25)
			s.GroundReactionForce = g.between(0.8, scoring.GRFThreshold-0.1)
		case 1:
			s.KneeValgus = g.between(0, scoring.ValgusThreshold-0.5)
			s.GroundReactionForce = g.between(scoring.GRFThreshold+0.1, 6)
		default:
			s.KneeValgus = g.between(scoring.ValgusThreshold+0.5, 25)
			s.GroundReactionForce = g.between(scoring.GRFThreshold+0.1, 6)
		}
		return s
	}
	s.KneeValgus = g.between(-5, scoring.ValgusThreshold-0.5)
	s.GroundReactionForce = g.between(0.8, scoring.GRFThreshold-0.1)
	return s
}

// Samples returns the next n samples.
func (g *Generator) Samples(n int) []model.Sample {
	out := make([]model.Sample, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Batch returns n samples in the wire form.
func (g *Generator) Batch(n int) []validate.RawSample {
	out := make([]validate.RawSample, n)
	for i := range out {
		out[i] = validate.Raw(g.Next())
	}
	return out
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
