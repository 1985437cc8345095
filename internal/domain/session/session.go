// Package session aggregates the samples of one training session.
package session

import (
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
)

// Summary owns the ordered samples of a session and the statistics derived
// from them. Append and Summarize produce identical state for the same
// sample sequence. A Summary is not safe for concurrent use.
type Summary struct {
	samples   []model.ScoredSample
	highRisk  int
	valgusSum float64
	grfSum    float64
	peakGRF   float64
	counts    map[model.MovementType]int
}

// New returns an empty summary.
func New() *Summary {
	return &Summary{counts: make(map[model.MovementType]int)}
}

// Summarize builds a summary from samples in order.
func Summarize(samples []model.Sample) *Summary {
	s := New()
	s.samples = make([]model.ScoredSample, 0, len(samples))
	for _, sm := range samples {
		s.Append(sm)
	}
	return s
}

// Append scores sample, adds it to the end of the sequence and returns the
// scored form.
func (s *Summary) Append(sample model.Sample) model.ScoredSample {
	scored := scoring.Scored(sample)
	s.samples = append(s.samples, scored)
	if scored.RiskScore > 0 {
		s.highRisk++
	}
	s.valgusSum += sample.KneeValgus
	s.grfSum += sample.GroundReactionForce
	if len(s.samples) == 1 || sample.GroundReactionForce > s.peakGRF {
		s.peakGRF = sample.GroundReactionForce
	}
	s.counts[sample.Movement]++
	return scored
}

// Len returns the number of samples.
func (s *Summary) Len() int { return len(s.samples) }

// HighRiskCount returns the number of samples with a non-zero score.
func (s *Summary) HighRiskCount() int { return s.highRisk }

// AvgKneeValgus returns the mean valgus, 0 when empty.
func (s *Summary) AvgKneeValgus() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.valgusSum / float64(len(s.samples))
}

// AvgGRF returns the mean ground reaction force, 0 when empty.
func (s *Summary) AvgGRF() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.grfSum / float64(len(s.samples))
}

// PeakGRF returns the maximum ground reaction force, 0 when empty.
func (s *Summary) PeakGRF() float64 { return s.peakGRF }

// MovementCounts returns a copy of the movement-type histogram.
func (s *Summary) MovementCounts() map[model.MovementType]int {
	out := make(map[model.MovementType]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Samples returns a copy of the plain samples in insertion order.
func (s *Summary) Samples() []model.Sample {
	out := make([]model.Sample, len(s.samples))
	for i, sc := range s.samples {
		out[i] = sc.Sample
	}
	return out
}

// Timeline returns a copy of the scored samples in insertion order.
func (s *Summary) Timeline() []model.ScoredSample {
	out := make([]model.ScoredSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Stats returns the persisted view of the summary.
func (s *Summary) Stats(sessionID string) model.SessionStats {
	return model.SessionStats{
		SessionID:         sessionID,
		TotalMovements:    len(s.samples),
		HighRiskMovements: s.highRisk,
		AvgKneeValgus:     s.AvgKneeValgus(),
		AvgGRF:            s.AvgGRF(),
		PeakGRF:           s.peakGRF,
		MovementCounts:    s.MovementCounts(),
	}
}
