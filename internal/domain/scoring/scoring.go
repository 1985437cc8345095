// Package scoring computes the per-sample injury risk score.
//
// The score is a deliberately coarse rule: half a point for excessive knee
// valgus and half a point for excessive ground reaction force. Its output is
// quantized to three tiers (0, 0.5, 1); callers that need a finer grading
// must not read more into it.
package scoring

import (
	"math"

	"github.com/okian/aclguard/internal/domain/model"
)

// Thresholds are exclusive: a value equal to the threshold does not count.
const (
	ValgusThreshold = 15.0
	GRFThreshold    = 3.0

	componentWeight = 0.5
)

// Tier names the three score levels.
type Tier string

const (
	TierLow      Tier = "low"
	TierElevated Tier = "elevated"
	TierHigh     Tier = "high"
)

// Score returns the risk score of one sample, in [0, 1].
func Score(s model.Sample) float64 {
	score := 0.0
	if s.KneeValgus > ValgusThreshold {
		score += componentWeight
	}
	if s.GroundReactionForce > GRFThreshold {
		score += componentWeight
	}
	return math.Max(0, math.Min(1, score))
}

// IsHighRisk reports whether a sample breaches either threshold.
func IsHighRisk(s model.Sample) bool {
	return Score(s) > 0
}

// TierOf maps a score to its tier.
func TierOf(score float64) Tier {
	switch {
	case score >= 1:
		return TierHigh
	case score > 0:
		return TierElevated
	default:
		return TierLow
	}
}

// Scored pairs a sample with its score.
func Scored(s model.Sample) model.ScoredSample {
	return model.ScoredSample{Sample: s, RiskScore: Score(s)}
}
