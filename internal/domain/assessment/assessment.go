// Package assessment blends movement, demographic and health-history risk
// into one composite assessment with coaching recommendations.
package assessment

import (
	"strings"
	"time"

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
)

// Blend weights of the overall score.
const (
	demographicWeight = 0.3
	movementWeight    = 0.5
	historyWeight     = 0.2

	// UnknownMovementRisk applies when no samples are available.
	UnknownMovementRisk = 0.5
	// DefaultHistoryRisk is a placeholder used when no injury history is on
	// record.
	DefaultHistoryRisk = 0.1
)

// Recommendation lines.
const (
	RecHighRisk     = "HIGH RISK: Immediate intervention recommended. Consult with orthopedic specialist."
	RecModerateRisk = "MODERATE RISK: Focus on movement pattern correction and strength training."
	RecLowRisk      = "LOW RISK: Continue with current training while maintaining proper form."
	RecMovement     = "Focus on landing mechanics and knee valgus correction through targeted exercises."
	RecDemographic  = "Address weight management and ensure proper nutrition to reduce joint stress."
)

// Focus area tags.
const (
	FocusLanding      = "Landing Mechanics"
	FocusValgus       = "Knee Valgus Prevention"
	FocusCutting      = "Cutting Technique"
	FocusStrength     = "Strength Training"
	FocusBalance      = "Balance & Proprioception"
	FocusWeight       = "Weight Management"
	FocusConditioning = "General Conditioning"
	FocusWarmup       = "Warm-up Protocols"
	FocusRecovery     = "Recovery"
)

// Input is everything one assessment needs.
type Input struct {
	Profile model.AthleteProfile
	// Samples are the samples of the recent sessions, flattened.
	Samples []model.Sample
	// HistoryRisk overrides the default health-history risk when set.
	HistoryRisk *float64
}

// Assessor computes composite risk assessments. It is safe for concurrent
// use.
type Assessor struct {
	defaultHistory float64
	now            func() time.Time
}

// New returns an Assessor.
func New(opts ...Option) *Assessor {
	a := &Assessor{defaultHistory: DefaultHistoryRisk, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess computes the composite assessment for in. Identical inputs produce
// identical scores, text and focus areas.
func (a *Assessor) Assess(in Input) model.RiskAssessment {
	demographic := DemographicRisk(in.Profile)
	movement := MovementRisk(in.Samples)
	history := a.defaultHistory
	if in.HistoryRisk != nil {
		history = clampUnit(*in.HistoryRisk)
	}
	overall := Overall(demographic, movement, history)

	return model.RiskAssessment{
		AthleteID:       in.Profile.AthleteID,
		Overall:         overall,
		Movement:        movement,
		Demographic:     demographic,
		HealthHistory:   history,
		Recommendations: Recommendations(overall, movement, demographic),
		FocusAreas:      FocusAreas(movement, demographic),
		AssessedAt:      a.now().UTC(),
	}
}

// MovementRisk is the share of samples breaching either threshold. Each
// sample counts once. It returns UnknownMovementRisk for no samples.
func MovementRisk(samples []model.Sample) float64 {
	if len(samples) == 0 {
		return UnknownMovementRisk
	}
	high := 0
	for _, s := range samples {
		if scoring.IsHighRisk(s) {
			high++
		}
	}
	return clampUnit(float64(high) / float64(len(samples)))
}

// Overall blends the three component scores.
func Overall(demographic, movement, history float64) float64 {
	return clampUnit(demographicWeight*demographic + movementWeight*movement + historyWeight*history)
}

// Recommendations builds the newline-separated recommendation text.
func Recommendations(overall, movement, demographic float64) string {
	lines := make([]string, 0, 3)
	switch {
	case overall > 0.7:
		lines = append(lines, RecHighRisk)
	case overall > 0.5:
		lines = append(lines, RecModerateRisk)
	default:
		lines = append(lines, RecLowRisk)
	}
	if movement > 0.6 {
		lines = append(lines, RecMovement)
	}
	if demographic > 0.5 {
		lines = append(lines, RecDemographic)
	}
	return strings.Join(lines, "\n")
}

// FocusAreas returns the ordered focus tags.
func FocusAreas(movement, demographic float64) []string {
	var areas []string
	if movement > 0.5 {
		areas = append(areas, FocusLanding, FocusValgus, FocusCutting)
	}
	if demographic > 0.5 {
		areas = append(areas, FocusStrength, FocusBalance, FocusWeight)
	}
	if len(areas) == 0 {
		areas = []string{FocusConditioning, FocusWarmup, FocusRecovery}
	}
	return areas
}
