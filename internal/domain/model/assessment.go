package model

import "time"

// RiskAssessment is the composite result for one athlete. All scores are
// within [0, 1].
type RiskAssessment struct {
	AthleteID       string    `json:"athlete_id" yaml:"athlete_id"`
	Overall         float64   `json:"overall_risk" yaml:"overall_risk"`
	Movement        float64   `json:"movement_risk" yaml:"movement_risk"`
	Demographic     float64   `json:"demographic_risk" yaml:"demographic_risk"`
	HealthHistory   float64   `json:"health_history_risk" yaml:"health_history_risk"`
	Recommendations string    `json:"recommendations" yaml:"recommendations"`
	FocusAreas      []string  `json:"focus_areas" yaml:"focus_areas"`
	AssessedAt      time.Time `json:"assessed_at" yaml:"assessed_at"`
}

// AssessmentRequest asks the worker pool to recompute an athlete's
// assessment.
type AssessmentRequest struct {
	RequestID string
	AthleteID string
	// SessionID names the session that triggered the request, if any.
	SessionID string
	Requested time.Time
}
