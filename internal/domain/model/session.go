package model

import "time"

// SessionInfo describes a training session independent of its samples.
type SessionInfo struct {
	ID              string     `json:"id" yaml:"id"`
	AthleteID       string     `json:"athlete_id" yaml:"athlete_id"`
	SessionType     string     `json:"session_type" yaml:"session_type"`
	Sport           string     `json:"sport" yaml:"sport"`
	DurationMinutes int        `json:"duration_minutes" yaml:"duration_minutes"`
	StartedAt       time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
}

// SessionStats is the persisted view of a session summary.
type SessionStats struct {
	SessionID         string               `json:"session_id" yaml:"session_id"`
	TotalMovements    int                  `json:"total_movements" yaml:"total_movements"`
	HighRiskMovements int                  `json:"high_risk_movements" yaml:"high_risk_movements"`
	AvgKneeValgus     float64              `json:"avg_knee_valgus" yaml:"avg_knee_valgus"`
	AvgGRF            float64              `json:"avg_ground_reaction_force" yaml:"avg_ground_reaction_force"`
	PeakGRF           float64              `json:"peak_impact_force" yaml:"peak_impact_force"`
	MovementCounts    map[MovementType]int `json:"movement_types" yaml:"movement_types"`
}

// HighRiskPercentage returns the share of high-risk samples in percent.
func (s SessionStats) HighRiskPercentage() float64 {
	if s.TotalMovements == 0 {
		return 0
	}
	return float64(s.HighRiskMovements) / float64(s.TotalMovements) * 100
}
