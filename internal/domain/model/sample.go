// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MovementType tags the movement a sample was captured during.
type MovementType string

const (
	MovementLanding  MovementType = "landing"
	MovementCutting  MovementType = "cutting"
	MovementPivoting MovementType = "pivoting"
	MovementJumping  MovementType = "jumping"
	MovementRunning  MovementType = "running"
	MovementSideStep MovementType = "side_step"
	MovementOther    MovementType = "other"
)

// MovementTypes lists every accepted movement tag in a stable order.
var MovementTypes = []MovementType{
	MovementLanding, MovementCutting, MovementPivoting, MovementJumping,
	MovementRunning, MovementSideStep, MovementOther,
}

// ParseMovementType normalizes a tag. Matching ignores case and surrounding
// whitespace; "side-step" and "sidestep" map to side_step.
func ParseMovementType(s string) (MovementType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "side-step", "sidestep", "side step":
		return MovementSideStep, nil
	}
	for _, mt := range MovementTypes {
		if string(mt) == norm {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: unknown movement type %q", ErrInvalidSample, s)
}

// Sample is one validated biomechanics reading. Angles are degrees, ground
// reaction force is in body-weight multiples and positive knee valgus means
// inward collapse.
type Sample struct {
	Timestamp           time.Time    `json:"timestamp" yaml:"timestamp"`
	KneeAngle           float64      `json:"knee_angle" yaml:"knee_angle"`
	HipAngle            float64      `json:"hip_angle" yaml:"hip_angle"`
	AnkleAngle          float64      `json:"ankle_angle" yaml:"ankle_angle"`
	KneeValgus          float64      `json:"knee_valgus" yaml:"knee_valgus"`
	GroundReactionForce float64      `json:"ground_reaction_force" yaml:"ground_reaction_force"`
	Movement            MovementType `json:"movement_type" yaml:"movement_type"`
}

// ScoredSample pairs a sample with its per-sample risk score.
type ScoredSample struct {
	Sample
	RiskScore float64 `json:"risk_score" yaml:"risk_score"`
}
