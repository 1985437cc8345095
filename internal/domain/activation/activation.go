// Package activation estimates muscle-group activation from kinematics.
//
// The estimate is a heuristic biomechanical proxy driven by joint angles,
// ground reaction force and the movement type. It is not a validated EMG
// model. Formulas operate directly on degree values.
package activation

import (
	"encoding/json"
	"math"

	"github.com/okian/aclguard/internal/domain/model"
)

// Muscle identifies a muscle group.
type Muscle int

const (
	Quadriceps Muscle = iota
	Hamstrings
	Glutes
	Calves
	HipFlexors
	HipAdductors
	HipAbductors
	Core

	muscleCount
)

var muscleNames = [muscleCount]string{
	Quadriceps:   "quadriceps",
	Hamstrings:   "hamstrings",
	Glutes:       "glutes",
	Calves:       "calves",
	HipFlexors:   "hip_flexors",
	HipAdductors: "hip_adductors",
	HipAbductors: "hip_abductors",
	Core:         "core",
}

// Muscles lists every group in declaration order.
func Muscles() []Muscle {
	out := make([]Muscle, muscleCount)
	for i := range out {
		out[i] = Muscle(i)
	}
	return out
}

func (m Muscle) String() string {
	if m < 0 || m >= muscleCount {
		return "unknown"
	}
	return muscleNames[m]
}

// Levels maps every muscle group to a value.
type Levels [muscleCount]float64

// Activation is the reduced series for one muscle group.
type Activation struct {
	Total   float64 `json:"total" yaml:"total"`
	Average float64 `json:"average" yaml:"average"`
	Peak    float64 `json:"peak" yaml:"peak"`
}

// Profile holds the activation of every muscle group, each value in [0, 100].
type Profile struct {
	groups [muscleCount]Activation
}

// Get returns the activation of m.
func (p Profile) Get(m Muscle) Activation {
	if m < 0 || m >= muscleCount {
		return Activation{}
	}
	return p.groups[m]
}

// Map returns the profile keyed by muscle name.
func (p Profile) Map() map[string]Activation {
	out := make(map[string]Activation, muscleCount)
	for i, a := range p.groups {
		out[muscleNames[i]] = a
	}
	return out
}

// MarshalJSON encodes the profile as an object keyed by muscle name.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// MarshalYAML encodes the profile as a mapping keyed by muscle name.
func (p Profile) MarshalYAML() (any, error) {
	return p.Map(), nil
}

const maxActivation = 100.0

// Instant returns the per-sample activation of every muscle group. Values
// are neither floored nor capped: angles beyond 180 degrees yield negative
// contributions that offset the session totals. Only NaN is mapped to zero.
func Instant(s model.Sample) Levels {
	var l Levels
	knee, hip, ankle := s.KneeAngle, s.HipAngle, s.AnkleAngle
	valgus, grf := s.KneeValgus, s.GroundReactionForce
	absValgus := math.Abs(valgus)
	mt := s.Movement

	switch mt {
	case model.MovementLanding, model.MovementJumping:
		l[Quadriceps] = (180 - knee) / 180 * (grf / 3) * 100
	case model.MovementCutting, model.MovementPivoting:
		l[Quadriceps] = (180 - knee) / 180 * 60
	}

	if knee < 160 {
		l[Hamstrings] = (160 - knee) / 160 * 70
	}
	if mt == model.MovementLanding {
		l[Hamstrings] += grf * 15
	}

	if hip < 170 {
		l[Glutes] = (170 - hip) / 170 * 50
	}
	if absValgus > 10 {
		l[Glutes] += absValgus * 3
	}

	if mt == model.MovementLanding || mt == model.MovementJumping {
		l[Calves] += (grf / 3) * 40
	}
	if ankle < 100 {
		l[Calves] += (100 - ankle) / 100 * 30
	}

	if mt == model.MovementCutting || mt == model.MovementRunning {
		l[HipFlexors] = (180 - hip) / 180 * 50
	}

	if valgus > 10 {
		l[HipAdductors] = valgus * 4
	}

	if valgus < -5 {
		l[HipAbductors] = absValgus * 3
	}
	if mt == model.MovementCutting || mt == model.MovementSideStep {
		l[HipAbductors] += 25
	}

	l[Core] = 20
	if grf > 2.5 {
		l[Core] += (grf - 2.5) * 15
	}
	if absValgus > 10 {
		l[Core] += absValgus * 2
	}

	for i := range l {
		if math.IsNaN(l[i]) {
			l[i] = 0
		}
	}
	return l
}

// Estimate reduces the per-sample activations of samples to total, average
// and peak per muscle group. An empty input yields a zero profile.
func Estimate(samples []model.Sample) Profile {
	var p Profile
	if len(samples) == 0 {
		return p
	}
	var sum, peak Levels
	for i, s := range samples {
		l := Instant(s)
		for m := range l {
			sum[m] += l[m]
			if i == 0 || l[m] > peak[m] {
				peak[m] = l[m]
			}
		}
	}
	n := float64(len(samples))
	for m := range p.groups {
		p.groups[m] = Activation{
			Total:   clamp(sum[m]),
			Average: clamp(sum[m] / n),
			Peak:    clamp(peak[m]),
		}
	}
	return p
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(maxActivation, v))
}
