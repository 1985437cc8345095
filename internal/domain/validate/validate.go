// Package validate turns raw sensor readings into trusted samples.
package validate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/aclguard/internal/domain/model"
)

// Physical bounds for raw readings.
const (
	MaxAbsAngle = 360.0
	MaxGRF      = 20.0
)

// RawSample is a reading as it arrives on the wire. Pointers distinguish a
// missing field from a zero value.
type RawSample struct {
	Timestamp           *time.Time `json:"timestamp" yaml:"timestamp"`
	KneeAngle           *float64   `json:"knee_angle" yaml:"knee_angle"`
	HipAngle            *float64   `json:"hip_angle" yaml:"hip_angle"`
	AnkleAngle          *float64   `json:"ankle_angle" yaml:"ankle_angle"`
	KneeValgus          *float64   `json:"knee_valgus" yaml:"knee_valgus"`
	GroundReactionForce *float64   `json:"ground_reaction_force" yaml:"ground_reaction_force"`
	MovementType        string     `json:"movement_type" yaml:"movement_type"`
}

// Error lists every problem found in one raw sample.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return model.ErrInvalidSample.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Unwrap makes errors.Is(err, model.ErrInvalidSample) hold.
func (e *Error) Unwrap() error { return model.ErrInvalidSample }

// Sample validates raw and returns the corresponding model.Sample.
func Sample(raw RawSample) (model.Sample, error) {
	var problems []string

	if raw.Timestamp == nil || raw.Timestamp.IsZero() {
		problems = append(problems, "timestamp is required")
	}

	angle := func(name string, v *float64) float64 {
		switch {
		case v == nil:
			problems = append(problems, name+" is required")
		case !finite(*v):
			problems = append(problems, name+" must be finite")
		case math.Abs(*v) > MaxAbsAngle:
			problems = append(problems, fmt.Sprintf("%s %.2f outside [-%g, %g]", name, *v, MaxAbsAngle, MaxAbsAngle))
		default:
			return *v
		}
		return 0
	}
	knee := angle("knee_angle", raw.KneeAngle)
	hip := angle("hip_angle", raw.HipAngle)
	ankle := angle("ankle_angle", raw.AnkleAngle)
	valgus := angle("knee_valgus", raw.KneeValgus)

	var grf float64
	switch v := raw.GroundReactionForce; {
	case v == nil:
		problems = append(problems, "ground_reaction_force is required")
	case !finite(*v):
		problems = append(problems, "ground_reaction_force must be finite")
	case *v < 0 || *v > MaxGRF:
		problems = append(problems, fmt.Sprintf("ground_reaction_force %.2f outside [0, %g]", *v, MaxGRF))
	default:
		grf = *v
	}

	mt, err := model.ParseMovementType(raw.MovementType)
	if err != nil {
		problems = append(problems, fmt.Sprintf("movement_type %q is not recognized", raw.MovementType))
	}

	if len(problems) > 0 {
		return model.Sample{}, &Error{Problems: problems}
	}
	return model.Sample{
		Timestamp:           raw.Timestamp.UTC(),
		KneeAngle:           knee,
		HipAngle:            hip,
		AnkleAngle:          ankle,
		KneeValgus:          valgus,
		GroundReactionForce: grf,
		Movement:            mt,
	}, nil
}

// Samples validates a batch. It returns the valid samples in input order and
// a map from input index to error for the rejected ones.
func Samples(raws []RawSample) ([]model.Sample, map[int]error) {
	out := make([]model.Sample, 0, len(raws))
	var errs map[int]error
	for i, raw := range raws {
		s, err := Sample(raw)
		if err != nil {
			if errs == nil {
				errs = make(map[int]error)
			}
			errs[i] = err
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

// Raw converts a validated sample back to its wire form.
func Raw(s model.Sample) RawSample {
	ts := s.Timestamp
	knee, hip, ankle := s.KneeAngle, s.HipAngle, s.AnkleAngle
	valgus, grf := s.KneeValgus, s.GroundReactionForce
	return RawSample{
		Timestamp:           &ts,
		KneeAngle:           &knee,
		HipAngle:            &hip,
		AnkleAngle:          &ankle,
		KneeValgus:          &valgus,
		GroundReactionForce: &grf,
		MovementType:        string(s.Movement),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
