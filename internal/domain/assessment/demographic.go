package assessment

import (
	"math"

	"github.com/okian/aclguard/internal/domain/model"
)

// Demographic contributions.
const (
	femaleRisk     = 0.25
	adolescentRisk = 0.15
	obeseRisk      = 0.20
	overweightRisk = 0.10
	ruralRisk      = 0.10

	adolescentMinAge = 15
	adolescentMaxAge = 18
	obeseBMI         = 30.0
	overweightBMI    = 25.0
)

// DemographicRisk scores an athlete profile, in [0, 1].
func DemographicRisk(p model.AthleteProfile) float64 {
	risk := 0.0
	if p.Sex == model.SexFemale {
		risk += femaleRisk
	}
	if p.Age >= adolescentMinAge && p.Age <= adolescentMaxAge {
		risk += adolescentRisk
	}
	switch {
	case p.BMI >= obeseBMI:
		risk += obeseRisk
	case p.BMI >= overweightBMI:
		risk += overweightRisk
	}
	if p.Rural {
		risk += ruralRisk
	}
	return clampUnit(risk)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
