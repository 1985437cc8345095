package assessment_test

import (
	"strings"
	"testing"
	"time"

	"github.com/okian/aclguard/internal/domain/assessment"
	"github.com/okian/aclguard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDemographicRisk(t *testing.T) {
	Convey("Given athlete profiles", t, func() {
		Convey("Every factor present sums to 0.70", func() {
			p := model.AthleteProfile{Sex: model.SexFemale, Age: 16, BMI: 31, Rural: true}
			So(assessment.DemographicRisk(p), ShouldAlmostEqual, 0.70, 1e-9)
		})

		Convey("No factor present scores zero", func() {
			p := model.AthleteProfile{Sex: model.SexMale, Age: 25, BMI: 22}
			So(assessment.DemographicRisk(p), ShouldEqual, 0)
		})

		Convey("Age bounds are inclusive", func() {
			So(assessment.DemographicRisk(model.AthleteProfile{Age: 15}), ShouldAlmostEqual, 0.15, 1e-9)
			So(assessment.DemographicRisk(model.AthleteProfile{Age: 18}), ShouldAlmostEqual, 0.15, 1e-9)
			So(assessment.DemographicRisk(model.AthleteProfile{Age: 19}), ShouldEqual, 0)
		})

		Convey("BMI bands do not stack", func() {
			So(assessment.DemographicRisk(model.AthleteProfile{BMI: 25}), ShouldAlmostEqual, 0.10, 1e-9)
			So(assessment.DemographicRisk(model.AthleteProfile{BMI: 30}), ShouldAlmostEqual, 0.20, 1e-9)
		})
	})
}

func TestMovementRisk(t *testing.T) {
	Convey("Given recent samples", t, func() {
		Convey("No samples means moderate unknown risk", func() {
			So(assessment.MovementRisk(nil), ShouldEqual, 0.5)
		})

		Convey("A sample breaching both thresholds counts once", func() {
			samples := []model.Sample{
				{KneeValgus: 20, GroundReactionForce: 4},
				{KneeValgus: 5, GroundReactionForce: 1},
			}
			So(assessment.MovementRisk(samples), ShouldEqual, 0.5)
		})

		Convey("All breaching samples give full risk", func() {
			samples := []model.Sample{{KneeValgus: 16}, {GroundReactionForce: 3.1}}
			So(assessment.MovementRisk(samples), ShouldEqual, 1)
		})
	})
}

func TestAssess(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given an assessor with a fixed clock", t, func() {
		a := assessment.New(assessment.WithClock(func() time.Time { return fixed }))

		Convey("The documented blend yields a moderate assessment", func() {
			So(assessment.Overall(0.70, 0.8, 0.1), ShouldAlmostEqual, 0.63, 1e-9)
			So(assessment.Recommendations(0.63, 0.8, 0.70), ShouldEqual, strings.Join([]string{
				assessment.RecModerateRisk, assessment.RecMovement, assessment.RecDemographic,
			}, "\n"))
			So(assessment.FocusAreas(0.8, 0.70), ShouldResemble, []string{
				assessment.FocusLanding, assessment.FocusValgus, assessment.FocusCutting,
				assessment.FocusStrength, assessment.FocusBalance, assessment.FocusWeight,
			})
		})

		Convey("An athlete with no samples uses the defaults", func() {
			res := a.Assess(assessment.Input{Profile: model.AthleteProfile{AthleteID: "a1", Age: 30, BMI: 22}})
			So(res.AthleteID, ShouldEqual, "a1")
			So(res.Movement, ShouldEqual, 0.5)
			So(res.HealthHistory, ShouldEqual, 0.1)
			So(res.Overall, ShouldAlmostEqual, 0.27, 1e-9)
			So(res.Recommendations, ShouldEqual, assessment.RecLowRisk)
			So(res.FocusAreas, ShouldResemble, []string{
				assessment.FocusConditioning, assessment.FocusWarmup, assessment.FocusRecovery,
			})
			So(res.AssessedAt, ShouldEqual, fixed)
		})

		Convey("A high-risk athlete crosses the top tier", func() {
			history := 0.9
			samples := []model.Sample{{KneeValgus: 25, GroundReactionForce: 4}, {KneeValgus: 18}}
			res := a.Assess(assessment.Input{
				Profile:     model.AthleteProfile{Sex: model.SexFemale, Age: 16, BMI: 31, Rural: true},
				Samples:     samples,
				HistoryRisk: &history,
			})
			So(res.Overall, ShouldAlmostEqual, 0.3*0.7+0.5*1+0.2*0.9, 1e-9)
			So(strings.Split(res.Recommendations, "\n")[0], ShouldEqual, assessment.RecHighRisk)
			So(res.HealthHistory, ShouldEqual, 0.9)
		})

		Convey("Out of range history is clamped", func() {
			history := 3.0
			res := a.Assess(assessment.Input{HistoryRisk: &history})
			So(res.HealthHistory, ShouldEqual, 1)
		})

		Convey("Identical inputs give identical results", func() {
			in := assessment.Input{
				Profile: model.AthleteProfile{Sex: model.SexFemale, Age: 17, BMI: 26},
				Samples: []model.Sample{{KneeValgus: 16}, {KneeValgus: 3}, {GroundReactionForce: 5}},
			}
			So(a.Assess(in), ShouldResemble, a.Assess(in))
		})
	})

	Convey("The default history risk can be overridden", t, func() {
		a := assessment.New(assessment.WithDefaultHistoryRisk(0.4))
		So(a.Assess(assessment.Input{}).HealthHistory, ShouldEqual, 0.4)

		ignored := assessment.New(assessment.WithDefaultHistoryRisk(7))
		So(ignored.Assess(assessment.Input{}).HealthHistory, ShouldEqual, 0.1)
	})
}
