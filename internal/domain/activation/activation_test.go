package activation_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/okian/aclguard/internal/domain/activation"
	"github.com/okian/aclguard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInstant(t *testing.T) {
	Convey("Given a deep landing with valgus collapse", t, func() {
		s := model.Sample{
			KneeAngle: 90, HipAngle: 85, AnkleAngle: 80,
			KneeValgus: 20, GroundReactionForce: 3, Movement: model.MovementLanding,
		}
		l := activation.Instant(s)

		So(l[activation.Quadriceps], ShouldAlmostEqual, 50, 1e-9)    // 90/180 * 1 * 100
		So(l[activation.Hamstrings], ShouldAlmostEqual, 75.625, 1e-9) // 70/160*70 + 45
		So(l[activation.Glutes], ShouldAlmostEqual, 85, 1e-9)         // 85/170*50 + 60
		So(l[activation.Calves], ShouldAlmostEqual, 46, 1e-9)         // 40 + 20/100*30
		So(l[activation.HipFlexors], ShouldEqual, 0)
		So(l[activation.HipAdductors], ShouldEqual, 80)
		So(l[activation.HipAbductors], ShouldEqual, 0)
		So(l[activation.Core], ShouldAlmostEqual, 67.5, 1e-9) // 20 + 7.5 + 40
	})

	Convey("Given a cutting step with medial valgus", t, func() {
		s := model.Sample{
			KneeAngle: 150, HipAngle: 180, AnkleAngle: 100,
			KneeValgus: -8, GroundReactionForce: 2, Movement: model.MovementCutting,
		}
		l := activation.Instant(s)

		So(l[activation.Quadriceps], ShouldAlmostEqual, 10, 1e-9)
		So(l[activation.Hamstrings], ShouldAlmostEqual, 4.375, 1e-9)
		So(l[activation.Glutes], ShouldEqual, 0)
		So(l[activation.Calves], ShouldEqual, 0)
		So(l[activation.HipFlexors], ShouldEqual, 0)
		So(l[activation.HipAbductors], ShouldEqual, 49)
		So(l[activation.Core], ShouldEqual, 20)
	})

	Convey("Side steps and running gate their groups", t, func() {
		side := activation.Instant(model.Sample{KneeAngle: 170, HipAngle: 170, AnkleAngle: 120, Movement: model.MovementSideStep})
		So(side[activation.HipAbductors], ShouldEqual, 25)
		So(side[activation.Quadriceps], ShouldEqual, 0)

		run := activation.Instant(model.Sample{KneeAngle: 170, HipAngle: 144, AnkleAngle: 120, Movement: model.MovementRunning})
		So(run[activation.HipFlexors], ShouldAlmostEqual, 10, 1e-9)
	})
}

func TestEstimate(t *testing.T) {
	Convey("Given two samples", t, func() {
		samples := []model.Sample{
			{KneeAngle: 170, HipAngle: 175, AnkleAngle: 110, GroundReactionForce: 1, Movement: model.MovementOther},
			{KneeAngle: 170, HipAngle: 175, AnkleAngle: 110, GroundReactionForce: 3.5, Movement: model.MovementOther},
		}
		p := activation.Estimate(samples)

		Convey("Core reduces to total, average and peak", func() {
			core := p.Get(activation.Core)
			So(core.Total, ShouldAlmostEqual, 55, 1e-9) // 20 + 35
			So(core.Average, ShouldAlmostEqual, 27.5, 1e-9)
			So(core.Peak, ShouldAlmostEqual, 35, 1e-9)
		})

		Convey("The JSON form is keyed by muscle name", func() {
			b, err := json.Marshal(p)
			So(err, ShouldBeNil)
			var m map[string]activation.Activation
			So(json.Unmarshal(b, &m), ShouldBeNil)
			So(len(m), ShouldEqual, 8)
			So(m["core"].Peak, ShouldAlmostEqual, 35, 1e-9)
			So(m, ShouldContainKey, "hip_abductors")
		})
	})

	Convey("An empty series yields a zero profile", t, func() {
		p := activation.Estimate(nil)
		for _, m := range activation.Muscles() {
			So(p.Get(m), ShouldResemble, activation.Activation{})
		}
	})

	Convey("Totals are clamped even when the sum exceeds 100", t, func() {
		var samples []model.Sample
		for range 10 {
			samples = append(samples, model.Sample{KneeAngle: 90, HipAngle: 90, AnkleAngle: 90, Movement: model.MovementOther})
		}
		So(activation.Estimate(samples).Get(activation.Core).Total, ShouldEqual, 100)
	})
}

func TestHyperextendedKnee(t *testing.T) {
	Convey("Given a landing with the knee past 180 degrees and a deep landing", t, func() {
		over := model.Sample{KneeAngle: 270, HipAngle: 175, AnkleAngle: 110, GroundReactionForce: 3, Movement: model.MovementLanding}
		deep := model.Sample{KneeAngle: 0, HipAngle: 175, AnkleAngle: 110, GroundReactionForce: 3, Movement: model.MovementLanding}

		Convey("Then the per-sample quadriceps value keeps its sign", func() {
			So(activation.Instant(over)[activation.Quadriceps], ShouldAlmostEqual, -50, 1e-9)
		})

		Convey("Then the negative value offsets the total and average before clamping", func() {
			quad := activation.Estimate([]model.Sample{over, deep}).Get(activation.Quadriceps)
			So(quad.Total, ShouldAlmostEqual, 50, 1e-9)
			So(quad.Average, ShouldAlmostEqual, 25, 1e-9)
			So(quad.Peak, ShouldAlmostEqual, 100, 1e-9)
		})

		Convey("Then a lone negative series clamps to zero", func() {
			quad := activation.Estimate([]model.Sample{over}).Get(activation.Quadriceps)
			So(quad.Total, ShouldEqual, 0)
			So(quad.Peak, ShouldEqual, 0)
		})
	})
}

func TestClampProperty(t *testing.T) {
	Convey("Adversarial inputs never leave [0, 100]", t, func() {
		extremes := []float64{-360, -1e300, 0, 1e-9, 360, 1e300, math.MaxFloat64, -math.MaxFloat64}
		for _, mt := range model.MovementTypes {
			for _, a := range extremes {
				for _, g := range extremes {
					s := model.Sample{KneeAngle: a, HipAngle: -a, AnkleAngle: a, KneeValgus: g, GroundReactionForce: g, Movement: mt}
					p := activation.Estimate([]model.Sample{s, s})
					for _, m := range activation.Muscles() {
						act := p.Get(m)
						for _, v := range []float64{act.Total, act.Average, act.Peak} {
							So(v, ShouldBeBetweenOrEqual, 0, 100)
						}
					}
				}
			}
		}
	})
}

func TestMuscleNames(t *testing.T) {
	Convey("Muscles stringify to their identifiers", t, func() {
		So(activation.HipAdductors.String(), ShouldEqual, "hip_adductors")
		So(activation.Muscle(42).String(), ShouldEqual, "unknown")
		So(len(activation.Muscles()), ShouldEqual, 8)
	})
}
