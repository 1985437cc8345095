package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/okian/aclguard/internal/adapters/store"
	"github.com/okian/aclguard/internal/adapters/stream"
	"github.com/okian/aclguard/internal/domain/assessment"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const sequenceFile = `
- timestamp: 2026-03-01T09:00:02Z
  knee_angle: 40
  hip_angle: 30
  ankle_angle: 10
  knee_valgus: 5
  ground_reaction_force: 1.5
  movement_type: running
- timestamp: 2026-03-01T09:00:01Z
  knee_angle: 35
  hip_angle: 25
  ankle_angle: 12
  knee_valgus: 18
  ground_reaction_force: 4.2
  movement_type: landing
- timestamp: 2026-03-01T09:00:03Z
  knee_angle: 35
  movement_type: cutting
`

const documentFile = `
profile:
  athlete_id: a7
  sex: female
  age: 17
  bmi: 22.5
samples:
  - timestamp: 2026-03-01T09:00:00Z
    knee_angle: 40
    hip_angle: 30
    ankle_angle: 10
    knee_valgus: 16
    ground_reaction_force: 2
    movement_type: cutting
`

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

func TestReadSamples(t *testing.T) {
	Convey("Given a bare list of samples", t, func() {
		doc, err := readSamples(strings.NewReader(sequenceFile))
		So(err, ShouldBeNil)

		Convey("Then every entry is decoded without a profile", func() {
			So(doc.Profile, ShouldBeNil)
			So(doc.Samples, ShouldHaveLength, 3)
			So(doc.Samples[1].KneeValgus, ShouldNotBeNil)
			So(*doc.Samples[1].KneeValgus, ShouldEqual, 18.0)
			So(doc.Samples[2].HipAngle, ShouldBeNil)
		})
	})

	Convey("Given a document with a profile", t, func() {
		doc, err := readSamples(strings.NewReader(documentFile))
		So(err, ShouldBeNil)
		So(doc.Profile, ShouldNotBeNil)
		So(doc.Profile.AthleteID, ShouldEqual, "a7")
		So(doc.Profile.Sex, ShouldEqual, model.SexFemale)
		So(doc.Samples, ShouldHaveLength, 1)
	})

	Convey("Given an empty or scalar input", t, func() {
		_, err := readSamples(strings.NewReader(""))
		So(err, ShouldEqual, errNoSamples)

		_, err = readSamples(strings.NewReader("just text"))
		So(err, ShouldNotBeNil)
	})
}

func TestAnalyze(t *testing.T) {
	Convey("Given a file with two valid samples and one broken one", t, func() {
		doc, err := readSamples(strings.NewReader(sequenceFile))
		So(err, ShouldBeNil)
		profile := model.AthleteProfile{AthleteID: "a1", Sex: model.SexFemale, Age: 17, BMI: 22}

		Convey("When analyzed with the default history risk", func() {
			res, err := analyze(profile, doc.Samples, nil)
			So(err, ShouldBeNil)

			Convey("Then the broken sample is reported and the rest summarized", func() {
				So(res.Rejected, ShouldHaveLength, 1)
				So(res.Rejected, ShouldContainKey, 2)
				So(res.Statistics.TotalMovements, ShouldEqual, 2)
				So(res.Statistics.HighRiskMovements, ShouldEqual, 1)
				So(res.HighRiskPercentage, ShouldEqual, 50.0)
				So(res.Statistics.PeakGRF, ShouldEqual, 4.2)
				So(res.Statistics.MovementCounts[model.MovementLanding], ShouldEqual, 1)
			})

			Convey("Then the assessment covers the valid samples", func() {
				So(res.Assessment.AthleteID, ShouldEqual, "a1")
				So(res.Assessment.Movement, ShouldEqual, 0.5)
				So(res.Assessment.HealthHistory, ShouldEqual, assessment.DefaultHistoryRisk)
				So(res.Assessment.Overall, ShouldBeBetweenOrEqual, 0.0, 1.0)
			})
		})

		Convey("When a history risk is supplied", func() {
			h := 0.9
			res, err := analyze(profile, doc.Samples, &h)
			So(err, ShouldBeNil)
			So(res.Assessment.HealthHistory, ShouldEqual, 0.9)
		})
	})

	Convey("Given only invalid samples", t, func() {
		doc, err := readSamples(strings.NewReader("- movement_type: landing\n- {}\n"))
		So(err, ShouldBeNil)
		_, err = analyze(model.AthleteProfile{AthleteID: "a1"}, doc.Samples, nil)
		So(errors.Is(err, errNoSamples), ShouldBeTrue)
	})
}

func TestAnalyzeCommand(t *testing.T) {
	Convey("Given a sample file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "samples.yaml")
		So(os.WriteFile(path, []byte(documentFile), 0o600), ShouldBeNil)

		Convey("When aclctl analyze runs with json output and a profile override", func() {
			var out bytes.Buffer
			err := newApp(&out).Run(context.Background(), []string{
				"aclctl", "--format", "json", "analyze", "--file", path, "--age", "30", "--rural",
			})
			So(err, ShouldBeNil)

			Convey("Then the output is the analysis with the overridden profile", func() {
				var got map[string]any
				So(json.Unmarshal(out.Bytes(), &got), ShouldBeNil)
				So(got, ShouldContainKey, "muscle_activation")
				prof := got["profile"].(map[string]any)
				So(prof["athlete_id"], ShouldEqual, "a7")
				So(prof["age"], ShouldEqual, 30.0)
				So(prof["rural"], ShouldEqual, true)
				stats := got["statistics"].(map[string]any)
				So(stats["total_movements"], ShouldEqual, 1.0)
			})
		})
	})
}

func TestSimulateCommand(t *testing.T) {
	Convey("Given a lane server with one session", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		So(st.SaveAthlete(ctx, model.AthleteProfile{AthleteID: "a1", Sex: model.SexMale, Age: 24}), ShouldBeNil)
		So(st.CreateSession(ctx, model.SessionInfo{ID: "s1", AthleteID: "a1"}), ShouldBeNil)

		mux := http.NewServeMux()
		mux.Handle("GET /ws/biomechanics/{session_id}", stream.NewHandler(st))
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When aclctl simulate streams into it", func() {
			var out bytes.Buffer
			err := newApp(&out).Run(ctx, []string{
				"aclctl", "--format", "yaml", "simulate",
				"--url", srv.URL, "--session", "s1", "--samples", "10", "--seed", "5",
			})
			So(err, ShouldBeNil)

			Convey("Then the yaml report shows every sample acknowledged", func() {
				var got map[string]any
				So(yaml.Unmarshal(out.Bytes(), &got), ShouldBeNil)
				So(got["sent"], ShouldEqual, 10)
				So(got["feedback"], ShouldEqual, 10)
				So(got["errors"], ShouldEqual, 0)
				So(got["run_id"], ShouldNotBeEmpty)
			})
		})
	})
}

func TestPrintOutput(t *testing.T) {
	Convey("printOutput rejects unknown formats", t, func() {
		So(printOutput(&bytes.Buffer{}, "xml", struct{}{}), ShouldNotBeNil)
	})
}
