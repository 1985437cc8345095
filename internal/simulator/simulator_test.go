package simulator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/aclguard/internal/adapters/store"
	"github.com/okian/aclguard/internal/adapters/stream"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
	"github.com/okian/aclguard/internal/domain/validate"
	"github.com/okian/aclguard/internal/simulator"
	"github.com/okian/aclguard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithLevel("error"))
	os.Exit(m.Run())
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := simulator.NewGenerator(42, t0, time.Second, 0.5)
		b := simulator.NewGenerator(42, t0, time.Second, 0.5)

		Convey("Then they produce the same samples", func() {
			So(a.Samples(20), ShouldResemble, b.Samples(20))
		})
	})

	Convey("Given a generator", t, func() {
		g := simulator.NewGenerator(7, t0, 250*time.Millisecond, 0.3)

		Convey("Then every wire sample validates and timestamps increase", func() {
			raws := g.Batch(100)
			samples, errs := validate.Samples(raws)
			So(errs, ShouldBeEmpty)
			So(samples, ShouldHaveLength, 100)
			So(samples[0].Timestamp.Equal(t0), ShouldBeTrue)
			for i := 1; i < len(samples); i++ {
				So(samples[i].Timestamp.After(samples[i-1].Timestamp), ShouldBeTrue)
			}
		})
	})

	Convey("Given the high-risk ratio extremes", t, func() {
		Convey("When the ratio is 0 then no sample is high risk", func() {
			for _, s := range simulator.NewGenerator(1, t0, time.Second, 0).Samples(200) {
				So(scoring.IsHighRisk(s), ShouldBeFalse)
			}
		})
		Convey("When the ratio is 1 then every sample is high risk", func() {
			for _, s := range simulator.NewGenerator(1, t0, time.Second, 1).Samples(200) {
				So(scoring.IsHighRisk(s), ShouldBeTrue)
			}
		})
	})
}

func TestLaneURL(t *testing.T) {
	Convey("LaneURL maps the base to a lane endpoint", t, func() {
		u, err := simulator.LaneURL("http://localhost:8080/", "s 1")
		So(err, ShouldBeNil)
		So(u, ShouldEqual, "ws://localhost:8080/ws/biomechanics/s%201")

		u, err = simulator.LaneURL("https://api.example.com", "s1")
		So(err, ShouldBeNil)
		So(u, ShouldEqual, "wss://api.example.com/ws/biomechanics/s1")

		_, err = simulator.LaneURL("ftp://host", "s1")
		So(err, ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a lane server with two sessions", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		So(st.SaveAthlete(ctx, model.AthleteProfile{AthleteID: "a1", Sex: model.SexFemale, Age: 19}), ShouldBeNil)
		So(st.CreateSession(ctx, model.SessionInfo{ID: "s1", AthleteID: "a1", StartedAt: t0}), ShouldBeNil)
		So(st.CreateSession(ctx, model.SessionInfo{ID: "s2", AthleteID: "a1", StartedAt: t0}), ShouldBeNil)

		closed := make(chan stream.Result, 2)
		h := stream.NewHandler(st, stream.WithLaneOptions(
			stream.WithOnClose(func(_ context.Context, r stream.Result) { closed <- r }),
		))
		mux := http.NewServeMux()
		mux.Handle("GET /ws/biomechanics/{session_id}", h)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the simulator streams into both", func() {
			rep, err := simulator.Run(ctx, simulator.Config{
				BaseURL:       srv.URL,
				Sessions:      []string{"s1", "s2"},
				Samples:       25,
				Concurrency:   2,
				HighRiskRatio: 0.5,
				Seed:          3,
			})
			So(err, ShouldBeNil)

			for range 2 {
				select {
				case <-closed:
				case <-time.After(3 * time.Second):
					t.Fatal("lane did not close")
				}
			}

			Convey("Then every reply matched and the samples were stored", func() {
				So(rep.OK(), ShouldBeTrue)
				So(rep.RunID, ShouldNotBeEmpty)
				So(rep.Sent, ShouldEqual, 50)
				So(rep.Feedback, ShouldEqual, 50)
				So(rep.Lanes, ShouldHaveLength, 2)
				So(rep.Lanes[0].SessionID, ShouldEqual, "s1")

				for _, id := range []string{"s1", "s2"} {
					stored, err := st.LoadSessionSamples(ctx, id)
					So(err, ShouldBeNil)
					So(stored, ShouldHaveLength, 25)
				}
			})
		})

		Convey("When a session does not exist", func() {
			_, err := simulator.Run(ctx, simulator.Config{
				BaseURL:  srv.URL,
				Sessions: []string{"missing"},
				Samples:  3,
			})

			Convey("Then the run fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "404")
			})
		})
	})

	Convey("Run rejects an empty configuration", t, func() {
		_, err := simulator.Run(context.Background(), simulator.Config{Sessions: []string{"s1"}})
		So(err, ShouldEqual, simulator.ErrMissingURL)
		_, err = simulator.Run(context.Background(), simulator.Config{BaseURL: "ws://x"})
		So(err, ShouldEqual, simulator.ErrNoSessions)
	})
}
