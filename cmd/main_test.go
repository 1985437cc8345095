package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/okian/aclguard/internal/adapters/http/api"
	"github.com/okian/aclguard/internal/adapters/http/swagger"
	"github.com/okian/aclguard/internal/adapters/store"
	"github.com/okian/aclguard/internal/adapters/stream"
	app "github.com/okian/aclguard/internal/app"
	"github.com/okian/aclguard/internal/config"
	"github.com/okian/aclguard/pkg/logger"
	"github.com/okian/aclguard/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.So(logger.Init(logger.WithLevel("error")), convey.ShouldBeNil)

		convey.Convey("Configuration is loadable from the environment", func() {
			_ = os.Setenv("ACLGUARD_ADDR", ":8181")
			_ = os.Setenv("ACLGUARD_WORKER_COUNT", "3")
			defer func() {
				_ = os.Unsetenv("ACLGUARD_ADDR")
				_ = os.Unsetenv("ACLGUARD_WORKER_COUNT")
			}()

			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
		})

		convey.Convey("The full mux serves API, docs, metrics and lanes", func() {
			ctx := context.Background()
			st, err := store.Open(ctx, config.DriverMemory, "")
			convey.So(err, convey.ShouldBeNil)
			svc := app.New(st, app.WithWorkerCount(1))
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			mux := http.NewServeMux()
			swagger.Register(ctx, mux)
			api.NewServer(svc, svc, stream.NewHandler(st), 100).Register(ctx, mux)

			for _, path := range []string{"/openapi.yaml", "/healthz", "/stats", "/team/risk-board"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/ws/biomechanics/unknown", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("System metrics are exported", func() {
			updateSystemMetrics()
			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			found := false
			for _, f := range families {
				if strings.HasSuffix(f.GetName(), "system_goroutines") {
					found = true
				}
			}
			convey.So(found, convey.ShouldBeTrue)
		})
	})
}
