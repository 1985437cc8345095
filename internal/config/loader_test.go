package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/aclguard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RecentSessionLimit, convey.ShouldEqual, 10)
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("ACLGUARD_ADDR", ":8080")
			_ = os.Setenv("ACLGUARD_QUEUE_SIZE", "512")
			_ = os.Setenv("ACLGUARD_WORKER_COUNT", "3")
			_ = os.Setenv("ACLGUARD_DEFAULT_HISTORY_RISK", "0.25")
			_ = os.Setenv("ACLGUARD_STORE_DRIVER", "sqlite")
			_ = os.Setenv("ACLGUARD_STORE_DSN", "/tmp/aclguard.db")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 512)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			convey.So(cfg.DefaultHistoryRisk, convey.ShouldEqual, 0.25)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.StoreDSN, convey.ShouldEqual, "/tmp/aclguard.db")
		})

		convey.Convey("When loading from a YAML file", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
queue_size: 300
recent_session_limit: 5
log_format: json
`)
			_ = os.Setenv("ACLGUARD_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			convey.So(cfg.RecentSessionLimit, convey.ShouldEqual, 5)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			convey.So(cfg.MaxBoardLimit, convey.ShouldEqual, 100)

			convey.Convey("Then env vars take precedence over the file", func() {
				_ = os.Setenv("ACLGUARD_ADDR", ":7070")

				cfg, err := config.Load(ctx)

				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			_ = os.Setenv("ACLGUARD_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("ACLGUARD_CONFIG", "/non/existent/aclguard.yaml")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the file empties the address", func() {
			_ = os.Setenv("ACLGUARD_CONFIG", createTempConfigFile(t, `addr: ""`))

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("ACLGUARD_WORKER_COUNT", "lots")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func clearConfigEnvVars() {
	for _, name := range []string{
		"ACLGUARD_CONFIG", "ACLGUARD_ADDR", "ACLGUARD_QUEUE_SIZE", "ACLGUARD_WORKER_COUNT",
		"ACLGUARD_DEFAULT_HISTORY_RISK", "ACLGUARD_STORE_DRIVER", "ACLGUARD_STORE_DSN",
	} {
		_ = os.Unsetenv(name)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aclguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
