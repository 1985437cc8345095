// Package config defines service configuration and its defaults.
package config

import (
	"context"
	"runtime"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the reassessment queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of reassessment workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the capacity of the idempotency-key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBoardLimit caps GET /team/risk-board?limit.
	MaxBoardLimit int `koanf:"max_board_limit"`

	// StoreDriver selects memory, sqlite or postgres persistence.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the database path (sqlite) or connection string (postgres).
	StoreDSN string `koanf:"store_dsn"`

	// RecentSessionLimit is how many recent sessions feed an assessment.
	RecentSessionLimit int `koanf:"recent_session_limit"`

	// DefaultHistoryRisk applies when no injury-history risk is on record.
	DefaultHistoryRisk float64 `koanf:"default_history_risk"`

	// BatchConcurrency bounds concurrent assessments in a batch request.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// StreamReadLimitBytes caps a single inbound stream message.
	StreamReadLimitBytes int64 `koanf:"stream_read_limit_bytes"`

	// StreamIdleTimeoutMS closes a lane that stays silent this long. Zero disables it.
	StreamIdleTimeoutMS int `koanf:"stream_idle_timeout_ms"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           50_000,
		MaxBoardLimit:        100,
		StoreDriver:          DriverMemory,
		StoreDSN:             "",
		RecentSessionLimit:   10,
		DefaultHistoryRisk:   0.1,
		BatchConcurrency:     8,
		StreamReadLimitBytes: 64 << 10,
		StreamIdleTimeoutMS:  60_000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return wrapInvalid("addr must not be empty")
	case c.QueueSize <= 0:
		return wrapInvalid("queue_size must be positive")
	case c.WorkerCount <= 0:
		return wrapInvalid("worker_count must be positive")
	case c.RecentSessionLimit <= 0:
		return wrapInvalid("recent_session_limit must be positive")
	case c.DefaultHistoryRisk < 0 || c.DefaultHistoryRisk > 1:
		return wrapInvalid("default_history_risk must be within [0, 1]")
	case c.BatchConcurrency <= 0:
		return wrapInvalid("batch_concurrency must be positive")
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return wrapInvalid("store_dsn is required for driver " + c.StoreDriver)
		}
	default:
		return wrapInvalid("unknown store_driver " + c.StoreDriver)
	}
	return nil
}
