// Package simulator streams synthetic biomechanics samples over websocket
// lanes and checks the feedback the server sends back.
package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // websocket base, e.g. ws://localhost:8080
	Sessions      []string      // sessions to stream into, one lane each
	Samples       int           // samples per lane
	Concurrency   int           // lanes open at once
	Interval      time.Duration // spacing of sample timestamps
	HighRiskRatio float64       // share of samples generated above a threshold
	Seed          uint64        // generator seed; 0 picks one from the run id
	Timeout       time.Duration // per-reply read timeout
}

// Config defaults.
const (
	DefaultSamples       = 50
	DefaultConcurrency   = 4
	DefaultInterval      = 100 * time.Millisecond
	DefaultHighRiskRatio = 0.3
	DefaultTimeout       = 5 * time.Second

	lanePath = "/ws/biomechanics/"
)

func (c Config) withDefaults() Config {
	if c.Samples <= 0 {
		c.Samples = DefaultSamples
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.HighRiskRatio < 0 || c.HighRiskRatio > 1 {
		c.HighRiskRatio = DefaultHighRiskRatio
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// LaneReport is the outcome of one streamed session.
type LaneReport struct {
	SessionID  string   `json:"session_id" yaml:"session_id"`
	Sent       int      `json:"sent" yaml:"sent"`
	Feedback   int      `json:"feedback" yaml:"feedback"`
	Warnings   int      `json:"warnings" yaml:"warnings"`
	Errors     int      `json:"errors" yaml:"errors"`
	Mismatches []string `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

// Report aggregates every lane of a run.
type Report struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Lanes    []LaneReport  `json:"lanes" yaml:"lanes"`
	Sent     int           `json:"sent" yaml:"sent"`
	Feedback int           `json:"feedback" yaml:"feedback"`
	Warnings int           `json:"warnings" yaml:"warnings"`
	Errors   int           `json:"errors" yaml:"errors"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// OK reports whether every reply matched its expectation.
func (r Report) OK() bool {
	for _, l := range r.Lanes {
		if len(l.Mismatches) > 0 || l.Errors > 0 {
			return false
		}
	}
	return true
}
