package assessment

import "time"

// Option configures an Assessor.
type Option func(*Assessor)

// WithDefaultHistoryRisk replaces the placeholder history risk used when
// the collaborator has no record. Values outside [0, 1] are ignored.
func WithDefaultHistoryRisk(v float64) Option {
	return func(a *Assessor) {
		if v >= 0 && v <= 1 {
			a.defaultHistory = v
		}
	}
}

// WithClock sets the time source stamped on assessments.
func WithClock(now func() time.Time) Option {
	return func(a *Assessor) {
		if now != nil {
			a.now = now
		}
	}
}
