// Package store implements the persistence collaborator of the scoring core:
// athletes, sessions, samples, injury history and assessments. The core
// never sees SQL; it calls the interfaces below, backed either by memory or
// by a database/sql driver.
package store

import (
	"context"
	"fmt"

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/session"
)

// RecentSession is a stored session with its samples folded into a summary.
type RecentSession struct {
	Info    model.SessionInfo
	Summary *session.Summary
}

// AthleteStore persists athlete profiles and injury history.
type AthleteStore interface {
	SaveAthlete(ctx context.Context, p model.AthleteProfile) error
	// LoadAthlete returns model.ErrNotFound for an unknown athlete.
	LoadAthlete(ctx context.Context, athleteID string) (model.AthleteProfile, error)
	SaveInjuryHistoryRisk(ctx context.Context, athleteID string, risk float64) error
	// LoadInjuryHistoryRisk reports ok=false when no history is on record.
	LoadInjuryHistoryRisk(ctx context.Context, athleteID string) (risk float64, ok bool, err error)
}

// SessionStore persists sessions and their samples.
type SessionStore interface {
	// CreateSession returns model.ErrNotFound when the athlete is unknown.
	CreateSession(ctx context.Context, info model.SessionInfo) error
	LoadSession(ctx context.Context, sessionID string) (model.SessionInfo, error)
	ListSessions(ctx context.Context, athleteID string, limit int) ([]model.SessionInfo, error)
	// SaveSamples appends samples after the ones already stored.
	SaveSamples(ctx context.Context, sessionID string, samples []model.ScoredSample) error
	LoadSessionSamples(ctx context.Context, sessionID string) ([]model.ScoredSample, error)
	SaveSession(ctx context.Context, stats model.SessionStats) error
	// LoadRecentSessions returns up to limit sessions, most recent first.
	LoadRecentSessions(ctx context.Context, athleteID string, limit int) ([]RecentSession, error)
	// OpenSampleWriter acquires a per-lane handle. Callers must Close it.
	OpenSampleWriter(ctx context.Context, sessionID string) (SampleWriter, error)
}

// AssessmentStore persists composite assessments.
type AssessmentStore interface {
	SaveAssessment(ctx context.Context, a model.RiskAssessment) error
	LoadLatestAssessment(ctx context.Context, athleteID string) (model.RiskAssessment, error)
	// LoadLatestAssessments returns the newest assessment of every athlete,
	// ordered by athlete ID.
	LoadLatestAssessments(ctx context.Context) ([]model.RiskAssessment, error)
}

// Store is the full persistence collaborator.
type Store interface {
	AthleteStore
	SessionStore
	AssessmentStore
	Close() error
}

// SampleWriter is the scoped resource a streaming lane holds for its
// lifetime. It is not safe for concurrent use.
type SampleWriter interface {
	SaveSample(ctx context.Context, s model.ScoredSample) error
	// LoadSamples returns every stored sample of the session, including
	// those written by other writers, in storage order.
	LoadSamples(ctx context.Context) ([]model.ScoredSample, error)
	SaveSession(ctx context.Context, stats model.SessionStats) error
	Close() error
}

// DriverMemory selects the in-process store.
const DriverMemory = "memory"

// Open returns the store for driver: memory, sqlite or postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite, DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingDSN, driver)
		}
		return OpenSQL(ctx, driver, dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
