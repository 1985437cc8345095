package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/session"
	"github.com/okian/aclguard/pkg/metrics"
)

type memSession struct {
	info    model.SessionInfo
	stats   *model.SessionStats
	samples []model.ScoredSample
	seq     int64 // creation order, breaks start-time ties
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	athletes    map[string]model.AthleteProfile
	history     map[string]float64
	sessions    map[string]*memSession
	assessments map[string]model.RiskAssessment
	nextSeq     int64
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		athletes:    make(map[string]model.AthleteProfile),
		history:     make(map[string]float64),
		sessions:    make(map[string]*memSession),
		assessments: make(map[string]model.RiskAssessment),
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// SaveAthlete implements Store.SaveAthlete.
func (m *Memory) SaveAthlete(_ context.Context, p model.AthleteProfile) error {
	defer observe("save_athlete", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.athletes[p.AthleteID] = p
	return nil
}

// LoadAthlete implements Store.LoadAthlete.
func (m *Memory) LoadAthlete(_ context.Context, athleteID string) (model.AthleteProfile, error) {
	defer observe("load_athlete", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.athletes[athleteID]
	if !ok {
		return model.AthleteProfile{}, notFound("athlete", athleteID)
	}
	return p, nil
}

// SaveInjuryHistoryRisk implements Store.SaveInjuryHistoryRisk.
func (m *Memory) SaveInjuryHistoryRisk(_ context.Context, athleteID string, risk float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.athletes[athleteID]; !ok {
		return notFound("athlete", athleteID)
	}
	m.history[athleteID] = risk
	return nil
}

// LoadInjuryHistoryRisk implements Store.LoadInjuryHistoryRisk.
func (m *Memory) LoadInjuryHistoryRisk(_ context.Context, athleteID string) (float64, bool, error) {
	defer observe("load_history", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.history[athleteID]
	return r, ok, nil
}

// CreateSession implements Store.CreateSession.
func (m *Memory) CreateSession(_ context.Context, info model.SessionInfo) error {
	defer observe("create_session", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.athletes[info.AthleteID]; !ok {
		return notFound("athlete", info.AthleteID)
	}
	m.nextSeq++
	m.sessions[info.ID] = &memSession{info: info, seq: m.nextSeq}
	return nil
}

// LoadSession implements Store.LoadSession.
func (m *Memory) LoadSession(_ context.Context, sessionID string) (model.SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return model.SessionInfo{}, notFound("session", sessionID)
	}
	return s.info, nil
}

// recentLocked returns the athlete's sessions, most recent first.
func (m *Memory) recentLocked(athleteID string, limit int) []*memSession {
	var out []*memSession
	for _, s := range m.sessions {
		if s.info.AthleteID == athleteID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].info.StartedAt.Equal(out[j].info.StartedAt) {
			return out[i].info.StartedAt.After(out[j].info.StartedAt)
		}
		return out[i].seq > out[j].seq
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ListSessions implements Store.ListSessions.
func (m *Memory) ListSessions(_ context.Context, athleteID string, limit int) ([]model.SessionInfo, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recent := m.recentLocked(athleteID, limit)
	out := make([]model.SessionInfo, len(recent))
	for i, s := range recent {
		out[i] = s.info
	}
	return out, nil
}

// SaveSamples implements Store.SaveSamples.
func (m *Memory) SaveSamples(_ context.Context, sessionID string, samples []model.ScoredSample) error {
	defer observe("save_samples", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound("session", sessionID)
	}
	s.samples = append(s.samples, samples...)
	return nil
}

// LoadSessionSamples implements Store.LoadSessionSamples.
func (m *Memory) LoadSessionSamples(_ context.Context, sessionID string) ([]model.ScoredSample, error) {
	defer observe("load_samples", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound("session", sessionID)
	}
	out := make([]model.ScoredSample, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// SaveSession implements Store.SaveSession.
func (m *Memory) SaveSession(_ context.Context, stats model.SessionStats) error {
	defer observe("save_session", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[stats.SessionID]
	if !ok {
		return notFound("session", stats.SessionID)
	}
	st := stats
	s.stats = &st
	return nil
}

// LoadRecentSessions implements Store.LoadRecentSessions.
func (m *Memory) LoadRecentSessions(_ context.Context, athleteID string, limit int) ([]RecentSession, error) {
	defer observe("load_recent_sessions", time.Now())
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recent := m.recentLocked(athleteID, limit)
	out := make([]RecentSession, len(recent))
	for i, s := range recent {
		samples := make([]model.Sample, len(s.samples))
		for j, sc := range s.samples {
			samples[j] = sc.Sample
		}
		out[i] = RecentSession{Info: s.info, Summary: session.Summarize(samples)}
	}
	return out, nil
}

// OpenSampleWriter returns a writer appending through m.
func (m *Memory) OpenSampleWriter(ctx context.Context, sessionID string) (SampleWriter, error) {
	if _, err := m.LoadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return &memWriter{m: m, sessionID: sessionID}, nil
}

// SaveAssessment implements Store.SaveAssessment.
func (m *Memory) SaveAssessment(_ context.Context, a model.RiskAssessment) error {
	defer observe("save_assessment", time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[a.AthleteID] = a
	return nil
}

// LoadLatestAssessment implements Store.LoadLatestAssessment.
func (m *Memory) LoadLatestAssessment(_ context.Context, athleteID string) (model.RiskAssessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[athleteID]
	if !ok {
		return model.RiskAssessment{}, notFound("assessment", athleteID)
	}
	return a, nil
}

// LoadLatestAssessments implements Store.LoadLatestAssessments.
func (m *Memory) LoadLatestAssessments(_ context.Context) ([]model.RiskAssessment, error) {
	defer observe("load_assessments", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RiskAssessment, 0, len(m.assessments))
	for _, a := range m.assessments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AthleteID < out[j].AthleteID })
	return out, nil
}

// Close is a no-op; Memory holds no external resources.
func (m *Memory) Close() error { return nil }

type memWriter struct {
	m         *Memory
	sessionID string
	closed    bool
}

func (w *memWriter) SaveSample(ctx context.Context, s model.ScoredSample) error {
	if w.closed {
		return ErrWriterClosed
	}
	return w.m.SaveSamples(ctx, w.sessionID, []model.ScoredSample{s})
}

func (w *memWriter) LoadSamples(ctx context.Context) ([]model.ScoredSample, error) {
	if w.closed {
		return nil, ErrWriterClosed
	}
	return w.m.LoadSessionSamples(ctx, w.sessionID)
}

func (w *memWriter) SaveSession(ctx context.Context, stats model.SessionStats) error {
	if w.closed {
		return ErrWriterClosed
	}
	stats.SessionID = w.sessionID
	return w.m.SaveSession(ctx, stats)
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}
