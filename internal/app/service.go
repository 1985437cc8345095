// Package service wires the scoring core to persistence, the team risk board
// and the reassessment workers. The HTTP API and the streaming lanes call
// into it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/aclguard/internal/adapters/mq/queue"
	"github.com/okian/aclguard/internal/adapters/mq/worker"
	"github.com/okian/aclguard/internal/adapters/riskboard"
	"github.com/okian/aclguard/internal/adapters/store"
	"github.com/okian/aclguard/internal/adapters/stream"
	"github.com/okian/aclguard/internal/domain/activation"
	"github.com/okian/aclguard/internal/domain/assessment"
	"github.com/okian/aclguard/internal/domain/dedupe"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
	"github.com/okian/aclguard/internal/domain/session"
	"github.com/okian/aclguard/internal/domain/types"
	"github.com/okian/aclguard/internal/domain/validate"
	"github.com/okian/aclguard/pkg/logger"
	"github.com/okian/aclguard/pkg/metrics"
)

// MaxBatchAthletes caps the athletes of one batch assessment.
const MaxBatchAthletes = 500

// SessionRequest describes a session to create.
type SessionRequest struct {
	SessionType     string    `json:"session_type"`
	Sport           string    `json:"sport"`
	DurationMinutes int       `json:"duration_minutes"`
	StartedAt       time.Time `json:"started_at"`
}

// Athlete is a profile with its injury-history risk, if any.
type Athlete struct {
	model.AthleteProfile
	InjuryHistoryRisk *float64 `json:"injury_history_risk,omitempty"`
}

// BatchResult answers a batch sample upload.
type BatchResult struct {
	SessionID string             `json:"session_id"`
	Accepted  int                `json:"accepted"`
	HighRisk  int                `json:"high_risk"`
	Scores    []float64          `json:"risk_scores"`
	Stats     model.SessionStats `json:"session_stats"`
	Replayed  bool               `json:"replayed"`
}

// SessionAnalysis is the full view of one session.
type SessionAnalysis struct {
	Session            model.SessionInfo    `json:"session"`
	Stats              model.SessionStats   `json:"statistics"`
	HighRiskPercentage float64              `json:"high_risk_percentage"`
	MuscleActivation   activation.Profile   `json:"muscle_activation"`
	Timeline           []model.ScoredSample `json:"timeline"`
}

// AssessmentResult is one athlete's outcome in a batch assessment.
type AssessmentResult struct {
	AthleteID  string                `json:"athlete_id"`
	Assessment *model.RiskAssessment `json:"assessment,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Service implements the dependencies of the HTTP API and the stream hooks.
type Service struct {
	mu sync.RWMutex

	store    store.Store
	board    *riskboard.Board
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	assessor *assessment.Assessor

	workerCount      int
	queueSize        int
	dedupeSize       int
	recentLimit      int
	batchConcurrency int
	defaultHistory   float64
	now              func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service over st. Call Start before use.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:            st,
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        10_000,
		dedupeSize:       50_000,
		recentLimit:      10,
		batchConcurrency: 8,
		defaultHistory:   assessment.DefaultHistoryRisk,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.board = riskboard.New()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.assessor = assessment.New(
		assessment.WithDefaultHistoryRisk(s.defaultHistory),
		assessment.WithClock(s.now),
	)
	return s
}

// Start ranks the stored assessments on the board and launches the
// reassessment workers. The workers outlive ctx and stop only through Stop,
// which drains the queue first.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	ranked, err := s.rebuildBoard(ctx)
	if err != nil {
		return err
	}

	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("recent_session_limit", s.recentLimit),
		logger.Int("ranked_athletes", ranked),
	)
	return nil
}

func (s *Service) rebuildBoard(ctx context.Context) (int, error) {
	stored, err := s.store.LoadLatestAssessments(ctx)
	if err != nil {
		return 0, fmt.Errorf("load assessments: %w", err)
	}
	for _, a := range stored {
		if err := s.board.Upsert(ctx, a.AthleteID, a.Overall, a.AssessedAt); err != nil {
			return 0, fmt.Errorf("rank %s: %w", a.AthleteID, err)
		}
	}
	return len(stored), nil
}

// Stop drains queued reassessments and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	s.logger.Info(ctx, "stopping service")
	if err := s.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	return nil
}

// UpsertAthlete stores a profile and, when given, its injury-history risk.
func (s *Service) UpsertAthlete(ctx context.Context, a Athlete) (Athlete, error) {
	p := a.AthleteProfile
	var problems []string
	if strings.TrimSpace(p.AthleteID) == "" {
		problems = append(problems, "athlete_id is required")
	}
	switch p.Sex {
	case model.SexFemale, model.SexMale, model.SexOther:
	default:
		problems = append(problems, fmt.Sprintf("sex %q not one of female, male, other", p.Sex))
	}
	if p.Age < 0 || p.Age > 120 {
		problems = append(problems, "age outside [0, 120]")
	}
	if p.BMI < 0 || p.BMI > 100 {
		problems = append(problems, "bmi outside [0, 100]")
	}
	if h := a.InjuryHistoryRisk; h != nil && !(*h >= 0 && *h <= 1) {
		problems = append(problems, "injury_history_risk outside [0, 1]")
	}
	if len(problems) > 0 {
		return Athlete{}, fmt.Errorf("%w: %s", ErrInvalidAthlete, strings.Join(problems, "; "))
	}

	if err := s.store.SaveAthlete(ctx, p); err != nil {
		return Athlete{}, fmt.Errorf("save athlete: %w", err)
	}
	if a.InjuryHistoryRisk != nil {
		if err := s.store.SaveInjuryHistoryRisk(ctx, p.AthleteID, *a.InjuryHistoryRisk); err != nil {
			return Athlete{}, fmt.Errorf("save injury history: %w", err)
		}
	}
	return s.GetAthlete(ctx, p.AthleteID)
}

// GetAthlete returns a stored athlete.
func (s *Service) GetAthlete(ctx context.Context, athleteID string) (Athlete, error) {
	p, err := s.store.LoadAthlete(ctx, athleteID)
	if err != nil {
		return Athlete{}, fmt.Errorf("load athlete: %w", err)
	}
	out := Athlete{AthleteProfile: p}
	risk, ok, err := s.store.LoadInjuryHistoryRisk(ctx, athleteID)
	if err != nil {
		return Athlete{}, fmt.Errorf("load injury history: %w", err)
	}
	if ok {
		out.InjuryHistoryRisk = &risk
	}
	return out, nil
}

// CreateSession records a new training session for an athlete.
func (s *Service) CreateSession(ctx context.Context, athleteID string, req SessionRequest) (model.SessionInfo, error) {
	if req.DurationMinutes < 0 {
		return model.SessionInfo{}, fmt.Errorf("%w: duration_minutes is negative", ErrInvalidSession)
	}
	started := req.StartedAt
	if started.IsZero() {
		started = s.now()
	}
	info := model.SessionInfo{
		ID:              uuid.NewString(),
		AthleteID:       athleteID,
		SessionType:     req.SessionType,
		Sport:           req.Sport,
		DurationMinutes: req.DurationMinutes,
		StartedAt:       started.UTC(),
	}
	if err := s.store.CreateSession(ctx, info); err != nil {
		return model.SessionInfo{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info(ctx, "session created",
		logger.String("session_id", info.ID),
		logger.String("athlete_id", athleteID),
	)
	return info, nil
}

// ListSessions returns an athlete's sessions, most recent first.
func (s *Service) ListSessions(ctx context.Context, athleteID string, limit int) ([]model.SessionInfo, error) {
	if _, err := s.store.LoadAthlete(ctx, athleteID); err != nil {
		return nil, fmt.Errorf("load athlete: %w", err)
	}
	sessions, err := s.store.ListSessions(ctx, athleteID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// IngestBatch validates, scores and stores a batch of samples. Nothing is
// stored when any sample is invalid. A non-empty idempotency key makes a
// retried upload return the first response.
func (s *Service) IngestBatch(ctx context.Context, sessionID, idempotencyKey string, raws []validate.RawSample) (res BatchResult, err error) {
	if idempotencyKey != "" {
		key := dedupe.Key(sessionID, idempotencyKey)
		status, body := s.deduper.Reserve(ctx, key)
		switch status {
		case dedupe.StatusPending:
			return BatchResult{}, ErrDuplicateInFlight
		case dedupe.StatusDone:
			var prev BatchResult
			if jerr := json.Unmarshal(body, &prev); jerr == nil {
				prev.Replayed = true
				return prev, nil
			}
		}
		defer func() {
			if err != nil {
				s.deduper.Release(ctx, key)
				return
			}
			if out, jerr := json.Marshal(res); jerr == nil {
				s.deduper.Complete(ctx, key, out)
			}
		}()
	}
	return s.ingest(ctx, sessionID, raws)
}

func (s *Service) ingest(ctx context.Context, sessionID string, raws []validate.RawSample) (BatchResult, error) {
	if len(raws) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	info, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load session: %w", err)
	}

	samples, invalid := validate.Samples(raws)
	if len(invalid) > 0 {
		be := &BatchError{Problems: make(map[int]string, len(invalid))}
		for i, e := range invalid {
			be.Problems[i] = e.Error()
			metrics.RecordSampleInvalid(metrics.SourceBatch)
		}
		return BatchResult{}, be
	}

	res := BatchResult{SessionID: sessionID, Scores: make([]float64, len(samples))}
	scored := make([]model.ScoredSample, len(samples))
	for i, sm := range samples {
		scored[i] = scoring.Scored(sm)
		res.Scores[i] = scored[i].RiskScore
		if scored[i].RiskScore > 0 {
			res.HighRisk++
			metrics.RecordHighRiskSample()
		}
		metrics.RecordSampleIngested(metrics.SourceBatch)
	}
	if err := s.store.SaveSamples(ctx, sessionID, scored); err != nil {
		return BatchResult{}, fmt.Errorf("save samples: %w", err)
	}
	res.Accepted = len(scored)

	stored, err := s.store.LoadSessionSamples(ctx, sessionID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reload samples: %w", err)
	}
	res.Stats = summarize(stored).Stats(sessionID)
	if err := s.store.SaveSession(ctx, res.Stats); err != nil {
		return BatchResult{}, fmt.Errorf("save session summary: %w", err)
	}
	metrics.RecordSessionRecorded()

	if err := s.RequestReassessment(ctx, info.AthleteID, sessionID); err != nil {
		s.logger.Warn(ctx, "reassessment not queued",
			logger.String("athlete_id", info.AthleteID),
			logger.Error(err),
		)
	}
	return res, nil
}

// AnalyzeSession returns statistics, the activation profile and the scored
// timeline of a session.
func (s *Service) AnalyzeSession(ctx context.Context, sessionID string) (SessionAnalysis, error) {
	info, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		return SessionAnalysis{}, fmt.Errorf("load session: %w", err)
	}
	stored, err := s.store.LoadSessionSamples(ctx, sessionID)
	if err != nil {
		return SessionAnalysis{}, fmt.Errorf("load samples: %w", err)
	}
	sum := summarize(stored)
	stats := sum.Stats(sessionID)
	return SessionAnalysis{
		Session:            info,
		Stats:              stats,
		HighRiskPercentage: stats.HighRiskPercentage(),
		MuscleActivation:   activation.Estimate(sum.Samples()),
		Timeline:           sum.Timeline(),
	}, nil
}

// Assess computes, stores and ranks a fresh assessment for an athlete.
func (s *Service) Assess(ctx context.Context, athleteID string) (model.RiskAssessment, error) {
	return s.assess(ctx, athleteID, metrics.TriggerRequest)
}

func (s *Service) assess(ctx context.Context, athleteID, trigger string) (model.RiskAssessment, error) {
	start := time.Now()

	profile, err := s.store.LoadAthlete(ctx, athleteID)
	if err != nil {
		return model.RiskAssessment{}, fmt.Errorf("load athlete: %w", err)
	}
	recent, err := s.store.LoadRecentSessions(ctx, athleteID, s.recentLimit)
	if err != nil {
		return model.RiskAssessment{}, fmt.Errorf("load recent sessions: %w", err)
	}
	var samples []model.Sample
	for _, rs := range recent {
		samples = append(samples, rs.Summary.Samples()...)
	}
	in := assessment.Input{Profile: profile, Samples: samples}
	risk, ok, err := s.store.LoadInjuryHistoryRisk(ctx, athleteID)
	if err != nil {
		return model.RiskAssessment{}, fmt.Errorf("load injury history: %w", err)
	}
	if ok {
		in.HistoryRisk = &risk
	}

	a := s.assessor.Assess(in)
	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return model.RiskAssessment{}, fmt.Errorf("save assessment: %w", err)
	}
	if err := s.board.Upsert(ctx, athleteID, a.Overall, a.AssessedAt); err != nil {
		return model.RiskAssessment{}, fmt.Errorf("update risk board: %w", err)
	}

	metrics.RecordAssessment(trigger, float64(time.Since(start).Microseconds())/1000)
	s.logger.Debug(ctx, "assessment computed",
		logger.String("athlete_id", athleteID),
		logger.String("trigger", trigger),
		logger.Int("sessions", len(recent)),
		logger.Int("samples", len(samples)),
		logger.Float64("overall", a.Overall),
	)
	return a, nil
}

// AssessBatch assesses several athletes concurrently. Per-athlete failures
// are reported in the results; only cancellation fails the whole batch.
func (s *Service) AssessBatch(ctx context.Context, athleteIDs []string) ([]AssessmentResult, error) {
	if len(athleteIDs) == 0 {
		return nil, ErrNoAthletes
	}
	if len(athleteIDs) > MaxBatchAthletes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyAthletes, len(athleteIDs), MaxBatchAthletes)
	}

	results := make([]AssessmentResult, len(athleteIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, id := range athleteIDs {
		results[i].AthleteID = id
		g.Go(func() error {
			a, err := s.assess(gctx, id, metrics.TriggerBatch)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i].Error = err.Error()
				return nil
			}
			results[i].Assessment = &a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch assessment: %w", err)
	}
	return results, nil
}

// LatestAssessment returns the most recent stored assessment.
func (s *Service) LatestAssessment(ctx context.Context, athleteID string) (model.RiskAssessment, error) {
	a, err := s.store.LoadLatestAssessment(ctx, athleteID)
	if err != nil {
		return model.RiskAssessment{}, fmt.Errorf("load assessment: %w", err)
	}
	return a, nil
}

// RiskBoard returns the top athletes by overall risk.
func (s *Service) RiskBoard(ctx context.Context, limit int) ([]types.BoardEntry, error) {
	return s.board.TopN(ctx, limit)
}

// RiskRank returns an athlete's position on the risk board.
func (s *Service) RiskRank(ctx context.Context, athleteID string) (types.BoardEntry, error) {
	e, err := s.board.Rank(ctx, athleteID)
	if errors.Is(err, riskboard.ErrNotFound) {
		return types.BoardEntry{}, fmt.Errorf("%w: %w", model.ErrNotFound, err)
	}
	return e, err
}

// RequestReassessment queues a background refresh of an athlete's
// assessment. Requests for an athlete already queued are merged. It fails
// with ErrNotStarted unless the workers are running.
func (s *Service) RequestReassessment(ctx context.Context, athleteID, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.queue.Enqueue(ctx, model.AssessmentRequest{
		RequestID: uuid.NewString(),
		AthleteID: athleteID,
		SessionID: sessionID,
		Requested: s.now(),
	})
}

// Process implements worker.Processor.
func (s *Service) Process(ctx context.Context, r model.AssessmentRequest) error {
	_, err := s.assess(ctx, r.AthleteID, metrics.TriggerReassess)
	return err
}

// LaneClosed is the stream close hook: a lane that stored samples triggers a
// reassessment of its athlete.
func (s *Service) LaneClosed(ctx context.Context, res stream.Result) {
	if err := s.RequestReassessment(ctx, res.Session.AthleteID, res.Session.ID); err != nil {
		s.logger.Warn(ctx, "reassessment not queued",
			logger.String("athlete_id", res.Session.AthleteID),
			logger.String("session_id", res.Session.ID),
			logger.Error(err),
		)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]any{
		"started":              s.started,
		"worker_count":         s.workerCount,
		"queue_capacity":       s.queueSize,
		"queue_length":         s.queue.Len(ctx),
		"dedupe_size":          s.deduper.Size(),
		"risk_board_athletes":  s.board.Count(ctx),
		"recent_session_limit": s.recentLimit,
	}
	return stats
}

func summarize(stored []model.ScoredSample) *session.Summary {
	samples := make([]model.Sample, len(stored))
	for i, sc := range stored {
		samples[i] = sc.Sample
	}
	return session.Summarize(samples)
}
