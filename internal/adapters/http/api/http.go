// Package api registers the HTTP routes of the risk service and maps domain
// errors to responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/aclguard/internal/adapters/mq/queue"
	"github.com/okian/aclguard/internal/adapters/riskboard"
	service "github.com/okian/aclguard/internal/app"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/types"
	"github.com/okian/aclguard/internal/domain/validate"
)

const (
	defaultBoardLimit   = 10
	defaultSessionLimit = 20
	maxBodyBytes        = 4 << 20
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	UpsertAthlete(ctx context.Context, a service.Athlete) (service.Athlete, error)
	GetAthlete(ctx context.Context, athleteID string) (service.Athlete, error)
	CreateSession(ctx context.Context, athleteID string, req service.SessionRequest) (model.SessionInfo, error)
	ListSessions(ctx context.Context, athleteID string, limit int) ([]model.SessionInfo, error)
	IngestBatch(ctx context.Context, sessionID, idempotencyKey string, raws []validate.RawSample) (service.BatchResult, error)
	AnalyzeSession(ctx context.Context, sessionID string) (service.SessionAnalysis, error)
	Assess(ctx context.Context, athleteID string) (model.RiskAssessment, error)
	AssessBatch(ctx context.Context, athleteIDs []string) ([]service.AssessmentResult, error)
	RiskBoard(ctx context.Context, limit int) ([]types.BoardEntry, error)
	RiskRank(ctx context.Context, athleteID string) (types.BoardEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	health   *HealthHandler
	stats    *StatsHandler
	stream   http.Handler
	maxLimit int
}

// NewServer creates a new API server. stream may be nil when streaming is
// served elsewhere.
func NewServer(deps Dependencies, statsProvider StatsProvider, stream http.Handler, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = 100
	}
	return &Server{
		deps:     deps,
		health:   NewHealthHandler(),
		stats:    NewStatsHandler(statsProvider),
		stream:   stream,
		maxLimit: maxLimit,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	mux.HandleFunc("PUT /athletes/{athlete_id}", MetricsMiddleware(s.handlePutAthlete, "athlete"))
	mux.HandleFunc("GET /athletes/{athlete_id}", MetricsMiddleware(s.handleGetAthlete, "athlete"))
	mux.HandleFunc("POST /athletes/{athlete_id}/sessions", MetricsMiddleware(s.handleCreateSession, "athlete_sessions"))
	mux.HandleFunc("GET /athletes/{athlete_id}/sessions", MetricsMiddleware(s.handleListSessions, "athlete_sessions"))
	mux.HandleFunc("GET /athletes/{athlete_id}/risk-assessment", MetricsMiddleware(s.handleAssess, "risk_assessment"))
	mux.HandleFunc("GET /athletes/{athlete_id}/risk-rank", MetricsMiddleware(s.handleRiskRank, "risk_rank"))

	mux.HandleFunc("POST /sessions/{session_id}/biomechanics", MetricsMiddleware(s.handleIngestBatch, "biomechanics"))
	mux.HandleFunc("GET /sessions/{session_id}/analysis", MetricsMiddleware(s.handleAnalysis, "analysis"))

	mux.HandleFunc("POST /assessments", MetricsMiddleware(s.handleAssessBatch, "assessments"))
	mux.HandleFunc("GET /team/risk-board", MetricsMiddleware(s.handleRiskBoard, "risk_board"))

	if s.stream != nil {
		mux.Handle("GET /ws/biomechanics/{session_id}", s.stream)
	}
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a domain error to its status and code.
func writeFailure(w http.ResponseWriter, err error) {
	var batch *service.BatchError
	switch {
	case errors.As(err, &batch):
		details := make(map[string]string, len(batch.Problems))
		for i, p := range batch.Problems {
			details[strconv.Itoa(i)] = p
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_sample",
			Message: batch.Error(),
			Details: details,
		})
	case errors.Is(err, model.ErrInvalidSample):
		writeError(w, http.StatusBadRequest, "invalid_sample", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidAthlete),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrNoAthletes),
		errors.Is(err, service.ErrTooManyAthletes),
		errors.Is(err, riskboard.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrDuplicateInFlight):
		writeError(w, http.StatusConflict, "in_progress", err)
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, model.ErrCollaborator):
		writeError(w, http.StatusBadGateway, "collaborator_failure", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// queryLimit parses ?limit, falling back to def when absent.
func queryLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(def, maxLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxLimit {
		return 0, errors.New("limit exceeds maximum of " + strconv.Itoa(maxLimit))
	}
	return n, nil
}
