package api

import (
	"net/http"

	"github.com/okian/aclguard/internal/domain/types"
)

type batchAssessmentRequest struct {
	AthleteIDs []string `json:"athlete_ids"`
}

// handleAssessBatch handles POST /assessments.
func (s *Server) handleAssessBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.assess_batch"
	var req batchAssessmentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	results, err := s.deps.AssessBatch(r.Context(), req.AthleteIDs)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleRiskBoard handles GET /team/risk-board?limit=N.
func (s *Server) handleRiskBoard(w http.ResponseWriter, r *http.Request) {
	const op = "api.risk_board"
	n, err := queryLimit(r, defaultBoardLimit, s.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := s.deps.RiskBoard(r.Context(), n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []types.BoardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
