package api

import (
	"net/http"

	service "github.com/okian/aclguard/internal/app"
	"github.com/okian/aclguard/internal/domain/model"
)

type athleteRequest struct {
	Sex               model.Sex `json:"sex"`
	Age               int       `json:"age"`
	BMI               float64   `json:"bmi"`
	Rural             bool      `json:"rural"`
	InjuryHistoryRisk *float64  `json:"injury_history_risk,omitempty"`
}

// handlePutAthlete handles PUT /athletes/{athlete_id}.
func (s *Server) handlePutAthlete(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_athlete"
	var req athleteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := s.deps.UpsertAthlete(r.Context(), service.Athlete{
		AthleteProfile: model.AthleteProfile{
			AthleteID: r.PathValue("athlete_id"),
			Sex:       req.Sex,
			Age:       req.Age,
			BMI:       req.BMI,
			Rural:     req.Rural,
		},
		InjuryHistoryRisk: req.InjuryHistoryRisk,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleGetAthlete handles GET /athletes/{athlete_id}.
func (s *Server) handleGetAthlete(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.GetAthlete(r.Context(), r.PathValue("athlete_id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_athlete", err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleCreateSession handles POST /athletes/{athlete_id}/sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req service.SessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	info, err := s.deps.CreateSession(r.Context(), r.PathValue("athlete_id"), req)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handleListSessions handles GET /athletes/{athlete_id}/sessions?limit=N.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	limit, err := queryLimit(r, defaultSessionLimit, s.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sessions, err := s.deps.ListSessions(r.Context(), r.PathValue("athlete_id"), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if sessions == nil {
		sessions = []model.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleAssess handles GET /athletes/{athlete_id}/risk-assessment.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Assess(r.Context(), r.PathValue("athlete_id"))
	if err != nil {
		writeFailure(w, Wrap("api.risk_assessment", err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleRiskRank handles GET /athletes/{athlete_id}/risk-rank.
func (s *Server) handleRiskRank(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.RiskRank(r.Context(), r.PathValue("athlete_id"))
	if err != nil {
		writeFailure(w, Wrap("api.risk_rank", err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}
