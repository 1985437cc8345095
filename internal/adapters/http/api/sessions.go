package api

import (
	"net/http"
	"strings"

	"github.com/okian/aclguard/internal/domain/validate"
)

// IdempotencyHeader names the header that makes batch uploads retry-safe.
const IdempotencyHeader = "Idempotency-Key"

type batchRequest struct {
	Samples []validate.RawSample `json:"samples"`
}

// handleIngestBatch handles POST /sessions/{session_id}/biomechanics.
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_batch"
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	res, err := s.deps.IngestBatch(r.Context(), r.PathValue("session_id"), key, req.Samples)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// handleAnalysis handles GET /sessions/{session_id}/analysis.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	an, err := s.deps.AnalyzeSession(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeFailure(w, Wrap("api.analysis", err))
		return
	}
	writeJSON(w, http.StatusOK, an)
}
