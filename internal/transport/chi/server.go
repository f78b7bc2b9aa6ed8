// Package chi exposes the evaluation pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
	evaluc "github.com/sable-labs/ragmeter/internal/usecase/eval"
	healthuc "github.com/sable-labs/ragmeter/internal/usecase/health"
)

// maxBodyBytes caps the request body: two raw dataset blobs plus envelope.
const maxBodyBytes = 16 << 20

// Server handles the HTTP API.
type Server struct {
	eval   *evaluc.Service
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(eval *evaluc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{eval: eval, health: health, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/evaluations", s.createEvaluation)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// evaluationRequest carries the two dataset blobs as raw text: the whole
// point of the ingestion layer is that they may not be valid JSON.
type evaluationRequest struct {
	TurnsText    string `json:"turns_text"`
	ContextsText string `json:"contexts_text"`
}

// ingestStatus mirrors domain.IngestResult for API consumers.
type ingestStatus struct {
	Records      int  `json:"records"`
	FallbackUsed bool `json:"fallback_used"`
	Dropped      int  `json:"dropped_spans,omitempty"`
}

// evaluationResponse is the run report plus ingestion diagnostics.
type evaluationResponse struct {
	domain.RunReport
	TurnsIngest    ingestStatus `json:"turns_ingest"`
	ContextsIngest ingestStatus `json:"contexts_ingest"`
}

func (s *Server) createEvaluation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.TurnsText == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "turns_text is required")
		return
	}
	if req.ContextsText == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "contexts_text is required")
		return
	}

	report, err := s.eval.EvaluateBytes(r.Context(), []byte(req.TurnsText), []byte(req.ContextsText))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluationResponse{
		RunReport:      report,
		TurnsIngest:    statusFrom(report.Turns),
		ContextsIngest: statusFrom(report.Contexts),
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())
	status := http.StatusOK
	if rep.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

func statusFrom(res domain.IngestResult) ingestStatus {
	return ingestStatus{
		Records:      len(res.Records),
		FallbackUsed: res.FallbackUsed,
		Dropped:      res.Dropped,
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "judge provider rate limited")
	case errors.Is(err, domain.ErrJudgeProviderError):
		writeError(w, http.StatusBadGateway, "judge_provider_error", "judge provider failed")
	default:
		s.logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
