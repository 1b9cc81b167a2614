// Package api exposes the HTTP trigger interface for the ingest
// pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/newsflow/guardian-ingest/internal/metrics"
	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

// Runner executes one pipeline invocation.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Server wires HTTP handlers to the pipeline orchestrator.
type Server struct {
	router chi.Router
	runner Runner
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/v1/invoke", s.invoke)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invoke runs one ingest invocation from the posted request body.
// A quota block maps to 429 so callers can tell it apart from success
// without parsing the message.
func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		s.logger.Error("invocation failed", zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	status := http.StatusOK
	if result.State == pipeline.StateBlocked {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrAuthentication),
		errors.Is(err, pipeline.ErrTransport),
		errors.Is(err, pipeline.ErrStorage),
		errors.Is(err, pipeline.ErrQueue):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
