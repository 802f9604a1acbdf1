// Package server exposes a built runtime over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/builder"
	"github.com/Emilio-01-T/Modular-2/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRecent is the number of runs GET /tracing returns without ?limit.
const DefaultRecent = 20

// RunRequest is the body of POST /run.
type RunRequest struct {
	Target string `json:"target"`
	Input  any    `json:"input"`
}

// RunResponse is the body returned by POST /run.
type RunResponse struct {
	RunID   string                 `json:"run_id"`
	Output  any                    `json:"output,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Step    string                 `json:"step,omitempty"`
	History []modular.HistoryEntry `json:"history"`
	Errors  []modular.ErrorEntry   `json:"errors"`
}

// Status is the body of GET /status.
type Status struct {
	Status    string   `json:"status"`
	Uptime    string   `json:"uptime"`
	Targets   []string `json:"targets"`
	Traced    int      `json:"traced_runs"`
	Warnings  []string `json:"warnings,omitempty"`
	StartedAt string   `json:"started_at"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server serves a Runtime.
type Server struct {
	runtime  *builder.Runtime
	traces   *observability.TraceStore
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	started  time.Time
}

// New creates a Server for rt.
func New(rt *builder.Runtime) *Server {
	return &Server{
		runtime: rt,
		logger:  slog.New(slog.DiscardHandler),
		started: time.Now(),
	}
}

// WithTraces enables the /tracing endpoints. The store must be registered as
// a hook on the runtime to receive runs.
func (s *Server) WithTraces(traces *observability.TraceStore) *Server {
	s.traces = traces
	return s
}

// WithMetrics enables GET /metrics for gatherer.
func (s *Server) WithMetrics(gatherer prometheus.Gatherer) *Server {
	s.gatherer = gatherer
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/run", s.handleRun)
	r.Get("/status", s.handleStatus)
	r.Get("/modules", s.handleModules)
	r.Get("/tracing", s.handleTraces)
	r.Get("/tracing/{runID}", s.handleTrace)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "target is required"})
		return
	}

	execCtx := modular.NewExecutionContext()
	out, err := s.runtime.Run(r.Context(), req.Target, req.Input, execCtx)

	resp := RunResponse{
		RunID:   execCtx.RunID(),
		History: execCtx.History(),
		Errors:  execCtx.Errors(),
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Step = modular.FailedStep(err)
		status := http.StatusInternalServerError
		if errors.Is(err, builder.ErrUnknownTarget) {
			status = http.StatusNotFound
		}
		s.logger.Warn("run failed", "target", req.Target, "run_id", resp.RunID, "error", err)
		writeJSON(w, status, resp)
		return
	}
	resp.Output = out
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		Status:    "ok",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Targets:   s.runtime.Targets(),
		Warnings:  s.runtime.Warnings(),
		StartedAt: s.started.UTC().Format(time.RFC3339),
	}
	if s.traces != nil {
		st.Traced = s.traces.Len()
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runtime.Modules())
}

func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	if s.traces == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "tracing is disabled"})
		return
	}
	limit := DefaultRecent
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.traces.Recent(limit))
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if s.traces == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "tracing is disabled"})
		return
	}
	id := chi.URLParam(r, "runID")
	rec, ok := s.traces.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("run %q not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
