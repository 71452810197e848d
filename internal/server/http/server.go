// Package httpserver provides the HTTP API for the interview prep service:
// resume upload, the SSE question stream, health endpoints and metrics.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/extract"
)

// Runner drives one full pipeline run, forwarding events to emit as they
// happen. It is implemented by pipeline.Runner.
type Runner interface {
	Run(ctx context.Context, runID, resume string, emit func(domain.Event)) error
}

// Config holds HTTP server configuration.
type Config struct {
	Address     string
	ReadTimeout time.Duration
	// WriteTimeout must stay 0 while SSE streams are served from this
	// listener; a non-zero value cuts long-lived streams mid-run.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ClientRPS and ClientBurst configure the per-client request throttle.
	// ClientRPS <= 0 disables throttling.
	ClientRPS   float64
	ClientBurst int

	// MetricsEnabled exposes the Prometheus endpoint at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	runner     Runner
	resumes    *extract.Validator
	fetcher    *extract.Fetcher
	validate   *validator.Validate
	throttle   *clientThrottle
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies. fetcher may be
// nil to disable fetch-by-URL.
func NewServer(
	cfg Config,
	runner Runner,
	resumes *extract.Validator,
	fetcher *extract.Fetcher,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		runner:   runner,
		resumes:  resumes,
		fetcher:  fetcher,
		validate: validator.New(),
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	if cfg.ClientRPS > 0 {
		s.throttle = newClientThrottle(cfg.ClientRPS, cfg.ClientBurst)
	}

	s.router = s.buildRouter(cfg)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// Health endpoints (no throttle)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.throttle != nil {
			r.Use(s.throttle.middleware)
		}
		r.Post("/runs", s.startRun)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status. The service has no hard
// startup dependencies: provider clients are stateless HTTP callers.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
