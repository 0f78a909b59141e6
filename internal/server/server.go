// Package server implements the HTTP API over the assistant: scope
// lifecycle, document upload, query, and transcript routes, plus liveness,
// readiness, and Prometheus metrics.
// The server is started by the `docchat serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/version"
)

// defaultMaxUploadBytes caps a multipart upload body.
const defaultMaxUploadBytes = 64 << 20

// New constructs a Server over svc with the provided config.
func New(svc scopeService, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: scope service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Must outlast the generation timeout.
		cfg.WriteTimeout = 3 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}

	s := &Server{
		scopes:  svc,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}
	if cfg.APIKey == "" {
		s.log.Warn("DOCCHAT_API_KEY not set — API authentication disabled")
	}

	th := newThrottle(cfg.RateLimit, cfg.RateBurst)
	th.rejected = func(r *http.Request) {
		s.metrics.rateLimitedTotal.WithLabelValues(r.Pattern).Inc()
	}
	s.stopThrottle = th.start()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(th),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// routes builds the full handler chain: request logging, then metrics, then
// the mux. Scope routes require auth; upload and query are rate limited.
func (s *Server) routes(th *throttle) http.Handler {
	protect := func(h http.HandlerFunc) http.Handler {
		return requireKey(s.cfg.APIKey, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return requireKey(s.cfg.APIKey, th.wrap(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	mux.Handle("POST /api/scopes", protect(s.handleCreateScope))
	mux.Handle("GET /api/scopes/{id}", protect(s.handleGetScope))
	mux.Handle("DELETE /api/scopes/{id}", protect(s.handleDeleteScope))
	mux.Handle("POST /api/scopes/{id}/documents", limited(s.handleUpload))
	mux.Handle("DELETE /api/scopes/{id}/documents", protect(s.handleClear))
	mux.Handle("POST /api/scopes/{id}/query", limited(s.handleQuery))
	mux.Handle("GET /api/scopes/{id}/history", protect(s.handleHistory))

	return requestLogger(s.log, s.instrument(mux))
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopThrottle()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("docchat server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// healthResponse is the JSON body returned by GET /api/health.
type healthResponse struct {
	Status string `json:"status"`
	version.Info
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Info: version.Get()})
}

// writeJSON encodes v with status. Encoding failures are logged only; the
// header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}
