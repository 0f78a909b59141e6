package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/ingestion"
	"github.com/54b3r/docchat-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request, including
	// upload bodies.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover a full generation.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers are the dependency probes run by GET /api/ready. If empty,
	// /api/ready always answers 200.
	Pingers []Pinger
	// ProbeTimeout bounds each readiness probe. Defaults to 5s.
	ProbeTimeout time.Duration
	// RateLimit is the sustained rate, in requests per second, one client may
	// send to the upload and query routes of one scope. Defaults to 10.
	RateLimit float64
	// RateBurst is the bucket size behind RateLimit. Defaults to 20.
	RateBurst int
	// APIKey is the Bearer token required on all /api/scopes routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MaxUploadBytes caps a multipart upload body. Defaults to 64 MiB.
	MaxUploadBytes int64
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// scopeService is the orchestrator surface the handlers call.
// *assistant.Assistant satisfies it.
type scopeService interface {
	Create(ctx context.Context, id string) (*assistant.Snapshot, error)
	Snapshot(scopeID string) (*assistant.Snapshot, error)
	Delete(ctx context.Context, scopeID string) error
	Upload(ctx context.Context, scopeID string, files []ingestion.File) (*assistant.UploadResult, error)
	Clear(ctx context.Context, scopeID string) error
	Query(ctx context.Context, scopeID, query string) (*assistant.Answer, error)
	History(ctx context.Context, scopeID string, n int) ([]store.Message, error)
}

var _ scopeService = (*assistant.Assistant)(nil)

// Server is the HTTP server that exposes the assistant.
type Server struct {
	// scopes handles every /api/scopes request.
	scopes scopeService
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopThrottle stops the throttle's idle-bucket sweeper.
	stopThrottle func()
}

// createScopeRequest is the optional JSON body for POST /api/scopes.
type createScopeRequest struct {
	// ID requests a specific scope ID. Empty means generate one.
	ID string `json:"id"`
}

// fileOutcome reports one file of an upload.
type fileOutcome struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Summary  string `json:"summary,omitempty"`
	Error    string `json:"error,omitempty"`
}

// uploadResponse is the JSON response for POST /api/scopes/{id}/documents.
type uploadResponse struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Files     []fileOutcome `json:"files"`
}

// queryRequest is the JSON body for POST /api/scopes/{id}/query.
type queryRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
}

// queryResponse is the JSON response for POST /api/scopes/{id}/query.
type queryResponse struct {
	// HTML is the formatted answer.
	HTML string `json:"html"`
	// Text is the raw generated answer.
	Text string `json:"text"`
	// Citations lists the filename of each retrieved chunk, in rank order.
	Citations []string `json:"citations"`
}

// historyResponse is the JSON response for GET /api/scopes/{id}/history.
type historyResponse struct {
	Messages []store.Message `json:"messages"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}
