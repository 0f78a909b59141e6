package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/docchat-go/internal/embedder"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/provider"
	"github.com/54b3r/docchat-go/internal/rag"
)

// generateProbeTTL is how long a successful token-spending generation probe
// is trusted before the backend is asked again.
const generateProbeTTL = time.Minute

// funcPinger adapts a probe function to Pinger.
type funcPinger struct {
	name  string
	probe func(ctx context.Context) error
}

func (p funcPinger) Name() string                   { return p.name }
func (p funcPinger) Ping(ctx context.Context) error { return p.probe(ctx) }

// NewLLMPinger probes the generation backend named name. A backend with a
// free health check (hc) is probed with it. Otherwise gen is asked for a
// one-word answer, which costs tokens, so a success is reused for
// generateProbeTTL.
func NewLLMPinger(hc provider.HealthCheckConfig, gen rag.Generator, name string) Pinger {
	if hc != nil {
		return funcPinger{name: name, probe: hc.HealthCheck}
	}
	if gen == nil {
		return funcPinger{name: name, probe: func(context.Context) error {
			return errors.New("no probe available")
		}}
	}

	var (
		mu     sync.Mutex
		lastOK time.Time
	)
	return funcPinger{name: name, probe: func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if time.Since(lastOK) < generateProbeTTL {
			return nil
		}
		logging.FromContext(ctx).Debug("readiness: probing with a generation", slog.String("backend", name))
		if _, err := gen.Generate(ctx, "ping"); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		lastOK = time.Now()
		return nil
	}}
}

// NewEmbedderPinger probes an embedder by embedding one word. The pinger is
// named "embedder:<backend>".
func NewEmbedderPinger(e rag.Embedder, backend string) Pinger {
	return funcPinger{name: "embedder:" + backend, probe: func(ctx context.Context) error {
		if _, err := embedder.EmbedOne(ctx, e, "ping"); err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		return nil
	}}
}

// NewQdrantPinger probes Qdrant with its HealthCheck RPC.
func NewQdrantPinger(client *qdrant.Client) Pinger {
	return funcPinger{name: "qdrant", probe: func(ctx context.Context) error {
		_, err := client.HealthCheck(ctx)
		return err
	}}
}
