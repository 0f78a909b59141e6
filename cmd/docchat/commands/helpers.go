package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/config"
	"github.com/54b3r/docchat-go/internal/embedder"
	"github.com/54b3r/docchat-go/internal/ingestion"
	"github.com/54b3r/docchat-go/internal/provider"
	"github.com/54b3r/docchat-go/internal/server"
	"github.com/54b3r/docchat-go/internal/store"
	"github.com/54b3r/docchat-go/internal/vectorindex"
)

// chunkOverlap maps the CHUNK_OVERLAP setting onto ingestion.Config, where
// zero means the default and NoOverlap means none.
func chunkOverlap(s *config.Settings) int {
	switch {
	case !s.OverlapSet():
		return 0
	case s.ChunkOverlap == 0:
		return ingestion.NoOverlap
	default:
		return s.ChunkOverlap
	}
}

// buildGenerator resolves the chat provider from the environment and wraps
// it in a Generator bounded by the configured timeout.
func buildGenerator(ctx context.Context, s *config.Settings) (*provider.Generator, *provider.Config, error) {
	providerCfg, err := provider.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	gen, err := provider.NewGenerator(chatModel, providerCfg.ModelName(), s.GenerationTimeout)
	if err != nil {
		return nil, nil, err
	}
	return gen, providerCfg, nil
}

// buildIndexFactory returns the per-scope index constructor for the selected
// backend. For qdrant the shared client is returned so the caller can close
// it and probe it; it is nil for the in-memory backend.
func buildIndexFactory(s *config.Settings, log *slog.Logger) (assistant.IndexFactory, *qdrant.Client, error) {
	if s.IndexBackend != config.IndexQdrant {
		log.Info("index: in-memory")
		return assistant.FlatIndexes, nil, nil
	}

	client, err := vectorindex.NewQdrantClient(&vectorindex.QdrantConfig{
		Host:   s.QdrantHost,
		Port:   s.QdrantPort,
		APIKey: s.QdrantAPIKey,
		UseTLS: s.QdrantTLS,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("index: qdrant",
		slog.String("host", s.QdrantHost),
		slog.Int("port", s.QdrantPort),
		slog.String("collection_prefix", s.CollectionPrefix),
	)

	prefix := s.CollectionPrefix
	factory := func(ctx context.Context, scopeID string, dim int) (vectorindex.Index, error) {
		return vectorindex.NewQdrant(ctx, client, prefix+scopeID, dim)
	}
	return factory, client, nil
}

// openTranscript opens the SQLite transcript store. DOCCHAT_HISTORY_DB
// overrides the default path (~/.docchat/history.db); "disabled" turns
// persistence off. Failures disable history rather than aborting startup.
func openTranscript(s *config.Settings, log *slog.Logger) (store.Transcript, func()) {
	noop := func() {}
	if s.HistoryDisabled() {
		log.Info("history: disabled via DOCCHAT_HISTORY_DB=disabled")
		return nil, noop
	}

	dbPath := s.HistoryDB
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, noop
		}
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, noop
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// buildPingers assembles the readiness probes: the generation backend, the
// embedder, and Qdrant when it backs the index.
func buildPingers(gen *provider.Generator, providerCfg *provider.Config, emb *embedder.Checked, qc *qdrant.Client) []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(providerCfg.Probe(), gen, string(providerCfg.Backend)),
		server.NewEmbedderPinger(emb, embedder.ResolveBackend()),
	}
	if qc != nil {
		pingers = append(pingers, server.NewQdrantPinger(qc))
	}
	return pingers
}

// buildEmbedder logs embedding configuration warnings, then builds the
// embedder selected by the environment.
func buildEmbedder(log *slog.Logger) (*embedder.Checked, error) {
	for _, w := range embedder.Lint() {
		log.Warn("embedder: "+w.Msg, slog.String("hint", w.Hint))
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	return emb, nil
}
