package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/docchat-go/internal/chunker"
)

// Index backends selectable with INDEX_BACKEND.
const (
	IndexMemory = "memory"
	IndexQdrant = "qdrant"
)

const (
	defaultHost             = "127.0.0.1"
	defaultPort             = 8080
	defaultCollectionPrefix = "docchat-"
	defaultSummarySentences = 2
	// defaultChunkSize mirrors ingestion.DefaultChunkSize for window checks.
	defaultChunkSize = 1000
)

// Settings is the resolved runtime configuration of the serve and ask
// commands. It is read from the environment after Load has applied the
// YAML file, so env vars and YAML values are both reflected.
type Settings struct {
	Host           string
	Port           int
	APIKey         string
	RateLimit      float64
	RateBurst      int
	MaxUploadBytes int64

	IndexBackend     string
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantTLS        bool
	CollectionPrefix string

	ChunkSize        int
	ChunkOverlap     int
	SummarySentences int
	UploadDir        string

	TopK             int
	MaxContextTokens int

	GenerationTimeout time.Duration
	HistoryDB         string
}

// FromEnv resolves Settings from the environment. Zero values for chunking,
// retrieval, rate limiting and timeout fields mean "use the consuming
// package's default". A negative ChunkOverlap means unset.
func FromEnv() (*Settings, error) {
	s := &Settings{
		Host:             getEnvOrDefault("DOCCHAT_HOST", defaultHost),
		APIKey:           os.Getenv("DOCCHAT_API_KEY"),
		IndexBackend:     strings.ToLower(getEnvOrDefault("INDEX_BACKEND", IndexMemory)),
		QdrantHost:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		CollectionPrefix: getEnvOrDefault("QDRANT_COLLECTION_PREFIX", defaultCollectionPrefix),
		UploadDir:        os.Getenv("DOCCHAT_UPLOAD_DIR"),
		HistoryDB:        os.Getenv("DOCCHAT_HISTORY_DB"),
	}

	var err error
	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"DOCCHAT_PORT", &s.Port, defaultPort},
		{"DOCCHAT_RATE_BURST", &s.RateBurst, 0},
		{"QDRANT_PORT", &s.QdrantPort, 6334},
		{"CHUNK_SIZE", &s.ChunkSize, 0},
		{"CHUNK_OVERLAP", &s.ChunkOverlap, -1},
		{"SUMMARY_SENTENCES", &s.SummarySentences, defaultSummarySentences},
		{"RAG_TOP_K", &s.TopK, 0},
		{"MAX_CONTEXT_TOKENS", &s.MaxContextTokens, 0},
	}
	for _, i := range ints {
		if *i.dst, err = getEnvInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	if s.RateLimit, err = getEnvFloat64("DOCCHAT_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if s.MaxUploadBytes, err = getEnvInt64("DOCCHAT_MAX_UPLOAD_BYTES", 0); err != nil {
		return nil, err
	}
	if v := os.Getenv("QDRANT_TLS"); v != "" {
		if s.QdrantTLS, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("config: QDRANT_TLS: %w", err)
		}
	}
	if v := os.Getenv("GENERATION_TIMEOUT"); v != "" {
		if s.GenerationTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("config: GENERATION_TIMEOUT: %w", err)
		}
	}

	if err := s.checkWindow(); err != nil {
		return nil, err
	}

	switch s.IndexBackend {
	case IndexMemory, IndexQdrant:
	default:
		return nil, fmt.Errorf("config: INDEX_BACKEND must be %q or %q, got %q", IndexMemory, IndexQdrant, s.IndexBackend)
	}

	if s.UploadDir == "" {
		s.UploadDir = filepath.Join(os.TempDir(), "docchat-uploads")
	}
	return s, nil
}

// checkWindow rejects chunk windows the chunker cannot walk. An unset
// overlap is left to the ingestion default.
func (s *Settings) checkWindow() error {
	if s.ChunkSize < 0 {
		return fmt.Errorf("config: CHUNK_SIZE=%d: %w", s.ChunkSize, chunker.ErrInvalidWindow)
	}
	if os.Getenv("CHUNK_OVERLAP") == "" {
		return nil
	}
	size := s.ChunkSize
	if size == 0 {
		size = defaultChunkSize
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= size {
		return fmt.Errorf("config: CHUNK_OVERLAP=%d with CHUNK_SIZE=%d: %w", s.ChunkOverlap, size, chunker.ErrInvalidWindow)
	}
	return nil
}

// OverlapSet reports whether CHUNK_OVERLAP was given. Zero is then a real
// request for no overlap.
func (s *Settings) OverlapSet() bool { return s.ChunkOverlap >= 0 }

// HistoryDisabled reports whether transcript persistence was switched off.
func (s *Settings) HistoryDisabled() bool {
	return strings.EqualFold(s.HistoryDB, "disabled")
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat64(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number: %w", key, err)
	}
	return f, nil
}
