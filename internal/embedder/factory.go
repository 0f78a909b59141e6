// Package embedder turns text into dense vectors for retrieval. Backends:
// Ollama (/api/embed), OpenAI and Azure OpenAI through the openai-go SDK,
// and a deterministic local hashing embedder that needs no model.
// NewFromEnv wraps the selected backend in Checked so every backend shares
// one input and output policy.
package embedder

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/docchat-go/internal/rag"
)

// Backend names accepted by EMBEDDING_PROVIDER.
const (
	BackendLocal  = "local"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
)

const (
	defaultOllamaModel = "all-minilm"
	defaultOllamaHost  = "http://localhost:11434"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultAzureAPIVer = "2025-04-01-preview"

	// all-MiniLM-L6-v2. nomic-embed-text needs EMBEDDING_DIMENSIONS=768.
	defaultOllamaDimensions = 384
	// text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// plannedBackends are chat providers with no embedding support yet. Naming
// them gives a clearer error than "unknown backend".
var plannedBackends = map[string]string{
	"bedrock": "amazon.titan-embed-text-v2",
	"gemini":  "text-embedding-004",
}

// envSettings is what every backend builder receives.
type envSettings struct {
	dims        int
	retryWindow time.Duration
}

type builder func(s envSettings) (rag.Embedder, error)

var builders = map[string]builder{
	BackendLocal:  buildLocal,
	BackendOllama: buildOllama,
	BackendOpenAI: buildOpenAI,
	BackendAzure:  buildAzure,
}

// ResolveBackend returns the effective embedding backend: EMBEDDING_PROVIDER,
// else MODEL_PROVIDER, else ollama.
func ResolveBackend() string {
	b := firstEnv("EMBEDDING_PROVIDER", "MODEL_PROVIDER")
	if b == "" {
		return BackendOllama
	}
	return strings.ToLower(b)
}

// DefaultDimensions returns the vector width for backend. A positive
// EMBEDDING_DIMENSIONS always wins.
func DefaultDimensions(backend string) int {
	if v := envInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case BackendLocal:
		return DefaultLocalDimensions
	case BackendOllama:
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// NewFromEnv builds the embedder selected by the environment. Unset
// embedding variables fall back to the chat provider's:
//
//	EMBEDDING_PROVIDER      MODEL_PROVIDER, then ollama
//	EMBEDDING_API_KEY       OPENAI_API_KEY or AZURE_OPENAI_API_KEY
//	EMBEDDING_ENDPOINT      OLLAMA_HOST or AZURE_OPENAI_ENDPOINT
//	EMBEDDING_MODEL         per-backend default
//	EMBEDDING_DIMENSIONS    384 for local and ollama, 1536 otherwise
//	EMBEDDING_MAX_TOKENS    per-input budget, longer input is truncated
//	EMBEDDING_RETRY_WINDOW  total retry time for transient failures
func NewFromEnv() (*Checked, error) {
	backend := ResolveBackend()
	build, ok := builders[backend]
	if !ok {
		if model, planned := plannedBackends[backend]; planned {
			return nil, fmt.Errorf("embedder: %s embedding support is not yet implemented (model: %s)", backend, model)
		}
		return nil, fmt.Errorf("embedder: unknown backend %q, valid values: local, ollama, openai, azure", backend)
	}

	inner, err := build(envSettings{
		dims:        DefaultDimensions(backend),
		retryWindow: envDuration("EMBEDDING_RETRY_WINDOW", defaultRetryWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %s: %w", backend, err)
	}
	return NewChecked(inner, backend, envInt("EMBEDDING_MAX_TOKENS", 0)), nil
}

func buildLocal(s envSettings) (rag.Embedder, error) {
	return NewHashEmbedder(s.dims), nil
}

func buildOllama(s envSettings) (rag.Embedder, error) {
	host := firstEnv("EMBEDDING_ENDPOINT", "OLLAMA_HOST")
	if host == "" {
		host = defaultOllamaHost
	}
	return NewOllamaEmbedder(&OllamaConfig{
		Host:        host,
		Model:       envOr("EMBEDDING_MODEL", defaultOllamaModel),
		Dimensions:  s.dims,
		RetryWindow: s.retryWindow,
	}), nil
}

func buildOpenAI(s envSettings) (rag.Embedder, error) {
	key, err := requireEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	return NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:     envOr("EMBEDDING_ENDPOINT", defaultOpenAIURL),
		APIKey:      key,
		Model:       envOr("EMBEDDING_MODEL", defaultOpenAIModel),
		Dimensions:  s.dims,
		RetryWindow: s.retryWindow,
	}), nil
}

func buildAzure(s envSettings) (rag.Embedder, error) {
	key, err := requireEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	endpoint, err := requireEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
	if err != nil {
		return nil, err
	}
	return NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:     endpoint,
		APIKey:      key,
		Model:       envOr("EMBEDDING_MODEL", defaultOpenAIModel),
		Dimensions:  s.dims,
		Azure:       true,
		APIVersion:  envOr("AZURE_OPENAI_API_VERSION", defaultAzureAPIVer),
		RetryWindow: s.retryWindow,
	}), nil
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// requireEnv is firstEnv that fails when every key is empty. The error
// names the last key, the chat provider's, since that is the one most
// deployments already set.
func requireEnv(keys ...string) (string, error) {
	if v := firstEnv(keys...); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("requires %s or %s", keys[len(keys)-1], keys[0])
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns fallback when key is unset or not an integer.
func envInt(key string, fallback int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
