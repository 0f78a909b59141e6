package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// ollamaBatch caps the inputs sent in one /api/embed call. Larger
	// uploads are embedded in consecutive calls.
	ollamaBatch = 64
	// ollamaTimeout bounds one /api/embed round trip.
	ollamaTimeout = 60 * time.Second
	// maxErrorBody caps how much of a failed response is read.
	maxErrorBody = 4 << 10
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string
	// Model is the embedding model, e.g. "all-minilm".
	Model string
	// Dimensions is the width of the model's vectors. Zero means the
	// all-minilm width.
	Dimensions int
	// RetryWindow bounds retries of 429, 5xx and network failures.
	RetryWindow time.Duration
}

// OllamaEmbedder embeds text with a local Ollama server's /api/embed
// endpoint. It is safe for concurrent use.
type OllamaEmbedder struct {
	endpoint    string
	model       string
	dimensions  int
	retryWindow time.Duration
	client      *http.Client
}

// NewOllamaEmbedder constructs an OllamaEmbedder.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultOllamaDimensions
	}
	return &OllamaEmbedder{
		endpoint:    strings.TrimRight(cfg.Host, "/") + "/api/embed",
		model:       cfg.Model,
		dimensions:  dims,
		retryWindow: cfg.RetryWindow,
		client:      &http.Client{Timeout: ollamaTimeout},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	// Truncate asks Ollama to cut inputs at the model's context length
	// instead of failing.
	Truncate bool `json:"truncate"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Dimensions returns the configured vector width.
func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

// Embed returns one vector per text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ollamaBatch {
		batch := texts[start:min(start+ollamaBatch, len(texts))]
		vecs, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("ollama embedder: %w", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OllamaEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: batch, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var vecs [][]float32
	err = withRetry(ctx, e.retryWindow, func() error {
		vecs, err = e.post(ctx, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs))
	}
	return vecs, nil
}

// post performs one /api/embed round trip. Non-2xx responses become a
// statusError carrying Ollama's error message.
func (e *OllamaEmbedder) post(ctx context.Context, payload []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ollamaEmbedResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(body, &result)
		return nil, &statusError{code: resp.StatusCode, msg: result.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Embeddings, nil
}
