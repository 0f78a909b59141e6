package embedder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// OpenAIEmbedder implements rag.Embedder using the OpenAI (or Azure OpenAI)
// embeddings API through the official SDK. It is safe for concurrent use.
type OpenAIEmbedder struct {
	// client is the SDK client; its own retries are disabled in favour of withRetry.
	client openai.Client
	// model is the embedding model name, or the deployment name on Azure.
	model string
	// dimensions is the embedding vector length requested from the API.
	dimensions int
	// retryWindow bounds retries of transient failures.
	retryWindow time.Duration
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL is the API base URL. For OpenAI: "https://api.openai.com/v1".
	// For Azure: "https://<resource>.openai.azure.com".
	BaseURL string
	// APIKey is the authentication key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-3-small").
	Model string
	// Dimensions is the desired vector length.
	Dimensions int
	// Azure enables Azure OpenAI mode (api-key header + api-version param).
	Azure bool
	// APIVersion is the Azure OpenAI API version (e.g. "2025-04-01-preview").
	// Ignored when Azure is false.
	APIVersion string
	// RetryWindow bounds retries of 429/5xx/network failures (default 30s).
	RetryWindow time.Duration
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from the given config.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(30 * time.Second),
	}
	if cfg.Azure {
		opts = append(opts,
			azure.WithEndpoint(cfg.BaseURL, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultOpenAIDimensions
	}
	return &OpenAIEmbedder{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		dimensions:  dims,
		retryWindow: cfg.RetryWindow,
	}
}

// Dimensions returns the requested vector length.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Embed converts a batch of texts into embeddings, parallel to texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a dimensions override.
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	var resp *openai.CreateEmbeddingResponse
	err := withRetry(ctx, e.retryWindow, func() error {
		var err error
		resp, err = e.client.Embeddings.New(ctx, params)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return &statusError{code: apiErr.StatusCode, msg: apiErr.Message}
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API documents index ordering but does not guarantee array order.
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = toFloat32(d.Embedding)
	}
	return out, nil
}

// toFloat32 converts the SDK's float64 vectors to the index's float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
