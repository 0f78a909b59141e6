package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/54b3r/docchat-go/internal/budget"
	"github.com/54b3r/docchat-go/internal/rag"
)

// Checked wraps a backend embedder with the input and output policy every
// backend shares:
//
//   - empty or whitespace-only input fails with ErrEmptyText
//   - input over the token budget is truncated to the budget, never rejected
//   - the response must hold one vector per input, each of Dimensions() length
//
// All failures are returned as *EmbeddingError.
type Checked struct {
	inner     rag.Embedder
	backend   string
	maxTokens int
}

var _ rag.Embedder = (*Checked)(nil)

// NewChecked wraps inner. maxTokens <= 0 selects budget.DefaultEmbeddingTokens.
func NewChecked(inner rag.Embedder, backend string, maxTokens int) *Checked {
	if maxTokens <= 0 {
		maxTokens = budget.DefaultEmbeddingTokens
	}
	return &Checked{inner: inner, backend: backend, maxTokens: maxTokens}
}

// Backend returns the wrapped backend name.
func (c *Checked) Backend() string { return c.backend }

// Dimensions returns the wrapped embedder's vector length.
func (c *Checked) Dimensions() int { return c.inner.Dimensions() }

// Embed validates and truncates texts, delegates to the backend, and checks
// the shape of the result.
func (c *Checked) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, c.fail(fmt.Errorf("input %d: %w", i, ErrEmptyText))
		}
		inputs[i], _ = budget.Truncate(t, c.maxTokens)
	}

	vectors, err := c.inner.Embed(ctx, inputs)
	if err != nil {
		var ee *EmbeddingError
		if errors.As(err, &ee) {
			return nil, err
		}
		return nil, c.fail(err)
	}
	if len(vectors) != len(inputs) {
		return nil, c.fail(fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(vectors)))
	}
	dim := c.inner.Dimensions()
	for i, v := range vectors {
		if len(v) != dim {
			return nil, c.fail(fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim))
		}
	}
	return vectors, nil
}

func (c *Checked) fail(err error) error {
	return &EmbeddingError{Backend: c.backend, Err: err}
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e rag.Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder: expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}
