package embedder

import (
	"errors"
	"fmt"
)

// ErrEmptyText is returned (wrapped in EmbeddingError) when an input is
// empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// EmbeddingError reports a failure to embed text: invalid input, a backend
// failure, or a malformed backend response.
type EmbeddingError struct {
	// Backend names the embedding backend (ollama, openai, azure, local).
	Backend string

	// Err is the underlying cause.
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedder: %s: %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
