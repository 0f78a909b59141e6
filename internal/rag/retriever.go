package rag

import (
	"context"
	"fmt"

	"github.com/54b3r/docchat-go/internal/vectorindex"
)

// DefaultTopK is the number of chunks retrieved when no k is configured.
const DefaultTopK = 5

// Retriever embeds a query and searches an index for the nearest chunks.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever. defaultTopK sets the result count used
// when Retrieve is called with topK <= 0.
func NewRetriever(embedder Embedder, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{embedder: embedder, defaultTopK: defaultTopK}, nil
}

// TopK returns the configured default result count.
func (r *Retriever) TopK() int { return r.defaultTopK }

// Retrieve embeds query and returns the topK nearest chunks in idx, nearest
// first. An empty index returns no results without calling the embedder.
func (r *Retriever) Retrieve(ctx context.Context, idx vectorindex.Index, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if idx.Len() == 0 {
		return nil, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	hits, err := idx.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ChunkID:    h.Entry.ChunkID,
			Filename:   h.Entry.Filename,
			ChunkIndex: h.Entry.ChunkIndex,
			Text:       h.Entry.Text,
			Distance:   h.Distance,
		}
	}
	return results, nil
}
