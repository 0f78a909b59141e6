// Package rag defines the building blocks shared by ingestion and query
// handling: the Embedder and Generator contracts, retrieval results, and
// assembly of the context block and prompt sent to the generation model.
// Concrete embedders live in internal/embedder, generators in
// internal/provider, and indexes in internal/vectorindex.
package rag

import "context"

// Embedder converts text into dense vectors of a fixed dimension.
type Embedder interface {
	// Embed returns one vector per input, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of every vector Embed produces.
	Dimensions() int
}

// Generator produces a completion for a prompt.
type Generator interface {
	// Generate returns the full generated text for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is one retrieved chunk, ordered by ascending distance in a result set.
type Result struct {
	// ChunkID identifies the chunk across documents sharing a filename.
	ChunkID string `json:"chunk_id"`

	// Filename is the document the chunk came from; it is the citation.
	Filename string `json:"filename"`

	// ChunkIndex is the ordinal of the chunk within its document.
	ChunkIndex int `json:"chunk_index"`

	// Text is the chunk text.
	Text string `json:"text"`

	// Distance is the squared Euclidean distance to the query vector.
	Distance float32 `json:"distance"`
}
