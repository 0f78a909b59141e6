// Package vectorindex stores chunk embeddings and answers exact k-nearest
// neighbour queries by squared Euclidean distance.
//
// Every index keeps a vector and its Entry at the same insertion position;
// position is the only join key between the two. Search results carry the
// Entry so callers never have to re-read metadata outside the index lock.
package vectorindex

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// Entry is the metadata stored alongside each vector.
type Entry struct {
	// ChunkID distinguishes chunks of documents that share a filename.
	ChunkID string

	// Filename is the name of the document the chunk came from.
	Filename string

	// ChunkIndex is the ordinal of the chunk within its document.
	ChunkIndex int

	// Text is the chunk text.
	Text string
}

// Hit is one search result.
type Hit struct {
	// Position is the insertion position of the matched vector.
	Position int

	// Distance is the squared Euclidean distance to the query.
	Distance float32

	// Entry is the metadata stored at Position.
	Entry Entry
}

// Index is implemented by every vector index backend.
type Index interface {
	// Dimension returns the fixed vector dimension set at construction.
	Dimension() int

	// Len returns the number of stored vectors.
	Len() int

	// Insert appends a single vector and its entry.
	Insert(ctx context.Context, vector []float32, entry Entry) error

	// InsertBatch appends vectors and entries pairwise. Every vector is
	// validated before any is stored, so a failed batch leaves the index
	// unchanged.
	InsertBatch(ctx context.Context, vectors [][]float32, entries []Entry) error

	// Search returns up to k nearest entries, nearest first, with ties broken
	// by earliest insertion. An empty index yields an empty result.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Clear discards every entry; the index is then equivalent to a freshly
	// constructed one of the same dimension.
	Clear(ctx context.Context) error
}

// DimensionMismatchError is returned when a vector's length differs from the
// index dimension.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vectorindex: dimension mismatch: index has %d, vector has %d", e.Want, e.Got)
}

// validateBatch checks pairing and dimensions for an insert batch.
func validateBatch(dim int, vectors [][]float32, entries []Entry) error {
	if len(vectors) != len(entries) {
		return fmt.Errorf("vectorindex: %d vectors but %d entries", len(vectors), len(entries))
	}
	for _, v := range vectors {
		if len(v) != dim {
			return &DimensionMismatchError{Want: dim, Got: len(v)}
		}
	}
	return nil
}

// SquaredL2 returns the squared Euclidean distance between a and b, which
// must have equal length.
func SquaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// rank orders hits by distance then position and keeps the first k.
func rank(hits []Hit, k int) []Hit {
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
