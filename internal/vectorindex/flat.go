package vectorindex

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Flat is an in-memory brute-force index. Vectors and entries live in
// parallel slices indexed by insertion position.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	entries []Entry
}

var _ Index = (*Flat)(nil)

// NewFlat returns an empty Flat index for vectors of length dim.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vectorindex: dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int { return f.dim }

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Insert appends vector and entry as the newest position.
func (f *Flat) Insert(ctx context.Context, vector []float32, entry Entry) error {
	return f.InsertBatch(ctx, [][]float32{vector}, []Entry{entry})
}

// InsertBatch appends all vectors and entries or none of them. Vectors are
// copied so later changes to the caller's slices do not reach the index.
func (f *Flat) InsertBatch(_ context.Context, vectors [][]float32, entries []Entry) error {
	if err := validateBatch(f.dim, vectors, entries); err != nil {
		return err
	}

	copied := make([][]float32, len(vectors))
	for i, v := range vectors {
		copied[i] = slices.Clone(v)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, copied...)
	f.entries = append(f.entries, entries...)
	return nil
}

// Search scans every stored vector and returns the k nearest.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 || k <= 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, &DimensionMismatchError{Want: f.dim, Got: len(query)}
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: i, Distance: SquaredL2(query, v), Entry: f.entries[i]}
	}
	return rank(hits, k), nil
}

// Clear drops every vector and entry.
func (f *Flat) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = nil
	f.entries = nil
	return nil
}
