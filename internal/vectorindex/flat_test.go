package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestFlat(t *testing.T, dim int) *Flat {
	t.Helper()
	f, err := NewFlat(dim)
	if err != nil {
		t.Fatalf("NewFlat(%d): %v", dim, err)
	}
	return f
}

func entry(i int) Entry {
	return Entry{ChunkID: fmt.Sprintf("c%d", i), Filename: "doc.txt", ChunkIndex: i, Text: fmt.Sprintf("chunk %d", i)}
}

func TestNewFlat_InvalidDimension(t *testing.T) {
	t.Parallel()
	if _, err := NewFlat(0); err == nil {
		t.Error("NewFlat(0) expected error, got nil")
	}
}

func TestFlat_SearchEmpty(t *testing.T) {
	t.Parallel()
	f := newTestFlat(t, 3)

	// Wrong query dimension on an empty index still returns no results.
	hits, err := f.Search(context.Background(), []float32{1}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Search() = %v, want empty", hits)
	}
}

func TestFlat_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 4)

	vectors := [][]float32{
		{0, 0, 0, 1},
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{1, 1, 1, 1},
	}
	for i, v := range vectors {
		if err := f.Insert(ctx, v, entry(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for i, v := range vectors {
		hits, err := f.Search(ctx, v, 3)
		if err != nil {
			t.Fatalf("Search(%d): %v", i, err)
		}
		if len(hits) != 3 {
			t.Fatalf("Search(%d) returned %d hits, want 3", i, len(hits))
		}
		if hits[0].Position != i || hits[0].Distance != 0 {
			t.Errorf("Search(%d) top = {pos %d, dist %v}, want {pos %d, dist 0}", i, hits[0].Position, hits[0].Distance, i)
		}
		if hits[0].Entry != entry(i) {
			t.Errorf("Search(%d) entry = %+v, want %+v", i, hits[0].Entry, entry(i))
		}
		for j := 1; j < len(hits); j++ {
			if hits[j].Distance < hits[j-1].Distance {
				t.Errorf("Search(%d) not ascending at %d: %v", i, j, hits)
			}
		}
	}
}

func TestFlat_TiesBrokenByInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 2)

	same := []float32{0.5, 0.5}
	for i := range 4 {
		if err := f.Insert(ctx, same, entry(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	hits, err := f.Search(ctx, same, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i, h := range hits {
		if h.Position != i {
			t.Errorf("hit %d position = %d, want %d", i, h.Position, i)
		}
	}
}

func TestFlat_KLargerThanLen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 1)
	for i := range 2 {
		if err := f.Insert(ctx, []float32{float32(i)}, entry(i)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	hits, err := f.Search(ctx, []float32{0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("Search() returned %d hits, want 2", len(hits))
	}
}

func TestFlat_DimensionMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 3)
	if err := f.Insert(ctx, []float32{1, 2, 3}, entry(0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := f.Insert(ctx, []float32{1, 2}, entry(1))
	var dme *DimensionMismatchError
	if !errors.As(err, &dme) {
		t.Fatalf("Insert() error = %v, want DimensionMismatchError", err)
	}
	if dme.Want != 3 || dme.Got != 2 {
		t.Errorf("DimensionMismatchError = %+v, want {Want:3 Got:2}", dme)
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d after failed insert, want 1", f.Len())
	}

	if _, err := f.Search(ctx, []float32{1}, 1); !errors.As(err, &dme) {
		t.Errorf("Search() with wrong dimension error = %v, want DimensionMismatchError", err)
	}
}

func TestFlat_InsertBatchAllOrNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 2)

	err := f.InsertBatch(ctx,
		[][]float32{{1, 1}, {2, 2}, {3}},
		[]Entry{entry(0), entry(1), entry(2)},
	)
	var dme *DimensionMismatchError
	if !errors.As(err, &dme) {
		t.Fatalf("InsertBatch() error = %v, want DimensionMismatchError", err)
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d after failed batch, want 0", f.Len())
	}

	if err := f.InsertBatch(ctx, [][]float32{{1, 1}}, nil); err == nil {
		t.Error("InsertBatch() with unpaired entries expected error, got nil")
	}
}

func TestFlat_InsertCopiesVector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 2)

	v := []float32{1, 1}
	if err := f.Insert(ctx, v, entry(0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v[0] = 100

	hits, err := f.Search(ctx, []float32{1, 1}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Distance != 0 {
		t.Errorf("stored vector was mutated through caller slice: distance %v", hits[0].Distance)
	}
}

func TestFlat_Clear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 2)
	for i := range 3 {
		if err := f.Insert(ctx, []float32{float32(i), 0}, entry(i)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := f.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", f.Len())
	}
	hits, err := f.Search(ctx, []float32{0, 0}, 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("Search() after Clear = (%v, %v), want empty", hits, err)
	}

	// Positions restart from zero.
	if err := f.Insert(ctx, []float32{9, 9}, entry(7)); err != nil {
		t.Fatalf("Insert after Clear: %v", err)
	}
	hits, _ = f.Search(ctx, []float32{9, 9}, 1)
	if len(hits) != 1 || hits[0].Position != 0 {
		t.Errorf("Search() after re-insert = %v, want position 0", hits)
	}
}

func TestFlat_ConcurrentReadersAndWriter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTestFlat(t, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 200 {
			_ = f.Insert(ctx, []float32{float32(i), 0}, entry(i))
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				hits, err := f.Search(ctx, []float32{0, 0}, 5)
				if err != nil {
					t.Errorf("Search: %v", err)
					return
				}
				for _, h := range hits {
					if h.Entry.ChunkIndex != h.Position {
						t.Errorf("torn read: position %d has entry %d", h.Position, h.Entry.ChunkIndex)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if f.Len() != 200 {
		t.Errorf("Len() = %d, want 200", f.Len())
	}
}

func TestSquaredL2(t *testing.T) {
	t.Parallel()
	if got := SquaredL2([]float32{0, 0}, []float32{3, 4}); got != 25 {
		t.Errorf("SquaredL2 = %v, want 25", got)
	}
}
