package vectorindex

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// NewQdrantClient dials Qdrant. The client is shared by every scope's index
// and must be closed by the caller.
func NewQdrantClient(cfg *QdrantConfig) (*qdrant.Client, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}
	return client, nil
}

// Qdrant is an Index backed by one Qdrant collection. Points use the
// insertion position as their numeric ID and carry the Entry as payload.
// Searches run with exact (brute-force) scoring so results match Flat.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dim        int

	// mu serialises writers; next is the position the next vector receives.
	mu   sync.RWMutex
	next int
}

var _ Index = (*Qdrant)(nil)

// NewQdrant returns an empty index stored in collection. Any existing
// collection with that name is dropped: indexes are rebuilt, never migrated.
func NewQdrant(ctx context.Context, client *qdrant.Client, collection string, dim int) (*Qdrant, error) {
	if client == nil {
		return nil, fmt.Errorf("qdrant: client must not be nil")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("qdrant: dimension must be positive, got %d", dim)
	}
	q := &Qdrant{client: client, collection: collection, dim: dim}
	if err := q.resetCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// resetCollection drops the collection if present and creates it empty.
func (q *Qdrant) resetCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("qdrant: failed to drop collection %q: %w", q.collection, err)
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", q.collection, err)
	}
	return nil
}

// Dimension returns the vector dimension.
func (q *Qdrant) Dimension() int { return q.dim }

// Len returns the number of vectors inserted since construction or the last Clear.
func (q *Qdrant) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.next
}

// Insert appends a single vector.
func (q *Qdrant) Insert(ctx context.Context, vector []float32, entry Entry) error {
	return q.InsertBatch(ctx, [][]float32{vector}, []Entry{entry})
}

// InsertBatch upserts the batch in a single waited request. Positions are
// only advanced once Qdrant has acknowledged every point.
func (q *Qdrant) InsertBatch(ctx context.Context, vectors [][]float32, entries []Entry) error {
	if err := validateBatch(q.dim, vectors, entries); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		e := entries[i]
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(q.next + i)),
			Vectors: qdrant.NewVectors(v...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    e.ChunkID,
				"filename":    e.Filename,
				"chunk_index": int64(e.ChunkIndex),
				"text":        e.Text,
			}),
		}
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	q.next += len(vectors)
	return nil
}

// Search runs an exact nearest-neighbour query. Qdrant reports Euclidean
// distance; it is squared here to match Flat.
//
// Qdrant breaks distance ties arbitrarily, so the query fetches past k and
// widens until the k-th distance is not shared by the last point fetched.
// Ties are then ordered by position as in Flat.
func (q *Qdrant) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.next == 0 || k <= 0 {
		return []Hit{}, nil
	}
	if len(query) != q.dim {
		return nil, &DimensionMismatchError{Want: q.dim, Got: len(query)}
	}

	var hits []Hit
	for limit := k + 1; ; limit *= 2 {
		var err error
		if hits, err = q.query(ctx, query, limit); err != nil {
			return nil, err
		}
		if limit >= q.next || !tiedAtCutoff(hits, k, limit) {
			break
		}
	}
	return rank(hits, k), nil
}

func (q *Qdrant) query(ctx context.Context, query []float32, limit int) ([]Hit, error) {
	n := uint64(limit)
	exact := true
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
		Params:         &qdrant.SearchParams{Exact: &exact},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Position: int(r.GetId().GetNum()),
			Distance: r.GetScore() * r.GetScore(),
			Entry:    entryFromPayload(r.GetPayload()),
		})
	}
	return hits, nil
}

// tiedAtCutoff reports whether a page of at most limit hits may have left
// out points at the k-th distance: the page is full and its farthest hit
// is as near as the k-th.
func tiedAtCutoff(hits []Hit, k, limit int) bool {
	if len(hits) < limit || len(hits) <= k {
		return false
	}
	sorted := rank(slices.Clone(hits), len(hits))
	return sorted[len(sorted)-1].Distance == sorted[k-1].Distance
}

// Clear drops and recreates the collection.
func (q *Qdrant) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.resetCollection(ctx); err != nil {
		return err
	}
	q.next = 0
	return nil
}

// Drop deletes the collection. The index must not be used afterwards.
func (q *Qdrant) Drop(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("qdrant: failed to drop collection %q: %w", q.collection, err)
	}
	q.next = 0
	return nil
}

func entryFromPayload(p map[string]*qdrant.Value) Entry {
	var e Entry
	if v, ok := p["chunk_id"]; ok {
		e.ChunkID = v.GetStringValue()
	}
	if v, ok := p["filename"]; ok {
		e.Filename = v.GetStringValue()
	}
	if v, ok := p["chunk_index"]; ok {
		e.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := p["text"]; ok {
		e.Text = v.GetStringValue()
	}
	return e
}
