package assistant

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/docchat-go/internal/vectorindex"
)

// State is the lifecycle state of a scope.
type State int

const (
	// StateEmpty means no chunk has been inserted since creation or the
	// last clear. Queries skip retrieval.
	StateEmpty State = iota
	// StatePopulated means the index holds at least one chunk.
	StatePopulated
)

func (s State) String() string {
	if s == StatePopulated {
		return "populated"
	}
	return "empty"
}

// MarshalText renders the state as its name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "empty":
		*s = StateEmpty
	case "populated":
		*s = StatePopulated
	default:
		return fmt.Errorf("assistant: unknown scope state %q", b)
	}
	return nil
}

// Document describes one ingested file.
type Document struct {
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
	Summary    string    `json:"summary,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Snapshot is a point-in-time view of a scope.
type Snapshot struct {
	ID        string     `json:"id"`
	State     State      `json:"state"`
	Documents []Document `json:"documents"`
	Chunks    int        `json:"chunks"`
	CreatedAt time.Time  `json:"created_at"`
}

// IndexFactory builds the vector index backing a new scope.
type IndexFactory func(ctx context.Context, scopeID string, dim int) (vectorindex.Index, error)

// FlatIndexes is the IndexFactory for in-memory indexes.
func FlatIndexes(_ context.Context, _ string, dim int) (vectorindex.Index, error) {
	return vectorindex.NewFlat(dim)
}

// dropper is implemented by indexes that hold external resources.
type dropper interface {
	Drop(ctx context.Context) error
}

// Scope owns one chat's index and document list.
//
// ingestMu serializes uploads so chunk positions stay aligned with the
// document list. mu guards index and docs: writers hold it exclusively for
// one file's insert batch or for a clear, queries hold it shared for their
// whole duration. Lock order is ingestMu, then mu.
type Scope struct {
	id        string
	createdAt time.Time

	ingestMu sync.Mutex

	mu      sync.RWMutex
	index   vectorindex.Index
	docs    []Document
	deleted bool
}

// ID returns the scope identifier.
func (s *Scope) ID() string { return s.id }

// snapshot must be called with mu held.
func (s *Scope) snapshot() *Snapshot {
	n := s.index.Len()
	state := StateEmpty
	if n > 0 {
		state = StatePopulated
	}
	return &Snapshot{
		ID:        s.id,
		State:     state,
		Documents: slices.Clone(s.docs),
		Chunks:    n,
		CreatedAt: s.createdAt,
	}
}

// scopeIDRe bounds scope IDs to names that are safe as directory and
// collection names.
var scopeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Registry maps scope IDs to scopes. Scopes share nothing with each other.
//
// An ID whose index is being built or released is busy: Create waits for
// it, so an index is never built while the previous one under the same ID
// is still being dropped. Index construction runs without holding mu.
type Registry struct {
	mu       sync.Mutex
	scopes   map[string]*Scope
	busy     map[string]chan struct{}
	newIndex IndexFactory
	dim      int
}

// NewRegistry returns an empty registry whose scopes get indexes of
// dimension dim from newIndex. A nil newIndex selects FlatIndexes.
func NewRegistry(newIndex IndexFactory, dim int) *Registry {
	if newIndex == nil {
		newIndex = FlatIndexes
	}
	return &Registry{
		scopes:   make(map[string]*Scope),
		busy:     make(map[string]chan struct{}),
		newIndex: newIndex,
		dim:      dim,
	}
}

// Create returns the scope with the given id, creating it if needed. An
// empty id is replaced by a random UUID.
func (r *Registry) Create(ctx context.Context, id string) (*Scope, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if !scopeIDRe.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScopeID, id)
	}

	for {
		r.mu.Lock()
		if s, ok := r.scopes[id]; ok {
			r.mu.Unlock()
			return s, nil
		}
		wait, busy := r.busy[id]
		if !busy {
			r.busy[id] = make(chan struct{})
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	idx, err := r.newIndex(ctx, id, r.dim)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.release(id)
	if err != nil {
		return nil, fmt.Errorf("assistant: create index for scope %q: %w", id, err)
	}
	s := &Scope{id: id, createdAt: time.Now().UTC(), index: idx}
	r.scopes[id] = s
	return s, nil
}

// release must be called with mu held.
func (r *Registry) release(id string) {
	if ch, ok := r.busy[id]; ok {
		delete(r.busy, id)
		close(ch)
	}
}

// Get returns the scope or a *ScopeNotFoundError.
func (r *Registry) Get(id string) (*Scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[id]
	if !ok {
		return nil, &ScopeNotFoundError{ScopeID: id}
	}
	return s, nil
}

// Remove unregisters the scope and returns it with a done func. The caller
// releases the scope's resources and then calls done; until then the ID
// stays busy and Create waits.
func (r *Registry) Remove(id string) (*Scope, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[id]
	if !ok {
		return nil, nil, &ScopeNotFoundError{ScopeID: id}
	}
	delete(r.scopes, id)
	r.busy[id] = make(chan struct{})
	return s, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.release(id)
	}, nil
}

// IDs returns the registered scope IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.scopes))
	for id := range r.scopes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Scope) isDeleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleted
}
