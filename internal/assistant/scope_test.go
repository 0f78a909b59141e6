package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/54b3r/docchat-go/internal/vectorindex"
)

func TestState_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	for _, want := range []State{StateEmpty, StatePopulated} {
		b, err := json.Marshal(Snapshot{ID: "s", State: want})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got Snapshot
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if got.State != want {
			t.Errorf("State = %s, want %s", got.State, want)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("archived")); err == nil {
		t.Error("UnmarshalText(archived): expected error")
	}
}

// gatedFactory builds flat indexes, blocking each call until gate is closed.
type gatedFactory struct {
	gate    chan struct{}
	entered chan string
	calls   atomic.Int32
}

func newGatedFactory() *gatedFactory {
	return &gatedFactory{gate: make(chan struct{}), entered: make(chan string, 8)}
}

func (g *gatedFactory) build(_ context.Context, id string, dim int) (vectorindex.Index, error) {
	g.calls.Add(1)
	g.entered <- id
	<-g.gate
	return vectorindex.NewFlat(dim)
}

func TestRegistry_CreateDoesNotBlockOtherScopes(t *testing.T) {
	t.Parallel()
	g := newGatedFactory()
	r := NewRegistry(g.build, 4)
	ctx := context.Background()

	created := make(chan error, 1)
	go func() {
		_, err := r.Create(ctx, "slow")
		created <- err
	}()
	<-g.entered

	done := make(chan error, 1)
	go func() {
		_, err := r.Get("other")
		done <- err
	}()
	select {
	case err := <-done:
		var nf *ScopeNotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("Get(other) = %v, want ScopeNotFoundError", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Get blocked behind an index build")
	}

	close(g.gate)
	if err := <-created; err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestRegistry_ConcurrentCreateBuildsOnce(t *testing.T) {
	t.Parallel()
	g := newGatedFactory()
	close(g.gate)
	r := NewRegistry(g.build, 4)

	var wg sync.WaitGroup
	scopes := make([]*Scope, 8)
	for i := range scopes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Create(context.Background(), "shared")
			if err != nil {
				t.Errorf("Create: %v", err)
			}
			scopes[i] = s
		}()
	}
	wg.Wait()
	if g.calls.Load() != 1 {
		t.Errorf("factory called %d times, want 1", g.calls.Load())
	}
	for _, s := range scopes {
		if s != scopes[0] {
			t.Fatal("concurrent creates returned different scopes")
		}
	}
}

func TestRegistry_CreateWaitsForRemoval(t *testing.T) {
	t.Parallel()
	g := newGatedFactory()
	close(g.gate)
	r := NewRegistry(g.build, 4)
	ctx := context.Background()

	old, err := r.Create(ctx, "reused")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	<-g.entered
	_, release, err := r.Remove("reused")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	created := make(chan *Scope, 1)
	go func() {
		s, err := r.Create(ctx, "reused")
		if err != nil {
			t.Errorf("Create after remove: %v", err)
		}
		created <- s
	}()
	select {
	case <-created:
		t.Fatal("Create finished while the old scope was still being released")
	case <-time.After(50 * time.Millisecond):
	}
	if g.calls.Load() != 1 {
		t.Errorf("index rebuilt before release: %d factory calls", g.calls.Load())
	}

	release()
	s := <-created
	if s == nil || s == old {
		t.Errorf("Create after release returned %p, old scope %p", s, old)
	}
}

func TestRegistry_CreateWaitHonoursContext(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil, 4)
	if _, err := r.Create(context.Background(), "held"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, release, err := r.Remove("held")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Create(ctx, "held"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Create while busy = %v, want DeadlineExceeded", err)
	}
}
