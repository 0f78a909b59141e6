package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// recordN stores n exchanges "q<i>"/"a<i>", starting at 1.
func recordN(t *testing.T, s *SQLiteStore, scope string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		ex := Exchange{Query: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
		if err := s.Record(context.Background(), scope, ex); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
}

func Test_Store_RecordAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ex := Exchange{Query: "What color is the sky?", Answer: "Blue.", Citations: []string{"sky.txt", "notes.md"}}
	if err := s.Record(context.Background(), "scope-a", ex); err != nil {
		t.Fatalf("record: %v", err)
	}

	msgs, err := s.Recent(context.Background(), "scope-a", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != ex.Query || msgs[0].Citations != nil {
		t.Errorf("msg[0] = %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != ex.Answer {
		t.Errorf("msg[1] = %+v", msgs[1])
	}
	if !slices.Equal(msgs[1].Citations, ex.Citations) {
		t.Errorf("citations = %v, want %v", msgs[1].Citations, ex.Citations)
	}
	if msgs[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func Test_Store_Recent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	recordN(t, s, "scope-b", 3)

	tests := []struct {
		name      string
		n         int
		wantFirst string
		wantLen   int
	}{
		{"tail", 4, "q2", 4},
		{"odd window starts on an answer", 3, "a2", 3},
		{"more than stored", 100, "q1", 6},
		{"unbounded", 0, "q1", 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msgs, err := s.Recent(context.Background(), "scope-b", tc.n)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(msgs) != tc.wantLen {
				t.Fatalf("want %d messages, got %d", tc.wantLen, len(msgs))
			}
			if msgs[0].Content != tc.wantFirst || msgs[len(msgs)-1].Content != "a3" {
				t.Errorf("window = %q..%q, want %q..a3", msgs[0].Content, msgs[len(msgs)-1].Content, tc.wantFirst)
			}
		})
	}
}

func Test_Store_ScopeIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	recordN(t, s, "x", 1)
	recordN(t, s, "y", 2)

	msgsX, err := s.Recent(ctx, "x", 10)
	if err != nil {
		t.Fatalf("recent x: %v", err)
	}
	if len(msgsX) != 2 || msgsX[0].Content != "q1" {
		t.Errorf("scope x: got %+v", msgsX)
	}
}

func Test_Store_EmptyScope(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	msgs, err := s.Recent(context.Background(), "never-used", 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", msgs)
	}
}

func Test_Store_DeleteScope(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	recordN(t, s, "gone", 2)
	recordN(t, s, "kept", 1)

	if err := s.DeleteScope(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if msgs, _ := s.Recent(ctx, "gone", 0); len(msgs) != 0 {
		t.Errorf("deleted scope still has %d messages", len(msgs))
	}
	if msgs, _ := s.Recent(ctx, "kept", 0); len(msgs) != 2 {
		t.Errorf("sibling scope lost messages: %d", len(msgs))
	}
}

func Test_Store_RecordIsAtomic(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Record(ctx, "scope", Exchange{Query: "q", Answer: "a"}); err == nil {
		t.Fatal("Record with a cancelled context: expected error")
	}
	if msgs, _ := s.Recent(context.Background(), "scope", 0); len(msgs) != 0 {
		t.Errorf("partial exchange stored: %+v", msgs)
	}
}

func Test_Store_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recordN(t, s, "scope", 1)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	msgs, err := s2.Recent(context.Background(), "scope", 0)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("after reopen: %v, %d messages", err, len(msgs))
	}
	v, err := s2.SchemaVersion(context.Background())
	if err != nil || v != len(migrations) {
		t.Errorf("SchemaVersion() = %d, %v, want %d", v, err, len(migrations))
	}
}

// Test_Store_UpgradesVersionOneDatabase opens a database that only has the
// first migration and a pre-citation row.
func Test_Store_UpgradesVersionOneDatabase(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	for _, stmt := range []string{
		migrations[0],
		`INSERT INTO transcript (scope, role, content, created_at) VALUES ('old', 'assistant', 'legacy', 0)`,
		`PRAGMA user_version = 1`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	_ = db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	msgs, err := s.Recent(context.Background(), "old", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "legacy" || msgs[0].Citations != nil {
		t.Errorf("legacy row = %+v", msgs)
	}
}

func Test_Store_RejectsNewerSchema(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations)+1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = db.Close()

	if s, err := Open(path); err == nil {
		_ = s.Close()
		t.Fatal("Open of a newer schema: expected error")
	}
}
