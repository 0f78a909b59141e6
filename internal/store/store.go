// Package store keeps each scope's question and answer history in SQLite so
// it survives server restarts. Retrieval never reads it. It exists for
// clients that re-render a conversation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a transcript. Citations are set on assistant
// turns only.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Citations []string  `json:"citations,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Exchange is an answered query: the question, the answer text and the
// file names the answer cited.
type Exchange struct {
	Query     string
	Answer    string
	Citations []string
}

// Transcript persists answered queries per scope. Implementations must be
// safe for concurrent use.
type Transcript interface {
	// Record stores both turns of ex, or neither.
	Record(ctx context.Context, scopeID string, ex Exchange) error
	// Recent returns the scope's last n turns, oldest first.
	Recent(ctx context.Context, scopeID string, n int) ([]Message, error)
	// DeleteScope removes every turn of the scope.
	DeleteScope(ctx context.Context, scopeID string) error
	Close() error
}

// SQLiteStore is a Transcript backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Transcript = (*SQLiteStore)(nil)

// migrations run in order. The database's user_version is the number
// already applied.
var migrations = []string{
	`CREATE TABLE transcript (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    scope       TEXT    NOT NULL,
    role        TEXT    NOT NULL CHECK(role IN ('user','assistant')),
    content     TEXT    NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX idx_transcript_scope ON transcript (scope, id);`,
	`ALTER TABLE transcript ADD COLUMN citations TEXT NOT NULL DEFAULT '[]';`,
}

// DefaultDBPath resolves to ~/.docchat/history.db, creating the directory
// if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: home directory: %w", err)
	}
	dir := filepath.Join(home, ".docchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens or creates the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection serialises writers and keeps ":memory:" one database.
	db.SetMaxOpenConns(1)

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// SchemaVersion reports how many migrations the database has applied.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return userVersion(ctx, s.db)
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return v, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	have, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	if have > len(migrations) {
		return fmt.Errorf("store: schema version %d is newer than this build (%d)", have, len(migrations))
	}
	for v := have; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: migrate %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: migrate %d: %w", v+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: migrate %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: migrate %d: %w", v+1, err)
		}
	}
	return nil
}

// Record stores the question and the answer of ex in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, scopeID string, ex Exchange) error {
	cites := ex.Citations
	if cites == nil {
		cites = []string{}
	}
	citesJSON, err := json.Marshal(cites)
	if err != nil {
		return fmt.Errorf("store: record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO transcript (scope, role, content, citations, created_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, q, scopeID, string(RoleUser), ex.Query, "[]", now); err != nil {
		return fmt.Errorf("store: record query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, scopeID, string(RoleAssistant), ex.Answer, string(citesJSON), now); err != nil {
		return fmt.Errorf("store: record answer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns the scope's last n turns, oldest first. n <= 0 returns
// the whole transcript. An unknown scope yields an empty, non-nil slice.
func (s *SQLiteStore) Recent(ctx context.Context, scopeID string, n int) ([]Message, error) {
	const q = `
SELECT role, content, citations, created_at FROM (
    SELECT id, role, content, citations, created_at
    FROM   transcript
    WHERE  scope = ?
    ORDER  BY id DESC
    LIMIT  ?
) ORDER BY id ASC`
	if n <= 0 {
		n = -1
	}

	rows, err := s.db.QueryContext(ctx, q, scopeID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var (
			m     Message
			role  string
			cites string
			ts    int64
		)
		if err := rows.Scan(&role, &m.Content, &cites, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(cites), &m.Citations); err != nil {
			return nil, fmt.Errorf("store: recent citations: %w", err)
		}
		if len(m.Citations) == 0 {
			m.Citations = nil
		}
		m.Role = Role(role)
		m.CreatedAt = time.UnixMilli(ts)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return msgs, nil
}

// DeleteScope removes every turn of the scope.
func (s *SQLiteStore) DeleteScope(ctx context.Context, scopeID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcript WHERE scope = ?`, scopeID); err != nil {
		return fmt.Errorf("store: delete scope: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
