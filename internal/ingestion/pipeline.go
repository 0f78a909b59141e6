// Package ingestion turns one uploaded file into an insert batch: it saves
// the bytes under the scope's upload directory, extracts text with the
// loader, splits it into overlapping windows, and embeds every window.
// Inserting the batch is left to the caller, which owns the index lock.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/54b3r/docchat-go/internal/chunker"
	"github.com/54b3r/docchat-go/internal/loader"
	"github.com/54b3r/docchat-go/internal/rag"
	"github.com/54b3r/docchat-go/internal/summary"
	"github.com/54b3r/docchat-go/internal/vectorindex"
)

// Defaults applied by NewPipeline to zero-valued Config fields.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// NoOverlap requests windows that share no characters. A zero ChunkOverlap
// means "use the default" instead.
const NoOverlap = -1

// ErrInvalidFilename is returned by Save for names that are empty or do not
// name a file.
var ErrInvalidFilename = errors.New("ingestion: invalid filename")

// File is one uploaded document.
type File struct {
	// Name is the client-supplied filename. Only its base name is used.
	Name string

	// Data is the raw file content.
	Data []byte
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the window length in characters. Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive windows.
	// Zero selects DefaultChunkOverlap, or a tenth of ChunkSize when the
	// default would not fit. NoOverlap selects zero.
	ChunkOverlap int

	// SummarySentences is the length of the first-chunk summary reported
	// for each file. Zero disables summaries.
	SummarySentences int
}

// Batch is one file's chunks and vectors, aligned by position.
type Batch struct {
	Filename string
	Vectors  [][]float32
	Entries  []vectorindex.Entry
	Summary  string
}

// Pipeline orchestrates the save → load → chunk → embed flow for one file.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	resolved := *cfg
	if resolved.ChunkSize <= 0 {
		resolved.ChunkSize = DefaultChunkSize
	}
	switch {
	case resolved.ChunkOverlap == NoOverlap:
		resolved.ChunkOverlap = 0
	case resolved.ChunkOverlap == 0:
		resolved.ChunkOverlap = DefaultChunkOverlap
		if resolved.ChunkOverlap >= resolved.ChunkSize {
			resolved.ChunkOverlap = resolved.ChunkSize / 10
		}
	case resolved.ChunkOverlap < 0 || resolved.ChunkOverlap >= resolved.ChunkSize:
		return nil, fmt.Errorf("ingestion: %w (size=%d overlap=%d)",
			chunker.ErrInvalidWindow, resolved.ChunkSize, resolved.ChunkOverlap)
	}
	if resolved.SummarySentences < 0 {
		resolved.SummarySentences = 0
	}
	return &Pipeline{embedder: embedder, cfg: &resolved}, nil
}

// ChunkSize returns the resolved window length.
func (p *Pipeline) ChunkSize() int { return p.cfg.ChunkSize }

// ChunkOverlap returns the resolved window overlap.
func (p *Pipeline) ChunkOverlap() int { return p.cfg.ChunkOverlap }

// Save writes f under dir, creating dir if needed, and returns the path.
func (p *Pipeline) Save(dir string, f File) (string, error) {
	name := filepath.Base(filepath.Clean("/" + f.Name))
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, f.Name)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("ingestion: create upload dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Data, 0o600); err != nil {
		return "", fmt.Errorf("ingestion: save %s: %w", name, err)
	}
	return path, nil
}

// Discard removes a file written by Save whose ingestion failed. A file
// that is already gone is not an error.
func (p *Pipeline) Discard(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ingestion: discard %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Prepare extracts, chunks, and embeds the file at path. Loader errors are
// returned unwrapped so callers can match *loader.UnsupportedFormatError and
// *loader.ExtractionError; embedding failures are *embedder.EmbeddingError.
// Whitespace-only windows are skipped but keep their ordinal.
func (p *Pipeline) Prepare(ctx context.Context, path, filename string) (*Batch, error) {
	text, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}

	windows, err := chunker.Chunk(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("ingestion: chunk %s: %w", filename, err)
	}

	b := &Batch{Filename: filename}
	texts := make([]string, 0, len(windows))
	for i, w := range windows {
		if strings.TrimSpace(w) == "" {
			continue
		}
		texts = append(texts, w)
		b.Entries = append(b.Entries, vectorindex.Entry{
			ChunkID:    uuid.NewString(),
			Filename:   filename,
			ChunkIndex: i,
			Text:       w,
		})
	}
	if len(texts) == 0 {
		return b, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion: %s: %w", filename, err)
	}
	b.Vectors, err = p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	if p.cfg.SummarySentences > 0 {
		b.Summary = summary.Summarize(texts[0], p.cfg.SummarySentences)
	}
	return b, nil
}
