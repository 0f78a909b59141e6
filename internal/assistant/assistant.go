// Package assistant is the retrieval orchestrator. It owns the registry of
// chat scopes and runs the two flows over them: upload (save, load, chunk,
// embed, insert) and query (embed, search, assemble context, generate,
// format). Scopes are isolated from each other; within a scope uploads are
// serialized, queries run concurrently, and clear is a barrier against both.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/54b3r/docchat-go/internal/budget"
	"github.com/54b3r/docchat-go/internal/format"
	"github.com/54b3r/docchat-go/internal/ingestion"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/rag"
	"github.com/54b3r/docchat-go/internal/store"
)

// FallbackAnswer replaces a blank generation.
const FallbackAnswer = "I'm sorry, I didn't understand that. Could you please ask again?"

// Config holds the dependencies and tuning of an Assistant.
type Config struct {
	// Embedder embeds both chunks and queries. Required.
	Embedder rag.Embedder

	// Generator produces answers. Required.
	Generator rag.Generator

	// NewIndex builds each scope's index. Defaults to FlatIndexes.
	NewIndex IndexFactory

	// Transcript records each completed query. Optional.
	Transcript store.Transcript

	// UploadDir is the root under which each scope's uploads are written.
	// Defaults to {os.TempDir()}/docchat-uploads.
	UploadDir string

	// ChunkSize and ChunkOverlap set the chunking window. Zero values take
	// the ingestion defaults; ingestion.NoOverlap disables overlap.
	ChunkSize    int
	ChunkOverlap int

	// TopK is the number of chunks retrieved per query. Defaults to rag.DefaultTopK.
	TopK int

	// SummarySentences sizes the per-file upload summary. Zero disables it.
	SummarySentences int

	// MaxContextTokens is the prompt size above which a warning is logged.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int

	// Formatter renders answers to HTML. Defaults to format.Default().
	Formatter format.Pipeline
}

// Assistant coordinates ingestion and retrieval across scopes.
type Assistant struct {
	scopes     *Registry
	pipeline   *ingestion.Pipeline
	retriever  *rag.Retriever
	generator  rag.Generator
	transcript store.Transcript
	formatter  format.Pipeline
	uploadDir  string
	maxContext int
}

// New validates cfg and constructs an Assistant.
func New(cfg Config) (*Assistant, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("assistant: embedder must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("assistant: generator must not be nil")
	}
	pipeline, err := ingestion.NewPipeline(cfg.Embedder, &ingestion.Config{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		SummarySentences: cfg.SummarySentences,
	})
	if err != nil {
		return nil, err
	}
	retriever, err := rag.NewRetriever(cfg.Embedder, cfg.TopK)
	if err != nil {
		return nil, err
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "docchat-uploads")
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	if cfg.Formatter == nil {
		cfg.Formatter = format.Default()
	}
	return &Assistant{
		scopes:     NewRegistry(cfg.NewIndex, cfg.Embedder.Dimensions()),
		pipeline:   pipeline,
		retriever:  retriever,
		generator:  cfg.Generator,
		transcript: cfg.Transcript,
		formatter:  cfg.Formatter,
		uploadDir:  cfg.UploadDir,
		maxContext: cfg.MaxContextTokens,
	}, nil
}

// Create registers a scope and returns its snapshot. An empty id gets a
// random UUID; an existing id is returned unchanged.
func (a *Assistant) Create(ctx context.Context, id string) (*Snapshot, error) {
	s, err := a.scopes.Create(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("scope created", slog.String("scope", s.id))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

// Snapshot reports the state, documents, and chunk count of a scope.
func (a *Assistant) Snapshot(scopeID string) (*Snapshot, error) {
	s, err := a.scopes.Get(scopeID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deleted {
		return nil, &ScopeNotFoundError{ScopeID: scopeID}
	}
	return s.snapshot(), nil
}

// ScopeIDs lists the registered scopes.
func (a *Assistant) ScopeIDs() []string { return a.scopes.IDs() }

// FileOutcome is the result of ingesting one file.
type FileOutcome struct {
	Filename string
	Chunks   int
	Summary  string
	Err      error
}

// UploadResult tallies a multi-file upload.
type UploadResult struct {
	Succeeded int
	Files     []FileOutcome
}

// Failures returns the outcomes that carry an error.
func (r *UploadResult) Failures() []FileOutcome {
	var out []FileOutcome
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Upload ingests files into the scope in order. A failing file is recorded
// in the result and does not stop its siblings; only an unknown scope fails
// the call.
func (a *Assistant) Upload(ctx context.Context, scopeID string, files []ingestion.File) (*UploadResult, error) {
	s, err := a.scopes.Get(scopeID)
	if err != nil {
		return nil, err
	}
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	if s.isDeleted() {
		return nil, &ScopeNotFoundError{ScopeID: scopeID}
	}

	ctx, log := logging.With(ctx, slog.String("scope", scopeID))
	dir := a.scopeDir(scopeID)
	res := &UploadResult{Files: make([]FileOutcome, 0, len(files))}
	for _, f := range files {
		out := a.ingestFile(ctx, s, dir, f)
		if out.Err != nil {
			log.Warn("file ingestion failed", slog.String("file", out.Filename), slog.Any("error", out.Err))
		} else {
			res.Succeeded++
			log.Info("file ingested", slog.String("file", out.Filename), slog.Int("chunks", out.Chunks))
		}
		res.Files = append(res.Files, out)
	}
	return res, nil
}

// ingestFile must be called with s.ingestMu held.
func (a *Assistant) ingestFile(ctx context.Context, s *Scope, dir string, f ingestion.File) FileOutcome {
	out := FileOutcome{Filename: f.Name}
	path, err := a.pipeline.Save(dir, f)
	if err != nil {
		out.Err = err
		return out
	}
	out.Filename = filepath.Base(path)

	batch, err := a.pipeline.Prepare(ctx, path, out.Filename)
	if err != nil {
		out.Err = err
		a.discard(ctx, path)
		return out
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(batch.Entries) > 0 {
		if err := s.index.InsertBatch(ctx, batch.Vectors, batch.Entries); err != nil {
			out.Err = fmt.Errorf("assistant: insert %s: %w", out.Filename, err)
			a.discard(ctx, path)
			return out
		}
	}
	s.docs = append(s.docs, Document{
		Filename:   out.Filename,
		Chunks:     len(batch.Entries),
		Summary:    batch.Summary,
		UploadedAt: time.Now().UTC(),
	})
	out.Chunks = len(batch.Entries)
	out.Summary = batch.Summary
	return out
}

// discard removes the saved copy of a file that was not ingested.
func (a *Assistant) discard(ctx context.Context, path string) {
	if err := a.pipeline.Discard(path); err != nil {
		logging.FromContext(ctx).Warn("upload cleanup failed", slog.Any("error", err))
	}
}

// Answer is the response to a query.
type Answer struct {
	// Text is the raw generated answer.
	Text string
	// HTML is Text after the formatter pipeline.
	HTML string
	// Citations holds one filename per retrieved chunk, in rank order.
	Citations []string
	// Sources are the retrieved chunks, nearest first.
	Sources []rag.Result
}

// Query answers query from the scope's documents. An empty scope skips
// retrieval and answers from the query alone with no citations. Embedding
// and generation failures abort the query and leave the scope unchanged.
func (a *Assistant) Query(ctx context.Context, scopeID, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	s, err := a.scopes.Get(scopeID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deleted {
		return nil, &ScopeNotFoundError{ScopeID: scopeID}
	}

	ctx, log := logging.With(ctx, slog.String("scope", scopeID))
	results, err := a.retriever.Retrieve(ctx, s.index, query, a.retriever.TopK())
	if err != nil {
		return nil, fmt.Errorf("assistant: retrieve: %w", err)
	}
	if results == nil {
		results = []rag.Result{}
	}

	prompt := rag.BuildPrompt(query, rag.BuildContext(results))
	if budget.Exceeds(prompt, a.maxContext) {
		log.Warn("prompt exceeds context budget",
			slog.Int("estimated_tokens", budget.Estimate(prompt)),
			slog.Int("budget", a.maxContext),
		)
	}

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		text = FallbackAnswer
	}

	citations := rag.Citations(results)
	a.record(ctx, scopeID, store.Exchange{Query: query, Answer: text, Citations: citations})
	log.Debug("query answered", slog.Int("chunks", len(results)))
	return &Answer{
		Text:      text,
		HTML:      a.formatter.Run(text),
		Citations: citations,
		Sources:   results,
	}, nil
}

// record stores the answered query in the transcript. Failures are logged
// only. ctx is expected to carry the scope logger.
func (a *Assistant) record(ctx context.Context, scopeID string, ex store.Exchange) {
	if a.transcript == nil {
		return
	}
	if err := a.transcript.Record(ctx, scopeID, ex); err != nil {
		logging.FromContext(ctx).Warn("transcript record failed", slog.Any("error", err))
	}
}

// History returns the scope's last n transcript turns, oldest first. n <= 0
// returns all of them.
func (a *Assistant) History(ctx context.Context, scopeID string, n int) ([]store.Message, error) {
	if _, err := a.scopes.Get(scopeID); err != nil {
		return nil, err
	}
	if a.transcript == nil {
		return []store.Message{}, nil
	}
	return a.transcript.Recent(ctx, scopeID, n)
}

// Clear discards every document, chunk, and vector of the scope and removes
// its uploads. It waits for in-flight uploads and queries on the scope. If
// the index cannot be cleared the scope is left as it was.
func (a *Assistant) Clear(ctx context.Context, scopeID string) error {
	s, err := a.scopes.Get(scopeID)
	if err != nil {
		return err
	}
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return &ScopeNotFoundError{ScopeID: scopeID}
	}

	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("assistant: clear scope %q: %w", scopeID, err)
	}
	s.docs = nil
	ctx, log := logging.With(ctx, slog.String("scope", scopeID))
	a.removeUploads(ctx, scopeID)
	log.Info("scope cleared")
	return nil
}

// Delete clears the scope, releases its index and transcript, and
// unregisters it. Later calls with the same id fail with ScopeNotFoundError.
func (a *Assistant) Delete(ctx context.Context, scopeID string) error {
	s, done, err := a.scopes.Remove(scopeID)
	if err != nil {
		return err
	}
	defer done()
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
	s.docs = nil

	ctx, log := logging.With(ctx, slog.String("scope", scopeID))
	if d, ok := s.index.(dropper); ok {
		if err := d.Drop(ctx); err != nil {
			log.Warn("index drop failed", slog.Any("error", err))
		}
	} else if err := s.index.Clear(ctx); err != nil {
		log.Warn("index clear failed", slog.Any("error", err))
	}
	a.removeUploads(ctx, scopeID)
	if a.transcript != nil {
		if err := a.transcript.DeleteScope(ctx, scopeID); err != nil {
			log.Warn("transcript delete failed", slog.Any("error", err))
		}
	}
	log.Info("scope deleted")
	return nil
}

func (a *Assistant) scopeDir(scopeID string) string {
	return filepath.Join(a.uploadDir, scopeID)
}

func (a *Assistant) removeUploads(ctx context.Context, scopeID string) {
	if err := os.RemoveAll(a.scopeDir(scopeID)); err != nil {
		logging.FromContext(ctx).Warn("upload cleanup failed", slog.Any("error", err))
	}
}
