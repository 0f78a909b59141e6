package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/embedder"
	"github.com/54b3r/docchat-go/internal/ingestion"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/provider"
)

// uploadMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const uploadMemory = 32 << 20

// errBadRequest marks client errors raised by the handlers themselves.
var errBadRequest = errors.New("bad request")

// handleCreateScope handles POST /api/scopes. The body is optional.
func (s *Server) handleCreateScope(w http.ResponseWriter, r *http.Request) {
	var req createScopeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, r, fmt.Errorf("%w: invalid request body", errBadRequest))
			return
		}
	}
	snap, err := s.scopes.Create(r.Context(), req.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, snap)
}

// handleGetScope handles GET /api/scopes/{id}.
func (s *Server) handleGetScope(w http.ResponseWriter, r *http.Request) {
	snap, err := s.scopes.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// handleDeleteScope handles DELETE /api/scopes/{id}.
func (s *Server) handleDeleteScope(w http.ResponseWriter, r *http.Request) {
	if err := s.scopes.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload handles POST /api/scopes/{id}/documents. Every multipart part
// named "file" is ingested; per-file failures are reported in the body and
// do not change the status code.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, r, http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"})
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: expected multipart/form-data", errBadRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no file parts", errBadRequest))
		return
	}
	files := make([]ingestion.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("server: read %s: %w", fh.Filename, err))
			return
		}
		files = append(files, ingestion.File{Name: fh.Filename, Data: data})
	}

	res, err := s.scopes.Upload(r.Context(), r.PathValue("id"), files)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := uploadResponse{Succeeded: res.Succeeded, Files: make([]fileOutcome, len(res.Files))}
	for i, f := range res.Files {
		out := fileOutcome{Filename: f.Filename, Chunks: f.Chunks, Summary: f.Summary}
		if f.Err != nil {
			out.Error = f.Err.Error()
			resp.Failed++
			s.metrics.uploadFilesTotal.WithLabelValues("error").Inc()
		} else {
			s.metrics.uploadFilesTotal.WithLabelValues("ok").Inc()
			s.metrics.uploadChunksTotal.Add(float64(f.Chunks))
		}
		resp.Files[i] = out
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleClear handles DELETE /api/scopes/{id}/documents.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.scopes.Clear(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleQuery handles POST /api/scopes/{id}/query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}

	s.metrics.queriesInFlight.Inc()
	defer s.metrics.queriesInFlight.Dec()
	start := time.Now()

	ans, err := s.scopes.Query(r.Context(), r.PathValue("id"), req.Query)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, queryResponse{HTML: ans.HTML, Text: ans.Text, Citations: ans.Citations})
}

// handleHistory handles GET /api/scopes/{id}/history?limit=n.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		limit = n
	}
	msgs, err := s.scopes.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, historyResponse{Messages: msgs})
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		notFound *assistant.ScopeNotFoundError
		genErr   *provider.GenerationError
		embedErr *embedder.EmbeddingError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, assistant.ErrEmptyQuery),
		errors.Is(err, assistant.ErrInvalidScopeID):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &genErr), errors.As(err, &embedErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as a JSON error body. Internal errors
// are reported to the client without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logging.FromContext(r.Context())
	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		log.Error("request failed", slog.Any("error", err))
		msg = http.StatusText(status)
	case status == http.StatusBadGateway:
		log.Error("upstream failure", slog.Any("error", err))
	default:
		log.Debug("request rejected", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSON(w, r, status, errorResponse{Error: msg})
}
