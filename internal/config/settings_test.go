package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/docchat-go/internal/chunker"
)

var settingsKeys = []string{
	"DOCCHAT_HOST", "DOCCHAT_PORT", "DOCCHAT_API_KEY", "DOCCHAT_RATE_LIMIT",
	"DOCCHAT_RATE_BURST", "DOCCHAT_MAX_UPLOAD_BYTES", "INDEX_BACKEND",
	"QDRANT_HOST", "QDRANT_PORT", "QDRANT_API_KEY", "QDRANT_TLS",
	"QDRANT_COLLECTION_PREFIX", "CHUNK_SIZE", "CHUNK_OVERLAP", "SUMMARY_SENTENCES",
	"DOCCHAT_UPLOAD_DIR", "RAG_TOP_K", "MAX_CONTEXT_TOKENS", "GENERATION_TIMEOUT",
	"DOCCHAT_HISTORY_DB",
}

func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, k := range settingsKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearSettingsEnv(t)

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.Host != "127.0.0.1" || s.Port != 8080 {
		t.Errorf("listen = %s:%d, want 127.0.0.1:8080", s.Host, s.Port)
	}
	if s.IndexBackend != IndexMemory {
		t.Errorf("IndexBackend = %q, want %q", s.IndexBackend, IndexMemory)
	}
	if s.ChunkSize != 0 || s.ChunkOverlap != -1 || s.TopK != 0 {
		t.Errorf("chunking/retrieval = (%d, %d, %d), want (0, -1, 0)", s.ChunkSize, s.ChunkOverlap, s.TopK)
	}
	if s.QdrantPort != 6334 || s.CollectionPrefix != "docchat-" {
		t.Errorf("qdrant = (%d, %q), want (6334, %q)", s.QdrantPort, s.CollectionPrefix, "docchat-")
	}
	if s.SummarySentences != 2 {
		t.Errorf("SummarySentences = %d, want 2", s.SummarySentences)
	}
	if s.UploadDir == "" {
		t.Error("UploadDir should default to a temp directory")
	}
	if s.HistoryDisabled() {
		t.Error("history should be enabled by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("DOCCHAT_PORT", "9090")
	t.Setenv("INDEX_BACKEND", "Qdrant")
	t.Setenv("QDRANT_TLS", "true")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "0")
	t.Setenv("RAG_TOP_K", "3")
	t.Setenv("SUMMARY_SENTENCES", "0")
	t.Setenv("DOCCHAT_RATE_LIMIT", "0.5")
	t.Setenv("GENERATION_TIMEOUT", "45s")
	t.Setenv("DOCCHAT_HISTORY_DB", "disabled")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.Port != 9090 {
		t.Errorf("Port = %d, want 9090", s.Port)
	}
	if s.IndexBackend != IndexQdrant || !s.QdrantTLS {
		t.Errorf("index = (%q, tls=%v), want (qdrant, tls=true)", s.IndexBackend, s.QdrantTLS)
	}
	if s.ChunkSize != 500 || s.ChunkOverlap != 0 || s.TopK != 3 {
		t.Errorf("chunking/retrieval = (%d, %d, %d), want (500, 0, 3)", s.ChunkSize, s.ChunkOverlap, s.TopK)
	}
	if s.SummarySentences != 0 {
		t.Errorf("SummarySentences = %d, want 0 (disabled)", s.SummarySentences)
	}
	if s.RateLimit != 0.5 {
		t.Errorf("RateLimit = %v, want 0.5", s.RateLimit)
	}
	if s.GenerationTimeout != 45*time.Second {
		t.Errorf("GenerationTimeout = %v, want 45s", s.GenerationTimeout)
	}
	if !s.HistoryDisabled() {
		t.Error("HistoryDisabled() = false, want true")
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"DOCCHAT_PORT", "http", "DOCCHAT_PORT"},
		{"CHUNK_SIZE", "big", "CHUNK_SIZE"},
		{"DOCCHAT_RATE_LIMIT", "fast", "DOCCHAT_RATE_LIMIT"},
		{"QDRANT_TLS", "maybe", "QDRANT_TLS"},
		{"GENERATION_TIMEOUT", "90", "GENERATION_TIMEOUT"},
		{"INDEX_BACKEND", "faiss", "INDEX_BACKEND"},
		{"CHUNK_OVERLAP", "1000", "CHUNK_OVERLAP"},
		{"CHUNK_OVERLAP", "-3", "CHUNK_OVERLAP"},
		{"CHUNK_SIZE", "-1", "CHUNK_SIZE"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			clearSettingsEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := FromEnv()
			if err == nil {
				t.Fatalf("FromEnv with %s=%q: expected error", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestFromEnv_ChunkWindow(t *testing.T) {
	tests := []struct {
		name        string
		size        string
		overlap     string
		wantErr     bool
		wantOverlap int
		wantSet     bool
	}{
		{"overlap unset", "200", "", false, -1, false},
		{"explicit zero", "200", "0", false, 0, true},
		{"fits custom size", "200", "150", false, 150, true},
		{"equal to size", "200", "200", true, 0, false},
		{"larger than default size", "", "1500", true, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearSettingsEnv(t)
			t.Setenv("CHUNK_SIZE", tc.size)
			t.Setenv("CHUNK_OVERLAP", tc.overlap)

			s, err := FromEnv()
			if tc.wantErr {
				if !errors.Is(err, chunker.ErrInvalidWindow) {
					t.Fatalf("FromEnv error = %v, want ErrInvalidWindow", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromEnv: %v", err)
			}
			if s.ChunkOverlap != tc.wantOverlap || s.OverlapSet() != tc.wantSet {
				t.Errorf("overlap = (%d, set=%v), want (%d, set=%v)", s.ChunkOverlap, s.OverlapSet(), tc.wantOverlap, tc.wantSet)
			}
		})
	}
}
