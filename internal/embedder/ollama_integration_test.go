//go:build integration

package embedder

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/54b3r/docchat-go/internal/vectorindex"
)

// TestOllamaEmbedder_Retrieval embeds a tiny corpus with a running Ollama
// and checks that nearest-neighbour search over the vectors finds the
// passage a question is about.
//
//	ollama pull all-minilm
//	go test -tags=integration -run Retrieval ./internal/embedder/
func TestOllamaEmbedder_Retrieval(t *testing.T) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}
	emb := NewChecked(NewOllamaEmbedder(&OllamaConfig{
		Host:       host,
		Model:      model,
		Dimensions: DefaultDimensions(BackendOllama),
	}), BackendOllama, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	corpus := []vectorindex.Entry{
		{Filename: "weather.txt", Text: "On a clear day the sky looks blue because air scatters short wavelengths."},
		{Filename: "finance.txt", Text: "Quarterly revenue grew by twelve percent on strong subscription sales."},
		{Filename: "kitchen.txt", Text: "Knead the dough for ten minutes, then let it rise in a warm place."},
	}
	texts := make([]string, len(corpus))
	for i, e := range corpus {
		texts[i] = e.Text
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Skipf("ollama unavailable at %s with model %s: %v", host, model, err)
	}

	idx, err := vectorindex.NewFlat(emb.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.InsertBatch(ctx, vecs, corpus); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	questions := map[string]string{
		"Why is the sky blue?":           "weather.txt",
		"How much did sales increase?":   "finance.txt",
		"How long should I knead bread?": "kitchen.txt",
	}
	for q, want := range questions {
		qv, err := emb.Embed(ctx, []string{q})
		if err != nil {
			t.Fatalf("Embed(%q): %v", q, err)
		}
		hits, err := idx.Search(ctx, qv[0], 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(hits) != 1 || hits[0].Entry.Filename != want {
			t.Errorf("%q: top hit = %+v, want %s", q, hits, want)
		}
	}
}
