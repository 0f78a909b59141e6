package embedder

import (
	"os"
	"strings"
)

// chatFamilies are model-name prefixes of chat and completion models. They
// produce vectors, but poor ones.
var chatFamilies = []string{
	"gpt-", "o1", "o3", "o4", "llama", "mistral", "mixtral", "gemma", "phi",
	"claude", "command-r", "deepseek", "qwen", "solar", "vicuna", "falcon", "yi-",
}

// embeddingMarkers identify dedicated embedding models regardless of family,
// e.g. "gemma-embedding" or "qwen3-embedding".
var embeddingMarkers = []string{"embed", "minilm", "bge-", "e5-", "gte-"}

// Warning is an advisory finding about the embedding configuration.
type Warning struct {
	Msg  string
	Hint string
}

// Lint inspects the embedding environment for settings that construct fine
// but embed badly. Hard errors such as missing credentials are left to
// NewFromEnv.
func Lint() []Warning {
	var out []Warning
	backend := ResolveBackend()

	if os.Getenv("EMBEDDING_PROVIDER") == "" && os.Getenv("MODEL_PROVIDER") != "" {
		out = append(out, Warning{
			Msg:  "EMBEDDING_PROVIDER unset, embedding with MODEL_PROVIDER=" + backend,
			Hint: "set EMBEDDING_PROVIDER=local, ollama, openai or azure",
		})
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		return out
	}
	if backend == BackendLocal {
		out = append(out, Warning{
			Msg:  "EMBEDDING_MODEL " + model + " is ignored by the local embedder",
			Hint: "unset EMBEDDING_MODEL or pick another EMBEDDING_PROVIDER",
		})
		return out
	}
	if looksLikeChatModel(model) {
		out = append(out, Warning{
			Msg:  "EMBEDDING_MODEL " + model + " looks like a chat model",
			Hint: "use an embedding model such as all-minilm, nomic-embed-text or text-embedding-3-small",
		})
	}
	if os.Getenv("EMBEDDING_DIMENSIONS") == "" && !isDefaultModel(backend, model) {
		out = append(out, Warning{
			Msg:  "EMBEDDING_MODEL " + model + " set without EMBEDDING_DIMENSIONS",
			Hint: "the first embedding will fail if the model's width differs from the backend default",
		})
	}
	return out
}

// looksLikeChatModel reports whether model is named like a chat model. The
// registry namespace and tag are ignored, so "library/llama3.1:8b" is
// "llama3.1".
func looksLikeChatModel(model string) bool {
	name := strings.ToLower(model)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name, _, _ = strings.Cut(name, ":")

	for _, m := range embeddingMarkers {
		if strings.Contains(name, m) {
			return false
		}
	}
	for _, f := range chatFamilies {
		if strings.HasPrefix(name, f) {
			return true
		}
	}
	return false
}

func isDefaultModel(backend, model string) bool {
	switch backend {
	case BackendOllama:
		return model == defaultOllamaModel
	case BackendOpenAI, BackendAzure:
		return model == defaultOpenAIModel
	}
	return false
}
