// Package budget provides token budget estimation for embedding inputs and
// generation prompts. Embedding and generation backends use different
// tokenizers, so this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose and code).
package budget

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the prompt size above which the assistant
	// warns that the generation model may truncate its input. Fits 8k-context
	// models (Llama 3 8B) with room for the output.
	DefaultMaxContextTokens = 6000

	// DefaultEmbeddingTokens is the per-input budget for embedding models.
	// Sentence-transformer class models (all-MiniLM-L6-v2, nomic-embed-text
	// in its default configuration) accept 512 tokens.
	DefaultEmbeddingTokens = 512
)

// Estimate returns a rough token count for s using the character heuristic.
// Characters are Unicode code points, not bytes.
func Estimate(s string) int {
	chars := len([]rune(s))
	n := chars / charsPerToken
	if n == 0 && chars > 0 {
		return 1
	}
	return n
}

// Truncate returns the longest prefix of s whose estimate fits in maxTokens,
// and whether anything was cut. A non-positive maxTokens disables truncation.
func Truncate(s string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return s, false
	}
	limit := maxTokens * charsPerToken
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}

// Exceeds reports whether the estimate for s is above maxTokens.
func Exceeds(s string, maxTokens int) bool {
	return maxTokens > 0 && Estimate(s) > maxTokens
}
