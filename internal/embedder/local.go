package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultLocalDimensions matches the output size of all-MiniLM-L6-v2 so a
// local index can be swapped for a sentence-transformer one without resizing.
const DefaultLocalDimensions = 384

var tokenRe = regexp.MustCompile(`\p{L}+|\p{N}+`)

// stopwords are dropped before hashing; they carry no topical signal.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by for from has have he her his i if in into
		is it its of on or our she so than that the their them then there these they this to was we were
		what when where which who why will with you your`) {
		stopwords[w] = struct{}{}
	}
}

// HashEmbedder is a deterministic bag-of-words embedder that needs no model
// or network. Each non-stopword token is hashed (FNV-1a) into one of
// Dimensions buckets with a hash-derived sign; the vector is L2-normalised.
// Texts sharing vocabulary are therefore close in Euclidean distance.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a HashEmbedder. dim <= 0 selects DefaultLocalDimensions.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultLocalDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Dimensions returns the vector length.
func (h *HashEmbedder) Dimensions() int { return h.dim }

// Embed hashes each text into a vector. It never fails.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	acc := make([]float64, h.dim)
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum32()
		sign := 1.0
		if sum>>31 == 1 {
			sign = -1.0
		}
		acc[sum%uint32(h.dim)] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, h.dim)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}
