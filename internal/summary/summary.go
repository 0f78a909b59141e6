// Package summary produces short extractive summaries of uploaded text by
// ranking sentences on normalised word frequency. It is used to describe an
// upload back to the user; retrieval never depends on it.
package summary

import (
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// DefaultSentences is the summary length used when none is configured.
const DefaultSentences = 2

var (
	sentenceRe = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|$)`)
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the and or but if then else for to of in on at by with as is are
		was were be been being it this that these those from up down over under again further than so such
		into about between through during before after above below out off own same too very can will just
		should now`) {
		stopwords[w] = struct{}{}
	}
}

// Summarize returns up to n of text's highest-scoring sentences in their
// original order, joined by spaces. Text without sentence punctuation is
// returned trimmed. n <= 0 selects DefaultSentences.
func Summarize(text string, n int) string {
	if n <= 0 {
		n = DefaultSentences
	}

	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= n {
		return strings.Join(sentences, " ")
	}

	freq := map[string]float64{}
	var top float64
	for _, s := range sentences {
		for _, w := range words(s) {
			if _, stop := stopwords[w]; stop {
				continue
			}
			freq[w]++
			top = max(top, freq[w])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, s := range sentences {
		ws := words(s)
		var total float64
		for _, w := range ws {
			total += freq[w] / top
		}
		if len(ws) > 0 {
			total /= math.Sqrt(float64(len(ws)))
		}
		scores[i] = scored{idx: i, score: total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	picked := make([]int, n)
	for i := range picked {
		picked[i] = scores[i].idx
	}
	slices.Sort(picked)

	out := make([]string, n)
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

func words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}
