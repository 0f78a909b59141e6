package summary

import (
	"strings"
	"testing"
)

func TestSummarize_ShortTextReturnedWhole(t *testing.T) {
	t.Parallel()
	got := Summarize("  The sky is blue. Grass is green.  ", 2)
	if got != "The sky is blue. Grass is green." {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestSummarize_NoPunctuation(t *testing.T) {
	t.Parallel()
	if got := Summarize("  just some words  ", 3); got != "just some words" {
		t.Errorf("Summarize() = %q", got)
	}
	if got := Summarize("", 3); got != "" {
		t.Errorf("Summarize(\"\") = %q, want empty", got)
	}
}

func TestSummarize_PicksFrequentTopicInOrder(t *testing.T) {
	t.Parallel()
	text := "Vector search finds nearby vectors. " +
		"Lunch was pleasant. " +
		"Exact vector search compares every vector. " +
		"It rained."
	got := Summarize(text, 2)
	want := "Vector search finds nearby vectors. Exact vector search compares every vector."
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
}

func TestSummarize_DefaultLength(t *testing.T) {
	t.Parallel()
	text := "One fish. Two fish. Red fish. Blue fish."
	got := Summarize(text, 0)
	if n := strings.Count(got, "."); n != DefaultSentences {
		t.Errorf("Summarize(n=0) returned %d sentences, want %d: %q", n, DefaultSentences, got)
	}
}
