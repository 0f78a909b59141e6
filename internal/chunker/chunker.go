// Package chunker splits extracted document text into overlapping
// fixed-size windows, the unit of embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned when the window parameters cannot make
// progress through the text.
var ErrInvalidWindow = errors.New("chunker: chunk size must be greater than overlap and overlap must be non-negative")

// Chunk splits text into windows of size code points where each window
// shares overlap code points with its predecessor. Window i starts at
// i*(size-overlap); the last window may be shorter. Empty text yields an
// empty (nil) slice.
func Chunk(text string, size, overlap int) ([]string, error) {
	if overlap < 0 || size <= overlap {
		return nil, fmt.Errorf("%w (size=%d overlap=%d)", ErrInvalidWindow, size, overlap)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap
	chunks := make([]string, 0, Count(len(runes), size, overlap))
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Count returns the number of windows Chunk produces for a text of n code
// points: ceil((n-overlap)/(size-overlap)), and at least one for n > 0.
func Count(n, size, overlap int) int {
	if n <= 0 || size <= overlap || overlap < 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n - overlap + step - 1) / step
}
