package vectorindex

import "testing"

func TestTiedAtCutoff(t *testing.T) {
	t.Parallel()
	hits := func(ds ...float32) []Hit {
		out := make([]Hit, len(ds))
		for i, d := range ds {
			out[i] = Hit{Position: i, Distance: d}
		}
		return out
	}

	tests := []struct {
		name  string
		hits  []Hit
		k     int
		limit int
		want  bool
	}{
		{"short page holds every point", hits(1, 1), 1, 3, false},
		{"distinct boundary", hits(1, 2, 3), 2, 3, false},
		{"tie spills past the page", hits(1, 2, 2), 2, 3, true},
		{"whole page tied", hits(0, 0, 0, 0), 1, 4, true},
		{"unsorted page", hits(2, 1, 2), 2, 3, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tiedAtCutoff(tc.hits, tc.k, tc.limit); got != tc.want {
				t.Errorf("tiedAtCutoff = %v, want %v", got, tc.want)
			}
		})
	}
}
