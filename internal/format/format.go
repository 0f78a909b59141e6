// Package format turns generated answer text into HTML markup through a
// fixed, ordered pipeline of stages. Each stage is a pure string transform
// that runs on the previous stage's output:
//
//  1. numbered lines   -> <ol><li>…</li></ol>
//  2. bullet lines     -> <ul><li>…</li></ul>
//  3. pipe tables      -> <table> (first row is the header)
//  4. **bold**         -> <strong>
//  5. *italic*         -> <em>
//  6. bare newlines    -> <br>
//
// Stages 1-3 emit each block on a single line with no internal newlines, and
// stage 6 leaves any newline that touches a block tag alone, so list and table
// regions are never broken up by <br>. Output is not HTML-escaped and the
// pipeline is not idempotent.
package format

// Stage is one named transform in a Pipeline.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Pipeline applies its stages in order.
type Pipeline []Stage

// Run applies every stage to s in order.
func (p Pipeline) Run(s string) string {
	for _, st := range p {
		s = st.Apply(s)
	}
	return s
}

// Default returns the standard six-stage pipeline.
func Default() Pipeline {
	return Pipeline{
		{Name: "ordered-list", Apply: OrderedLists},
		{Name: "unordered-list", Apply: UnorderedLists},
		{Name: "table", Apply: Tables},
		{Name: "bold", Apply: Bold},
		{Name: "italic", Apply: Italic},
		{Name: "line-break", Apply: LineBreaks},
	}
}

var defaultPipeline = Default()

// HTML runs the default pipeline over s.
func HTML(s string) string {
	return defaultPipeline.Run(s)
}
