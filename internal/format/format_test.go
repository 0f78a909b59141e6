package format

import "testing"

func TestHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "ordered list",
			input: "1. first\n2. second",
			want:  "<ol><li>first</li><li>second</li></ol>",
		},
		{
			name:  "plain text only gets line breaks",
			input: "hello\nworld\nagain",
			want:  "hello<br>world<br>again",
		},
		{
			name:  "list between paragraphs keeps newlines next to tags",
			input: "Intro:\n1. a\n2. b\nOutro",
			want:  "Intro:\n<ol><li>a</li><li>b</li></ol>\nOutro",
		},
		{
			name:  "bullets",
			input: "- x\n* y\n• z",
			want:  "<ul><li>x</li><li>y</li><li>z</li></ul>",
		},
		{
			name:  "ordered then unordered",
			input: "1. one\n- dash",
			want:  "<ol><li>one</li></ol>\n<ul><li>dash</li></ul>",
		},
		{
			name:  "table",
			input: "| a | b |\n|---|:---:|\n| 1 | 2 |",
			want:  "<table><thead><tr><th>a</th><th>b</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table>",
		},
		{
			name:  "single pipe line is not a table",
			input: "| alone |",
			want:  "| alone |",
		},
		{
			name:  "bold and italic",
			input: "**b** and *i*",
			want:  "<strong>b</strong> and <em>i</em>",
		},
		{
			name:  "emphasis inside list item",
			input: "1. **x** y\n2. *z*",
			want:  "<ol><li><strong>x</strong> y</li><li><em>z</em></li></ol>",
		},
		{
			name:  "bullet marker is not italic",
			input: "* item *em*",
			want:  "<ul><li>item <em>em</em></li></ul>",
		},
		{
			name:  "asterisks in separate list items stay literal",
			input: "1. 2*3 = 6\n2. 4*5 = 20",
			want:  "<ol><li>2*3 = 6</li><li>4*5 = 20</li></ol>",
		},
		{
			name:  "asterisks in separate table cells stay literal",
			input: "| *x | y* |\n| 1 | 2 |",
			want:  "<table><thead><tr><th>*x</th><th>y*</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table>",
		},
		{
			name:  "emphasis inside one cell",
			input: "| **a** | *b* |\n| 1 | 2 |",
			want:  "<table><thead><tr><th><strong>a</strong></th><th><em>b</em></th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table>",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HTML(tc.input); got != tc.want {
				t.Errorf("HTML(%q)\n got = %q\nwant = %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestStages_Independent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stage func(string) string
		input string
		want  string
	}{
		{"ordered leaves bullets", OrderedLists, "- a\n1. b", "- a\n<ol><li>b</li></ol>"},
		{"unordered leaves numbers", UnorderedLists, "1. a\n- b", "1. a\n<ul><li>b</li></ul>"},
		{"tables leave plain lines", Tables, "x\n|a|\n|b|\ny", "x\n<table><thead><tr><th>a</th></tr></thead><tbody><tr><td>b</td></tr></tbody></table>\ny"},
		{"bold only", Bold, "**a** *b*", "<strong>a</strong> *b*"},
		{"italic only", Italic, "*a*", "<em>a</em>"},
		{"line breaks keep block boundaries", LineBreaks, "a\n<ul><li>b</li></ul>\nc\nd", "a\n<ul><li>b</li></ul>\nc<br>d"},
		{"line breaks ignore inline tags", LineBreaks, "a\n<strong>b</strong>", "a<br><strong>b</strong>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.stage(tc.input); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPipeline_Order(t *testing.T) {
	t.Parallel()

	var order []string
	p := Pipeline{
		{Name: "a", Apply: func(s string) string { order = append(order, "a"); return s + "a" }},
		{Name: "b", Apply: func(s string) string { order = append(order, "b"); return s + "b" }},
	}
	if got := p.Run(""); got != "ab" {
		t.Errorf("Run() = %q, want ab", got)
	}
	if len(order) != 2 || order[0] != "a" {
		t.Errorf("stages ran in order %v", order)
	}

	names := []string{"ordered-list", "unordered-list", "table", "bold", "italic", "line-break"}
	for i, st := range Default() {
		if st.Name != names[i] {
			t.Errorf("Default()[%d] = %s, want %s", i, st.Name, names[i])
		}
	}
}
