package rag

import "strings"

// BuildContext renders retrieved chunks in rank order, one
// "Chunk from {filename}:\n{text}" block per result, newline-separated.
func BuildContext(results []Result) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = "Chunk from " + r.Filename + ":\n" + r.Text
	}
	return strings.Join(blocks, "\n")
}

// Citations returns the filename of each result in rank order. A filename
// repeats once per chunk retrieved from that document.
func Citations(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Filename
	}
	return out
}

// BuildPrompt combines the user query and retrieved context into the
// completion prompt. An empty context yields a prompt of the query alone.
func BuildPrompt(query, context string) string {
	var b strings.Builder
	b.WriteString("Human: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	if context != "" {
		b.WriteString("Context:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}
