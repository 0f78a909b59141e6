package format

import (
	"regexp"
	"strings"
)

var (
	// orderedItemRe matches "1. text" or "1) text" with optional indentation.
	orderedItemRe = regexp.MustCompile(`^[ \t]*\d+[.)][ \t]+(.*)$`)

	// bulletItemRe matches "- text", "* text", "+ text" or "• text".
	bulletItemRe = regexp.MustCompile(`^[ \t]*[-*+•][ \t]+(.*)$`)

	// tableRowRe matches a line that starts and ends with a pipe.
	tableRowRe = regexp.MustCompile(`^[ \t]*\|.*\|[ \t]*$`)

	// tableSeparatorRe matches a header separator such as |---|:---:|.
	tableSeparatorRe = regexp.MustCompile(`^[ \t]*\|(?:[ \t]*:?-+:?[ \t]*\|)+[ \t]*$`)

	// Emphasis never crosses a tag, so a pair of asterisks cannot span two
	// list items or table cells that earlier stages joined onto one line.
	boldRe   = regexp.MustCompile(`\*\*([^*\n<>]+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*\n<>]+?)\*`)

	// blockTagSuffixRe / blockTagPrefixRe detect a block-level tag directly
	// before or after a newline.
	blockTagSuffixRe = regexp.MustCompile(`</?(?:ol|ul|li|table|thead|tbody|tr|th|td)>$`)
	blockTagPrefixRe = regexp.MustCompile(`^</?(?:ol|ul|li|table|thead|tbody|tr|th|td)>`)
)

// maxBlockTagLen is the length of the longest block tag, "</table>".
const maxBlockTagLen = len("</table>")

// OrderedLists wraps each run of consecutive numbered lines in <ol>, one
// <li> per line, in original order. Numbers themselves are dropped.
func OrderedLists(s string) string {
	return replaceRuns(s, orderedItemRe.MatchString, func(lines []string) string {
		return wrapItems("ol", lines, orderedItemRe)
	}, 1)
}

// UnorderedLists wraps each run of consecutive bullet lines in <ul>.
func UnorderedLists(s string) string {
	return replaceRuns(s, bulletItemRe.MatchString, func(lines []string) string {
		return wrapItems("ul", lines, bulletItemRe)
	}, 1)
}

// Tables converts each run of two or more pipe-delimited lines into a
// table. The first row becomes the header; separator rows are dropped.
func Tables(s string) string {
	return replaceRuns(s, tableRowRe.MatchString, renderTable, 2)
}

// Bold converts **text** to <strong>text</strong>.
func Bold(s string) string {
	return boldRe.ReplaceAllString(s, "<strong>$1</strong>")
}

// Italic converts *text* to <em>text</em>. Run after Bold so double
// asterisks are already consumed.
func Italic(s string) string {
	return italicRe.ReplaceAllString(s, "<em>$1</em>")
}

// LineBreaks replaces each newline with <br> unless the character run on
// either side of it is a block-level tag.
func LineBreaks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			b.WriteByte(s[i])
			continue
		}
		before := s[max(0, i-maxBlockTagLen):i]
		after := s[i+1 : min(len(s), i+1+maxBlockTagLen)]
		if blockTagSuffixRe.MatchString(before) || blockTagPrefixRe.MatchString(after) {
			b.WriteByte('\n')
			continue
		}
		b.WriteString("<br>")
	}
	return b.String()
}

// replaceRuns splits s into lines and replaces every maximal run of at least
// minRun consecutive lines satisfying match with the single line render
// returns. Other lines pass through unchanged.
func replaceRuns(s string, match func(string) bool, render func([]string) string, minRun int) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !match(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && match(lines[j]) {
			j++
		}
		if j-i >= minRun {
			out = append(out, render(lines[i:j]))
		} else {
			out = append(out, lines[i:j]...)
		}
		i = j
	}
	return strings.Join(out, "\n")
}

func wrapItems(tag string, lines []string, re *regexp.Regexp) string {
	var b strings.Builder
	b.WriteString("<" + tag + ">")
	for _, l := range lines {
		m := re.FindStringSubmatch(l)
		b.WriteString("<li>")
		b.WriteString(strings.TrimSpace(m[1]))
		b.WriteString("</li>")
	}
	b.WriteString("</" + tag + ">")
	return b.String()
}

func renderTable(lines []string) string {
	var rows [][]string
	for _, l := range lines {
		if tableSeparatorRe.MatchString(l) {
			continue
		}
		rows = append(rows, splitRow(l))
	}
	if len(rows) == 0 {
		return strings.Join(lines, "\n")
	}

	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, c := range rows[0] {
		b.WriteString("<th>" + c + "</th>")
	}
	b.WriteString("</tr></thead>")
	if len(rows) > 1 {
		b.WriteString("<tbody>")
		for _, r := range rows[1:] {
			b.WriteString("<tr>")
			for _, c := range r {
				b.WriteString("<td>" + c + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody>")
	}
	b.WriteString("</table>")
	return b.String()
}

// splitRow returns the trimmed cells of a |a|b| row.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}
