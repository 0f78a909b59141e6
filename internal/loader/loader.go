// Package loader extracts plain text from uploaded documents. Each supported
// file format maps to exactly one extraction function; unknown extensions are
// rejected with UnsupportedFormatError rather than producing empty text.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format enumerates the document formats the loader understands.
type Format string

const (
	// FormatText is plain text, decoded as UTF-8 with a Latin-1 fallback.
	FormatText Format = "txt"
	// FormatPDF is a PDF document; text is extracted page by page.
	FormatPDF Format = "pdf"
	// FormatDOCX is an Office Open XML word-processing document.
	FormatDOCX Format = "docx"
	// FormatXLSX is an Office Open XML spreadsheet.
	FormatXLSX Format = "xlsx"
	// FormatMarkdown is a Markdown document; markup is stripped.
	FormatMarkdown Format = "md"
)

// extractFunc reads the file at path and returns its plain text.
type extractFunc func(path string) (string, error)

// extractors is the closed dispatch table. Adding a format means adding a
// constant, an extension alias in ParseFormat, and an entry here.
var extractors = map[Format]extractFunc{
	FormatText:     extractText,
	FormatPDF:      extractPDF,
	FormatDOCX:     extractDOCX,
	FormatXLSX:     extractXLSX,
	FormatMarkdown: extractMarkdown,
}

// UnsupportedFormatError is returned for a file extension with no extractor.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "loader: unsupported format: file has no extension"
	}
	return fmt.Sprintf("loader: unsupported format %q", e.Ext)
}

// ExtractionError is returned when a file of a supported format could not be
// parsed (corrupt file, unreadable archive, I/O failure).
type ExtractionError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("loader: extract %s text from %s: %v", e.Format, filepath.Base(e.Path), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ParseFormat maps a file extension (with or without the leading dot, any
// case) to a Format.
func ParseFormat(ext string) (Format, error) {
	norm := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch norm {
	case "txt", "text":
		return FormatText, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	case "xlsx":
		return FormatXLSX, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// Supported reports whether filename has an extension the loader can read.
func Supported(filename string) bool {
	_, err := ParseFormat(filepath.Ext(filename))
	return err == nil
}

// Load extracts plain text from the file at path using the extractor for
// ext. It only reads the file.
func Load(path, ext string) (string, error) {
	format, err := ParseFormat(ext)
	if err != nil {
		return "", err
	}
	text, err := extractors[format](path)
	if err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	return text, nil
}

// LoadFile is Load with the extension taken from path.
func LoadFile(path string) (string, error) {
	return Load(path, filepath.Ext(path))
}
