// Package extract provides text extraction from various document formats.
package extract

import (
	"fmt"
	"strings"
	"unicode"
)

// ExtractionError reports a document whose bytes could not be turned into usable text.
type ExtractionError struct {
	Format string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Format, e.Reason)
}

const (
	// minTextLength is the minimum extracted character count for output to be accepted.
	minTextLength = 100
	// maxGarbledRatio is the maximum tolerated ratio of non-printable runes.
	maxGarbledRatio = 0.2
)

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract turns raw bytes into plain text based on the declared format.
// PDF extraction tries an ordered list of strategies: a fast per-page pass first,
// then a row-ordered pass tuned for tables and multi-column layouts when the fast
// pass yields near-empty or garbled output. Returns ExtractionError when no
// strategy produces usable text or the format is unsupported.
func (e *Extractor) Extract(content []byte, format string) (string, error) {
	switch strings.ToLower(format) {
	case "pdf":
		return extractPDF(content)
	case "docx":
		return extractDOCX(content)
	case "odt", "rtf":
		return extractCat(content, format)
	case "xlsx":
		return extractExcel(content)
	case "html":
		return extractHTML(content)
	case "txt", "md", "":
		return extractPlain(content)
	default:
		return "", &ExtractionError{Format: format, Reason: "unsupported format"}
	}
}

// acceptable reports whether extracted text passes the acceptance heuristic:
// long enough and not dominated by non-printable runes.
func acceptable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minTextLength {
		return false
	}
	return garbledRatio(trimmed) <= maxGarbledRatio
}

func garbledRatio(text string) float64 {
	if text == "" {
		return 1
	}
	var bad, total int
	for _, r := range text {
		total++
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			bad++
		}
	}
	return float64(bad) / float64(total)
}
