package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF runs the ordered PDF strategy list: plain-text extraction first
// (fast, fine for single-column documents), then row-ordered extraction (slower,
// better for tables and multi-column layouts) when the first pass is rejected
// by the acceptance heuristic.
func extractPDF(content []byte) (string, error) {
	text, fastErr := extractPDFPlain(content)
	if fastErr == nil && acceptable(text) {
		return text, nil
	}
	rowText, rowErr := extractPDFByRows(content)
	if rowErr == nil && strings.TrimSpace(rowText) != "" {
		return rowText, nil
	}
	// Short output that is at least clean beats nothing: tiny PDFs are legitimate.
	if fastErr == nil && strings.TrimSpace(text) != "" && garbledRatio(text) <= maxGarbledRatio {
		return text, nil
	}
	reason := "no strategy produced usable text"
	if fastErr != nil {
		reason = fmt.Sprintf("%s (plain: %v)", reason, fastErr)
	}
	if rowErr != nil {
		reason = fmt.Sprintf("%s (rows: %v)", reason, rowErr)
	}
	return "", &ExtractionError{Format: "pdf", Reason: reason}
}

func extractPDFPlain(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

// extractPDFByRows reassembles text in row order, which keeps table cells and
// multi-column content readable where the content-stream order does not.
func extractPDFByRows(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("extract page %d rows: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(word.S)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
