package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel flattens every sheet into tab-separated rows so tabular policy
// data (limits, schedules) stays retrievable as text.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", &ExtractionError{Format: "xlsx", Reason: fmt.Sprintf("open workbook: %v", err)}
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", &ExtractionError{Format: "xlsx", Reason: fmt.Sprintf("sheet %q: %v", sheet, err)}
		}
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", &ExtractionError{Format: "xlsx", Reason: "workbook contains no text"}
	}
	return text, nil
}
