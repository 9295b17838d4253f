package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX renders every sheet as a pipe-delimited table, one block per
// sheet.
func parseXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("parser: opening XLSX %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "--- Sheet: %s ---\n", sheet)
		for _, row := range rows {
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}
