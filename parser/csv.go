package parser

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// parseCSV renders each data row as a "--- Record N ---" block of
// "header: value" lines, using the first row as the header names. Quoted
// fields have their surrounding quotes stripped by the CSV reader itself.
func parseCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("parser: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parser: reading CSV %s: %w", path, err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	headers := rows[0]
	var b strings.Builder
	for i, row := range rows[1:] {
		fmt.Fprintf(&b, "--- Record %d ---\n", i+1)
		for j, val := range row {
			name := fmt.Sprintf("column_%d", j+1)
			if j < len(headers) {
				name = headers[j]
			}
			fmt.Fprintf(&b, "%s: %s\n", name, val)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}
