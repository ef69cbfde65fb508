// Package export renders tabular data and invoices into downloadable files.
package export

import "fmt"

// Content types for the generated artifacts.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Table is the renderer-neutral shape of an export.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Validate checks every row matches the header width.
func (t Table) Validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("export requires at least one header")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}
