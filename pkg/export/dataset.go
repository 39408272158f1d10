// Package export renders tabular catalog data as CSV or PDF documents.
package export

import "fmt"

// Dataset is an ordered table: every row holds one cell per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Append adds a row, rejecting rows whose width differs from the headers.
func (d *Dataset) Append(cells ...string) error {
	if len(cells) != len(d.Headers) {
		return fmt.Errorf("row has %d cells, want %d", len(cells), len(d.Headers))
	}
	d.Rows = append(d.Rows, cells)
	return nil
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	return nil
}
