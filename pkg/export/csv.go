package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSV renders datasets as RFC 4180 CSV with a header line.
type CSV struct{}

// NewCSV builds a CSV renderer.
func NewCSV() *CSV {
	return &CSV{}
}

// ContentType reports the MIME type of the rendered document.
func (CSV) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Extension is the file extension used for downloads.
func (CSV) Extension() string {
	return "csv"
}

// Render produces CSV encoded bytes for the dataset.
func (CSV) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(data.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
