package response

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// DefaultExportFile is where /export writes when no path is given.
const DefaultExportFile = "query_result.csv"

// WriteCSV writes the header row of positional indices followed by one line
// per row, '\n' terminated.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Cells()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// CSV returns the table as CSV bytes.
func CSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFile writes the table to path, replacing any existing file.
func ExportFile(path string, t *Table) error {
	data, err := CSV(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
