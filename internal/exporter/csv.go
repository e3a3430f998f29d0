package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header plus rows of already formatted cells
type Table struct {
	Headers []string
	Rows    [][]string
}

// CSVWriter writes tables into an export directory
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at dir
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir, logger: slog.Default()}
}

// WithLogger sets the logger used for export events
func (w *CSVWriter) WithLogger(logger *slog.Logger) *CSVWriter {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WriteCSV writes table to name inside the export directory, replacing any existing file
func (w *CSVWriter) WriteCSV(name string, table Table) (string, error) {
	fullPath := name
	if !filepath.IsAbs(name) {
		fullPath = filepath.Join(w.dir, name)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := Encode(file, table, true); err != nil {
		return "", err
	}

	w.logger.Info("CSV written",
		slog.String("path", fullPath),
		slog.Int("rows", len(table.Rows)))
	return fullPath, nil
}

// Encode streams table to out as CSV, optionally prefixed with a UTF-8 BOM
func Encode(out io.Writer, table Table, bom bool) error {
	if bom {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if len(table.Headers) > 0 {
		if err := writer.Write(table.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
