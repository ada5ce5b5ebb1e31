// Package export serializes a run's record set to a portable format.
// It only ever reads records; an export failure never touches the store
// or an already-rendered report.
package export

import (
	"fmt"
	"os"

	"pescan/internal/store/models"
)

// Format selects the export mode chosen by the operator.
type Format string

const (
	FormatNone Format = "none"
	FormatCSV  Format = "csv"
	FormatSQL  Format = "sql"
)

// Write creates basePath plus the format's extension and serializes the
// records into it. Returns the written filename, or "" for FormatNone.
func Write(basePath string, format Format, records []models.Record) (string, error) {
	var (
		path  string
		write func(f *os.File) error
	)

	switch format {
	case FormatNone:
		return "", nil
	case FormatCSV:
		path = basePath + ".csv"
		write = func(f *os.File) error { return WriteCSV(f, records) }
	case FormatSQL:
		path = basePath + ".sql"
		write = func(f *os.File) error { return WriteSQL(f, records) }
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return "", fmt.Errorf("export to %s: %w", path, err)
	}
	return path, nil
}
