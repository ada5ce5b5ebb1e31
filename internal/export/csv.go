package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"pescan/internal/pe"
	"pescan/internal/store/models"
)

// WriteCSV emits the record set as a delimited table: the fixed
// 18-column header followed by one row per record, flags encoded 0/1.
func WriteCSV(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.Columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.AnalysisTag, r.RootPath, r.FilePath, r.FileName,
			r.Extension, string(r.Architecture), r.Digest,
		}
		for _, v := range r.FlagValues() {
			row = append(row, boolColumn(v))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV re-imports a table produced by WriteCSV. The header is
// validated against the schema so truncated or reordered exports fail
// loudly instead of shifting columns.
func ReadCSV(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if len(header) != len(models.Columns) {
		return nil, fmt.Errorf("CSV header has %d columns, want %d", len(header), len(models.Columns))
	}
	for i, col := range models.Columns {
		if header[i] != col {
			return nil, fmt.Errorf("CSV column %d is %q, want %q", i, header[i], col)
		}
	}

	var records []models.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}

		flags := make([]bool, 11)
		for i := range flags {
			v, err := strconv.ParseBool(row[7+i])
			if err != nil {
				return nil, fmt.Errorf("parse flag column %s: %w", models.Columns[7+i], err)
			}
			flags[i] = v
		}

		records = append(records, models.Record{
			AnalysisTag:  row[0],
			RootPath:     row[1],
			FilePath:     row[2],
			FileName:     row[3],
			Extension:    row[4],
			Architecture: pe.Architecture(row[5]),
			Digest:       row[6],
			Flags: pe.MitigationFlags{
				ASLR:                flags[0],
				DEP:                 flags[1],
				NoSEH:               flags[2],
				CFG:                 flags[3],
				HighEntropyASLR:     flags[4],
				ForceIntegrity:      flags[5],
				NoIsolation:         flags[6],
				NoBind:              flags[7],
				AppContainer:        flags[8],
				WDMDriver:           flags[9],
				TerminalServerAware: flags[10],
			},
		})
	}
	return records, nil
}

func boolColumn(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
