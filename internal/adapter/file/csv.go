package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// CSVSink writes the table as CSV with a header row. Numbers carry two
// decimals and missing values are written as domain.Placeholder.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink writing <dir>/<table>.csv.
func NewCSVSink(dir, table string) *CSVSink {
	return &CSVSink{path: filepath.Join(dir, table+".csv")}
}

func (s *CSVSink) Name() string { return "csv" }

// Path returns the output file path.
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Write(_ context.Context, rows []domain.JoinedRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, domain.Columns)
	for _, r := range rows {
		records = append(records, domain.FormatRow(r))
	}
	if err := writeCSV(s.path, records); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	return writeAtomic(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmp, err)
		}
		if err := writeRecords(f, records); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	})
}

// writeRecords writes records to wc and closes it once. A close failure is
// reported together with any write failure.
func writeRecords(wc io.WriteCloser, records [][]string) error {
	err := csv.NewWriter(wc).WriteAll(records)
	return errors.Join(err, wc.Close())
}
