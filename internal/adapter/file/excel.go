package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the table.
const SheetName = "Data"

// builtin number format 2 is "0.00".
const twoDecimalFormat = 2

// ExcelSink writes the table to a single-sheet workbook. Numbers are stored
// as numeric cells formatted with two decimals; missing values are written
// as domain.Placeholder.
type ExcelSink struct {
	path string
}

// NewExcelSink creates a sink writing <dir>/<table>.xlsx.
func NewExcelSink(dir, table string) *ExcelSink {
	return &ExcelSink{path: filepath.Join(dir, table+".xlsx")}
}

func (s *ExcelSink) Name() string { return "xlsx" }

// Path returns the output file path.
func (s *ExcelSink) Path() string { return s.path }

func (s *ExcelSink) Write(_ context.Context, rows []domain.JoinedRow) error {
	err := writeAtomic(s.path, func(tmp string) error {
		return writeWorkbook(tmp, rows)
	})
	if err != nil {
		return fmt.Errorf("xlsx sink: %w", err)
	}
	return nil
}

func writeWorkbook(path string, rows []domain.JoinedRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	numStyle, err := f.NewStyle(&excelize.Style{NumFmt: twoDecimalFormat})
	if err != nil {
		return fmt.Errorf("create number style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(domain.Columns))
	for i, c := range domain.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cells := r.Cells()
		values := make([]any, len(cells))
		for j, c := range cells {
			switch {
			case c.Missing():
				values[j] = domain.Placeholder
			case c.Numeric:
				values[j] = excelize.Cell{StyleID: numStyle, Value: *c.Number}
			default:
				values[j] = c.Text
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := sw.SetRow(axis, values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
