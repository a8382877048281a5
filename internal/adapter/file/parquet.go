package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// parquetRow is the typed Parquet schema of the table. Missing numbers are
// stored as nulls rather than the text placeholder.
type parquetRow struct {
	Country               string    `parquet:"country"`
	CountryCode           string    `parquet:"country_code"`
	Continent             string    `parquet:"continent,optional"`
	LastUpdated           string    `parquet:"last_updated,optional"`
	City                  string    `parquet:"city,optional"`
	State                 string    `parquet:"state,optional"`
	Latitude              *float64  `parquet:"latitude,optional"`
	Longitude             *float64  `parquet:"longitude,optional"`
	Condition             string    `parquet:"condition,optional"`
	MinTemperature        *float64  `parquet:"min_temperature,optional"`
	MaxTemperature        *float64  `parquet:"max_temperature,optional"`
	LookupSource          string    `parquet:"lookup_source,optional"`
	TotalCases            *float64  `parquet:"total_cases,optional"`
	NewCases              *float64  `parquet:"new_cases,optional"`
	TotalDeaths           *float64  `parquet:"total_deaths,optional"`
	NewDeaths             *float64  `parquet:"new_deaths,optional"`
	TotalCasesPerMillion  *float64  `parquet:"total_cases_per_million,optional"`
	TotalDeathsPerMillion *float64  `parquet:"total_deaths_per_million,optional"`
	HospPatients          *float64  `parquet:"hosp_patients,optional"`
	ProcessedAt           time.Time `parquet:"processed_at"`
}

func toParquetRow(r domain.JoinedRow) parquetRow {
	s := r.Stat
	row := parquetRow{
		Country:               s.Location,
		CountryCode:           s.Code,
		Continent:             s.Continent,
		LastUpdated:           s.LastUpdatedDate,
		TotalCases:            s.TotalCases,
		NewCases:              s.NewCases,
		TotalDeaths:           s.TotalDeaths,
		NewDeaths:             s.NewDeaths,
		TotalCasesPerMillion:  s.TotalCasesPerMillion,
		TotalDeathsPerMillion: s.TotalDeathsPerMillion,
		HospPatients:          s.HospPatients,
		ProcessedAt:           r.ProcessedAt,
	}
	if w := r.Weather; w != nil {
		row.City = w.City.Name
		row.State = w.City.State
		if w.City.HasCoordinates {
			lat, lon := w.City.Latitude, w.City.Longitude
			row.Latitude, row.Longitude = &lat, &lon
		}
		row.Condition = w.Condition
		row.MinTemperature = w.MinTemperature
		row.MaxTemperature = w.MaxTemperature
		row.LookupSource = string(w.Source)
	}
	return row
}

// ParquetSink writes the table as a typed Parquet file.
type ParquetSink struct {
	path string
}

// NewParquetSink creates a sink writing <dir>/<table>.parquet.
func NewParquetSink(dir, table string) *ParquetSink {
	return &ParquetSink{path: filepath.Join(dir, table+".parquet")}
}

func (s *ParquetSink) Name() string { return "parquet" }

// Path returns the output file path.
func (s *ParquetSink) Path() string { return s.path }

func (s *ParquetSink) Write(_ context.Context, rows []domain.JoinedRow) error {
	out := make([]parquetRow, len(rows))
	for i, r := range rows {
		out[i] = toParquetRow(r)
	}
	err := writeAtomic(s.path, func(tmp string) error {
		return parquet.WriteFile(tmp, out)
	})
	if err != nil {
		return fmt.Errorf("parquet sink: %w", err)
	}
	return nil
}

// CountParquetRows reads a file written by ParquetSink and returns its row
// count.
func CountParquetRows(path string) (int, error) {
	rows, err := parquet.ReadFile[parquetRow](path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return len(rows), nil
}
