// Command validate checks the files of a finished run for consistency: the
// CSV table's shape and placeholders, row-count parity with the Parquet file
// and SQLite table, and that no dropped city appears in the table.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dir out \
//	  -table City_Weather_Covid_Data \
//	  -sqlite out/city_weather_covid.db
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/city-weather-etl/internal/adapter/file"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", ".", "output directory of the run")
	table := flag.String("table", "City_Weather_Covid_Data", "output table name")
	sqlitePath := flag.String("sqlite", "", "SQLite database to compare against (optional)")
	flag.Parse()

	os.Exit(run(*dir, *table, *sqlitePath))
}

func run(dir, table, sqlitePath string) int {
	fmt.Println("=== City Weather Output Validation ===")
	fmt.Println()

	csvPath := filepath.Join(dir, table+".csv")
	records, err := loadCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", csvPath, err)
		return 1
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: %s has no header\n", csvPath)
		return 1
	}
	header, rows := records[0], records[1:]

	phases := []*phase{
		validateTable(header, rows),
		validateParquet(filepath.Join(dir, table+".parquet"), len(rows)),
		validateSQLite(sqlitePath, table, len(rows)),
		validateDropList(filepath.Join(dir, table+"_dropped.csv"), rows),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

// numericColumns reports, per column, whether the column holds numbers.
func numericColumns() []bool {
	cells := domain.JoinedRow{Weather: &domain.WeatherObservation{}}.Cells()
	out := make([]bool, len(cells))
	for i, c := range cells {
		out[i] = c.Numeric
	}
	return out
}

func validateTable(header []string, rows [][]string) *phase {
	p := &phase{name: "CSV table shape and placeholders"}
	if !slices.Equal(header, domain.Columns) {
		p.errorf("header = %v, want %v", header, domain.Columns)
		return p
	}

	numeric := numericColumns()
	city := slices.Index(domain.Columns, "City")
	lookup := slices.Index(domain.Columns, "LookupSource")
	for i, row := range rows {
		line := i + 2
		for j, v := range row {
			if v == "" {
				p.errorf("line %d: %s is empty, want a value or %q", line, header[j], domain.Placeholder)
				continue
			}
			if !numeric[j] || v == domain.Placeholder {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				p.errorf("line %d: %s = %q is not a number", line, header[j], v)
			}
		}
		switch src := row[lookup]; src {
		case string(domain.LookupByName), string(domain.LookupByCoordinates):
		case domain.Placeholder:
			if row[city] != domain.Placeholder {
				p.errorf("line %d: city %q has no lookup source", line, row[city])
			}
		default:
			p.errorf("line %d: unknown lookup source %q", line, src)
		}
	}
	return p
}

func validateParquet(path string, want int) *phase {
	p := &phase{name: "Parquet row-count parity"}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		p.skipped = true
		return p
	}
	got, err := file.CountParquetRows(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if got != want {
		p.errorf("parquet has %d rows, csv has %d", got, want)
	}
	return p
}

func validateSQLite(path, table string, want int) *phase {
	p := &phase{name: "SQLite row-count parity"}
	if path == "" {
		p.skipped = true
		return p
	}
	db, err := sqlite.Open(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	defer db.Close()

	got, err := sqlite.CountRows(db, table)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if got != want {
		p.errorf("sqlite has %d rows, csv has %d", got, want)
	}
	return p
}

// coordKey renders a coordinate pair the way the table does, so the drop
// list's full-precision values compare equal to the table's rounded ones.
func coordKey(lat, lon string) string {
	return roundCoord(lat) + "," + roundCoord(lon)
}

func roundCoord(s string) string {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Placeholder
	}
	return domain.FormatNumber(v)
}

func validateDropList(path string, rows [][]string) *phase {
	p := &phase{name: "Dropped cities absent from table"}
	records, err := loadCSV(path)
	if errors.Is(err, os.ErrNotExist) {
		p.skipped = true
		return p
	}
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if len(records) == 0 || len(records[0]) < 5 || records[0][0] != "City" {
		p.errorf("drop list has no City header")
		return p
	}

	city := slices.Index(domain.Columns, "City")
	code := slices.Index(domain.Columns, "CountryCode")
	country := slices.Index(domain.Columns, "Country")
	lat := slices.Index(domain.Columns, "Latitude")
	lon := slices.Index(domain.Columns, "Longitude")
	inTable := make(map[string]bool, 2*len(rows))
	for _, row := range rows {
		where := coordKey(row[lat], row[lon])
		inTable[row[city]+"|"+row[country]+"|"+where] = true
		inTable[row[city]+"|"+row[code]+"|"+where] = true
	}
	for i, d := range records[1:] {
		// City, Country, CountryCode, Latitude, Longitude
		if len(d) < 5 {
			p.errorf("line %d: drop list row has %d fields", i+2, len(d))
			continue
		}
		where := coordKey(d[3], d[4])
		if inTable[d[0]+"|"+d[1]+"|"+where] || inTable[d[0]+"|"+d[2]+"|"+where] {
			p.errorf("line %d: dropped city %s (%s) appears in the table", i+2, d[0], d[1])
		}
	}
	return p
}
