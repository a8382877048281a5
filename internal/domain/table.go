package domain

import "strconv"

// Placeholder is written in text outputs wherever a value is missing.
const Placeholder = "N/A"

// Columns is the output column order shared by every sink.
var Columns = []string{
	"Country",
	"CountryCode",
	"Continent",
	"LastUpdated",
	"City",
	"State",
	"Latitude",
	"Longitude",
	"Condition",
	"MinTemperature",
	"MaxTemperature",
	"LookupSource",
	"TotalCases",
	"NewCases",
	"TotalDeaths",
	"NewDeaths",
	"TotalCasesPerMillion",
	"TotalDeathsPerMillion",
	"HospPatients",
}

// Cell is one output value. Number is set for numeric columns; a cell with
// neither Text nor Number is missing.
type Cell struct {
	Text    string
	Number  *float64
	Numeric bool
}

// Missing reports whether the cell has no value.
func (c Cell) Missing() bool {
	if c.Numeric {
		return c.Number == nil
	}
	return c.Text == ""
}

// String renders the cell for text outputs: numbers with two decimals,
// missing values as Placeholder.
func (c Cell) String() string {
	if c.Missing() {
		return Placeholder
	}
	if c.Numeric {
		return FormatNumber(*c.Number)
	}
	return c.Text
}

// FormatNumber renders v with exactly two decimals.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func text(s string) Cell { return Cell{Text: s} }

func number(v *float64) Cell { return Cell{Number: v, Numeric: true} }

// Cells returns the row's values in Columns order.
func (r JoinedRow) Cells() []Cell {
	s := r.Stat
	cells := []Cell{
		text(s.Location),
		text(s.Code),
		text(s.Continent),
		text(s.LastUpdatedDate),
		{}, {}, {Numeric: true}, {Numeric: true}, // city, state, lat, lon
		{}, {Numeric: true}, {Numeric: true}, {}, // condition, min, max, source
		number(s.TotalCases),
		number(s.NewCases),
		number(s.TotalDeaths),
		number(s.NewDeaths),
		number(s.TotalCasesPerMillion),
		number(s.TotalDeathsPerMillion),
		number(s.HospPatients),
	}

	if w := r.Weather; w != nil {
		cells[4] = text(w.City.Name)
		cells[5] = text(w.City.State)
		if w.City.HasCoordinates {
			lat, lon := w.City.Latitude, w.City.Longitude
			cells[6] = number(&lat)
			cells[7] = number(&lon)
		}
		cells[8] = text(w.Condition)
		cells[9] = number(w.MinTemperature)
		cells[10] = number(w.MaxTemperature)
		cells[11] = text(string(w.Source))
	}
	return cells
}

// FormatRow renders the row for text outputs, in Columns order.
func FormatRow(r JoinedRow) []string {
	cells := r.Cells()
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}
