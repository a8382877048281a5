package file

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

var droppedColumns = []string{"City", "Country", "CountryCode", "Latitude", "Longitude", "NameLookupError", "CoordinateLookupError"}

// DropList writes the cities that missed both weather lookups.
type DropList struct {
	path string
}

// NewDropList creates a writer for <dir>/<table>_dropped.csv.
func NewDropList(dir, table string) *DropList {
	return &DropList{path: filepath.Join(dir, table+"_dropped.csv")}
}

// Path returns the output file path.
func (d *DropList) Path() string { return d.path }

// Write replaces the drop list with dropped. The header is written even
// when no city was dropped.
func (d *DropList) Write(dropped []domain.Resolution) error {
	records := make([][]string, 0, len(dropped)+1)
	records = append(records, droppedColumns)
	for _, r := range dropped {
		lat, lon := domain.Placeholder, domain.Placeholder
		if r.City.HasCoordinates {
			lat = strconv.FormatFloat(r.City.Latitude, 'f', -1, 64)
			lon = strconv.FormatFloat(r.City.Longitude, 'f', -1, 64)
		}
		records = append(records, []string{
			r.City.Name,
			r.City.CountryName,
			r.City.CountryCode,
			lat,
			lon,
			errText(r.NameErr),
			errText(r.CoordErr),
		})
	}
	if err := writeCSV(d.path, records); err != nil {
		return fmt.Errorf("drop list: %w", err)
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return domain.Placeholder
	}
	return err.Error()
}
