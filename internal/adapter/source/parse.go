package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/goccy/go-json"
)

// Batch is the outcome of parsing one source document: the records that
// decoded and one error per skipped entry.
type Batch[T any] struct {
	Records []T
	Skipped []error
}

func (b *Batch[T]) skip(format string, args ...any) {
	b.Skipped = append(b.Skipped, fmt.Errorf(format+": %w", append(args, domain.ErrMalformedRecord)...))
}

type covidEntry struct {
	Continent             optString `json:"continent"`
	Location              optString `json:"location"`
	LastUpdatedDate       optString `json:"last_updated_date"`
	TotalCases            optFloat  `json:"total_cases"`
	NewCases              optFloat  `json:"new_cases"`
	TotalDeaths           optFloat  `json:"total_deaths"`
	NewDeaths             optFloat  `json:"new_deaths"`
	TotalCasesPerMillion  optFloat  `json:"total_cases_per_million"`
	TotalDeathsPerMillion optFloat  `json:"total_deaths_per_million"`
	HospPatients          optFloat  `json:"hosp_patients"`
}

// ParseCountryStats decodes the pandemic document: a JSON object keyed by
// country code. Entries that are not objects are skipped. Records keep the
// document's order.
func ParseCountryStats(data []byte) (Batch[domain.CountryStat], error) {
	entries, err := objectEntries(data)
	if err != nil {
		return Batch[domain.CountryStat]{}, fmt.Errorf("decode pandemic statistics: %v: %w", err, domain.ErrSourceUnavailable)
	}

	var batch Batch[domain.CountryStat]
	for _, kv := range entries {
		code, entry := kv.key, kv.raw
		if !isObject(entry) {
			batch.skip("country %q is not an object", code)
			continue
		}
		var e covidEntry
		if err := json.Unmarshal(entry, &e); err != nil {
			batch.skip("country %q: %v", code, err)
			continue
		}
		batch.Records = append(batch.Records, domain.CountryStat{
			Code:                  code,
			Continent:             e.Continent.String(),
			Location:              e.Location.String(),
			LastUpdatedDate:       e.LastUpdatedDate.String(),
			TotalCases:            e.TotalCases.ptr(),
			NewCases:              e.NewCases.ptr(),
			TotalDeaths:           e.TotalDeaths.ptr(),
			NewDeaths:             e.NewDeaths.ptr(),
			TotalCasesPerMillion:  e.TotalCasesPerMillion.ptr(),
			TotalDeathsPerMillion: e.TotalDeathsPerMillion.ptr(),
			HospPatients:          e.HospPatients.ptr(),
		})
	}
	return batch, nil
}

// StripNonObjects re-encodes the pandemic document keeping only the entries
// whose value is a JSON object. It returns the cleaned document and the
// number of entries removed.
func StripNonObjects(data []byte) ([]byte, int, error) {
	entries, err := objectEntries(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode pandemic statistics: %v: %w", err, domain.ErrSourceUnavailable)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	removed, kept := 0, 0
	for _, kv := range entries {
		if !isObject(kv.raw) {
			removed++
			continue
		}
		key, err := json.Marshal(kv.key)
		if err != nil {
			return nil, 0, fmt.Errorf("encode pandemic statistics: %w", err)
		}
		if kept > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(bytes.TrimSpace(kv.raw))
		kept++
	}
	buf.WriteByte('}')
	return buf.Bytes(), removed, nil
}

type rawEntry struct {
	key string
	raw json.RawMessage
}

// objectEntries walks a top-level JSON object and returns its members in
// document order. A repeated key keeps its first position and its last value.
func objectEntries(data []byte) ([]rawEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []rawEntry
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		if i, seen := index[key]; seen {
			entries[i].raw = raw
			continue
		}
		index[key] = len(entries)
		entries = append(entries, rawEntry{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}
	return entries, nil
}

type cityEntry struct {
	Name        optString `json:"name"`
	StateName   optString `json:"state_name"`
	CountryCode optString `json:"country_code"`
	CountryName optString `json:"country_name"`
	Latitude    optFloat  `json:"latitude"`
	Longitude   optFloat  `json:"longitude"`
}

// ParseCities decodes the flat city document: an array of city objects.
// Entries that are not objects, or have no name, are skipped.
func ParseCities(data []byte) (Batch[domain.CityRecord], error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Batch[domain.CityRecord]{}, fmt.Errorf("decode cities: %v: %w", err, domain.ErrSourceUnavailable)
	}

	var batch Batch[domain.CityRecord]
	for i, entry := range raw {
		if !isObject(entry) {
			batch.skip("city #%d is not an object", i)
			continue
		}
		var e cityEntry
		if err := json.Unmarshal(entry, &e); err != nil {
			batch.skip("city #%d: %v", i, err)
			continue
		}
		if e.Name == "" {
			batch.skip("city #%d has no name", i)
			continue
		}
		batch.Records = append(batch.Records, domain.CityRecord{
			Name:           e.Name.String(),
			CountryCode:    e.CountryCode.String(),
			CountryName:    e.CountryName.String(),
			State:          e.StateName.String(),
			Latitude:       e.Latitude.v,
			Longitude:      e.Longitude.v,
			HasCoordinates: e.Latitude.ok && e.Longitude.ok,
		})
	}
	return batch, nil
}

type countryEntry struct {
	ID        optString         `json:"id"`
	Name      optString         `json:"name"`
	ISO3      optString         `json:"iso3"`
	Capital   optString         `json:"capital"`
	Region    optString         `json:"region"`
	Subregion optString         `json:"subregion"`
	Cities    []json.RawMessage `json:"cities"`
}

type nestedCity struct {
	Name      optString `json:"name"`
	Latitude  optFloat  `json:"latitude"`
	Longitude optFloat  `json:"longitude"`
}

// ParseCountries decodes the nested countries+cities document. Each country
// yields its capital first, then its nested cities in source order. The
// capital takes its coordinates from the nested city of the same name, which
// is then not repeated. Countries without a name are skipped.
func ParseCountries(data []byte) (Batch[domain.CityRecord], error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Batch[domain.CityRecord]{}, fmt.Errorf("decode countries: %v: %w", err, domain.ErrSourceUnavailable)
	}

	var batch Batch[domain.CityRecord]
	for i, entry := range raw {
		if !isObject(entry) {
			batch.skip("country #%d is not an object", i)
			continue
		}
		var c countryEntry
		if err := json.Unmarshal(entry, &c); err != nil {
			batch.skip("country #%d: %v", i, err)
			continue
		}
		if c.Name == "" {
			batch.skip("country #%d has no name", i)
			continue
		}

		base := domain.CityRecord{
			CountryCode: c.ISO3.String(),
			CountryName: c.Name.String(),
			CountryID:   c.ID.String(),
			Region:      c.Region.String(),
			Subregion:   c.Subregion.String(),
		}

		cities := make([]domain.CityRecord, 0, len(c.Cities))
		for j, cityRaw := range c.Cities {
			var nc nestedCity
			if !isObject(cityRaw) || json.Unmarshal(cityRaw, &nc) != nil || nc.Name == "" {
				batch.skip("country %q city #%d", c.Name, j)
				continue
			}
			rec := base
			rec.Name = nc.Name.String()
			rec.Latitude = nc.Latitude.v
			rec.Longitude = nc.Longitude.v
			rec.HasCoordinates = nc.Latitude.ok && nc.Longitude.ok
			cities = append(cities, rec)
		}

		if c.Capital != "" {
			capital := base
			capital.Name = c.Capital.String()
			capital.Capital = true
			want := domain.NormalizeKey(capital.Name)
			for j, rec := range cities {
				if domain.NormalizeKey(rec.Name) == want {
					capital.Latitude = rec.Latitude
					capital.Longitude = rec.Longitude
					capital.HasCoordinates = rec.HasCoordinates
					cities = append(cities[:j], cities[j+1:]...)
					break
				}
			}
			batch.Records = append(batch.Records, capital)
		}
		batch.Records = append(batch.Records, cities...)
	}
	return batch, nil
}
