package domain

import "time"

// RowMessage is the JSON form of one joined row published to a message
// broker. Missing numbers are null.
type RowMessage struct {
	Country               string    `json:"country"`
	CountryCode           string    `json:"country_code"`
	Continent             string    `json:"continent,omitempty"`
	LastUpdated           string    `json:"last_updated,omitempty"`
	City                  string    `json:"city,omitempty"`
	State                 string    `json:"state,omitempty"`
	Latitude              *float64  `json:"latitude"`
	Longitude             *float64  `json:"longitude"`
	Condition             string    `json:"condition,omitempty"`
	MinTemperature        *float64  `json:"min_temperature"`
	MaxTemperature        *float64  `json:"max_temperature"`
	LookupSource          string    `json:"lookup_source,omitempty"`
	TotalCases            *float64  `json:"total_cases"`
	NewCases              *float64  `json:"new_cases"`
	TotalDeaths           *float64  `json:"total_deaths"`
	NewDeaths             *float64  `json:"new_deaths"`
	TotalCasesPerMillion  *float64  `json:"total_cases_per_million"`
	TotalDeathsPerMillion *float64  `json:"total_deaths_per_million"`
	HospPatients          *float64  `json:"hosp_patients"`
	ProcessedAt           time.Time `json:"processed_at"`
}

// NewRowMessage flattens r into its message form.
func NewRowMessage(r JoinedRow) RowMessage {
	s := r.Stat
	m := RowMessage{
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
		m.City = w.City.Name
		m.State = w.City.State
		if w.City.HasCoordinates {
			lat, lon := w.City.Latitude, w.City.Longitude
			m.Latitude, m.Longitude = &lat, &lon
		}
		m.Condition = w.Condition
		m.MinTemperature = w.MinTemperature
		m.MaxTemperature = w.MaxTemperature
		m.LookupSource = string(w.Source)
	}
	return m
}

// Key identifies the row as "<country code>|<city>". Unmatched rows have an
// empty city.
func (r JoinedRow) Key() string {
	city := ""
	if r.Weather != nil {
		city = r.Weather.City.Name
	}
	return r.Stat.Code + "|" + city
}
