package domain

import "time"

// CountryStat is one country's pandemic statistics from the aggregator.
// Numeric fields are nil when the source leaves them empty.
type CountryStat struct {
	Code                  string   `json:"code"`
	Continent             string   `json:"continent,omitempty"`
	Location              string   `json:"location"`
	LastUpdatedDate       string   `json:"last_updated_date,omitempty"`
	TotalCases            *float64 `json:"total_cases,omitempty"`
	NewCases              *float64 `json:"new_cases,omitempty"`
	TotalDeaths           *float64 `json:"total_deaths,omitempty"`
	NewDeaths             *float64 `json:"new_deaths,omitempty"`
	TotalCasesPerMillion  *float64 `json:"total_cases_per_million,omitempty"`
	TotalDeathsPerMillion *float64 `json:"total_deaths_per_million,omitempty"`
	HospPatients          *float64 `json:"hosp_patients,omitempty"`
}

// CityRecord is a city from the reference dataset.
type CityRecord struct {
	Name           string  `json:"name"`
	CountryCode    string  `json:"country_code"`
	CountryName    string  `json:"country_name"`
	State          string  `json:"state,omitempty"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	HasCoordinates bool    `json:"-"`

	// Populated from the nested countries+cities shape only.
	CountryID string `json:"country_id,omitempty"`
	Capital   bool   `json:"capital,omitempty"`
	Region    string `json:"region,omitempty"`
	Subregion string `json:"subregion,omitempty"`
}

// Key returns the (city, country) identity of the record.
func (c CityRecord) Key() string {
	return c.Name + "|" + c.CountryCode
}

// LookupStrategy names the weather lookup that produced an observation.
type LookupStrategy string

const (
	LookupByName        LookupStrategy = "name"
	LookupByCoordinates LookupStrategy = "coordinates"
)

// CurrentConditions is the part of a provider response the pipeline keeps.
type CurrentConditions struct {
	Description    string
	MinTemperature *float64
	MaxTemperature *float64
}

// WeatherObservation is the current weather resolved for one selected city.
type WeatherObservation struct {
	City           CityRecord     `json:"city"`
	Condition      string         `json:"condition"`
	MinTemperature *float64       `json:"min_temperature,omitempty"`
	MaxTemperature *float64       `json:"max_temperature,omitempty"`
	Source         LookupStrategy `json:"source"`
}

// JoinedRow is one output row: a country's statistics plus, when matched,
// one city's weather.
type JoinedRow struct {
	Stat        CountryStat         `json:"stat"`
	Weather     *WeatherObservation `json:"weather,omitempty"`
	ProcessedAt time.Time           `json:"processed_at"`
}
