package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// CitySelector picks the cities to resolve, from a fixed target list or
// from the countries with the most deaths.
type CitySelector struct {
	criteria  domain.Criteria
	topByDead int
	logger    *slog.Logger
}

// NewCitySelector creates a CitySelector. When topByDeaths > 0 the target
// countries in criteria are replaced by the top countries of each run.
func NewCitySelector(criteria domain.Criteria, topByDeaths int, logger *slog.Logger) *CitySelector {
	return &CitySelector{
		criteria:  criteria,
		topByDead: topByDeaths,
		logger:    logger,
	}
}

// Select returns the selected cities in source order.
func (s *CitySelector) Select(stats []domain.CountryStat, cities []domain.CityRecord) []domain.CityRecord {
	criteria := s.criteria
	if s.topByDead > 0 {
		criteria.Countries = domain.TopCountriesByDeaths(stats, s.topByDead)
		s.logger.Info("target countries ranked by total deaths", "countries", criteria.Countries)
	}

	selected := domain.SelectCities(cities, criteria)

	perCountry := make(map[string]int, len(criteria.Countries))
	for _, c := range selected {
		perCountry[domain.NormalizeKey(c.CountryName)]++
	}
	for _, country := range criteria.Countries {
		if perCountry[domain.NormalizeKey(country)] == 0 {
			s.logger.Warn("no cities selected for target country", "country", country)
		}
	}
	s.logger.Info("cities selected",
		"selected", len(selected),
		"candidates", len(cities),
		"capitals_only", criteria.CapitalsOnly,
		"per_country", criteria.PerCountry,
	)
	return selected
}
