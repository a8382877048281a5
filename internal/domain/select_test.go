package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func city(name, countryCode, countryName string) CityRecord {
	return CityRecord{Name: name, CountryCode: countryCode, CountryName: countryName}
}

func ptr(v float64) *float64 { return &v }

func TestSelectCities_FiltersAndCaps(t *testing.T) {
	var cities []CityRecord
	for i := range 12 {
		cities = append(cities, city(fmt.Sprintf("US-%02d", i), "US", "United States"))
	}
	cities = append(cities,
		city("Berlin", "DE", "Germany"),
		city("Recife", "BR", "Brazil"),
		city("Salvador", "BR", "Brazil"),
	)

	got := SelectCities(cities, Criteria{
		Countries:  []string{"United States", "Brazil", "India"},
		PerCountry: 10,
	})

	require.Len(t, got, 12)
	perCountry := map[string]int{}
	for _, c := range got {
		perCountry[c.CountryName]++
		assert.NotEqual(t, "Germany", c.CountryName, "country outside target list")
	}
	assert.Equal(t, 10, perCountry["United States"])
	assert.Equal(t, 2, perCountry["Brazil"])
	assert.Zero(t, perCountry["India"], "target with no cities yields no rows")
}

func TestSelectCities_KeepsSourceOrder(t *testing.T) {
	cities := []CityRecord{
		city("Zanesville", "US", "United States"),
		city("Akron", "US", "United States"),
		city("Mumbai", "IN", "India"),
		city("Boston", "US", "United States"),
	}

	got := SelectCities(cities, Criteria{Countries: []string{"United States", "India"}, PerCountry: 2})

	names := make([]string, len(got))
	for i, c := range got {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Zanesville", "Akron", "Mumbai"}, names)
}

func TestSelectCities_NormalizedCountryMatch(t *testing.T) {
	cities := []CityRecord{city("Delhi", "IN", " india ")}
	got := SelectCities(cities, Criteria{Countries: []string{"India"}})
	assert.Len(t, got, 1)
}

func TestSelectCities_EmptyTargetListSelectsNothing(t *testing.T) {
	cities := []CityRecord{city("Delhi", "IN", "India")}
	assert.Empty(t, SelectCities(cities, Criteria{Countries: []string{}}))
}

func TestSelectCities_NilTargetsAndCapitalsOnly(t *testing.T) {
	cities := []CityRecord{
		{Name: "Kabul", CountryCode: "AFG", CountryName: "Afghanistan", Capital: true},
		{Name: "Herat", CountryCode: "AFG", CountryName: "Afghanistan"},
		{Name: "Tirana", CountryCode: "ALB", CountryName: "Albania", Capital: true},
	}

	got := SelectCities(cities, Criteria{CapitalsOnly: true, PerCountry: 1})
	require.Len(t, got, 2)
	assert.Equal(t, "Kabul", got[0].Name)
	assert.Equal(t, "Tirana", got[1].Name)
}

func TestTopCountriesByDeaths(t *testing.T) {
	stats := []CountryStat{
		{Code: "BRA", Continent: "South America", Location: "Brazil", TotalDeaths: ptr(702116)},
		{Code: "OWID_WRL", Location: "World", TotalDeaths: ptr(7010681)},
		{Code: "IND", Continent: "Asia", Location: "India", TotalDeaths: ptr(533570)},
		{Code: "USA", Continent: "North America", Location: "United States", TotalDeaths: ptr(1193165)},
		{Code: "XKX", Continent: "Europe", Location: "Kosovo"},
	}

	assert.Equal(t, []string{"United States", "Brazil", "India"}, TopCountriesByDeaths(stats, 3))
	assert.Len(t, TopCountriesByDeaths(stats, 10), 4)
	assert.Nil(t, TopCountriesByDeaths(stats, 0))
}
