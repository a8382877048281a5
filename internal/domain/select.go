package domain

import "sort"

// Criteria narrows the reference city set down to the cities the run will
// look up weather for.
type Criteria struct {
	// Countries lists target country display names. Nil means every country.
	Countries []string
	// CapitalsOnly keeps only records flagged as a country's capital.
	CapitalsOnly bool
	// PerCountry caps the number of cities kept per country. Zero or less
	// means no cap.
	PerCountry int
}

// SelectCities returns the cities matching c, in source order, keeping at
// most c.PerCountry per country name. A target country with no cities simply
// contributes no rows.
func SelectCities(cities []CityRecord, c Criteria) []CityRecord {
	var targets map[string]struct{}
	if c.Countries != nil {
		targets = make(map[string]struct{}, len(c.Countries))
		for _, name := range c.Countries {
			if k := NormalizeKey(name); k != "" {
				targets[k] = struct{}{}
			}
		}
	}

	perCountry := make(map[string]int)
	selected := make([]CityRecord, 0)
	for _, city := range cities {
		country := NormalizeKey(city.CountryName)
		if targets != nil {
			if _, ok := targets[country]; !ok {
				continue
			}
		}
		if c.CapitalsOnly && !city.Capital {
			continue
		}
		if c.PerCountry > 0 && perCountry[country] >= c.PerCountry {
			continue
		}
		perCountry[country]++
		selected = append(selected, city)
	}
	return selected
}

// TopCountriesByDeaths returns the display names of the n countries with the
// most total deaths. Aggregate rows (no continent) are ignored, a missing
// death count ranks as zero and ties keep source order.
func TopCountriesByDeaths(stats []CountryStat, n int) []string {
	if n <= 0 {
		return nil
	}

	ranked := make([]CountryStat, 0, len(stats))
	for _, s := range stats {
		if s.Continent == "" || s.Location == "" {
			continue
		}
		ranked = append(ranked, s)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return valueOrZero(ranked[i].TotalDeaths) > valueOrZero(ranked[j].TotalDeaths)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.Location
	}
	return names
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
