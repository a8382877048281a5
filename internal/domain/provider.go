package domain

import "context"

// WeatherProvider looks up current weather conditions.
//
// Implementations return an error wrapping ErrLookupMiss for any response
// that does not carry usable current conditions. The resolver treats every
// error as a miss.
type WeatherProvider interface {
	// CurrentByName queries by free-text location name.
	CurrentByName(ctx context.Context, name string) (CurrentConditions, error)

	// CurrentByCoordinates queries by latitude/longitude.
	CurrentByCoordinates(ctx context.Context, lat, lon float64) (CurrentConditions, error)
}
