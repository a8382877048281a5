//go:build openweather

package openweather

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real OpenWeather API and require a valid WEATHER_KEY env var.
// Run with: go test -tags=openweather ./internal/adapter/openweather/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("WEATHER_KEY")
	if key == "" {
		t.Fatal("WEATHER_KEY must be set to run smoke tests")
	}
	return NewClient(key, Options{Timeout: 10 * time.Second}, testLogger(), observability.NewMetricsForTesting())
}

func TestSmoke_CurrentByName(t *testing.T) {
	c := smokeClient(t)

	cond, err := c.CurrentByName(context.Background(), "Austin")
	require.NoError(t, err)

	assert.NotEmpty(t, cond.Description)
	require.NotNil(t, cond.MinTemperature)
	assert.Greater(t, *cond.MinTemperature, -60.0)
}

func TestSmoke_CurrentByCoordinates(t *testing.T) {
	c := smokeClient(t)

	cond, err := c.CurrentByCoordinates(context.Background(), 30.2672, -97.7431)
	require.NoError(t, err)
	assert.NotEmpty(t, cond.Description)
}

func TestSmoke_UnknownCityIsMiss(t *testing.T) {
	c := smokeClient(t)

	_, err := c.CurrentByName(context.Background(), "XYZNONEXISTENT99")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLookupMiss)
}

func TestSmoke_CachedProvider(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedProvider(c, 10, observability.NewMetricsForTesting())

	r1, err := cached.CurrentByName(context.Background(), "Dallas")
	require.NoError(t, err)

	r2, err := cached.CurrentByName(context.Background(), "Dallas")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
