package openweather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey           = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"

	austinPayload = `{"coord":{"lon":-97.74,"lat":30.27},"weather":[{"id":800,"main":"Clear","description":"clear sky"}],` +
		`"main":{"temp":22.4,"temp_min":20.1,"temp_max":25.3},"name":"Austin","cod":200}`
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return NewClient(testKey, Options{BaseURL: baseURL, Timeout: 5 * time.Second}, testLogger(), testMetrics())
}

func jsonHandler(t *testing.T, status int, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestClient_CurrentByName_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Austin", q.Get("q"))
		assert.Equal(t, testKey, q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Empty(t, q.Get("lat"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(austinPayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	cond, err := c.CurrentByName(context.Background(), "Austin")
	require.NoError(t, err)

	assert.Equal(t, "clear sky", cond.Description)
	require.NotNil(t, cond.MinTemperature)
	require.NotNil(t, cond.MaxTemperature)
	assert.InDelta(t, 20.1, *cond.MinTemperature, 0.0001)
	assert.InDelta(t, 25.3, *cond.MaxTemperature, 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.WeatherLookups.WithLabelValues("name", "hit")), 0)
}

func TestClient_CurrentByCoordinates_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-8.05", q.Get("lat"))
		assert.Equal(t, "-34.9", q.Get("lon"))
		assert.Equal(t, "imperial", q.Get("units"))
		assert.Empty(t, q.Get("q"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"weather":[{"description":"light rain"}],"main":{"temp_min":75.2,"temp_max":80.6},"cod":200}`))
	}))
	defer srv.Close()

	c := NewClient(testKey, Options{BaseURL: srv.URL, Units: "imperial", Timeout: 5 * time.Second}, testLogger(), testMetrics())
	cond, err := c.CurrentByCoordinates(context.Background(), -8.05, -34.9)
	require.NoError(t, err)
	assert.Equal(t, "light rain", cond.Description)
	assert.InDelta(t, 80.6, *cond.MaxTemperature, 0.0001)
}

func TestClient_MissClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found with string cod", http.StatusNotFound, `{"cod":"404","message":"city not found"}`},
		{"unauthorized", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`},
		{"ok status with error cod", http.StatusOK, `{"cod":"404","message":"city not found"}`},
		{"ok status without weather", http.StatusOK, `{"cod":200,"main":{"temp_min":1,"temp_max":2}}`},
		{"ok status with empty weather", http.StatusOK, `{"cod":200,"weather":[]}`},
		{"undecodable body", http.StatusOK, `<html>maintenance</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(t, tt.status, tt.body))
			defer srv.Close()

			c := testClient(srv.URL)
			_, err := c.CurrentByName(context.Background(), "Atlantis")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrLookupMiss)
			assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.WeatherLookups.WithLabelValues("name", "miss")), 0)
		})
	}
}

func TestClient_ErrorMessageCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusNotFound, `{"cod":"404","message":"city not found"}`))
	defer srv.Close()

	_, err := testClient(srv.URL).CurrentByName(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "city not found")
}

func TestClient_CodIsOptional(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"weather":[{"description":"mist"}],"main":{}}`))
	defer srv.Close()

	cond, err := testClient(srv.URL).CurrentByName(context.Background(), "Lima")
	require.NoError(t, err)
	assert.Equal(t, "mist", cond.Description)
	assert.Nil(t, cond.MinTemperature)
	assert.Nil(t, cond.MaxTemperature)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testKey, Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, testLogger(), testMetrics())

	_, err := c.CurrentByName(context.Background(), "Austin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLookupMiss)
}

func TestClient_OpenBreakerStillSendsRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testKey, Options{BaseURL: srv.URL, Timeout: 5 * time.Second, BreakerFailures: 2}, testLogger(), testMetrics())

	for range 4 {
		_, err := c.CurrentByName(context.Background(), "Austin")
		require.ErrorIs(t, err, domain.ErrLookupMiss)
	}
	assert.Equal(t, int32(4), hits.Load(), "every lookup reaches the provider")
}

func TestClient_ServerErrorBurstDoesNotDropLaterCities(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 5 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(austinPayload))
	}))
	defer srv.Close()

	c := NewClient(testKey, Options{BaseURL: srv.URL, Timeout: 5 * time.Second, BreakerFailures: 5}, testLogger(), testMetrics())

	cities := make([]domain.CityRecord, 10)
	for i := range cities {
		cities[i] = domain.CityRecord{
			Name:           fmt.Sprintf("City%d", i),
			CountryCode:    "US",
			CountryName:    "United States",
			Latitude:       float64(i),
			Longitude:      float64(i),
			HasCoordinates: true,
		}
	}

	result, err := domain.NewResolver(c, testLogger()).Resolve(context.Background(), cities)
	require.NoError(t, err)

	// The first five name lookups fail; their coordinate lookups and the
	// remaining name lookups succeed.
	assert.Len(t, result.Observations, 10)
	assert.Empty(t, result.Dropped)
	assert.Equal(t, 5, result.NameHits)
	assert.Equal(t, 5, result.CoordHits)
	assert.Equal(t, int32(15), hits.Load())
}

func TestNewClient_BreakerDisabledByDefault(t *testing.T) {
	c := testClient("http://unused")
	assert.Nil(t, c.breaker)
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	c := NewClient(testKey, Options{BaseURL: srv.URL, Timeout: 5 * time.Second, BreakerFailures: 1}, testLogger(), testMetrics())

	for range 3 {
		_, _ = c.CurrentByName(context.Background(), "Atlantis")
	}
	assert.Equal(t, int32(3), hits.Load())
}
