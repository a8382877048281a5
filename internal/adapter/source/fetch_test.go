package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFetcher_LocalPath(t *testing.T) {
	path := writeFile(t, "cities.json", `[]`)
	f := NewFetcher(time.Second, testLogger())

	data, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	data, err = f.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestFetcher_MissingFile(t *testing.T) {
	f := NewFetcher(time.Second, testLogger())
	_, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"USA":{}}`))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, testLogger())

	data, err := f.Fetch(context.Background(), srv.URL+"/latest.json")
	require.NoError(t, err)
	assert.Equal(t, `{"USA":{}}`, string(data))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "404")
}

func TestFetcher_HTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(50*time.Millisecond, testLogger())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestLoader_CountsLoadedAndSkipped(t *testing.T) {
	covid := writeFile(t, "covid.json", covidDoc)
	cities := writeFile(t, "countries.json", `[{"name": "India", "iso3": "IND", "capital": "New Delhi"}, 7]`)
	m := observability.NewMetricsForTesting()

	l := NewLoader(NewFetcher(time.Second, testLogger()), covid, cities, SchemaCountries, testLogger(), m)

	stats, err := l.CountryStats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats, 3)

	recs, err := l.Cities(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Capital)

	assert.InDelta(t, 3, testutil.ToFloat64(m.SourceRecords.WithLabelValues("covid", "loaded")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SourceRecords.WithLabelValues("covid", "skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourceRecords.WithLabelValues("cities", "skipped")), 0)
}

func TestLoader_MalformedDocumentIsFatal(t *testing.T) {
	covid := writeFile(t, "covid.json", `not json`)
	l := NewLoader(NewFetcher(time.Second, testLogger()), covid, covid, SchemaCities, testLogger(), observability.NewMetricsForTesting())

	_, err := l.CountryStats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
