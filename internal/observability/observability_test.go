package observability

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID_IsUUID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_JSONCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", slog.LevelInfo, "run-123")

	logger.Info("pipeline started", "cities", 3)
	logger.Debug("suppressed")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-123"`)
	assert.Contains(t, out, `"cities":3`)
	assert.NotContains(t, out, "suppressed")
}

func TestNewLogger_TextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "text", slog.LevelDebug, "run-456")

	logger.Debug("resolving city", "city", "Austin")

	out := buf.String()
	assert.Contains(t, out, "resolving city")
	assert.Contains(t, out, "run-456")
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.RowsWritten.WithLabelValues("csv").Add(3)
	m.CitiesDropped.Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsWritten.WithLabelValues("csv")), 0)

	path := filepath.Join(t.TempDir(), "etl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `city_weather_etl_rows_written_total{sink="csv"} 3`)
	assert.Contains(t, string(data), "city_weather_etl_cities_dropped_total 1")
}
