package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/config"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func austinRow(now time.Time) domain.JoinedRow {
	return domain.JoinedRow{
		Stat: domain.CountryStat{Code: "USA", Location: "United States", TotalDeaths: ptr(1193165)},
		Weather: &domain.WeatherObservation{
			City:           domain.CityRecord{Name: "Austin", State: "Texas", Latitude: 30.27, Longitude: -97.74, HasCoordinates: true},
			Condition:      "clear sky",
			MinTemperature: ptr(20.1),
			Source:         domain.LookupByName,
		},
		ProcessedAt: now,
	}
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

	msg, err := serializeToMessage(austinRow(now), "run-1")
	require.NoError(t, err)

	assert.Equal(t, []byte("USA|Austin"), msg.Key)
	assert.Contains(t, string(msg.Value), `"city":"Austin"`)
	assert.Contains(t, string(msg.Value), `"lookup_source":"name"`)
	assert.Contains(t, string(msg.Value), `"max_temperature":null`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "country", msg.Headers[0].Key)
	assert.Equal(t, []byte("USA"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded domain.RowMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "United States", decoded.Country)
	require.NotNil(t, decoded.Latitude)
	assert.InDelta(t, 30.27, *decoded.Latitude, 1e-9)
	assert.True(t, now.Equal(decoded.ProcessedAt))
}

func TestSerializeToMessage_UnmatchedRow(t *testing.T) {
	row := domain.JoinedRow{Stat: domain.CountryStat{Code: "IND", Location: "India"}}

	msg, err := serializeToMessage(row, "run-2")
	require.NoError(t, err)

	assert.Equal(t, []byte("IND|"), msg.Key)
	assert.NotContains(t, string(msg.Value), `"city"`)
	assert.Contains(t, string(msg.Value), `"latitude":null`)
}

func TestWriter_WritePublishesEveryRow(t *testing.T) {
	rec := &recordingWriter{}
	w := &Writer{writer: rec, runID: "run-3", logger: discardLogger()}

	rows := []domain.JoinedRow{austinRow(time.Now()), {Stat: domain.CountryStat{Code: "IND"}}}
	require.NoError(t, w.Write(context.Background(), rows))

	require.Len(t, rec.msgs, 2)
	assert.Equal(t, "USA|Austin", string(rec.msgs[0].Key))
	assert.Equal(t, "IND|", string(rec.msgs[1].Key))

	require.NoError(t, w.Close())
	assert.True(t, rec.closed)
}

func TestWriter_EmptyTableIsNoop(t *testing.T) {
	rec := &recordingWriter{err: errors.New("must not be called")}
	w := &Writer{writer: rec, logger: discardLogger()}

	assert.NoError(t, w.Write(context.Background(), nil))
}

func TestWriter_PropagatesBrokerError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("leader not available")}
	w := &Writer{writer: rec, logger: discardLogger()}

	err := w.Write(context.Background(), []domain.JoinedRow{austinRow(time.Now())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"broker1:9092"}, KafkaTopic: "rows"}

	w := NewWriter(cfg, "run-4", discardLogger())
	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "rows", kw.Topic)
	assert.Equal(t, "kafka", w.Name())
}
