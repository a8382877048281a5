package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/config"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes each joined row as one message on the configured topic.
type Writer struct {
	writer messageWriter
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Write serializes and publishes rows in a single WriteMessages call.
func (w *Writer) Write(ctx context.Context, rows []domain.JoinedRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i], w.runID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka sink: %w", err)
	}
	w.logger.Debug("rows published", "rows", len(rows))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a joined row into a Kafka message.
func serializeToMessage(row domain.JoinedRow, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(domain.NewRowMessage(row))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %w", row.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(row.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "country", Value: []byte(row.Stat.Code)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "processed_at", Value: []byte(row.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
