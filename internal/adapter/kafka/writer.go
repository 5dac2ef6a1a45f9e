package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/config"
	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces forecasts to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes the forecasts in a single WriteMessages call. Messages
// are keyed by forecast ID so reruns of the same forecast land on the same
// partition.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.ForecastResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write forecasts: %w", err)
	}
	w.logger.Debug("forecasts published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ForecastResult into a Kafka message.
func serializeToMessage(result domain.ForecastResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast %s: %w", result.ID, err)
	}
	peak := ""
	if result.Summary.Peak != nil {
		peak = result.Summary.Peak.Category.Label
	}
	return kafkago.Message{
		Key:   []byte(result.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location", Value: []byte(domain.LocationKey(result.Location.Name))},
			{Key: "peak_category", Value: []byte(peak)},
			{Key: "issued_at", Value: []byte(result.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
