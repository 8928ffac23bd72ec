package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces messages to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

func newWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// NewRecordWriter creates a producer for the parsed record topic.
// It implements pipeline.RecordPublisher.
func NewRecordWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return newWriter(cfg.KafkaBrokers, cfg.KafkaRecordTopic, logger)
}

// NewChunkWriter creates a producer for the CSV chunk topic.
func NewChunkWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return newWriter(cfg.KafkaBrokers, cfg.KafkaChunkTopic, logger)
}

// PublishRecords serializes records to JSON and writes them in a single
// WriteMessages call, keyed by asset name.
func (w *Writer) PublishRecords(ctx context.Context, source string, records []domain.AssetRecord) error {
	if len(records) == 0 {
		return nil
	}
	loadedAt := domain.Now()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeRecord(records[i], source, loadedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish records: %w", err)
	}
	w.logger.Debug("records published", "source", source, "count", len(msgs))
	return nil
}

// PublishChunk writes one CSV document, header row included, as a single message.
func (w *Writer) PublishChunk(ctx context.Context, key string, csv []byte) error {
	msg := kafkago.Message{
		Key:   []byte(key),
		Value: csv,
		Headers: []kafkago.Header{
			{Key: "content_type", Value: []byte("text/csv")},
		},
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish chunk: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeRecord marshals an AssetRecord into a Kafka message.
func serializeRecord(r domain.AssetRecord, source string, loadedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize asset record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.AssetName),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(source)},
			{Key: "year", Value: []byte(strconv.Itoa(r.Year))},
			{Key: "loaded_at", Value: []byte(loadedAt.Format(time.RFC3339))},
		},
	}, nil
}
