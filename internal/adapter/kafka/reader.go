package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes CSV chunks from a Kafka topic.
// It implements pipeline.ChunkExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a consumer-group reader for the configured chunk topic.
// Offsets are committed explicitly after each chunk is ingested.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaChunkTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
		MaxBytes:    10e6,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize chunks, returning early with whatever
// has arrived once the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawChunk, error) {
	batchCtx := ctx
	if r.flushInterval > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, r.flushInterval)
		defer cancel()
	}

	chunks := make([]domain.RawChunk, 0, batchSize)
	for len(chunks) < batchSize {
		msg, err := r.reader.FetchMessage(batchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return chunks, fmt.Errorf("fetch chunk: %w", err)
		}
		chunk := mapMessageToRawChunk(msg)
		chunk.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) > 0 {
		r.logger.Debug("chunk batch extracted", "count", len(chunks))
	}
	return chunks, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToRawChunk(msg kafkago.Message) domain.RawChunk {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawChunk{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
