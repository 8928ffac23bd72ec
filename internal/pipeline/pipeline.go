package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/observability"
)

// ChunkExtractor reads up to batchSize CSV chunks from a stream.
type ChunkExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawChunk, error)
}

// Streamer feeds CSV chunks from a stream into the loader, one batch per chunk.
type Streamer struct {
	extractor ChunkExtractor
	loader    *Loader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// NewStreamer creates a Streamer.
func NewStreamer(e ChunkExtractor, l *Loader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Streamer {
	return &Streamer{
		extractor: e,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once at least one chunk has been ingested.
func (s *Streamer) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("stream has not ingested any chunks yet")
	}
	return nil
}

// Run consumes chunks until the context is cancelled.
func (s *Streamer) Run(ctx context.Context) error {
	s.logger.Info("stream started", "batch_size", s.batchSize)
	s.metrics.StreamRunning.Set(1)
	defer s.metrics.StreamRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stream stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !s.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-parse-append cycle. Returns false if the stream should stop.
func (s *Streamer) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	chunks, err := s.extractor.ExtractBatch(ctx, s.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.logger.Error("extract batch failed", "error", err)
		return s.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(chunks) == 0 {
		return ctx.Err() == nil
	}

	s.metrics.ChunksConsumed.Add(float64(len(chunks)))
	s.metrics.BatchSize.Observe(float64(len(chunks)))
	*backoff = 200 * time.Millisecond

	for _, chunk := range chunks {
		s.ingestChunk(ctx, chunk)
	}
	return true
}

// ingestChunk parses and appends one chunk, then commits its offset. An
// unreadable chunk is skipped and committed so it is not redelivered.
func (s *Streamer) ingestChunk(ctx context.Context, chunk domain.RawChunk) {
	parsed, err := domain.Parse(bytes.NewReader(chunk.Value))
	if err != nil {
		s.logger.Warn("unreadable chunk, skipping",
			"error", err,
			"topic", chunk.Topic,
			"partition", chunk.Partition,
			"offset", chunk.Offset,
		)
		s.metrics.ChunkErrors.Inc()
		s.commitOffset(ctx, chunk)
		return
	}

	s.loader.Ingest(ctx, chunk.Source(), parsed)
	s.ready.Store(true)
	s.commitOffset(ctx, chunk)
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the stream should stop.
func (s *Streamer) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (s *Streamer) commitOffset(ctx context.Context, chunk domain.RawChunk) {
	if chunk.Commit == nil {
		return
	}
	if err := chunk.Commit(ctx); err != nil {
		s.logger.Warn("commit offset failed", "error", err,
			"topic", chunk.Topic, "partition", chunk.Partition, "offset", chunk.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
