package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/observability"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
	"golang.org/x/sync/errgroup"
)

// Fetcher opens one CSV resource.
type Fetcher interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
	Source() string
}

// RecordStore receives parsed records.
type RecordStore interface {
	Append(source string, records []domain.AssetRecord) store.Batch
	Len() int
}

// RecordPublisher forwards appended records downstream.
type RecordPublisher interface {
	PublishRecords(ctx context.Context, source string, records []domain.AssetRecord) error
}

// SourceReport summarizes one loaded source.
type SourceReport struct {
	Source     string `json:"source"`
	BatchID    string `json:"batch_id,omitempty"`
	Records    int    `json:"records"`
	Dropped    int    `json:"dropped"`
	Incomplete int    `json:"incomplete"`
	Error      string `json:"error,omitempty"`
}

// Loader fetches and parses CSV sources and appends the results to a store.
type Loader struct {
	store       RecordStore
	publisher   RecordPublisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	timeout     time.Duration
	concurrency int

	mu      sync.Mutex
	loaded  bool
	lastErr error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout bounds each fetch-and-parse. Zero means no timeout.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.timeout = d }
}

// WithPublisher forwards every appended batch to p.
func WithPublisher(p RecordPublisher) LoaderOption {
	return func(l *Loader) { l.publisher = p }
}

// WithConcurrency caps the number of sources fetched at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a Loader appending into s.
func NewLoader(s RecordStore, logger *slog.Logger, metrics *observability.Metrics, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:       s,
		logger:      logger,
		metrics:     metrics,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckReadiness returns nil once a load has completed without a fetch failure.
func (l *Loader) CheckReadiness(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastErr != nil {
		return fmt.Errorf("failed to load: %w", l.lastErr)
	}
	if !l.loaded {
		return errors.New("no csv source has been loaded yet")
	}
	return nil
}

// LastError returns the failure of the most recent LoadAll, if any.
func (l *Loader) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

type loadResult struct {
	source string
	parsed domain.ParseResult
	err    error
}

// LoadAll fetches and parses every source concurrently, then appends the
// successful ones in the given order. Failed sources contribute nothing; their
// errors are joined and returned, each wrapping domain.ErrFetchFailure.
func (l *Loader) LoadAll(ctx context.Context, sources []Fetcher) ([]SourceReport, error) {
	results := make([]loadResult, len(sources))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			parsed, err := l.fetchAndParse(ctx, src)
			l.metrics.LoadDuration.Observe(time.Since(start).Seconds())
			results[i] = loadResult{source: src.Source(), parsed: parsed, err: err}
			return nil
		})
	}
	_ = g.Wait()

	reports := make([]SourceReport, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.err != nil {
			l.metrics.Loads.WithLabelValues("failure").Inc()
			l.logger.Error("load failed", "source", r.source, "error", r.err)
			errs = append(errs, r.err)
			reports = append(reports, SourceReport{Source: r.source, Error: r.err.Error()})
			continue
		}
		l.metrics.Loads.WithLabelValues("success").Inc()
		batch := l.Ingest(ctx, r.source, r.parsed)
		reports = append(reports, SourceReport{
			Source:     r.source,
			BatchID:    batch.ID,
			Records:    len(r.parsed.Records),
			Dropped:    len(r.parsed.Errors),
			Incomplete: r.parsed.Incomplete,
		})
	}

	err := errors.Join(errs...)
	l.mu.Lock()
	l.loaded = true
	l.lastErr = err
	l.mu.Unlock()
	return reports, err
}

func (l *Loader) fetchAndParse(ctx context.Context, src Fetcher) (domain.ParseResult, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	rc, err := src.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
		}
		return domain.ParseResult{}, fmt.Errorf("load %s: %w", src.Source(), err)
	}
	defer rc.Close()

	parsed, err := domain.Parse(rc)
	if err != nil {
		return domain.ParseResult{}, fmt.Errorf("load %s: %w: %w", src.Source(), domain.ErrFetchFailure, err)
	}
	return parsed, nil
}

// Ingest logs dropped rows, appends the surviving records as one batch, and
// publishes them when a publisher is configured. Publish failures are logged
// and do not undo the append.
func (l *Loader) Ingest(ctx context.Context, source string, parsed domain.ParseResult) store.Batch {
	for _, rowErr := range parsed.Errors {
		l.logger.Warn("row dropped", "source", source, "row", rowErr.Row, "error", rowErr.Err)
		l.metrics.RowsDropped.WithLabelValues(dropReason(rowErr.Err)).Inc()
	}
	if parsed.Incomplete > 0 {
		l.logger.Warn("records missing risk factors", "source", source, "count", parsed.Incomplete)
	}
	l.metrics.RowsParsed.Add(float64(len(parsed.Records)))

	batch := l.store.Append(source, parsed.Records)
	l.metrics.RecordsStored.Set(float64(l.store.Len()))
	l.logger.Info("csv loaded",
		"source", source,
		"records", len(parsed.Records),
		"dropped", len(parsed.Errors),
		"batch_id", batch.ID,
	)

	if l.publisher != nil && len(parsed.Records) > 0 {
		if err := l.publisher.PublishRecords(ctx, source, parsed.Records); err != nil {
			l.logger.Warn("publish records failed", "source", source, "error", err)
		} else {
			l.metrics.RecordsPublished.Add(float64(len(parsed.Records)))
		}
	}
	return batch
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedRiskFactors):
		return "malformed_risk_factors"
	case errors.Is(err, domain.ErrMalformedYear):
		return "malformed_year"
	case errors.Is(err, domain.ErrColumnCount):
		return "column_count"
	default:
		return "csv"
	}
}
