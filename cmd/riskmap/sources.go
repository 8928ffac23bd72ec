package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/couchcryptid/risk-asset-explorer/internal/adapter/fetch"
	s3adapter "github.com/couchcryptid/risk-asset-explorer/internal/adapter/s3"
	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/pipeline"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
)

// newResolver builds a source resolver. The S3 client is created on first use
// so deployments without s3:// sources never touch AWS configuration.
func newResolver(ctx context.Context, cfg *config.Config) *fetch.Resolver {
	s3Client := sync.OnceValues(func() (*s3adapter.Client, error) {
		return s3adapter.NewClient(ctx, cfg)
	})
	return &fetch.Resolver{
		HTTPClient: http.DefaultClient,
		S3: func(uri string) (fetch.Source, error) {
			client, err := s3Client()
			if err != nil {
				return nil, err
			}
			obj, err := client.Open(uri)
			if err != nil {
				return nil, err
			}
			return obj, nil
		},
	}
}

// csvReloader loads a fixed list of source URIs through a Loader.
type csvReloader struct {
	loader   *pipeline.Loader
	resolver *fetch.Resolver
	uris     []string
}

// Reload resolves and loads every URI. A URI that cannot be resolved is
// reported by the loader as a failed source like any other fetch failure.
func (r *csvReloader) Reload(ctx context.Context) ([]pipeline.SourceReport, error) {
	fetchers := make([]pipeline.Fetcher, len(r.uris))
	for i, uri := range r.uris {
		src, err := r.resolver.Resolve(uri)
		if err != nil {
			fetchers[i] = unresolvedSource{uri: uri, err: err}
			continue
		}
		fetchers[i] = src
	}
	return r.loader.LoadAll(ctx, fetchers)
}

type unresolvedSource struct {
	uri string
	err error
}

func (s unresolvedSource) Fetch(context.Context) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, s.err)
}

func (s unresolvedSource) Source() string { return s.uri }

func logReports(logger *slog.Logger, reports []pipeline.SourceReport) {
	for _, rep := range reports {
		if rep.Error != "" {
			logger.Error("source failed", "source", rep.Source, "error", rep.Error)
			continue
		}
		logger.Info("source loaded",
			"source", rep.Source,
			"batch_id", rep.BatchID,
			"records", rep.Records,
			"dropped", rep.Dropped,
			"incomplete", rep.Incomplete,
		)
	}
}

type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// anyReady is ready as soon as one of its inputs is: records from either
// the CSV loader or the chunk stream are enough to serve views.
type anyReady []readinessChecker

func (a anyReady) CheckReadiness(ctx context.Context) error {
	errs := make([]error, 0, len(a))
	for _, c := range a {
		err := c.CheckReadiness(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no record source configured")
	}
	return errors.Join(errs...)
}

// loadStatus reports the last load error from the loader and the batch
// history from the store.
type loadStatus struct {
	loader *pipeline.Loader
	store  *store.Store
}

func (s loadStatus) LastError() error { return s.loader.LastError() }
func (s loadStatus) Batches() []store.Batch { return s.store.Batches() }
