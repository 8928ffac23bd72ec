package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	httpadapter "github.com/couchcryptid/risk-asset-explorer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/risk-asset-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/observability"
	"github.com/couchcryptid/risk-asset-explorer/internal/pipeline"
	"github.com/couchcryptid/risk-asset-explorer/internal/session"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Load CSV sources, optionally consume CSV chunks from Kafka, and serve the API",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	records := store.New()

	loaderOpts := []pipeline.LoaderOption{pipeline.WithTimeout(cfg.FetchTimeout)}
	var publisher *kafkaadapter.Writer
	if cfg.KafkaEnabled && cfg.KafkaRecordTopic != "" {
		publisher = kafkaadapter.NewRecordWriter(cfg, logger)
		loaderOpts = append(loaderOpts, pipeline.WithPublisher(publisher))
		logger.Info("record publishing enabled", "topic", cfg.KafkaRecordTopic)
	}
	loader := pipeline.NewLoader(records, logger, metrics, loaderOpts...)

	var ready anyReady
	var serverOpts []httpadapter.Option
	serverOpts = append(serverOpts, httpadapter.WithLoadStatus(loadStatus{loader: loader, store: records}))

	if len(cfg.CSVSources) > 0 {
		reloader := &csvReloader{loader: loader, resolver: newResolver(ctx, cfg), uris: cfg.CSVSources}
		reports, err := reloader.Reload(ctx)
		logReports(logger, reports)
		if err != nil {
			// Keep serving: readiness and /api/state report the failure.
			logger.Error("initial load incomplete", "error", err)
		}
		ready = append(ready, loader)
		serverOpts = append(serverOpts, httpadapter.WithReloader(reloader))
	}

	var reader *kafkaadapter.Reader
	streamDone := make(chan struct{})
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		streamer := pipeline.NewStreamer(reader, loader, logger, metrics, cfg.BatchSize)
		ready = append(ready, streamer)

		go func() {
			defer close(streamDone)
			if err := streamer.Run(ctx); err != nil {
				logger.Error("chunk stream error", "error", err)
			}
		}()
	} else {
		close(streamDone)
	}

	ctrl := session.New(records, cfg.DefaultDecade, cfg.ViewCacheSize, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ctrl, ready, logger, serverOpts...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-streamDone
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
