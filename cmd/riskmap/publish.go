package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	kafkaadapter "github.com/couchcryptid/risk-asset-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/observability"
	"github.com/urfave/cli/v3"
)

func cmdPublish() *cli.Command {
	var rowsPerChunk int

	return &cli.Command{
		Name:      "publish",
		Aliases:   []string{"p"},
		Usage:     "Split CSV sources into chunks and publish them to KAFKA_CHUNK_TOPIC",
		ArgsUsage: "[source ...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "rows",
				Usage:       "data rows per chunk; 0 publishes each source as one chunk",
				Value:       500,
				Destination: &rowsPerChunk,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if args := c.Args().Slice(); len(args) > 0 {
				cfg.CSVSources = args
			}
			if len(cfg.CSVSources) == 0 {
				return errors.New("no csv sources given")
			}
			logger := observability.NewStderrLogger(cfg)

			sources, err := newResolver(ctx, cfg).ResolveAll(cfg.CSVSources)
			if err != nil {
				return err
			}

			w := kafkaadapter.NewChunkWriter(cfg, logger)
			defer w.Close()

			for _, src := range sources {
				rc, err := src.Fetch(ctx)
				if err != nil {
					return err
				}
				chunks, skipped, err := splitCSV(rc, rowsPerChunk)
				rc.Close()
				if err != nil {
					return fmt.Errorf("split %s: %w", src.Source(), err)
				}
				if skipped > 0 {
					logger.Warn("unreadable csv rows skipped", "source", src.Source(), "count", skipped)
				}

				base := filepath.Base(src.Source())
				for i, chunk := range chunks {
					key := fmt.Sprintf("%s#%d", base, i)
					if err := w.PublishChunk(ctx, key, chunk); err != nil {
						return err
					}
				}
				logger.Info("source published", "source", src.Source(), "chunks", len(chunks), "topic", cfg.KafkaChunkTopic)
			}
			return nil
		},
	}
}

// splitCSV re-encodes a CSV document as chunks of at most n data rows, each
// starting with the original header. n <= 0 yields a single chunk. Rows the
// CSV reader rejects are skipped and counted, matching domain.Parse.
func splitCSV(r io.Reader, n int) ([][]byte, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	var (
		chunks [][]byte
		buf    bytes.Buffer
		cw     *csv.Writer
		rows   int
		skip   int
	)
	flush := func() error {
		if cw == nil {
			return nil
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		chunks = append(chunks, bytes.Clone(buf.Bytes()))
		buf.Reset()
		cw, rows = nil, 0
		return nil
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			skip++
			continue
		}
		if err != nil {
			return nil, skip, err
		}
		if cw == nil {
			cw = csv.NewWriter(&buf)
			if err := cw.Write(header); err != nil {
				return nil, skip, err
			}
		}
		if err := cw.Write(row); err != nil {
			return nil, skip, err
		}
		rows++
		if n > 0 && rows >= n {
			if err := flush(); err != nil {
				return nil, skip, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, skip, err
	}
	return chunks, skip, nil
}
