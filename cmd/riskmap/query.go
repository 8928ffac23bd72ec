package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/risk-asset-explorer/internal/adapter/shapefile"
	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/observability"
	"github.com/couchcryptid/risk-asset-explorer/internal/pipeline"
	"github.com/couchcryptid/risk-asset-explorer/internal/session"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
	"github.com/urfave/cli/v3"
)

type queryOptions struct {
	decade    string
	sortKey   string
	order     string
	filters   []string
	asJSON    bool
	shapefile string
}

func cmdQuery() *cli.Command {
	var opts queryOptions

	return &cli.Command{
		Name:      "query",
		Aliases:   []string{"q"},
		Usage:     "Load CSV sources and print the table for one decade",
		ArgsUsage: "[source ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "decade",
				Usage:       "decade window, floored to a multiple of ten (default DEFAULT_DECADE)",
				Destination: &opts.decade,
			},
			&cli.StringFlag{
				Name:        "sort",
				Usage:       "sort column: " + sortKeyList(),
				Value:       string(domain.DefaultSort.Key),
				Destination: &opts.sortKey,
			},
			&cli.StringFlag{
				Name:        "order",
				Usage:       "sort order: asc or desc",
				Value:       domain.DefaultSort.Order.String(),
				Destination: &opts.order,
			},
			&cli.StringSliceFlag{
				Name:        "filter",
				Usage:       "factor range as Name=lo:hi, repeatable",
				Destination: &opts.filters,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the table view as JSON",
				Destination: &opts.asJSON,
			},
			&cli.StringFlag{
				Name:        "shapefile",
				Usage:       "also write the decade's map markers to this .shp path",
				Destination: &opts.shapefile,
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
			return runQuery(ctx, cfg, opts, observability.NewMetrics(), os.Stdout)
		},
	}
}

func runQuery(ctx context.Context, cfg *config.Config, opts queryOptions, metrics *observability.Metrics, out io.Writer) error {
	if len(cfg.CSVSources) == 0 {
		return errors.New("no csv sources given")
	}
	logger := observability.NewStderrLogger(cfg)

	records := store.New()
	loader := pipeline.NewLoader(records, logger, metrics, pipeline.WithTimeout(cfg.FetchTimeout))
	reloader := &csvReloader{loader: loader, resolver: newResolver(ctx, cfg), uris: cfg.CSVSources}
	reports, err := reloader.Reload(ctx)
	logReports(logger, reports)
	if err != nil {
		return err
	}

	ctrl := session.New(records, cfg.DefaultDecade, 0, logger, metrics)
	if err := applyQueryOptions(ctrl, opts); err != nil {
		return err
	}

	view, err := ctrl.Table()
	if err != nil {
		return err
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("encode table: %w", err)
		}
	} else if err := renderTable(out, ctrl.State().Window, view); err != nil {
		return err
	}

	if opts.shapefile != "" {
		return exportMarkers(ctrl, opts.shapefile, logger)
	}
	return nil
}

// applyQueryOptions drives the session controls the way a user would: submit
// the decade, edit factor ranges in the open panel, then click the sort header
// until the requested order is active.
func applyQueryOptions(ctrl *session.Controller, opts queryOptions) error {
	if opts.decade != "" {
		if _, err := ctrl.SubmitDecade(opts.decade); err != nil {
			return err
		}
	}

	if len(opts.filters) > 0 {
		ranges, err := parseFilters(opts.filters)
		if err != nil {
			return err
		}
		ctrl.OpenFilter()
		for _, name := range domain.FactorNames {
			iv, ok := ranges[name]
			if !ok {
				continue
			}
			if _, err := ctrl.SetFactorRange(name, iv); err != nil {
				return err
			}
		}
		ctrl.CloseFilter()
	}

	key, err := domain.ParseSortKey(opts.sortKey)
	if err != nil {
		return err
	}
	order, err := parseOrder(opts.order)
	if err != nil {
		return err
	}
	if ctrl.State().Sort == (domain.SortSpec{Key: key, Order: order}) {
		return nil
	}
	if ctrl.ClickSort(key).Sort.Order != order {
		ctrl.ClickSort(key)
	}
	return nil
}

func parseFilters(specs []string) (map[string]domain.Interval, error) {
	out := make(map[string]domain.Interval, len(specs))
	for _, spec := range specs {
		name, bounds, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: want Name=lo:hi", spec)
		}
		loText, hiText, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: want Name=lo:hi", spec)
		}
		name = strings.TrimSpace(name)
		if !domain.IsFactor(name) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFactor, name)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(loText), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", spec, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(hiText), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", spec, err)
		}
		iv, err := domain.NewInterval(lo, hi)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
		out[name] = iv
	}
	return out, nil
}

func parseOrder(s string) (domain.SortOrder, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return domain.Ascending, nil
	case "desc", "descending":
		return domain.Descending, nil
	default:
		return 0, fmt.Errorf("invalid sort order %q: want asc or desc", s)
	}
}

func sortKeyList() string {
	keys := make([]string, len(domain.SortKeys))
	for i, k := range domain.SortKeys {
		keys[i] = string(k)
	}
	return strings.Join(keys, ", ")
}

func renderTable(out io.Writer, window domain.TimeWindow, view session.TableView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := make([]string, 0, len(view.Columns)+1)
	for _, col := range view.Columns {
		header = append(header, strings.TrimSpace(col.Title+" "+col.Indicator))
	}
	header = append(header, "Risk Factors")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range view.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			row.AssetName, row.Lat, row.Long, row.BusinessCategory, row.RiskRating, row.Year,
			formatFactors(row.Factors))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	_, err := fmt.Fprintf(out, "\n%d rows for decade %d (%d in window, %d out of range, %d missing filter key, %d loaded)\n",
		len(view.Rows), window.Decade, view.InWindow, view.OutOfRange, view.MissingFilterKey, view.Total)
	return err
}

func formatFactors(pairs []domain.FactorPair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s: %g", p.Name, p.Value)
	}
	return strings.Join(parts, ", ")
}

func exportMarkers(ctrl *session.Controller, path string, logger *slog.Logger) error {
	view, err := ctrl.Map()
	if err != nil {
		return err
	}
	if err := shapefile.Export(path, view.Markers); err != nil {
		return err
	}
	logger.Info("shapefile written", "path", path, "markers", len(view.Markers), "skipped", view.Skipped)
	return nil
}
