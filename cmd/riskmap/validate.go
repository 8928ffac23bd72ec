package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

// errValidationFailed is returned when any phase reports errors.
var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// sourceReport is one parsed source ready for checking.
type sourceReport struct {
	source string
	parsed domain.ParseResult
}

func cmdValidate() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check CSV sources for rows the explorer would drop or misplace",
		ArgsUsage: "[source ...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if args := c.Args().Slice(); len(args) > 0 {
				cfg.CSVSources = args
			}

			reports, err := parseSources(ctx, cfg)
			if err != nil {
				return err
			}
			return runValidation(os.Stdout, reports)
		},
	}
}

func parseSources(ctx context.Context, cfg *config.Config) ([]sourceReport, error) {
	if len(cfg.CSVSources) == 0 {
		return nil, errors.New("no csv sources given")
	}
	sources, err := newResolver(ctx, cfg).ResolveAll(cfg.CSVSources)
	if err != nil {
		return nil, err
	}

	out := make([]sourceReport, 0, len(sources))
	for _, src := range sources {
		rc, err := src.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		parsed, err := domain.Parse(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src.Source(), err)
		}
		out = append(out, sourceReport{source: src.Source(), parsed: parsed})
	}
	return out, nil
}

func runValidation(out io.Writer, reports []sourceReport) error {
	fmt.Fprintln(out, "=== Risk Asset CSV Validation ===")
	fmt.Fprintln(out)

	phases := []*phase{
		validateRows(reports),
		validateCoordinates(reports),
		validateFactors(reports),
		validateYears(reports),
	}

	allPassed := true
	for _, p := range phases {
		status := color.GreenString("PASS")
		if !p.passed() {
			status = color.RedString("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	rows, records := 0, 0
	for _, r := range reports {
		rows += r.parsed.Rows
		records += len(r.parsed.Records)
	}
	fmt.Fprintf(out, "Rows: %d read, %d parsed, %d sources\n", rows, records, len(reports))
	printDecades(out, reports)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return nil
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return errValidationFailed
}

// validateRows reports rows the parser rejected.
func validateRows(reports []sourceReport) *phase {
	p := &phase{name: "Row parsing"}
	for _, r := range reports {
		for _, rowErr := range r.parsed.Errors {
			p.errorf("%s: %v", r.source, rowErr)
		}
	}
	return p
}

// validateCoordinates reports records that will not appear on the map.
func validateCoordinates(reports []sourceReport) *phase {
	p := &phase{name: "Map coordinates"}
	for _, r := range reports {
		for _, rec := range r.parsed.Records {
			if _, ok := domain.MarkerFor(rec); !ok {
				p.errorf("%s: %q has no usable coordinates (lat=%q long=%q)",
					r.source, rec.AssetName, rec.Text.Lat, rec.Text.Long)
			}
		}
	}
	return p
}

// validateFactors reports factor sets the table filter cannot handle: keys
// outside the fixed set, which are always filtered out, and severities
// outside [0, 1], which no range can select.
func validateFactors(reports []sourceReport) *phase {
	p := &phase{name: "Risk factors"}
	for _, r := range reports {
		for _, rec := range r.parsed.Records {
			for _, pair := range domain.FactorPairs(rec.RiskFactors) {
				if !domain.IsFactor(pair.Name) {
					p.errorf("%s: %q has unknown factor %q", r.source, rec.AssetName, pair.Name)
					continue
				}
				if math.IsNaN(pair.Value) || pair.Value < 0 || pair.Value > 1 {
					p.errorf("%s: %q has %s severity %g outside [0, 1]", r.source, rec.AssetName, pair.Name, pair.Value)
				}
			}
		}
	}
	return p
}

// validateYears reports non-positive years. year % decade is then below ten
// for every positive decade, so the record shows up in every window.
func validateYears(reports []sourceReport) *phase {
	p := &phase{name: "Years"}
	for _, r := range reports {
		for _, rec := range r.parsed.Records {
			if rec.Year <= 0 {
				p.errorf("%s: %q has year %d, which matches every decade window", r.source, rec.AssetName, rec.Year)
			}
		}
	}
	return p
}

func printDecades(out io.Writer, reports []sourceReport) {
	counts := make(map[int]int)
	for _, r := range reports {
		for _, rec := range r.parsed.Records {
			counts[rec.Year-((rec.Year%10)+10)%10]++
		}
	}
	decades := make([]int, 0, len(counts))
	for d := range counts {
		decades = append(decades, d)
	}
	slices.Sort(decades)
	for _, d := range decades {
		fmt.Fprintf(out, "  years %d-%d: %d records\n", d, d+9, counts[d])
	}
}
