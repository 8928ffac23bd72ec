// Command gensample writes a deterministic climate risk asset CSV for local
// runs and demos. The output is parsed back with the domain parser so the
// fixture always matches what the explorer accepts.
//
// Usage:
//
//	go run ./cmd/gensample -out sample_data.csv -rows 200 -seed 7
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
)

var header = []string{"Asset Name", "Lat", "Long", "Business Category", "Risk Rating", "Risk Factors", "Year"}

var (
	companies  = []string{"Ball", "Ward", "Hill", "Reyes", "Nguyen", "Patel", "Moore", "Castro", "Lin", "Okafor", "Schmidt", "Dubois"}
	suffixes   = []string{"PLC", "Group", "LLC", "Inc", "Ltd", "and Sons"}
	categories = []string{"Energy", "Retail", "Finance", "Technology", "Healthcare", "Manufacturing", "Agriculture", "Logistics"}
	decades    = []int{2030, 2040, 2050, 2060, 2070}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "sample_data.csv", "output CSV path")
	rows := flag.Int("rows", 200, "number of data rows")
	seed := flag.Uint64("seed", 7, "random seed")
	flag.Parse()

	if *rows <= 0 {
		flag.Usage()
		return fmt.Errorf("-rows must be positive")
	}

	data, err := generate(*rows, *seed)
	if err != nil {
		return err
	}

	parsed, err := domain.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse generated csv: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return fmt.Errorf("generated csv has %d bad rows, first: %w", len(parsed.Errors), parsed.Errors[0])
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %d records to %s", len(parsed.Records), *out)

	printStats(parsed.Records)
	return nil
}

// generate renders n rows. Every row carries the full factor set so none is
// dropped by the default filter.
func generate(n int, seed uint64) ([]byte, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for range n {
		factors := make(map[string]float64, len(domain.FactorNames))
		for _, name := range domain.FactorNames {
			factors[name] = round(rng.Float64(), 2)
		}
		// Map keys marshal in sorted order.
		factorJSON, err := json.Marshal(factors)
		if err != nil {
			return nil, err
		}

		name := fmt.Sprintf("%s %s", companies[rng.IntN(len(companies))], suffixes[rng.IntN(len(suffixes))])
		row := []string{
			name,
			strconv.FormatFloat(round(25+rng.Float64()*24, 4), 'f', 4, 64),
			strconv.FormatFloat(round(-124+rng.Float64()*57, 4), 'f', 4, 64),
			categories[rng.IntN(len(categories))],
			strconv.FormatFloat(round(rng.Float64()*3, 2), 'f', 2, 64),
			string(factorJSON),
			strconv.Itoa(decades[rng.IntN(len(decades))]),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func printStats(records []domain.AssetRecord) {
	byYear := map[int]int{}
	byTier := map[int]int{}
	for _, r := range records {
		byYear[r.Year]++
		byTier[domain.IconTier(r.RiskRating)]++
	}

	fmt.Println("\nRecords by year:")
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	slices.Sort(years)
	for _, y := range years {
		fmt.Printf("  %d: %d\n", y, byYear[y])
	}

	fmt.Println("\nRecords by icon tier:")
	tiers := make([]int, 0, len(byTier))
	for t := range byTier {
		tiers = append(tiers, t)
	}
	slices.Sort(tiers)
	for _, t := range tiers {
		fmt.Printf("  %2d: %d\n", t, byTier[t])
	}
}
