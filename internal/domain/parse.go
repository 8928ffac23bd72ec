package domain

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Positional CSV columns.
const (
	colAssetName = iota
	colLat
	colLong
	colBusinessCategory
	colRiskRating
	colRiskFactors
	colYear

	columnCount
)

// ParseResult holds the records that survived parsing and the rows that did not.
type ParseResult struct {
	Records    []AssetRecord
	Errors     []*RowError
	Rows       int // data rows seen, header excluded
	Incomplete int // records missing part of the fixed factor set
}

// Parse reads a CSV document, skipping the header row. Rows that cannot be
// converted are collected in ParseResult.Errors and left out of Records; the
// returned error is non-nil only when the stream itself cannot be read.
func Parse(r io.Reader) (ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var res ParseResult
	header := true
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		var pe *csv.ParseError
		if err != nil && !errors.As(err, &pe) {
			return res, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		res.Rows++
		if err != nil {
			res.Errors = append(res.Errors, &RowError{Row: pe.StartLine, Err: err})
			continue
		}

		line, _ := cr.FieldPos(0)
		rec, err := parseRow(fields)
		if err != nil {
			res.Errors = append(res.Errors, &RowError{Row: line, Err: err})
			continue
		}
		if !rec.Complete() {
			res.Incomplete++
		}
		res.Records = append(res.Records, rec)
	}
}

// ParseString is Parse over an in-memory document.
func ParseString(s string) (ParseResult, error) {
	return Parse(strings.NewReader(s))
}

func parseRow(fields []string) (AssetRecord, error) {
	if len(fields) != columnCount {
		return AssetRecord{}, fmt.Errorf("%w: got %d, want %d", ErrColumnCount, len(fields), columnCount)
	}

	factors, err := parseRiskFactors(fields[colRiskFactors])
	if err != nil {
		return AssetRecord{}, err
	}

	year, err := strconv.Atoi(strings.TrimSpace(fields[colYear]))
	if err != nil {
		return AssetRecord{}, fmt.Errorf("%w: %q", ErrMalformedYear, fields[colYear])
	}

	return AssetRecord{
		AssetName:        fields[colAssetName],
		Latitude:         parseFloatOrNaN(fields[colLat]),
		Longitude:        parseFloatOrNaN(fields[colLong]),
		BusinessCategory: fields[colBusinessCategory],
		RiskRating:       parseFloatOrNaN(fields[colRiskRating]),
		RiskFactors:      factors,
		Year:             year,
		Text: SourceText{
			Lat:        fields[colLat],
			Long:       fields[colLong],
			RiskRating: fields[colRiskRating],
		},
	}, nil
}

// parseRiskFactors decodes the embedded JSON object. Values may be numbers or
// numeric strings; anything else fails the whole column.
func parseRiskFactors(s string) (map[string]float64, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRiskFactors, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedRiskFactors)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedRiskFactors)
	}

	factors := make(map[string]float64, len(raw))
	for name, v := range raw {
		var (
			f   float64
			err error
		)
		switch val := v.(type) {
		case json.Number:
			f, err = val.Float64()
		case string:
			f, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
		default:
			err = fmt.Errorf("unsupported value type %T", v)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: factor %q: %v", ErrMalformedRiskFactors, name, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: factor %q: not a finite number", ErrMalformedRiskFactors, name)
		}
		factors[name] = f
	}
	return factors, nil
}

func parseFloatOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
