package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Risk factor names as they appear in the CSV factor column.
const (
	FactorDrought      = "Drought"
	FactorEarthquake   = "Earthquake"
	FactorExtremeCold  = "Extreme cold"
	FactorExtremeHeat  = "Extreme heat"
	FactorFlooding     = "Flooding"
	FactorHurricane    = "Hurricane"
	FactorSeaLevelRise = "Sea level rise"
	FactorTornado      = "Tornado"
	FactorVolcano      = "Volcano"
	FactorWildfire     = "Wildfire"
)

// FactorNames is the fixed factor key set in display order. Filter controls
// and table factor columns are generated from this list.
var FactorNames = []string{
	FactorDrought,
	FactorEarthquake,
	FactorExtremeCold,
	FactorExtremeHeat,
	FactorFlooding,
	FactorHurricane,
	FactorSeaLevelRise,
	FactorTornado,
	FactorVolcano,
	FactorWildfire,
}

// IsFactor reports whether name belongs to the fixed factor key set.
func IsFactor(name string) bool {
	return slices.Contains(FactorNames, name)
}

// SourceText keeps the numeric columns exactly as they appeared in the CSV.
type SourceText struct {
	Lat        string `json:"lat"`
	Long       string `json:"long"`
	RiskRating string `json:"riskRating"`
}

// AssetRecord is one parsed risk observation. Records are never mutated after
// parsing; the RiskFactors map is shared by every snapshot that holds the record.
type AssetRecord struct {
	AssetName        string
	Latitude         float64 // NaN when the CSV value is not a number
	Longitude        float64 // NaN when the CSV value is not a number
	BusinessCategory string
	RiskRating       float64 // NaN when the CSV value is not a number
	RiskFactors      map[string]float64
	Year             int
	Text             SourceText
}

// Complete reports whether the record carries every factor in FactorNames.
func (r AssetRecord) Complete() bool {
	for _, name := range FactorNames {
		if _, ok := r.RiskFactors[name]; !ok {
			return false
		}
	}
	return true
}

type assetRecordJSON struct {
	AssetName        string             `json:"assetName"`
	Latitude         *float64           `json:"lat"`
	Longitude        *float64           `json:"long"`
	BusinessCategory string             `json:"businessCategory"`
	RiskRating       *float64           `json:"riskRating"`
	RiskFactors      map[string]float64 `json:"riskFactors"`
	Year             int                `json:"year"`
	Text             SourceText         `json:"text"`
}

// MarshalJSON encodes non-finite numeric columns as null, since encoding/json
// rejects NaN.
func (r AssetRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(assetRecordJSON{
		AssetName:        r.AssetName,
		Latitude:         finiteOrNil(r.Latitude),
		Longitude:        finiteOrNil(r.Longitude),
		BusinessCategory: r.BusinessCategory,
		RiskRating:       finiteOrNil(r.RiskRating),
		RiskFactors:      r.RiskFactors,
		Year:             r.Year,
		Text:             r.Text,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON; null numeric columns decode to NaN.
func (r *AssetRecord) UnmarshalJSON(data []byte) error {
	var aux assetRecordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = AssetRecord{
		AssetName:        aux.AssetName,
		Latitude:         nilToNaN(aux.Latitude),
		Longitude:        nilToNaN(aux.Longitude),
		BusinessCategory: aux.BusinessCategory,
		RiskRating:       nilToNaN(aux.RiskRating),
		RiskFactors:      aux.RiskFactors,
		Year:             aux.Year,
		Text:             aux.Text,
	}
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilToNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// sliderSteps is the number of factor range control steps per unit (step 0.01).
const sliderSteps = 100

// Interval is a closed severity range [Lo, Hi].
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// FullRange is the default interval that admits every severity.
var FullRange = Interval{Lo: 0, Hi: 1}

// NewInterval snaps lo and hi to the slider step and validates 0 <= lo <= hi <= 1.
func NewInterval(lo, hi float64) (Interval, error) {
	lo, hi = snap(lo), snap(hi)
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return Interval{}, fmt.Errorf("%w: not a number", ErrInvalidInterval)
	}
	if lo < 0 || hi > 1 {
		return Interval{}, fmt.Errorf("%w: [%g, %g] outside [0, 1]", ErrInvalidInterval, lo, hi)
	}
	if lo > hi {
		return Interval{}, fmt.Errorf("%w: lo %g above hi %g", ErrInvalidInterval, lo, hi)
	}
	return Interval{Lo: lo, Hi: hi}, nil
}

func snap(v float64) float64 {
	return math.Round(v*sliderSteps) / sliderSteps
}

// Contains reports whether v lies inside the interval, bounds included.
// NaN is never contained.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lo && v <= iv.Hi
}

// FilterSpec maps a factor name to its allowed severity interval.
type FilterSpec map[string]Interval

// DefaultFilter returns a FilterSpec admitting the full range for every factor.
func DefaultFilter() FilterSpec {
	f := make(FilterSpec, len(FactorNames))
	for _, name := range FactorNames {
		f[name] = FullRange
	}
	return f
}

// Clone returns an independent copy.
func (f FilterSpec) Clone() FilterSpec {
	out := make(FilterSpec, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String renders the filter in a canonical order, usable as a cache key.
func (f FilterSpec) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		iv := f[k]
		fmt.Fprintf(&b, "%s=%g:%g", k, iv.Lo, iv.Hi)
	}
	return b.String()
}

// SortKey names a sortable table column.
type SortKey string

const (
	SortAssetName        SortKey = "assetName"
	SortLat              SortKey = "lat"
	SortLong             SortKey = "long"
	SortBusinessCategory SortKey = "businessCategory"
	SortRiskRating       SortKey = "riskRating"
	SortYear             SortKey = "year"
)

// SortKeys lists the sortable columns in table order.
var SortKeys = []SortKey{SortAssetName, SortLat, SortLong, SortBusinessCategory, SortRiskRating, SortYear}

// ParseSortKey validates a column name.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	if !slices.Contains(SortKeys, k) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
	return k, nil
}

// SortOrder is the comparator sign: +1 ascending, -1 descending.
type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

// Flip reverses the order.
func (o SortOrder) Flip() SortOrder {
	return o * -1
}

func (o SortOrder) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// Indicator is the header glyph shown next to the active sort column.
func (o SortOrder) Indicator() string {
	if o == Ascending {
		return "▲"
	}
	return "▼"
}

// SortSpec is the single active table sort.
type SortSpec struct {
	Key   SortKey   `json:"key"`
	Order SortOrder `json:"order"`
}

// DefaultSort is the sort applied to a freshly loaded table.
var DefaultSort = SortSpec{Key: SortBusinessCategory, Order: Descending}

// DefaultDecade is the decade window applied before any submission.
const DefaultDecade = 2030

// TimeWindow selects records by the decade remainder test.
type TimeWindow struct {
	Decade int `json:"decade"`
}

// Validate rejects a decade that cannot serve as a modulus.
func (w TimeWindow) Validate() error {
	if w.Decade == 0 {
		return fmt.Errorf("%w: decade must be non-zero", ErrInvalidTimeWindow)
	}
	return nil
}

// Matches applies year % decade < 10. It reports false for a zero decade.
func (w TimeWindow) Matches(year int) bool {
	if w.Decade == 0 {
		return false
	}
	return year%w.Decade < 10
}

// ParseDecade parses a submitted decade and normalizes it down to the nearest
// multiple of ten, so "2035" becomes 2030 and "-15" becomes -20.
func ParseDecade(input string) (TimeWindow, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %q is not a number", ErrInvalidTimeWindow, input)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return TimeWindow{}, fmt.Errorf("%w: %q is not finite", ErrInvalidTimeWindow, input)
	}
	d := math.Floor(v/10) * 10
	if d > math.MaxInt32 || d < math.MinInt32 {
		return TimeWindow{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimeWindow, input)
	}
	return TimeWindow{Decade: int(d)}, nil
}
