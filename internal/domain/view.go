package domain

import (
	"math"
	"slices"
)

// iconTierWidth is the rating span covered by one marker icon.
const iconTierWidth = 0.25

// Popup is the text shown when hovering a marker.
type Popup struct {
	AssetName        string `json:"assetName"`
	BusinessCategory string `json:"businessCategory"`
}

// Marker is one map point handed to the map renderer.
type Marker struct {
	Lat      float64 `json:"lat"`
	Long     float64 `json:"long"`
	IconTier int     `json:"iconTier"`
	Popup    Popup   `json:"popup"`
}

// IconTier buckets a rating into ceil(rating / 0.25). Non-finite ratings map to tier 0.
func IconTier(rating float64) int {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0
	}
	return int(math.Ceil(rating / iconTierWidth))
}

// MarkerFor projects a record onto the map. It reports false when the
// coordinates are not finite numbers, in which case no marker is drawn.
func MarkerFor(r AssetRecord) (Marker, bool) {
	if !finite(r.Latitude) || !finite(r.Longitude) {
		return Marker{}, false
	}
	return Marker{
		Lat:      r.Latitude,
		Long:     r.Longitude,
		IconTier: IconTier(r.RiskRating),
		Popup:    Popup{AssetName: r.AssetName, BusinessCategory: r.BusinessCategory},
	}, true
}

// Markers projects records in order, returning the markers and how many
// records were skipped for bad coordinates.
func Markers(records []AssetRecord) ([]Marker, int) {
	out := make([]Marker, 0, len(records))
	skipped := 0
	for _, r := range records {
		m, ok := MarkerFor(r)
		if !ok {
			skipped++
			continue
		}
		out = append(out, m)
	}
	return out, skipped
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FactorPair is one factor cell in a table row.
type FactorPair struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TableRow is one record as displayed in the table. Numeric columns keep the
// CSV text so values redisplay exactly as loaded.
type TableRow struct {
	AssetName        string       `json:"assetName"`
	Lat              string       `json:"lat"`
	Long             string       `json:"long"`
	BusinessCategory string       `json:"businessCategory"`
	RiskRating       string       `json:"riskRating"`
	Factors          []FactorPair `json:"riskFactors"`
	Year             int          `json:"year"`
}

// RowFor projects a record onto a table row.
func RowFor(r AssetRecord) TableRow {
	return TableRow{
		AssetName:        r.AssetName,
		Lat:              r.Text.Lat,
		Long:             r.Text.Long,
		BusinessCategory: r.BusinessCategory,
		RiskRating:       r.Text.RiskRating,
		Factors:          FactorPairs(r.RiskFactors),
		Year:             r.Year,
	}
}

// Rows projects records in order.
func Rows(records []AssetRecord) []TableRow {
	out := make([]TableRow, len(records))
	for i, r := range records {
		out[i] = RowFor(r)
	}
	return out
}

// FactorPairs lists the fixed factors in display order, followed by any
// other keys in lexical order.
func FactorPairs(factors map[string]float64) []FactorPair {
	out := make([]FactorPair, 0, len(factors))
	for _, name := range FactorNames {
		if v, ok := factors[name]; ok {
			out = append(out, FactorPair{Name: name, Value: v})
		}
	}
	var extra []string
	for name := range factors {
		if !IsFactor(name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		out = append(out, FactorPair{Name: name, Value: factors[name]})
	}
	return out
}

// Column is a table header cell.
type Column struct {
	Key       SortKey `json:"key"`
	Title     string  `json:"title"`
	Indicator string  `json:"indicator,omitempty"`
}

var columnTitles = map[SortKey]string{
	SortAssetName:        "Asset Name",
	SortLat:              "Lat",
	SortLong:             "Long",
	SortBusinessCategory: "Business Category",
	SortRiskRating:       "Risk Rating",
	SortYear:             "Year",
}

// Columns returns the sortable headers with the sort glyph on the active one.
func Columns(sort SortSpec) []Column {
	out := make([]Column, len(SortKeys))
	for i, k := range SortKeys {
		out[i] = Column{Key: k, Title: columnTitles[k]}
		if k == sort.Key {
			out[i].Indicator = sort.Order.Indicator()
		}
	}
	return out
}
