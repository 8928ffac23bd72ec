package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconTier(t *testing.T) {
	tests := []struct {
		rating float64
		want   int
	}{
		{0, 0},
		{0.1, 1},
		{0.25, 1},
		{0.26, 2},
		{1, 4},
		{2.75, 11},
		{4, 16},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IconTier(tt.rating), "rating %v", tt.rating)
	}
}

func TestMarkers(t *testing.T) {
	records := []AssetRecord{
		{AssetName: "A", BusinessCategory: "Energy", Latitude: 44.4, Longitude: -73.2, RiskRating: 2.75},
		{AssetName: "B", BusinessCategory: "Retail", Latitude: math.NaN(), Longitude: -73.2, RiskRating: 1},
		{AssetName: "C", BusinessCategory: "Tech", Latitude: 30, Longitude: math.Inf(1), RiskRating: 1},
	}

	markers, skipped := Markers(records)
	require.Len(t, markers, 1)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, Marker{
		Lat:      44.4,
		Long:     -73.2,
		IconTier: 11,
		Popup:    Popup{AssetName: "A", BusinessCategory: "Energy"},
	}, markers[0])
}

func TestRowFor(t *testing.T) {
	r := AssetRecord{
		AssetName:        "Ball PLC",
		Latitude:         44.4,
		Longitude:        -73.2,
		BusinessCategory: "Energy",
		RiskRating:       2.5,
		RiskFactors:      map[string]float64{FactorWildfire: 0.1, "Meteor": 0.2, FactorDrought: 0.3, "Acid rain": 0.4},
		Year:             2030,
		Text:             SourceText{Lat: "44.40", Long: "-73.20", RiskRating: "2.50"},
	}

	row := RowFor(r)
	assert.Equal(t, "44.40", row.Lat)
	assert.Equal(t, "-73.20", row.Long)
	assert.Equal(t, "2.50", row.RiskRating)
	assert.Equal(t, []FactorPair{
		{Name: FactorDrought, Value: 0.3},
		{Name: FactorWildfire, Value: 0.1},
		{Name: "Acid rain", Value: 0.4},
		{Name: "Meteor", Value: 0.2},
	}, row.Factors)
}

func TestColumns(t *testing.T) {
	cols := Columns(SortSpec{Key: SortRiskRating, Order: Ascending})
	require.Len(t, cols, len(SortKeys))

	for _, c := range cols {
		if c.Key == SortRiskRating {
			assert.Equal(t, "▲", c.Indicator)
			assert.Equal(t, "Risk Rating", c.Title)
			continue
		}
		assert.Empty(t, c.Indicator)
	}
}
