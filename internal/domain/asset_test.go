package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecade(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"2030", 2030, false},
		{"2035", 2030, false},
		{" 2039 ", 2030, false},
		{"2035.7", 2030, false},
		{"9", 0, false},
		{"-15", -20, false},
		{"", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"1e20", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecade(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimeWindow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Decade)
		})
	}
}

func TestTimeWindow_Validate(t *testing.T) {
	assert.ErrorIs(t, TimeWindow{}.Validate(), ErrInvalidTimeWindow)
	assert.NoError(t, TimeWindow{Decade: 10}.Validate())
}

func TestNewInterval(t *testing.T) {
	t.Run("snaps to slider step", func(t *testing.T) {
		iv, err := NewInterval(0.123, 0.456)
		require.NoError(t, err)
		assert.Equal(t, Interval{Lo: 0.12, Hi: 0.46}, iv)
	})

	t.Run("collapsed interval", func(t *testing.T) {
		iv, err := NewInterval(0.3, 0.3)
		require.NoError(t, err)
		assert.True(t, iv.Contains(0.3))
		assert.False(t, iv.Contains(0.31))
	})

	invalid := map[string][2]float64{
		"lo above hi":  {0.8, 0.2},
		"below zero":   {-0.5, 0.5},
		"above one":    {0.5, 1.5},
		"not a number": {math.NaN(), 0.5},
	}
	for name, bounds := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := NewInterval(bounds[0], bounds[1])
			assert.ErrorIs(t, err, ErrInvalidInterval)
		})
	}
}

func TestFilterSpec(t *testing.T) {
	f := DefaultFilter()
	require.Len(t, f, len(FactorNames))
	for _, name := range FactorNames {
		assert.Equal(t, FullRange, f[name])
	}

	c := f.Clone()
	c[FactorDrought] = Interval{Lo: 0.2, Hi: 0.4}
	assert.Equal(t, FullRange, f[FactorDrought], "clone must not alias")

	assert.NotEqual(t, f.String(), c.String())
	assert.Equal(t, f.String(), DefaultFilter().String())
	assert.Contains(t, c.String(), "Drought=0.2:0.4")
}

func TestParseSortKey(t *testing.T) {
	for _, k := range SortKeys {
		got, err := ParseSortKey(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseSortKey("riskFactors")
	assert.ErrorIs(t, err, ErrUnknownSortKey)
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, Ascending, Descending.Flip())
	assert.Equal(t, Descending, Descending.Flip().Flip())
	assert.Equal(t, "desc", Descending.String())
	assert.Equal(t, "▲", Ascending.Indicator())
	assert.Equal(t, "▼", Descending.Indicator())
}

func TestIsFactor(t *testing.T) {
	assert.True(t, IsFactor("Sea level rise"))
	assert.False(t, IsFactor("sea level rise"))
	assert.Len(t, FactorNames, 10)
}

func TestAssetRecord_JSONWithNaN(t *testing.T) {
	r := AssetRecord{
		AssetName:        "Ball PLC",
		Latitude:         math.NaN(),
		Longitude:        -73.2,
		BusinessCategory: "Energy",
		RiskRating:       2.5,
		RiskFactors:      map[string]float64{FactorDrought: 0.5},
		Year:             2030,
		Text:             SourceText{Lat: "n/a", Long: "-73.2", RiskRating: "2.5"},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lat":null`)

	var back AssetRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.Latitude))
	assert.Equal(t, r.Longitude, back.Longitude)
	assert.Equal(t, r.RiskFactors, back.RiskFactors)
	assert.Equal(t, r.Text, back.Text)
}
