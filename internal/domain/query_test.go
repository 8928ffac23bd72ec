package domain

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(name, category string, rating float64, year int, factors map[string]float64) AssetRecord {
	return AssetRecord{
		AssetName:        name,
		Latitude:         40,
		Longitude:        -95,
		BusinessCategory: category,
		RiskRating:       rating,
		RiskFactors:      factors,
		Year:             year,
	}
}

func names(records []AssetRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.AssetName
	}
	return out
}

func TestTimeWindow_Matches(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		decade int
		want   bool
	}{
		{"remainder 2 with decade 10", 2032, 10, true},
		{"remainder 30 with decade 100", 2030, 100, false},
		{"same decade", 2025, 2020, true},
		{"decade boundary excluded", 2030, 2020, false},
		{"exact decade", 2030, 2030, true},
		{"earlier year below modulus", 5, 2030, true},
		{"earlier year above ten", 2000, 2030, false},
		{"next century same remainder", 4061, 2030, true},
		{"negative decade keeps dividend sign", 2032, -2020, false},
		{"zero decade never matches", 2030, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeWindow{Decade: tt.decade}.Matches(tt.year))
		})
	}
}

func TestFilterByWindow_ZeroDecade(t *testing.T) {
	records := []AssetRecord{rec("A", "E", 1, 2030, nil)}

	out, err := FilterByWindow(records, TimeWindow{Decade: 0})
	require.ErrorIs(t, err, ErrInvalidTimeWindow)
	assert.Empty(t, out)
}

func TestFilterByWindow_KeepsOrder(t *testing.T) {
	records := []AssetRecord{
		rec("A", "E", 1, 2030, nil),
		rec("B", "E", 1, 2040, nil),
		rec("C", "E", 1, 2035, nil),
		rec("D", "E", 1, 2039, nil),
	}

	out, err := FilterByWindow(records, TimeWindow{Decade: 2030})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, names(out))
}

func TestFilterByFactors(t *testing.T) {
	t.Run("any factor out of range excludes", func(t *testing.T) {
		r := rec("A", "E", 1, 2030, map[string]float64{FactorDrought: 0.5, FactorFlooding: 0.9})
		filter := FilterSpec{FactorDrought: {0, 1}, FactorFlooding: {0, 0.5}}

		out, stats := FilterByFactors([]AssetRecord{r}, filter)
		assert.Empty(t, out)
		assert.Equal(t, 1, stats.OutOfRange)
		assert.Zero(t, stats.MissingFilterKey)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		r := rec("A", "E", 1, 2030, map[string]float64{FactorDrought: 0.25, FactorFlooding: 0.75})
		filter := FilterSpec{FactorDrought: {0.25, 0.5}, FactorFlooding: {0.5, 0.75}}

		out, _ := FilterByFactors([]AssetRecord{r}, filter)
		assert.Len(t, out, 1)
	})

	t.Run("missing filter key drops record", func(t *testing.T) {
		r := rec("A", "E", 1, 2030, map[string]float64{"Meteor": 0.1})

		out, stats := FilterByFactors([]AssetRecord{r}, DefaultFilter())
		assert.Empty(t, out)
		assert.Equal(t, 1, stats.MissingFilterKey)
	})

	t.Run("factors absent from the record are not checked", func(t *testing.T) {
		r := rec("A", "E", 1, 2030, map[string]float64{FactorDrought: 0.9})
		filter := DefaultFilter()
		filter[FactorVolcano] = Interval{Lo: 0.5, Hi: 0.6}

		out, _ := FilterByFactors([]AssetRecord{r}, filter)
		assert.Len(t, out, 1)
	})

	t.Run("NaN severity is never in range", func(t *testing.T) {
		r := rec("A", "E", 1, 2030, map[string]float64{FactorDrought: math.NaN()})

		out, stats := FilterByFactors([]AssetRecord{r}, DefaultFilter())
		assert.Empty(t, out)
		assert.Equal(t, 1, stats.OutOfRange)
	})
}

func TestSortRecords_Stable(t *testing.T) {
	records := func() []AssetRecord {
		return []AssetRecord{
			rec("first", "Energy", 1, 2030, nil),
			rec("second", "Retail", 1, 2030, nil),
			rec("third", "Energy", 1, 2030, nil),
			rec("fourth", "Retail", 1, 2030, nil),
		}
	}

	asc := records()
	SortRecords(asc, SortSpec{Key: SortBusinessCategory, Order: Ascending})
	assert.Equal(t, []string{"first", "third", "second", "fourth"}, names(asc))

	desc := records()
	SortRecords(desc, SortSpec{Key: SortBusinessCategory, Order: Descending})
	assert.Equal(t, []string{"second", "fourth", "first", "third"}, names(desc))
}

func TestSortRecords_NumericKeys(t *testing.T) {
	records := []AssetRecord{
		rec("ten", "E", 10, 2030, nil),
		rec("two", "E", 2, 2030, nil),
		rec("unknown", "E", math.NaN(), 2030, nil),
		rec("half", "E", 0.5, 2030, nil),
	}

	SortRecords(records, SortSpec{Key: SortRiskRating, Order: Ascending})
	assert.Equal(t, []string{"unknown", "half", "two", "ten"}, names(records))

	SortRecords(records, SortSpec{Key: SortRiskRating, Order: Descending})
	assert.Equal(t, []string{"ten", "two", "half", "unknown"}, names(records))
}

func TestSortRecords_EachKey(t *testing.T) {
	a := AssetRecord{AssetName: "a", Latitude: 3, Longitude: 1, BusinessCategory: "z", RiskRating: 2, Year: 2041}
	b := AssetRecord{AssetName: "b", Latitude: 1, Longitude: 2, BusinessCategory: "y", RiskRating: 3, Year: 2039}
	c := AssetRecord{AssetName: "c", Latitude: 2, Longitude: 3, BusinessCategory: "x", RiskRating: 1, Year: 2040}

	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortAssetName, []string{"a", "b", "c"}},
		{SortLat, []string{"b", "c", "a"}},
		{SortLong, []string{"a", "b", "c"}},
		{SortBusinessCategory, []string{"c", "b", "a"}},
		{SortRiskRating, []string{"c", "a", "b"}},
		{SortYear, []string{"b", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			records := []AssetRecord{a, b, c}
			SortRecords(records, SortSpec{Key: tt.key, Order: Ascending})
			if diff := cmp.Diff(tt.want, names(records)); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	full := func(v float64) map[string]float64 {
		m := make(map[string]float64, len(FactorNames))
		for _, n := range FactorNames {
			m[n] = v
		}
		return m
	}

	records := []AssetRecord{
		rec("A", "Energy", 1, 2030, full(0.2)),
		rec("B", "Retail", 2, 2030, full(0.8)),
		rec("C", "Tech", 3, 2050, full(0.2)),
		rec("D", "Finance", 4, 2031, full(0.3)),
		rec("E", "Energy", 1, 2032, map[string]float64{"Meteor": 0.1}),
	}
	filter := DefaultFilter()
	filter[FactorDrought] = Interval{Lo: 0, Hi: 0.5}

	res, err := Query(records, TimeWindow{Decade: 2030}, filter, DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A"}, names(res.Records))
	assert.Equal(t, 4, res.InWindow)
	assert.Equal(t, 1, res.OutOfRange)
	assert.Equal(t, 1, res.MissingFilterKey)

	// Input order is untouched.
	assert.Equal(t, "A", records[0].AssetName)
	assert.Equal(t, "E", records[4].AssetName)
}

func TestQuery_InvalidWindow(t *testing.T) {
	res, err := Query([]AssetRecord{rec("A", "E", 1, 2030, nil)}, TimeWindow{}, DefaultFilter(), DefaultSort)
	require.ErrorIs(t, err, ErrInvalidTimeWindow)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
}

func TestMapLayer_IgnoresFactorRanges(t *testing.T) {
	records := []AssetRecord{
		rec("A", "E", 1, 2030, map[string]float64{FactorDrought: 0.9}),
		rec("B", "E", 1, 2045, map[string]float64{FactorDrought: 0.1}),
	}

	out, err := MapLayer(records, TimeWindow{Decade: 2030})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(out))
}
