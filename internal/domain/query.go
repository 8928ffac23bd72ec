package domain

import (
	"cmp"
	"slices"
)

// QueryResult is the table view produced by Query together with per-stage counts.
type QueryResult struct {
	Records []AssetRecord

	// InWindow counts records that passed the decade window.
	InWindow int
	// OutOfRange counts records excluded by at least one factor interval.
	OutOfRange int
	// MissingFilterKey counts records carrying a factor with no committed interval.
	MissingFilterKey int
}

// Query runs the table pipeline: decade window, factor ranges, then a stable
// sort. An invalid window yields an empty result and ErrInvalidTimeWindow.
func Query(records []AssetRecord, window TimeWindow, filter FilterSpec, sort SortSpec) (QueryResult, error) {
	inWindow, err := FilterByWindow(records, window)
	if err != nil {
		return QueryResult{Records: []AssetRecord{}}, err
	}

	kept, stats := FilterByFactors(inWindow, filter)
	SortRecords(kept, sort)

	return QueryResult{
		Records:          kept,
		InWindow:         len(inWindow),
		OutOfRange:       stats.OutOfRange,
		MissingFilterKey: stats.MissingFilterKey,
	}, nil
}

// MapLayer selects the records drawn on the map. Only the decade window
// applies; factor ranges and sort order are table concerns.
func MapLayer(records []AssetRecord, window TimeWindow) ([]AssetRecord, error) {
	return FilterByWindow(records, window)
}

// FilterByWindow keeps records whose year satisfies year % decade < 10.
func FilterByWindow(records []AssetRecord, window TimeWindow) ([]AssetRecord, error) {
	if err := window.Validate(); err != nil {
		return []AssetRecord{}, err
	}
	out := make([]AssetRecord, 0, len(records))
	for _, r := range records {
		if window.Matches(r.Year) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FactorStats counts why FilterByFactors excluded records.
type FactorStats struct {
	OutOfRange       int
	MissingFilterKey int
}

// FilterByFactors keeps a record only if every one of its factors lies inside
// the matching interval. A factor without an interval excludes the record.
func FilterByFactors(records []AssetRecord, filter FilterSpec) ([]AssetRecord, FactorStats) {
	var stats FactorStats
	out := make([]AssetRecord, 0, len(records))
	for _, r := range records {
		switch checkFactors(r, filter) {
		case factorsInRange:
			out = append(out, r)
		case factorMissing:
			stats.MissingFilterKey++
		default:
			stats.OutOfRange++
		}
	}
	return out, stats
}

type factorVerdict int

const (
	factorsInRange factorVerdict = iota
	factorOutOfRange
	factorMissing
)

// checkFactors reports a missing interval ahead of an out-of-range value, so a
// record with both problems is counted as a lookup failure.
func checkFactors(r AssetRecord, filter FilterSpec) factorVerdict {
	verdict := factorsInRange
	for name, v := range r.RiskFactors {
		iv, ok := filter[name]
		if !ok {
			return factorMissing
		}
		if !iv.Contains(v) {
			verdict = factorOutOfRange
		}
	}
	return verdict
}

// SortRecords sorts in place, keeping the relative order of equal keys.
// Numeric columns compare numerically with NaN first in ascending order.
func SortRecords(records []AssetRecord, spec SortSpec) {
	compare := comparator(spec.Key)
	order := int(spec.Order)
	if order == 0 {
		order = int(Ascending)
	}
	slices.SortStableFunc(records, func(a, b AssetRecord) int {
		return compare(a, b) * order
	})
}

func comparator(key SortKey) func(a, b AssetRecord) int {
	switch key {
	case SortAssetName:
		return func(a, b AssetRecord) int { return cmp.Compare(a.AssetName, b.AssetName) }
	case SortLat:
		return func(a, b AssetRecord) int { return cmp.Compare(a.Latitude, b.Latitude) }
	case SortLong:
		return func(a, b AssetRecord) int { return cmp.Compare(a.Longitude, b.Longitude) }
	case SortRiskRating:
		return func(a, b AssetRecord) int { return cmp.Compare(a.RiskRating, b.RiskRating) }
	case SortYear:
		return func(a, b AssetRecord) int { return cmp.Compare(a.Year, b.Year) }
	default:
		return func(a, b AssetRecord) int { return cmp.Compare(a.BusinessCategory, b.BusinessCategory) }
	}
}
