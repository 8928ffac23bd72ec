// Package domain models geographic risk-asset observations and the query
// pipeline that turns them into map and table views.
//
// # Data Source
//
// Asset observations arrive as CSV documents. The first row is a header and is
// always skipped. Every following row has seven positional columns:
//
//	Asset Name, Lat, Long, Business Category, Risk Rating, Risk Factors, Year
//
// The sixth column holds a JSON object mapping a hazard name to a severity:
//
//	"{""Drought"": 0.12, ""Flooding"": 0.87, ""Volcano"": 0.0, ...}"
//
// Severities may be JSON numbers or numeric strings. A row whose factor column
// does not decode is dropped with [ErrMalformedRiskFactors]; the rest of the
// document keeps parsing. See [Parse].
//
// # Risk Factors
//
// There are ten hazards, declared once in [FactorNames]:
//
//	Drought, Earthquake, Extreme cold, Extreme heat, Flooding,
//	Hurricane, Sea level rise, Tornado, Volcano, Wildfire
//
// Severity lies in [0,1]. Filter intervals use the same range with a 0.01 step.
//
// # Decade Window
//
// The temporal filter is a remainder test, not a range test:
//
//	year % decade < 10
//
// With decade 2020, year 2025 matches (5) and year 2030 does not (10). With
// decade 10 every year matches because the remainder is always below 10. A
// zero decade is rejected with [ErrInvalidTimeWindow] instead of dividing by
// zero. Submitted decades are normalized down to a multiple of ten by
// [ParseDecade].
//
// # Views
//
// The table view runs all three stages: decade window, factor ranges, sort.
// The map view runs the decade window only; factor ranges and sort order do
// not change which markers are drawn. Marker icons are bucketed by
// ceil(riskRating / 0.25), so a 0-4 rating maps onto tiers 0-16.
package domain
