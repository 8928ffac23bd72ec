package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailure marks a CSV resource that could not be loaded.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrMalformedRiskFactors marks a row whose factor column is not a JSON object of numbers.
	ErrMalformedRiskFactors = errors.New("malformed risk factors")

	// ErrMalformedYear marks a row whose year column is not an integer.
	ErrMalformedYear = errors.New("malformed year")

	// ErrColumnCount marks a row without exactly seven columns.
	ErrColumnCount = errors.New("wrong column count")

	// ErrInvalidTimeWindow marks a decade that cannot be used as a modulus.
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrMissingFilterKey marks a record factor with no committed interval.
	ErrMissingFilterKey = errors.New("missing filter key")

	ErrPanelClosed     = errors.New("filter panel is closed")
	ErrUnknownFactor   = errors.New("unknown risk factor")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrUnknownSortKey  = errors.New("unknown sort key")
)

// RowError reports a CSV row that was dropped during parsing.
type RowError struct {
	Row int // 1-based line number in the source document
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
