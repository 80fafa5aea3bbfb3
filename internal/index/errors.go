package index

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDates is returned by Compute when no dates are supplied.
	ErrEmptyDates = errors.New("index: dates must be non-empty")

	// ErrNoCollateralSource is returned the first time a total return step
	// needs a collateral rate and no CollateralSource is configured.
	ErrNoCollateralSource = errors.New("index: total return mode requires a collateral source")

	// ErrInvalidLevel is returned by Compute for a negative or non-finite
	// initial level.
	ErrInvalidLevel = errors.New("index: initial level must be a finite non-negative number")
)

// ParseError reports a value that could not be interpreted as a date.
type ParseError struct {
	Value any
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("index: cannot parse %v (%T) as a date", e.Value, e.Value)
	}
	return fmt.Sprintf("index: cannot parse %v (%T) as a date: %v", e.Value, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
