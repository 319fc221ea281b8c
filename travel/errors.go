// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package travel

import (
	"errors"
	"fmt"
)

// ErrNoData is returned by Store.VisitedSummary() when no country has
// any visited years.
var ErrNoData = errors.New("No visited countries found")

// ErrNoSuchCountry is returned by Store methods that want to find an
// existing record, but cannot.
type ErrNoSuchCountry struct {
	Code string
}

func (err ErrNoSuchCountry) Error() string {
	return fmt.Sprintf("Country %v not found", err.Code)
}

// ErrInvalidCode is returned by NormalizeCode() if a country code is
// not exactly two letters.
type ErrInvalidCode struct {
	Code string
}

func (err ErrInvalidCode) Error() string {
	return fmt.Sprintf("Invalid country code %q", err.Code)
}

// ErrInvalidYear is returned by ValidateYears() for a year before
// MinYear or after the current year.
type ErrInvalidYear struct {
	Year int
}

func (err ErrInvalidYear) Error() string {
	return fmt.Sprintf("Years visited must be between %v and the current year (got %v)", MinYear, err.Year)
}
