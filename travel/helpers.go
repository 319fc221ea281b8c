// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package travel

import (
	"context"
	"sort"
	"strings"
	"time"
)

// NormalizeCode validates a country code and returns its uppercase
// form.  The code must be exactly two ASCII letters in either case;
// otherwise returns ErrInvalidCode.
func NormalizeCode(code string) (string, error) {
	if len(code) != 2 {
		return "", ErrInvalidCode{Code: code}
	}
	upper := strings.ToUpper(code)
	for _, c := range upper {
		if c < 'A' || c > 'Z' {
			return "", ErrInvalidCode{Code: code}
		}
	}
	return upper, nil
}

// ValidateYears checks that every year is between MinYear and the
// year of now, inclusive, returning ErrInvalidYear for the first one
// that is not.
func ValidateYears(years []int, now time.Time) error {
	current := now.Year()
	for _, year := range years {
		if year < MinYear || year > current {
			return ErrInvalidYear{Year: year}
		}
	}
	return nil
}

// CanonicalYears returns a new slice with the years sorted ascending
// and duplicates removed.  The result is never nil.
func CanonicalYears(years []int) []int {
	sorted := make([]int, len(years))
	copy(sorted, years)
	sort.Ints(sorted)
	result := sorted[:0]
	for i, year := range sorted {
		if i == 0 || year != sorted[i-1] {
			result = append(result, year)
		}
	}
	return result
}

// UnionYears returns the canonical union of two year sets.
func UnionYears(a, b []int) []int {
	all := make([]int, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return CanonicalYears(all)
}

// Timestamp converts a time to the form records store it in: UTC,
// with whole seconds.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// PutCountry creates or refreshes a record with freshly fetched
// metadata.  If the record already exists, years are unioned with
// its stored years and only the scalar metadata fields are replaced;
// its languages and currencies are kept.  Otherwise the record starts
// with exactly years and all of meta.  Returns the record as written
// and whether it was created.
func PutCountry(ctx context.Context, store Store, code string, meta Metadata, years []int) (Country, bool, error) {
	return store.UpdateCountry(ctx, code, true, func(country *Country, exists bool) error {
		if exists {
			meta.Languages = country.Languages
			meta.Currencies = country.Currencies
			country.YearsVisited = UnionYears(country.YearsVisited, years)
		} else {
			country.YearsVisited = CanonicalYears(years)
		}
		country.Metadata = meta
		return nil
	})
}

// AddYears unions years into an existing record, leaving its
// metadata alone.  If there is no such record, returns
// ErrNoSuchCountry and creates nothing.
func AddYears(ctx context.Context, store Store, code string, years []int) (Country, error) {
	country, _, err := store.UpdateCountry(ctx, code, false, func(country *Country, exists bool) error {
		country.YearsVisited = UnionYears(country.YearsVisited, years)
		return nil
	})
	return country, err
}
