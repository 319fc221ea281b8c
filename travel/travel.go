// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package travel defines an abstract API to the travel history store.
//
// The store holds exactly one kind of record, a Country, keyed by its
// two-letter code.  Applications get a Store from one of the specific
// implementations (memory, sqlstore, redisstore), usually through the
// backend package, and pass it explicitly to whatever needs it.
//
// Reference data about a country (its name, languages, currencies,
// and so on) is not owned by the store; it comes from the directory
// package and is saved alongside the years the user visited.
package travel

import (
	"context"
	"time"
)

// MinYear is the earliest year that can be recorded as visited.
const MinYear = 1900

// Language describes one language spoken in a country.
type Language struct {
	// Code is the (usually two-letter, lowercase) language code.
	Code string

	// Name is the English name of the language.
	Name string

	// Native is the name of the language in that language.
	Native string
}

// Metadata is the reference data about a country, as returned by the
// external directory service.
type Metadata struct {
	Name          string
	Native        string
	Flag          string
	Capital       string
	Continent     string
	ContinentCode string
	Languages     []Language
	Currencies    []string
}

// Country is a single stored record.
type Country struct {
	// Code is the two-letter uppercase country code.  It never
	// changes once the record is created.
	Code string

	Metadata

	// YearsVisited is the set of years the country was visited,
	// sorted ascending with no duplicates.
	YearsVisited []int

	// LastUpdated is the time of the most recent write to the
	// record, truncated to whole seconds.
	LastUpdated time.Time
}

// Neighbors names the stored codes immediately before and after some
// code.  An empty string means there is no such neighbor.
type Neighbors struct {
	Prev string
	Next string
}

// CountryPage is one page of a filtered, sorted listing.
type CountryPage struct {
	// Countries holds the records on this page.
	Countries []Country

	// Total is the number of records matching the query filter,
	// ignoring pagination.
	Total int
}

// ContinentCount is one row of the visited summary.
type ContinentCount struct {
	Continent string
	Count     int
}

// Store is the principal interface to the travel history data.
// Implementations provide a specific database backend.  All methods
// are safe to call from multiple goroutines.
type Store interface {
	// Country retrieves a single record by its (already
	// normalized) code.  If there is no such record, returns
	// ErrNoSuchCountry.
	Country(ctx context.Context, code string) (Country, error)

	// Neighbors finds the stored codes immediately before and
	// after code in lexicographic order.  code itself does not
	// need to be stored.
	Neighbors(ctx context.Context, code string) (Neighbors, error)

	// UpdateCountry performs an atomic read-modify-write of a
	// single record.  The update function is called with the
	// current record, or a zero record with only Code set if
	// none exists, and a flag saying whether it existed.  If it
	// returns nil, the modified record is written with a fresh
	// LastUpdated time.  If the record does not exist and create
	// is false, returns ErrNoSuchCountry without calling update.
	//
	// Returns the record as written and whether it was newly
	// created.  Implementations may call update more than once
	// if they need to retry a conflicting transaction, so it
	// should not have side effects.
	UpdateCountry(ctx context.Context, code string, create bool, update func(country *Country, exists bool) error) (Country, bool, error)

	// DeleteCountry removes a record.  It returns the record as
	// it was and its neighbors as they were immediately before
	// the deletion.  If there is no such record, returns
	// ErrNoSuchCountry.
	DeleteCountry(ctx context.Context, code string) (Country, Neighbors, error)

	// Countries runs a filtered, sorted, paginated query.
	Countries(ctx context.Context, query CountryQuery) (CountryPage, error)

	// VisitedSummary counts records with at least one visited
	// year, grouped by continent name, most-visited first.  If
	// there are no such records, returns ErrNoData.
	VisitedSummary(ctx context.Context) ([]ContinentCount, error)
}
