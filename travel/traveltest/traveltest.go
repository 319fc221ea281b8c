// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package traveltest provides generic functional tests for the
// travel.Store interface.  A typical backend test module needs to wrap
// Suite to create a fresh store for every test:
//
//     package mybackend
//
//     import (
//             "testing"
//             "github.com/diffeo/go-travelhistory/travel/traveltest"
//             "github.com/stretchr/testify/suite"
//     )
//
//     // Suite is the per-backend generic test suite.
//     type Suite struct{
//             traveltest.Suite
//     }
//
//     // SetupTest creates an empty store for each test.
//     func (s *Suite) SetupTest() {
//             s.Suite.SetupTest()
//             s.Store = NewWithClock(s.Clock)
//     }
//
//     // TestStore runs the travel.Store generic tests.
//     func TestStore(t *testing.T) {
//             suite.Run(t, &Suite{})
//     }
package traveltest

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/stretchr/testify/suite"
)

// Suite is the generic travel.Store backend test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is reset to Epoch before every test.
	Clock *clock.Mock

	// Store contains the backend under test.  It is set by
	// importing packages, and must be empty at the start of
	// each test.
	Store travel.Store
}

// Epoch is the mock clock time at the start of each test.
var Epoch = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// SetupSuite does one-time initialization for the test suite.
func (s *Suite) SetupSuite() {
	s.Clock = clock.NewMock()
}

// SetupTest resets the clock before each test.
func (s *Suite) SetupTest() {
	s.Clock.Set(Epoch)
}

// Ctx returns a context for store calls.
func (s *Suite) Ctx() context.Context {
	return context.Background()
}

// Put stores a fixture country with some years, failing the test on
// error.
func (s *Suite) Put(code string, years ...int) travel.Country {
	country, _, err := travel.PutCountry(s.Ctx(), s.Store, code, Fixtures[code], years)
	s.Require().NoError(err)
	return country
}

// Codes extracts the codes from a list of records.
func Codes(countries []travel.Country) []string {
	codes := make([]string, len(countries))
	for i, country := range countries {
		codes[i] = country.Code
	}
	return codes
}

// Fixtures holds directory metadata for a handful of countries, keyed
// by code.
var Fixtures = map[string]travel.Metadata{
	"CA": {
		Name: "Canada", Native: "Canada", Flag: "🇨🇦", Capital: "Ottawa",
		Continent: "North America", ContinentCode: "NA",
		Languages: []travel.Language{
			{Code: "en", Name: "English", Native: "English"},
			{Code: "fr", Name: "French", Native: "Français"},
		},
		Currencies: []string{"CAD"},
	},
	"DE": {
		Name: "Germany", Native: "Deutschland", Flag: "🇩🇪", Capital: "Berlin",
		Continent: "Europe", ContinentCode: "EU",
		Languages:  []travel.Language{{Code: "de", Name: "German", Native: "Deutsch"}},
		Currencies: []string{"EUR"},
	},
	"FR": {
		Name: "France", Native: "France", Flag: "🇫🇷", Capital: "Paris",
		Continent: "Europe", ContinentCode: "EU",
		Languages:  []travel.Language{{Code: "fr", Name: "French", Native: "Français"}},
		Currencies: []string{"EUR"},
	},
	"IT": {
		Name: "Italy", Native: "Italia", Flag: "🇮🇹", Capital: "Rome",
		Continent: "Europe", ContinentCode: "EU",
		Languages:  []travel.Language{{Code: "it", Name: "Italian", Native: "Italiano"}},
		Currencies: []string{"EUR"},
	},
	"JP": {
		Name: "Japan", Native: "日本", Flag: "🇯🇵", Capital: "Tokyo",
		Continent: "Asia", ContinentCode: "AS",
		Languages:  []travel.Language{{Code: "ja", Name: "Japanese", Native: "日本語"}},
		Currencies: []string{"JPY"},
	},
	"US": {
		Name: "United States", Native: "United States", Flag: "🇺🇸", Capital: "Washington D.C.",
		Continent: "North America", ContinentCode: "NA",
		Languages:  []travel.Language{{Code: "en", Name: "English", Native: "English"}},
		Currencies: []string{"USD", "USN", "USS"},
	},
	// XD is a made-up country whose reference data contains the
	// field codec delimiters and a language whose native name
	// looks like a language code.
	"XD": {
		Name: "Pipe|Land, North", Native: `Back\slash`, Flag: "🏳", Capital: "A,B",
		Continent: "Europe", ContinentCode: "EU",
		Languages: []travel.Language{
			{Code: "xd", Name: "Delimit, Ese", Native: "en"},
			{Code: "eng", Name: "Not|English", Native: "x"},
		},
		Currencies: []string{"X,D", "XDD"},
	},
}
