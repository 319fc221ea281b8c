// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package traveltest

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/diffeo/go-travelhistory/travel"
)

// TestEmptyStore checks every read operation against a fresh store.
func (s *Suite) TestEmptyStore() {
	_, err := s.Store.Country(s.Ctx(), "FR")
	s.Equal(travel.ErrNoSuchCountry{Code: "FR"}, err)

	neighbors, err := s.Store.Neighbors(s.Ctx(), "FR")
	if s.NoError(err) {
		s.Equal(travel.Neighbors{}, neighbors)
	}

	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{})
	if s.NoError(err) {
		s.Equal(0, page.Total)
		s.Empty(page.Countries)
		s.NotNil(page.Countries)
	}

	_, err = s.Store.VisitedSummary(s.Ctx())
	s.Equal(travel.ErrNoData, err)

	_, _, err = s.Store.DeleteCountry(s.Ctx(), "FR")
	s.Equal(travel.ErrNoSuchCountry{Code: "FR"}, err)
}

// TestCreateAndGet writes a new record and reads it back.
func (s *Suite) TestCreateAndGet() {
	country, created, err := travel.PutCountry(s.Ctx(), s.Store, "FR", Fixtures["FR"], []int{2012, 2011, 2012})
	s.Require().NoError(err)
	s.True(created)

	expected := travel.Country{
		Code:         "FR",
		Metadata:     Fixtures["FR"],
		YearsVisited: []int{2011, 2012},
		LastUpdated:  Epoch,
	}
	s.Equal(expected, country)

	stored, err := s.Store.Country(s.Ctx(), "FR")
	if s.NoError(err) {
		s.Equal(expected, stored)
	}
}

// TestCreateWithoutYears stores a record nobody has visited yet.
func (s *Suite) TestCreateWithoutYears() {
	country, created, err := travel.PutCountry(s.Ctx(), s.Store, "JP", Fixtures["JP"], nil)
	s.Require().NoError(err)
	s.True(created)
	s.Equal([]int{}, country.YearsVisited)

	stored, err := s.Store.Country(s.Ctx(), "JP")
	if s.NoError(err) {
		s.Equal([]int{}, stored.YearsVisited)
	}

	_, err = s.Store.VisitedSummary(s.Ctx())
	s.Equal(travel.ErrNoData, err)
}

// TestPutMergesYears checks that a second put unions the visited
// years and refreshes the scalar metadata and timestamp.
func (s *Suite) TestPutMergesYears() {
	s.Put("FR", 2011)
	s.Clock.Add(time.Hour)

	renamed := Fixtures["FR"]
	renamed.Capital = "Lyon"
	country, created, err := travel.PutCountry(s.Ctx(), s.Store, "FR", renamed, []int{2015, 2011})
	s.Require().NoError(err)
	s.False(created)
	s.Equal([]int{2011, 2015}, country.YearsVisited)
	s.Equal("Lyon", country.Capital)
	s.Equal(Epoch.Add(time.Hour), country.LastUpdated)

	stored, err := s.Store.Country(s.Ctx(), "FR")
	if s.NoError(err) {
		s.Equal(country, stored)
	}
}

// TestPutKeepsLanguagesAndCurrencies checks that a second put does
// not rewrite the languages and currencies stored at creation.
func (s *Suite) TestPutKeepsLanguagesAndCurrencies() {
	s.Put("FR", 2011)

	changed := Fixtures["FR"]
	changed.Capital = "Lyon"
	changed.Languages = []travel.Language{{Code: "xx", Name: "X", Native: "X"}}
	changed.Currencies = []string{"XXX"}
	country, created, err := travel.PutCountry(s.Ctx(), s.Store, "FR", changed, []int{2012})
	s.Require().NoError(err)
	s.False(created)
	s.Equal("Lyon", country.Capital)
	s.Equal(Fixtures["FR"].Languages, country.Languages)
	s.Equal(Fixtures["FR"].Currencies, country.Currencies)

	stored, err := s.Store.Country(s.Ctx(), "FR")
	if s.NoError(err) {
		s.Equal(Fixtures["FR"].Languages, stored.Languages)
		s.Equal(Fixtures["FR"].Currencies, stored.Currencies)
		s.Equal([]int{2011, 2012}, stored.YearsVisited)
	}
}

// TestPutIsIdempotent checks that repeating an identical put leaves
// the years unchanged.
func (s *Suite) TestPutIsIdempotent() {
	first := s.Put("DE", 2019)
	second := s.Put("DE", 2019)
	s.Equal(first.YearsVisited, second.YearsVisited)
	s.Equal(first.Metadata, second.Metadata)
}

// TestAddYears checks the partial-update path.
func (s *Suite) TestAddYears() {
	s.Put("DE", 2019)
	s.Clock.Add(time.Minute)

	country, err := travel.AddYears(s.Ctx(), s.Store, "DE", []int{2021, 2019, 2020})
	s.Require().NoError(err)
	s.Equal([]int{2019, 2020, 2021}, country.YearsVisited)
	s.Equal(Fixtures["DE"], country.Metadata)
	s.Equal(Epoch.Add(time.Minute), country.LastUpdated)

	stored, err := s.Store.Country(s.Ctx(), "DE")
	if s.NoError(err) {
		s.Equal(country, stored)
	}
}

// TestAddYearsMissing checks that a partial update never creates a
// record.
func (s *Suite) TestAddYearsMissing() {
	_, err := travel.AddYears(s.Ctx(), s.Store, "IT", []int{2020})
	s.Equal(travel.ErrNoSuchCountry{Code: "IT"}, err)

	_, err = s.Store.Country(s.Ctx(), "IT")
	s.Equal(travel.ErrNoSuchCountry{Code: "IT"}, err)
}

// TestUpdateAborted checks that an update function's error is
// returned and nothing is written.
func (s *Suite) TestUpdateAborted() {
	s.Put("US", 2001)
	s.Clock.Add(time.Minute)

	oops := errors.New("oops")
	_, _, err := s.Store.UpdateCountry(s.Ctx(), "US", true, func(country *travel.Country, exists bool) error {
		s.True(exists)
		country.YearsVisited = append(country.YearsVisited, 2002)
		return oops
	})
	s.Equal(oops, err)

	stored, err := s.Store.Country(s.Ctx(), "US")
	if s.NoError(err) {
		s.Equal([]int{2001}, stored.YearsVisited)
		s.Equal(Epoch, stored.LastUpdated)
	}

	_, _, err = s.Store.UpdateCountry(s.Ctx(), "CA", true, func(country *travel.Country, exists bool) error {
		s.False(exists)
		s.Equal("CA", country.Code)
		return oops
	})
	s.Equal(oops, err)
	_, err = s.Store.Country(s.Ctx(), "CA")
	s.Equal(travel.ErrNoSuchCountry{Code: "CA"}, err)
}

// TestDelete checks deletion and the neighbors reported with it.
func (s *Suite) TestDelete() {
	s.Put("CA", 2010)
	s.Put("DE", 2011)
	s.Put("FR", 2012)

	country, neighbors, err := s.Store.DeleteCountry(s.Ctx(), "DE")
	s.Require().NoError(err)
	s.Equal("DE", country.Code)
	s.Equal("Germany", country.Name)
	s.Equal(travel.Neighbors{Prev: "CA", Next: "FR"}, neighbors)

	_, err = s.Store.Country(s.Ctx(), "DE")
	s.Equal(travel.ErrNoSuchCountry{Code: "DE"}, err)

	_, neighbors, err = s.Store.DeleteCountry(s.Ctx(), "CA")
	s.Require().NoError(err)
	s.Equal(travel.Neighbors{Next: "FR"}, neighbors)

	_, neighbors, err = s.Store.DeleteCountry(s.Ctx(), "FR")
	s.Require().NoError(err)
	s.Equal(travel.Neighbors{}, neighbors)

	_, _, err = s.Store.DeleteCountry(s.Ctx(), "FR")
	s.Equal(travel.ErrNoSuchCountry{Code: "FR"}, err)
}

// TestNeighbors checks neighbor lookup over a sparse key space,
// including codes that are not stored.
func (s *Suite) TestNeighbors() {
	s.Put("CA")
	s.Put("FR")
	s.Put("US")

	tests := []struct {
		code      string
		neighbors travel.Neighbors
	}{
		{"CA", travel.Neighbors{Next: "FR"}},
		{"FR", travel.Neighbors{Prev: "CA", Next: "US"}},
		{"US", travel.Neighbors{Prev: "FR"}},
		{"AA", travel.Neighbors{Next: "CA"}},
		{"DE", travel.Neighbors{Prev: "CA", Next: "FR"}},
		{"ZZ", travel.Neighbors{Prev: "US"}},
	}
	for _, test := range tests {
		neighbors, err := s.Store.Neighbors(s.Ctx(), test.code)
		if s.NoError(err, test.code) {
			s.Equal(test.neighbors, neighbors, test.code)
		}
	}
}

// TestListDefaultOrder lists everything with no parameters.
func (s *Suite) TestListDefaultOrder() {
	for _, code := range []string{"US", "FR", "JP", "DE", "CA"} {
		s.Put(code, 2020)
	}
	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{})
	s.Require().NoError(err)
	s.Equal(5, page.Total)
	s.Equal([]string{"CA", "DE", "FR", "JP", "US"}, Codes(page.Countries))
	s.Equal(Fixtures["JP"], page.Countries[3].Metadata)
	s.Equal([]int{2020}, page.Countries[3].YearsVisited)
}

// TestListFilterSortPage exercises a continent filter with a
// multi-key sort and pagination.
func (s *Suite) TestListFilterSortPage() {
	s.Put("FR", 2011)
	s.Put("DE", 2011)
	s.Put("US", 2011)
	s.Put("CA", 2012)

	query := travel.CountryQuery{
		Continent: "eu",
		Sort:      travel.ParseSort("-name"),
		Page:      1,
		Size:      1,
	}
	page, err := s.Store.Countries(s.Ctx(), query)
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Equal([]string{"DE"}, Codes(page.Countries))

	query.Page = 2
	page, err = s.Store.Countries(s.Ctx(), query)
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Equal([]string{"FR"}, Codes(page.Countries))

	query.Page = 3
	page, err = s.Store.Countries(s.Ctx(), query)
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Empty(page.Countries)
}

// TestListMultiKeySort sorts on continent then name descending.
func (s *Suite) TestListMultiKeySort() {
	for _, code := range []string{"CA", "DE", "FR", "IT", "JP", "US"} {
		s.Put(code)
	}
	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{
		Sort: travel.ParseSort("continent,-name"),
	})
	s.Require().NoError(err)
	s.Equal([]string{"JP", "IT", "DE", "FR", "US", "CA"}, Codes(page.Countries))
}

// TestListSortLastUpdated checks sorting on write time, with code
// breaking ties.
func (s *Suite) TestListSortLastUpdated() {
	s.Put("US")
	s.Clock.Add(time.Second)
	s.Put("FR")
	s.Put("CA")
	s.Clock.Add(time.Second)
	s.Put("DE")

	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{
		Sort: travel.ParseSort("-last_updated"),
	})
	s.Require().NoError(err)
	s.Equal([]string{"DE", "CA", "FR", "US"}, Codes(page.Countries))

	page, err = s.Store.Countries(s.Ctx(), travel.CountryQuery{
		Sort: travel.ParseSort("last_updated"),
	})
	s.Require().NoError(err)
	s.Equal([]string{"US", "CA", "FR", "DE"}, Codes(page.Countries))
}

// TestListHugePage checks that a page number far past the end yields
// an empty page rather than wrapping around.
func (s *Suite) TestListHugePage() {
	s.Put("CA", 2011)
	s.Put("FR", 2015)

	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{Page: math.MaxInt64})
	s.Require().NoError(err)
	s.Empty(page.Countries)
	s.Equal(2, page.Total)
}

// TestListFilters checks each filter in isolation and combined.
func (s *Suite) TestListFilters() {
	s.Put("CA", 2011, 2019)
	s.Put("DE", 2011)
	s.Put("FR", 2015)
	s.Put("US", 2019)
	s.Put("JP")

	tests := []struct {
		name  string
		query travel.CountryQuery
		codes []string
	}{
		{"continent", travel.CountryQuery{Continent: "NA"}, []string{"CA", "US"}},
		{"continent lowercase", travel.CountryQuery{Continent: "na"}, []string{"CA", "US"}},
		{"currency", travel.CountryQuery{Currency: "EUR"}, []string{"DE", "FR"}},
		{"currency lowercase", travel.CountryQuery{Currency: "usn"}, []string{"US"}},
		{"language", travel.CountryQuery{Language: "en"}, []string{"CA", "US"}},
		{"language uppercase", travel.CountryQuery{Language: "FR"}, []string{"CA", "FR"}},
		{"year", travel.CountryQuery{Year: 2011}, []string{"CA", "DE"}},
		{"year and continent", travel.CountryQuery{Year: 2019, Continent: "NA"}, []string{"CA", "US"}},
		{"language and year", travel.CountryQuery{Language: "fr", Year: 2019}, []string{"CA"}},
		{"nothing", travel.CountryQuery{Continent: "AN"}, []string{}},
	}
	for _, test := range tests {
		page, err := s.Store.Countries(s.Ctx(), test.query)
		if s.NoError(err, test.name) {
			s.Equal(test.codes, Codes(page.Countries), test.name)
			s.Equal(len(test.codes), page.Total, test.name)
		}
	}
}

// TestListFiltersExact checks that filters match whole values, not
// substrings of the stored encoding.
func (s *Suite) TestListFiltersExact() {
	s.Put("DE", 2011)
	s.Put("XD", 2011)

	tests := []struct {
		name  string
		query travel.CountryQuery
		codes []string
	}{
		{"partial year", travel.CountryQuery{Year: 201}, []string{}},
		{"partial year suffix", travel.CountryQuery{Year: 11}, []string{}},
		{"language native name", travel.CountryQuery{Language: "en"}, []string{}},
		{"language code prefix", travel.CountryQuery{Language: "eng"}, []string{"XD"}},
		{"language name", travel.CountryQuery{Language: "german"}, []string{}},
		{"partial currency", travel.CountryQuery{Currency: "EU"}, []string{}},
		{"escaped currency", travel.CountryQuery{Currency: "X,D"}, []string{"XD"}},
		{"currency fragment", travel.CountryQuery{Currency: "D"}, []string{}},
		{"like wildcard", travel.CountryQuery{Currency: "%"}, []string{}},
		{"like underscore", travel.CountryQuery{Currency: "EU_"}, []string{}},
		{"continent name", travel.CountryQuery{Continent: "Europe"}, []string{}},
	}
	for _, test := range tests {
		page, err := s.Store.Countries(s.Ctx(), test.query)
		if s.NoError(err, test.name) {
			s.Equal(test.codes, Codes(page.Countries), test.name)
		}
	}
}

// TestDelimiterRoundTrip stores reference data containing the field
// delimiters and reads it back intact.
func (s *Suite) TestDelimiterRoundTrip() {
	s.Put("XD", 1999)
	stored, err := s.Store.Country(s.Ctx(), "XD")
	if s.NoError(err) {
		s.Equal(Fixtures["XD"], stored.Metadata)
	}

	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{})
	if s.NoError(err) && s.Len(page.Countries, 1) {
		s.Equal(Fixtures["XD"], page.Countries[0].Metadata)
	}
}

// TestListPageSize checks pagination across a larger set.
func (s *Suite) TestListPageSize() {
	for _, code := range []string{"CA", "DE", "FR", "IT", "JP", "US"} {
		s.Put(code)
	}

	page, err := s.Store.Countries(s.Ctx(), travel.CountryQuery{Page: 2, Size: 4})
	s.Require().NoError(err)
	s.Equal(6, page.Total)
	s.Equal([]string{"JP", "US"}, Codes(page.Countries))

	page, err = s.Store.Countries(s.Ctx(), travel.CountryQuery{Size: 1000})
	s.Require().NoError(err)
	s.Len(page.Countries, 6)
}

// TestVisitedSummary counts visited countries by continent.
func (s *Suite) TestVisitedSummary() {
	s.Put("CA", 2010)
	s.Put("DE", 2011)
	s.Put("FR", 2012)
	s.Put("IT", 2013)
	s.Put("US", 2014)
	s.Put("JP")

	counts, err := s.Store.VisitedSummary(s.Ctx())
	s.Require().NoError(err)
	s.Equal([]travel.ContinentCount{
		{Continent: "Europe", Count: 3},
		{Continent: "North America", Count: 2},
	}, counts)
}

// TestConcurrentAddYears races many partial updates against one
// record and checks that none of them is lost.
func (s *Suite) TestConcurrentAddYears() {
	s.Put("FR")

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = travel.AddYears(s.Ctx(), s.Store, "FR", []int{2000 + i})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		s.NoError(err, fmt.Sprintf("writer %v", i))
	}

	stored, err := s.Store.Country(s.Ctx(), "FR")
	if s.NoError(err) {
		s.Equal([]int{2000, 2001, 2002, 2003, 2004, 2005, 2006, 2007}, stored.YearsVisited)
	}
}
