// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory implementation of
// the travel history store.  There is no persistence and no sharing
// between processes.  The entire store is behind a single global
// semaphore to protect against concurrent updates; this trades some
// performance for obvious correctness of read-merge-write updates.
//
// This is mostly intended as a simple reference implementation that
// can be used for testing, including in-process testing of
// higher-level components.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/travel"
)

// New creates a new, empty in-memory store.
func New() travel.Store {
	return NewWithClock(clock.New())
}

// NewWithClock creates a new, empty in-memory store with an explicit
// time source.  Most application code should call New(); this entry
// point is intended for tests that need a mock clock.
func NewWithClock(clk clock.Clock) travel.Store {
	return &memStore{
		clock:     clk,
		countries: make(map[string]travel.Country),
	}
}

type memStore struct {
	clock     clock.Clock
	countries map[string]travel.Country
	sem       sync.Mutex
}

// do runs f under the global lock.
func (s *memStore) do(f func() error) error {
	s.sem.Lock()
	defer s.sem.Unlock()
	return f()
}

// clone deep-copies a record so callers never share slices with the
// stored copy.
func clone(c travel.Country) travel.Country {
	if c.Languages != nil {
		c.Languages = append([]travel.Language{}, c.Languages...)
	}
	if c.Currencies != nil {
		c.Currencies = append([]string{}, c.Currencies...)
	}
	c.YearsVisited = append([]int{}, c.YearsVisited...)
	return c
}

// sortedCodes returns all stored codes in order.  It expects to run
// within the global lock.
func (s *memStore) sortedCodes() []string {
	codes := make([]string, 0, len(s.countries))
	for code := range s.countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// all returns copies of every stored record.  It expects to run
// within the global lock.
func (s *memStore) all() []travel.Country {
	result := make([]travel.Country, 0, len(s.countries))
	for _, country := range s.countries {
		result = append(result, clone(country))
	}
	return result
}

func (s *memStore) Country(ctx context.Context, code string) (country travel.Country, err error) {
	err = s.do(func() error {
		stored, present := s.countries[code]
		if !present {
			return travel.ErrNoSuchCountry{Code: code}
		}
		country = clone(stored)
		return nil
	})
	return
}

func (s *memStore) Neighbors(ctx context.Context, code string) (neighbors travel.Neighbors, err error) {
	err = s.do(func() error {
		neighbors = travel.ResolveNeighbors(s.sortedCodes(), code)
		return nil
	})
	return
}

func (s *memStore) UpdateCountry(
	ctx context.Context,
	code string,
	create bool,
	update func(*travel.Country, bool) error,
) (country travel.Country, created bool, err error) {
	err = s.do(func() error {
		stored, exists := s.countries[code]
		if !exists && !create {
			return travel.ErrNoSuchCountry{Code: code}
		}
		if exists {
			country = clone(stored)
		} else {
			country = travel.Country{Code: code, YearsVisited: []int{}}
		}
		if err := update(&country, exists); err != nil {
			return err
		}
		country.Code = code
		country.YearsVisited = travel.CanonicalYears(country.YearsVisited)
		country.LastUpdated = travel.Timestamp(s.clock.Now())
		s.countries[code] = clone(country)
		created = !exists
		return nil
	})
	return
}

func (s *memStore) DeleteCountry(ctx context.Context, code string) (country travel.Country, neighbors travel.Neighbors, err error) {
	err = s.do(func() error {
		stored, present := s.countries[code]
		if !present {
			return travel.ErrNoSuchCountry{Code: code}
		}
		neighbors = travel.ResolveNeighbors(s.sortedCodes(), code)
		delete(s.countries, code)
		country = stored
		return nil
	})
	return
}

func (s *memStore) Countries(ctx context.Context, query travel.CountryQuery) (page travel.CountryPage, err error) {
	err = s.do(func() error {
		page = travel.ApplyQuery(s.all(), query)
		return nil
	})
	return
}

func (s *memStore) VisitedSummary(ctx context.Context) (counts []travel.ContinentCount, err error) {
	err = s.do(func() error {
		counts, err = travel.SummarizeVisited(s.all())
		return err
	})
	return
}
