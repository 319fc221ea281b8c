// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package traveltest

import (
	"context"
	"sync"

	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/travel"
)

// Directory is an in-process directory.Fetcher serving Fixtures.
type Directory struct {
	// Err, if non-nil, is returned from every call instead of
	// looking anything up.
	Err error

	mu    sync.Mutex
	calls int
}

// FetchCountry returns the fixture metadata for code, or
// directory.ErrNotFound.
func (d *Directory) FetchCountry(ctx context.Context, code string) (travel.Metadata, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.Err != nil {
		return travel.Metadata{}, d.Err
	}
	meta, found := Fixtures[code]
	if !found {
		return travel.Metadata{}, directory.ErrNotFound
	}
	return meta, nil
}

// Calls returns the number of FetchCountry calls so far.
func (d *Directory) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
