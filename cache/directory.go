// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cache remembers country directory lookups.  Reference data
// such as capitals and currencies rarely changes, so a short-lived
// cache in front of the directory service avoids a network round trip
// on every write:
//
//     fetcher := cache.New(directory.New("", 0), 256, 10*time.Minute)
//
// Only successful lookups are cached.  Errors, including unknown
// country codes, always reach the underlying fetcher again.
package cache

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/travel"
)

// Directory is a directory.Fetcher backed by an LRU cache of another
// fetcher's results.
type Directory struct {
	// Fetcher performs lookups that miss the cache.
	Fetcher directory.Fetcher

	// TTL is how long a lookup stays valid.
	TTL time.Duration

	// Clock is the time source for expiry.
	Clock clock.Clock

	lru *lru
}

// New wraps fetcher with a cache holding at most size entries, each
// valid for ttl.
func New(fetcher directory.Fetcher, size int, ttl time.Duration) *Directory {
	if size < 1 {
		size = 1
	}
	return &Directory{
		Fetcher: fetcher,
		TTL:     ttl,
		Clock:   clock.New(),
		lru:     newLRU(size),
	}
}

// FetchCountry returns cached metadata for code if it is fresh, and
// otherwise asks the underlying fetcher.
func (d *Directory) FetchCountry(ctx context.Context, code string) (travel.Metadata, error) {
	now := d.Clock.Now()
	if item, present := d.lru.Get(code); present {
		if now.Sub(item.Fetched) < d.TTL {
			return copyMetadata(item.Meta), nil
		}
		d.lru.Remove(code)
	}

	meta, err := d.Fetcher.FetchCountry(ctx, code)
	if err != nil {
		return meta, err
	}
	d.lru.Put(entry{Code: code, Meta: copyMetadata(meta), Fetched: now})
	return meta, nil
}

func copyMetadata(meta travel.Metadata) travel.Metadata {
	if meta.Languages != nil {
		meta.Languages = append([]travel.Language(nil), meta.Languages...)
	}
	if meta.Currencies != nil {
		meta.Currencies = append([]string(nil), meta.Currencies...)
	}
	return meta
}
