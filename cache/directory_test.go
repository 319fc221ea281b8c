// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/travel/traveltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Epoch is an arbitrary fixed time.
var Epoch = traveltest.Epoch

func newDirectory(size int) (*Directory, *traveltest.Directory, *clock.Mock) {
	upstream := &traveltest.Directory{}
	clk := clock.NewMock()
	clk.Set(Epoch)
	d := New(upstream, size, time.Minute)
	d.Clock = clk
	return d, upstream, clk
}

func TestCacheHit(t *testing.T) {
	ctx := context.Background()
	d, upstream, _ := newDirectory(10)

	meta, err := d.FetchCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, traveltest.Fixtures["FR"], meta)
	assert.Equal(t, 1, upstream.Calls())

	meta, err = d.FetchCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, traveltest.Fixtures["FR"], meta)
	assert.Equal(t, 1, upstream.Calls())
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	d, upstream, clk := newDirectory(10)

	_, err := d.FetchCountry(ctx, "FR")
	require.NoError(t, err)

	clk.Add(59 * time.Second)
	_, err = d.FetchCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.Calls())

	clk.Add(time.Second)
	_, err = d.FetchCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.Calls())

	// The refetch restarts the clock
	clk.Add(30 * time.Second)
	_, err = d.FetchCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.Calls())
}

func TestCacheErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	d, upstream, _ := newDirectory(10)

	_, err := d.FetchCountry(ctx, "ZZ")
	assert.Equal(t, directory.ErrNotFound, err)
	_, err = d.FetchCountry(ctx, "ZZ")
	assert.Equal(t, directory.ErrNotFound, err)
	assert.Equal(t, 2, upstream.Calls())

	upstream.Err = directory.ErrTimeout
	_, err = d.FetchCountry(ctx, "FR")
	assert.Equal(t, directory.ErrTimeout, err)

	upstream.Err = nil
	_, err = d.FetchCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, 4, upstream.Calls())
}

func TestCacheSize(t *testing.T) {
	ctx := context.Background()
	d, upstream, _ := newDirectory(2)

	for _, code := range []string{"CA", "DE", "FR", "CA"} {
		_, err := d.FetchCountry(ctx, code)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, upstream.Calls())
	assert.Equal(t, 2, d.lru.Len())
}

func TestCacheCopies(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newDirectory(10)

	_, err := d.FetchCountry(ctx, "US")
	require.NoError(t, err)
	meta, err := d.FetchCountry(ctx, "US")
	require.NoError(t, err)
	meta.Currencies[0] = "XXX"
	meta.Languages[0].Code = "xx"

	meta, err = d.FetchCountry(ctx, "US")
	require.NoError(t, err)
	assert.Equal(t, traveltest.Fixtures["US"], meta)
}
