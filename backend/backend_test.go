// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package backend

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	tests := []struct {
		param   string
		backend Backend
	}{
		{"memory", Backend{"memory", ""}},
		{"sqlite:/tmp/travel.db", Backend{"sqlite", "/tmp/travel.db"}},
		{"postgres://user@host/db", Backend{"postgres", "//user@host/db"}},
		{"pgx:host=localhost dbname=travel", Backend{"pgx", "host=localhost dbname=travel"}},
		{"redis:localhost:6379", Backend{"redis", "localhost:6379"}},
	}
	for _, test := range tests {
		var b Backend
		if assert.NoError(t, b.Set(test.param), test.param) {
			assert.Equal(t, test.backend, b)
			assert.Equal(t, test.param, b.String())
		}
	}
}

func TestSetErrors(t *testing.T) {
	b := Backend{"memory", ""}
	assert.Error(t, b.Set(""))
	assert.Error(t, b.Set("mongo:localhost"))
	assert.Equal(t, Backend{"memory", ""}, b)
}

func TestImplementations(t *testing.T) {
	assert.Equal(t, []string{"memory", "pgx", "postgres", "redis", "sqlite"}, Implementations())
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	for _, param := range []string{"memory", "sqlite", "sqlite::memory:", "redis:" + server.Addr()} {
		var b Backend
		require.NoError(t, b.Set(param))
		store, err := b.Store(ctx)
		if !assert.NoError(t, err, param) {
			continue
		}
		_, err = store.Country(ctx, "FR")
		assert.Equal(t, travel.ErrNoSuchCountry{Code: "FR"}, err, param)
		if closer, ok := store.(io.Closer); ok {
			assert.NoError(t, closer.Close(), param)
		}
	}
}

func TestStoreUnknown(t *testing.T) {
	b := Backend{Implementation: "mongo"}
	_, err := b.Store(context.Background())
	assert.Error(t, err)
}
