// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a travel
// history store based on command-line flags.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diffeo/go-travelhistory/memory"
	"github.com/diffeo/go-travelhistory/redisstore"
	"github.com/diffeo/go-travelhistory/sqlstore"
	"github.com/diffeo/go-travelhistory/travel"
)

// opener constructs a store from a backend address.
type opener func(ctx context.Context, address string) (travel.Store, error)

var implementations = map[string]opener{
	"memory": func(ctx context.Context, address string) (travel.Store, error) {
		return memory.New(), nil
	},
	"sqlite": func(ctx context.Context, address string) (travel.Store, error) {
		if address == "" {
			address = ":memory:"
		}
		return sqlstore.Open("sqlite3", address)
	},
	"postgres": func(ctx context.Context, address string) (travel.Store, error) {
		return sqlstore.Open("postgres", address)
	},
	"pgx": func(ctx context.Context, address string) (travel.Store, error) {
		return sqlstore.Open("pgx", address)
	},
	"redis": func(ctx context.Context, address string) (travel.Store, error) {
		if address == "" {
			address = "localhost:6379"
		}
		return redisstore.Open(ctx, address)
	},
}

// Implementations returns the names of the known backends.
func Implementations() []string {
	names := make([]string, 0, len(implementations))
	for name := range implementations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Backend describes user-visible parameters to store travel data.
// This implements the flag.Value interface, and so a typical use is
//
//     func main() {
//         backend := backend.Backend{"memory", ""}
//         flag.Var(&backend, "backend", "impl:address of travel storage")
//         flag.Parse()
//         store, err := backend.Store(context.Background())
//     }
//
// Known implementations are "memory"; "sqlite", whose address is a
// file name; "postgres" and "pgx", whose address is a PostgreSQL
// connection string; and "redis", whose address is "host:port" or a
// "redis://" URL.
type Backend struct {
	// Implementation holds the name of the implementation; for
	// instance, "memory".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string.
	Address string
}

// Store creates a new store.  This generally should be only called
// once.  If the backend has in-process state, such as a database
// connection pool or an in-memory store, calling this multiple times
// will create multiple copies of that state.
//
// Stores that hold connections also implement io.Closer.
func (b *Backend) Store(ctx context.Context) (travel.Store, error) {
	open, known := implementations[b.Implementation]
	if !known {
		return nil, fmt.Errorf("unknown travel backend %q", b.Implementation)
	}
	return open(ctx, b.Address)
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Note that Set does not
// validate b.Address or attempt to actually make a connection.
func (b *Backend) Set(param string) error {
	if param == "" {
		return errors.New("must specify a backend type")
	}
	parts := strings.SplitN(param, ":", 2)
	if _, known := implementations[parts[0]]; !known {
		return fmt.Errorf("unknown travel backend %q (known: %v)",
			parts[0], strings.Join(Implementations(), ", "))
	}
	b.Implementation = parts[0]
	b.Address = ""
	if len(parts) == 2 {
		b.Address = parts[1]
	}
	return nil
}
