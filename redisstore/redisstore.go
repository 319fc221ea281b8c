// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package redisstore provides a travel history store backed by Redis.
//
// Each record is a hash at "<prefix>country:<CODE>" whose fields match
// the SQL column names, with compound values encoded by fieldcodec.
// A sorted set at "<prefix>codes" holds every stored code with score
// zero, so that neighbor lookups are lexicographic range queries.
// Writes use WATCH/MULTI optimistic transactions and are retried on
// conflict.  Listings and the visited summary load every record and
// evaluate the query in process.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/fieldcodec"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every key the store uses.
const DefaultPrefix = "travel:"

// maxRetries bounds the number of times a conflicting write is
// attempted.
const maxRetries = 50

// ErrConflict is returned when a write keeps losing optimistic
// transaction races.
var ErrConflict = errors.New("Too many concurrent updates, try again")

// Store is a travel.Store backed by Redis.
type Store struct {
	client redis.UniversalClient
	clock  clock.Clock
	prefix string
}

// Open connects to a Redis server.  address is either a "redis://"
// URL or a bare "host:port".  The connection is checked before
// returning.
func Open(ctx context.Context, address string) (*Store, error) {
	var opts *redis.Options
	if strings.Contains(address, "://") {
		var err error
		opts, err = redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
	} else {
		opts = &redis.Options{Addr: address}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client), nil
}

// New creates a store around an existing client.
func New(client redis.UniversalClient) *Store {
	return NewWithClock(client, clock.New())
}

// NewWithClock creates a store with an explicit time source.  Most
// application code should call New(); this entry point is intended
// for tests that need a mock clock.
func NewWithClock(client redis.UniversalClient, clk clock.Clock) *Store {
	return &Store{client: client, clock: clk, prefix: DefaultPrefix}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) codesKey() string {
	return s.prefix + "codes"
}

func (s *Store) countryKey(code string) string {
	return s.prefix + "country:" + code
}

// encode converts a record to hash fields.
func encode(country travel.Country) map[string]interface{} {
	return map[string]interface{}{
		"code":           country.Code,
		"name":           country.Name,
		"native":         country.Native,
		"flag":           country.Flag,
		"capital":        country.Capital,
		"continent":      country.Continent,
		"continent_code": country.ContinentCode,
		"languages":      fieldcodec.EncodeLanguages(country.Languages),
		"currency":       fieldcodec.EncodeCurrencies(country.Currencies),
		"years_visited":  fieldcodec.EncodeYears(country.YearsVisited),
		"last_updated":   fieldcodec.EncodeTime(country.LastUpdated),
	}
}

// decode converts hash fields to a record.
func decode(fields map[string]string) (country travel.Country, err error) {
	country.Code = fields["code"]
	country.Name = fields["name"]
	country.Native = fields["native"]
	country.Flag = fields["flag"]
	country.Capital = fields["capital"]
	country.Continent = fields["continent"]
	country.ContinentCode = fields["continent_code"]
	if country.Languages, err = fieldcodec.DecodeLanguages(fields["languages"]); err != nil {
		return country, fmt.Errorf("country %v languages: %w", country.Code, err)
	}
	if country.Currencies, err = fieldcodec.DecodeCurrencies(fields["currency"]); err != nil {
		return country, fmt.Errorf("country %v currencies: %w", country.Code, err)
	}
	if country.YearsVisited, err = fieldcodec.DecodeYears(fields["years_visited"]); err != nil {
		return country, fmt.Errorf("country %v years: %w", country.Code, err)
	}
	if country.LastUpdated, err = fieldcodec.DecodeTime(fields["last_updated"]); err != nil {
		return country, fmt.Errorf("country %v last_updated: %w", country.Code, err)
	}
	return
}

// reader is the subset of commands used for reads, available on both
// the client and a watched transaction.
type reader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	ZRangeByLex(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	ZRevRangeByLex(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
}

// get reads one record.  The returned flag is false if it does not
// exist.
func (s *Store) get(ctx context.Context, cmd reader, code string) (travel.Country, bool, error) {
	fields, err := cmd.HGetAll(ctx, s.countryKey(code)).Result()
	if err != nil || len(fields) == 0 {
		return travel.Country{}, false, err
	}
	country, err := decode(fields)
	return country, err == nil, err
}

// neighbors resolves the stored codes on either side of code.
func (s *Store) neighbors(ctx context.Context, cmd reader, code string) (travel.Neighbors, error) {
	var result travel.Neighbors
	prev, err := cmd.ZRevRangeByLex(ctx, s.codesKey(), &redis.ZRangeBy{
		Min:   "-",
		Max:   "(" + code,
		Count: 1,
	}).Result()
	if err != nil {
		return result, err
	}
	if len(prev) > 0 {
		result.Prev = prev[0]
	}
	next, err := cmd.ZRangeByLex(ctx, s.codesKey(), &redis.ZRangeBy{
		Min:   "(" + code,
		Max:   "+",
		Count: 1,
	}).Result()
	if err != nil {
		return result, err
	}
	if len(next) > 0 {
		result.Next = next[0]
	}
	return result, nil
}

// watch runs an optimistic transaction, retrying when a watched key
// changes underneath it.
func (s *Store) watch(ctx context.Context, f func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, f, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConflict
}

// Country retrieves a single record.
func (s *Store) Country(ctx context.Context, code string) (travel.Country, error) {
	country, exists, err := s.get(ctx, s.client, code)
	if err == nil && !exists {
		err = travel.ErrNoSuchCountry{Code: code}
	}
	return country, err
}

// Neighbors finds the stored codes on either side of code.
func (s *Store) Neighbors(ctx context.Context, code string) (travel.Neighbors, error) {
	return s.neighbors(ctx, s.client, code)
}

// UpdateCountry performs an atomic read-modify-write of one record.
func (s *Store) UpdateCountry(
	ctx context.Context,
	code string,
	create bool,
	update func(*travel.Country, bool) error,
) (country travel.Country, created bool, err error) {
	key := s.countryKey(code)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		stored, exists, err := s.get(ctx, tx, code)
		if err != nil {
			return err
		}
		if !exists && !create {
			return travel.ErrNoSuchCountry{Code: code}
		}
		if exists {
			country = stored
		} else {
			country = travel.Country{Code: code, YearsVisited: []int{}}
		}
		err = update(&country, exists)
		if err != nil {
			return err
		}
		country.Code = code
		country.YearsVisited = travel.CanonicalYears(country.YearsVisited)
		country.LastUpdated = travel.Timestamp(s.clock.Now())
		created = !exists
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encode(country))
			pipe.ZAdd(ctx, s.codesKey(), redis.Z{Score: 0, Member: code})
			return nil
		})
		return err
	}, key)
	return
}

// DeleteCountry removes a record, reporting its neighbors as they
// were just before the deletion.
func (s *Store) DeleteCountry(ctx context.Context, code string) (country travel.Country, neighbors travel.Neighbors, err error) {
	key := s.countryKey(code)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		var exists bool
		var err error
		country, exists, err = s.get(ctx, tx, code)
		if err != nil {
			return err
		}
		if !exists {
			return travel.ErrNoSuchCountry{Code: code}
		}
		neighbors, err = s.neighbors(ctx, tx, code)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, s.codesKey(), code)
			return nil
		})
		return err
	}, key, s.codesKey())
	return
}

// all loads every record.  The hashes are read in a single MULTI so
// they form a consistent snapshot.
func (s *Store) all(ctx context.Context) ([]travel.Country, error) {
	codes, err := s.client.ZRange(ctx, s.codesKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, code := range codes {
			cmds[i] = pipe.HGetAll(ctx, s.countryKey(code))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	countries := make([]travel.Country, 0, len(codes))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted since the code list was read
			continue
		}
		country, err := decode(fields)
		if err != nil {
			return nil, err
		}
		countries = append(countries, country)
	}
	return countries, nil
}

// Countries runs a filtered, sorted, paginated query.
func (s *Store) Countries(ctx context.Context, query travel.CountryQuery) (travel.CountryPage, error) {
	countries, err := s.all(ctx)
	if err != nil {
		return travel.CountryPage{}, err
	}
	return travel.ApplyQuery(countries, query), nil
}

// VisitedSummary counts visited records by continent.
func (s *Store) VisitedSummary(ctx context.Context) ([]travel.ContinentCount, error) {
	countries, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return travel.SummarizeVisited(countries)
}
