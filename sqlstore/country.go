// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/diffeo/go-travelhistory/fieldcodec"
	"github.com/diffeo/go-travelhistory/travel"
)

var countryColumns = []string{
	"code",
	"name",
	"native",
	"flag",
	"capital",
	"continent",
	"continent_code",
	"languages",
	"currency",
	"years_visited",
	"last_updated",
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanCountry reads one row of countryColumns.
func scanCountry(row rowScanner) (country travel.Country, err error) {
	var languages, currencies, years, lastUpdated string
	err = row.Scan(
		&country.Code,
		&country.Name,
		&country.Native,
		&country.Flag,
		&country.Capital,
		&country.Continent,
		&country.ContinentCode,
		&languages,
		&currencies,
		&years,
		&lastUpdated,
	)
	if err != nil {
		return
	}
	if country.Languages, err = fieldcodec.DecodeLanguages(languages); err != nil {
		return country, fmt.Errorf("country %v languages: %w", country.Code, err)
	}
	if country.Currencies, err = fieldcodec.DecodeCurrencies(currencies); err != nil {
		return country, fmt.Errorf("country %v currencies: %w", country.Code, err)
	}
	if country.YearsVisited, err = fieldcodec.DecodeYears(years); err != nil {
		return country, fmt.Errorf("country %v years: %w", country.Code, err)
	}
	if country.LastUpdated, err = fieldcodec.DecodeTime(lastUpdated); err != nil {
		return country, fmt.Errorf("country %v last_updated: %w", country.Code, err)
	}
	return
}

// getCountry fetches a single record within a transaction.  If
// forUpdate is set, the row is locked against concurrent writers where
// the database supports it.
func (s *Store) getCountry(ctx context.Context, tx *sql.Tx, code string, forUpdate bool) (travel.Country, bool, error) {
	qp := s.dialect.params()
	suffix := ""
	if forUpdate {
		suffix = s.dialect.forUpdate
	}
	query := buildSelect(countryColumns, []string{"countries"}, []string{"code=" + qp.Param(code)}, suffix)
	country, err := scanCountry(tx.QueryRowContext(ctx, query, qp.Args()...))
	if err == sql.ErrNoRows {
		return country, false, nil
	}
	if err != nil {
		return country, false, err
	}
	return country, true, nil
}

// writeCountry inserts or replaces a record and its member rows.
func (s *Store) writeCountry(ctx context.Context, tx *sql.Tx, country travel.Country) error {
	qp := s.dialect.params()
	var fields fieldList
	fields.Add(qp, "code", country.Code)
	fields.Add(qp, "name", country.Name)
	fields.Add(qp, "native", country.Native)
	fields.Add(qp, "flag", country.Flag)
	fields.Add(qp, "capital", country.Capital)
	fields.Add(qp, "continent", country.Continent)
	fields.Add(qp, "continent_code", country.ContinentCode)
	fields.Add(qp, "languages", fieldcodec.EncodeLanguages(country.Languages))
	fields.Add(qp, "currency", fieldcodec.EncodeCurrencies(country.Currencies))
	fields.Add(qp, "years_visited", fieldcodec.EncodeYears(country.YearsVisited))
	fields.Add(qp, "last_updated", fieldcodec.EncodeTime(country.LastUpdated))
	_, err := tx.ExecContext(ctx, fields.UpsertStatement("countries", "code"), qp.Args()...)
	if err != nil {
		return err
	}

	years := make([]interface{}, len(country.YearsVisited))
	for i, year := range country.YearsVisited {
		years[i] = year
	}
	var currencies, languages []interface{}
	seen := make(map[string]bool)
	for _, currency := range country.Currencies {
		if !seen["c:"+currency] {
			seen["c:"+currency] = true
			currencies = append(currencies, currency)
		}
	}
	for _, lang := range country.Languages {
		if !seen["l:"+lang.Code] {
			seen["l:"+lang.Code] = true
			languages = append(languages, lang.Code)
		}
	}
	for _, member := range []struct {
		table, column string
		values        []interface{}
	}{
		{"country_years", "year", years},
		{"country_currencies", "currency", currencies},
		{"country_languages", "language", languages},
	} {
		err = s.writeMembers(ctx, tx, country.Code, member.table, member.column, member.values)
		if err != nil {
			return err
		}
	}
	return nil
}

// writeMembers replaces the rows of a member table for one country.
func (s *Store) writeMembers(ctx context.Context, tx *sql.Tx, code, table, column string, values []interface{}) error {
	qp := s.dialect.params()
	_, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE code="+qp.Param(code), qp.Args()...)
	if err != nil || len(values) == 0 {
		return err
	}
	qp = s.dialect.params()
	dollarsCode := qp.Param(code)
	rows := make([]string, len(values))
	for i, value := range values {
		rows[i] = "(" + dollarsCode + ", " + qp.Param(value) + ")"
	}
	query := "INSERT INTO " + table + "(code, " + column + ") VALUES " + strings.Join(rows, ", ")
	_, err = tx.ExecContext(ctx, query, qp.Args()...)
	return err
}

// neighbors finds the stored codes on either side of code within a
// transaction.
func (s *Store) neighbors(ctx context.Context, tx *sql.Tx, code string) (travel.Neighbors, error) {
	var result travel.Neighbors
	for _, side := range []struct {
		dest     *string
		op, sort string
	}{
		{&result.Prev, "<", "DESC"},
		{&result.Next, ">", "ASC"},
	} {
		qp := s.dialect.params()
		query := buildSelect([]string{"code"}, []string{"countries"},
			[]string{"code" + side.op + qp.Param(code)},
			"ORDER BY code "+side.sort+" LIMIT 1")
		err := tx.QueryRowContext(ctx, query, qp.Args()...).Scan(side.dest)
		if err != nil && err != sql.ErrNoRows {
			return result, err
		}
	}
	return result, nil
}

// Country retrieves a single record.
func (s *Store) Country(ctx context.Context, code string) (country travel.Country, err error) {
	err = s.withTx(ctx, true, func(tx *sql.Tx) error {
		var exists bool
		var err error
		country, exists, err = s.getCountry(ctx, tx, code, false)
		if err == nil && !exists {
			err = travel.ErrNoSuchCountry{Code: code}
		}
		return err
	})
	return
}

// Neighbors finds the stored codes on either side of code.
func (s *Store) Neighbors(ctx context.Context, code string) (neighbors travel.Neighbors, err error) {
	err = s.withTx(ctx, true, func(tx *sql.Tx) error {
		var err error
		neighbors, err = s.neighbors(ctx, tx, code)
		return err
	})
	return
}

// UpdateCountry performs an atomic read-modify-write of one record.
func (s *Store) UpdateCountry(
	ctx context.Context,
	code string,
	create bool,
	update func(*travel.Country, bool) error,
) (country travel.Country, created bool, err error) {
	err = s.withTx(ctx, false, func(tx *sql.Tx) error {
		stored, exists, err := s.getCountry(ctx, tx, code, true)
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
		return s.writeCountry(ctx, tx, country)
	})
	return
}

// DeleteCountry removes a record, reporting its neighbors as they
// were just before the deletion.
func (s *Store) DeleteCountry(ctx context.Context, code string) (country travel.Country, neighbors travel.Neighbors, err error) {
	err = s.withTx(ctx, false, func(tx *sql.Tx) error {
		var exists bool
		var err error
		country, exists, err = s.getCountry(ctx, tx, code, true)
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
		for _, table := range []string{"country_years", "country_currencies", "country_languages", "countries"} {
			qp := s.dialect.params()
			_, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE code="+qp.Param(code), qp.Args()...)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return
}
