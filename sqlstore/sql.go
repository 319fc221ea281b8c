// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package sqlstore

// This file contains generic support code for SQL applications that
// need to run against both PostgreSQL and SQLite.
//
// There are three main things in here:
//
// (1) Functions to help with database/sql: withTx() to do work in a
//     transaction that can be retried, and scanRows() to loop over the
//     results of a multi-row SELECT
//
// (2) Helpers to build SQL SELECT statements (dealing entirely in
//     strings)
//
// (3) Helpers to manage potentially long query parameter lists:
//     queryParams is a parameter list that can produce $1, $2, ... (or
//     ?1, ?2, ...) out, and fieldList is an INSERT key=value list

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// dialect captures the differences between the supported databases.
type dialect struct {
	// name is the sql-migrate dialect name.
	name string

	// placeholder formats the nth (1-based) query parameter.
	placeholder func(n int) string

	// isolation, if non-empty, is the transaction isolation level
	// to set at the start of every transaction.
	isolation string

	// forUpdate is appended to a SELECT that is followed by a
	// write of the same row.
	forUpdate string

	// collate is appended to text columns in ORDER BY so that
	// they sort bytewise.
	collate string
}

var postgresDialect = &dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%v", n) },
	isolation:   "REPEATABLE READ",
	forUpdate:   "FOR UPDATE",
	collate:     ` COLLATE "C"`,
}

var sqliteDialect = &dialect{
	name:        "sqlite3",
	placeholder: func(n int) string { return fmt.Sprintf("?%v", n) },
}

// retryable determines whether an error from a transaction means it
// should be run again.
func retryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// withTx calls some function with a database/sql transaction object.
// If f panics or returns a non-nil error, rolls the transaction back;
// otherwise commits it before returning.  Returns the error value from
// f, or some other error related to transaction management.  If the
// database reports a serialization failure, the whole transaction,
// including f, is run again.
func (s *Store) withTx(ctx context.Context, readOnly bool, f func(*sql.Tx) error) (err error) {
	var (
		tx   *sql.Tx
		done bool
	)

	// If we have a failure, roll back; and if that rollback fails
	// and we don't yet have an error, set the error
	defer func() {
		if tx != nil && !done {
			err2 := tx.Rollback()
			if err == nil {
				err = err2
			}
		}
	}()

	// Run in a loop, repeating the work on serialization errors
	for {
		if err = ctx.Err(); err != nil {
			return
		}

		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return
		}

		if s.dialect.isolation != "" {
			level := s.dialect.isolation
			if readOnly {
				level += " READ ONLY"
			}
			_, err = tx.ExecContext(ctx, "SET TRANSACTION ISOLATION LEVEL "+level)
			if err != nil {
				return
			}
		}

		err = f(tx)

		if err == nil {
			err = tx.Commit()
			done = true
		}

		if retryable(err) {
			s.logger.WithError(err).Debug("retrying transaction")
			err = tx.Rollback()
			if err == sql.ErrTxDone {
				// Commit already rolled back
				err = nil
			} else if err != nil {
				return
			}
			tx = nil
			done = false
			continue
		}

		break
	}

	return
}

// scanRows runs an SQL query and calls a function for each row in the
// result.  The callback function should only call the Scan() method on
// the provided Rows object; this function will take care of advancing
// through the list of rows and closing the iterator as required.
func scanRows(rows *sql.Rows, f func() error) (err error) {
	var done bool
	defer func() {
		if !done {
			err2 := rows.Close()
			if err == nil {
				err = err2
			}
		}
	}()

	for rows.Next() {
		err = f()
		if err != nil {
			return
		}
	}
	done = true
	err = rows.Err()
	return
}

// buildSelect constructs a simple SQL SELECT statement by string
// concatenation.  All of the conditions are ANDed together.  suffix,
// if non-empty, is appended (ORDER BY, LIMIT, and so on).
func buildSelect(outputs, tables, conditions []string, suffix string) string {
	query := "SELECT "
	query += strings.Join(outputs, ", ")
	query += " FROM "
	query += strings.Join(tables, ", ")
	if len(conditions) > 0 {
		query += " WHERE "
		query += strings.Join(conditions, " AND ")
	}
	if suffix != "" {
		query += " " + suffix
	}
	return query
}

// queryParams wraps a list of query parameters.
type queryParams struct {
	dialect *dialect
	args    []interface{}
}

func (d *dialect) params() *queryParams {
	return &queryParams{dialect: d}
}

// Param adds a parameter to the query parameter list, returning its
// placeholder.
func (qp *queryParams) Param(param interface{}) string {
	qp.args = append(qp.args, param)
	return qp.dialect.placeholder(len(qp.args))
}

// Args returns the accumulated parameters.
func (qp *queryParams) Args() []interface{} {
	return qp.args
}

// fieldPair is a pair of values in a fieldList.
type fieldPair struct {
	Field string
	Value string
}

// fieldList is a list of "field=value" pairs as appears in SQL INSERT
// statements.
type fieldList struct {
	Fields []fieldPair
}

// Add adds a name and dynamic value to the field list.
func (f *fieldList) Add(qp *queryParams, field string, value interface{}) {
	f.Fields = append(f.Fields, fieldPair{Field: field, Value: qp.Param(value)})
}

func (f fieldList) mapFields(mf func(fp fieldPair) string) []string {
	result := make([]string, len(f.Fields))
	for i, field := range f.Fields {
		result[i] = mf(field)
	}
	return result
}

// UpsertStatement produces an INSERT statement that replaces every
// non-key field of an existing row with the same key.
func (f fieldList) UpsertStatement(table, key string) string {
	names := f.mapFields(func(fp fieldPair) string { return fp.Field })
	values := f.mapFields(func(fp fieldPair) string { return fp.Value })
	var changes []string
	for _, name := range names {
		if name != key {
			changes = append(changes, name+"=excluded."+name)
		}
	}
	return "INSERT INTO " + table + "(" + strings.Join(names, ", ") +
		") VALUES(" + strings.Join(values, ", ") +
		") ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(changes, ", ")
}
