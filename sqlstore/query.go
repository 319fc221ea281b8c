// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/diffeo/go-travelhistory/travel"
)

type sortColumn struct {
	column string
	text   bool
}

var sortColumns = map[travel.SortField]sortColumn{
	travel.SortByCode:        {"c.code", false},
	travel.SortByName:        {"c.name", true},
	travel.SortByContinent:   {"c.continent", true},
	travel.SortByLastUpdated: {"c.last_updated", false},
}

// memberCondition produces an EXISTS test against one of the member
// tables.
func memberCondition(table, column, dollarsValue string) string {
	return "EXISTS (SELECT 1 FROM " + table + " m WHERE m.code=c.code AND m." + column + "=" + dollarsValue + ")"
}

// queryConditions translates a normalized query's filters to SQL.
func queryConditions(q travel.CountryQuery, qp *queryParams) []string {
	var conditions []string
	if q.Continent != "" {
		conditions = append(conditions, "c.continent_code="+qp.Param(q.Continent))
	}
	if q.Currency != "" {
		conditions = append(conditions, memberCondition("country_currencies", "currency", qp.Param(q.Currency)))
	}
	if q.Language != "" {
		conditions = append(conditions, memberCondition("country_languages", "language", qp.Param(q.Language)))
	}
	if q.Year != 0 {
		conditions = append(conditions, memberCondition("country_years", "year", qp.Param(q.Year)))
	}
	return conditions
}

// orderBy produces an ORDER BY clause, always ending in the code.
func (d *dialect) orderBy(keys []travel.SortKey) string {
	var terms []string
	for _, key := range keys {
		col := sortColumns[key.Field]
		term := col.column
		if col.text {
			term += d.collate
		}
		if key.Descending {
			term += " DESC"
		}
		terms = append(terms, term)
	}
	terms = append(terms, "c.code")
	return "ORDER BY " + strings.Join(terms, ", ")
}

// Countries runs a filtered, sorted, paginated query.  The count and
// the page come from the same transaction.
func (s *Store) Countries(ctx context.Context, query travel.CountryQuery) (page travel.CountryPage, err error) {
	q := query.Normalize()
	qp := s.dialect.params()
	conditions := queryConditions(q, qp)
	nConditionParams := len(qp.Args())

	outputs := make([]string, len(countryColumns))
	for i, column := range countryColumns {
		outputs[i] = "c." + column
	}
	tables := []string{"countries c"}
	countQuery := buildSelect([]string{"COUNT(*)"}, tables, conditions, "")
	suffix := s.dialect.orderBy(q.Sort) + " LIMIT " + qp.Param(q.Size) + " OFFSET " + qp.Param(q.Offset())
	pageQuery := buildSelect(outputs, tables, conditions, suffix)

	err = s.withTx(ctx, true, func(tx *sql.Tx) error {
		page = travel.CountryPage{Countries: []travel.Country{}}
		err := tx.QueryRowContext(ctx, countQuery, qp.Args()[:nConditionParams]...).Scan(&page.Total)
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, pageQuery, qp.Args()...)
		if err != nil {
			return err
		}
		return scanRows(rows, func() error {
			country, err := scanCountry(rows)
			if err == nil {
				page.Countries = append(page.Countries, country)
			}
			return err
		})
	})
	return
}

// VisitedSummary counts visited records by continent.
func (s *Store) VisitedSummary(ctx context.Context) (counts []travel.ContinentCount, err error) {
	query := buildSelect(
		[]string{"continent", "COUNT(*) AS visited"},
		[]string{"countries"},
		[]string{"years_visited<>''"},
		"GROUP BY continent ORDER BY visited DESC, continent"+s.dialect.collate,
	)
	err = s.withTx(ctx, true, func(tx *sql.Tx) error {
		counts = nil
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		return scanRows(rows, func() error {
			var count travel.ContinentCount
			err := rows.Scan(&count.Continent, &count.Count)
			if err == nil {
				counts = append(counts, count)
			}
			return err
		})
	})
	if err == nil && len(counts) == 0 {
		err = travel.ErrNoData
	}
	return
}
