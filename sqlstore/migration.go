// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package sqlstore

import (
	"database/sql"

	"github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  The same statements run on both PostgreSQL and SQLite.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_countries",
			Up: []string{
				`CREATE TABLE countries (
					code TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					native TEXT NOT NULL,
					flag TEXT NOT NULL,
					capital TEXT NOT NULL,
					continent TEXT NOT NULL,
					continent_code TEXT NOT NULL,
					languages TEXT NOT NULL,
					currency TEXT NOT NULL,
					years_visited TEXT NOT NULL,
					last_updated TEXT NOT NULL
				)`,
				`CREATE INDEX countries_continent_code ON countries(continent_code)`,
			},
			Down: []string{
				`DROP TABLE countries`,
			},
		},
		{
			Id: "2_members",
			Up: []string{
				`CREATE TABLE country_years (
					code TEXT NOT NULL,
					year INTEGER NOT NULL,
					PRIMARY KEY (code, year)
				)`,
				`CREATE TABLE country_currencies (
					code TEXT NOT NULL,
					currency TEXT NOT NULL,
					PRIMARY KEY (code, currency)
				)`,
				`CREATE TABLE country_languages (
					code TEXT NOT NULL,
					language TEXT NOT NULL,
					PRIMARY KEY (code, language)
				)`,
				`CREATE INDEX country_years_year ON country_years(year)`,
			},
			Down: []string{
				`DROP TABLE country_languages`,
				`DROP TABLE country_currencies`,
				`DROP TABLE country_years`,
			},
		},
	},
}

func upgrade(db *sql.DB, d *dialect) error {
	_, err := migrate.Exec(db, d.name, migrationSource, migrate.Up)
	return err
}

func drop(db *sql.DB, d *dialect) error {
	_, err := migrate.Exec(db, d.name, migrationSource, migrate.Down)
	return err
}

// Upgrade upgrades the store's database to the latest schema version.
func (s *Store) Upgrade() error {
	return upgrade(s.db, s.dialect)
}

// Drop clears the database by running all of the migrations in
// reverse, ultimately resulting in dropping all of the tables.
func (s *Store) Drop() error {
	return drop(s.db, s.dialect)
}
