// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package fieldcodec encodes the multi-valued parts of a travel record
// into single text cells, and decodes them back.
//
// Entries are separated by commas, and the fields of a language entry
// by vertical bars:
//
//     en|English|English,fr|French|Français
//
// A backslash escapes a literal backslash, comma, or vertical bar
// inside a value.  Values without any of those characters encode as
// themselves, so a stored cell can be searched with simple patterns
// like ",en|" as long as the search term has no delimiters either.
package fieldcodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diffeo/go-travelhistory/travel"
)

const (
	entrySep  = ','
	fieldSep  = '|'
	escapeChr = '\\'
)

// TimeLayout is the layout of a stored last-updated time.  It sorts
// lexically in time order.
const TimeLayout = "2006-01-02 15:04:05"

// ErrDanglingEscape is returned when encoded text ends in the middle
// of an escape sequence.
var ErrDanglingEscape = errors.New("Encoded field ends with an escape character")

// ErrBadLanguage is returned by DecodeLanguages() if an entry does not
// have exactly three fields.
type ErrBadLanguage struct {
	Entry string
}

func (e ErrBadLanguage) Error() string {
	return fmt.Sprintf("Malformed language entry %q", e.Entry)
}

var escaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `,`, `\,`)

func escape(s string) string {
	return escaper.Replace(s)
}

// split breaks s at every unescaped sep, without removing escapes
// from the pieces.  Empty text produces no pieces.
func split(s string, sep byte) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escapeChr:
			i++
			if i >= len(s) {
				return nil, ErrDanglingEscape
			}
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:]), nil
}

// unescape removes one level of backslash escaping.  s is assumed to
// be a piece returned from split, and so has no dangling escape.
func unescape(s string) string {
	if strings.IndexByte(s, escapeChr) < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == escapeChr {
			i++
		}
		if i < len(s) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// EncodeLanguages encodes a language list, preserving its order.
func EncodeLanguages(languages []travel.Language) string {
	entries := make([]string, len(languages))
	for i, lang := range languages {
		entries[i] = escape(lang.Code) + "|" + escape(lang.Name) + "|" + escape(lang.Native)
	}
	return strings.Join(entries, ",")
}

// DecodeLanguages is the inverse of EncodeLanguages.  Empty text
// decodes to an empty list.
func DecodeLanguages(s string) ([]travel.Language, error) {
	entries, err := split(s, entrySep)
	if err != nil {
		return nil, err
	}
	result := make([]travel.Language, 0, len(entries))
	for _, entry := range entries {
		fields, err := split(entry, fieldSep)
		if err != nil {
			return nil, err
		}
		if len(fields) != 3 {
			return nil, ErrBadLanguage{Entry: entry}
		}
		result = append(result, travel.Language{
			Code:   unescape(fields[0]),
			Name:   unescape(fields[1]),
			Native: unescape(fields[2]),
		})
	}
	return result, nil
}

// EncodeCurrencies encodes a list of currency codes, preserving its
// order.
func EncodeCurrencies(currencies []string) string {
	entries := make([]string, len(currencies))
	for i, currency := range currencies {
		entries[i] = escape(currency)
	}
	return strings.Join(entries, ",")
}

// DecodeCurrencies is the inverse of EncodeCurrencies.  Empty text
// decodes to an empty list.
func DecodeCurrencies(s string) ([]string, error) {
	entries, err := split(s, entrySep)
	if err != nil {
		return nil, err
	}
	result := make([]string, len(entries))
	for i, entry := range entries {
		result[i] = unescape(entry)
	}
	return result, nil
}

// EncodeYears encodes a set of years as a sorted, duplicate-free,
// comma-separated list of decimal integers.
func EncodeYears(years []int) string {
	canonical := travel.CanonicalYears(years)
	entries := make([]string, len(canonical))
	for i, year := range canonical {
		entries[i] = strconv.Itoa(year)
	}
	return strings.Join(entries, ",")
}

// DecodeYears is the inverse of EncodeYears.  The result is always in
// canonical form, and empty text decodes to an empty set.
func DecodeYears(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	entries := strings.Split(s, ",")
	years := make([]int, len(entries))
	for i, entry := range entries {
		year, err := strconv.Atoi(entry)
		if err != nil {
			return nil, err
		}
		years[i] = year
	}
	return travel.CanonicalYears(years), nil
}

// EncodeTime formats a record timestamp in UTC.
func EncodeTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// DecodeTime parses a record timestamp written by EncodeTime.
func DecodeTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}
