// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package travel

import (
	"math"
	"sort"
	"strings"
)

const (
	// DefaultPageSize is the page size used when a query does not
	// name a valid one.
	DefaultPageSize = 10

	// MaxPageSize is the largest page a query may ask for.
	MaxPageSize = 100

	// MaxPage is the largest page number a query may ask for.  Any
	// offset it yields fits in 32 bits.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// SortField is one of the fields a listing can be sorted on.
type SortField int

const (
	// SortByCode sorts on the country code.
	SortByCode SortField = iota

	// SortByName sorts on the English country name.
	SortByName

	// SortByContinent sorts on the continent name.
	SortByContinent

	// SortByLastUpdated sorts on the last write time.
	SortByLastUpdated
)

var sortFieldNames = map[string]SortField{
	"code":         SortByCode,
	"name":         SortByName,
	"continent":    SortByContinent,
	"last_updated": SortByLastUpdated,
}

// String returns the query-string name of a sort field.
func (f SortField) String() string {
	for name, field := range sortFieldNames {
		if field == f {
			return name
		}
	}
	return "unknown"
}

// SortKey is one component of a multi-key sort.
type SortKey struct {
	Field      SortField
	Descending bool
}

// ParseSort parses a comma-separated sort specification such as
// "name,-last_updated".  Each token is a field name, optionally with
// a leading "-" for descending order.  Tokens that do not name a
// sortable field are silently dropped.  If nothing valid remains,
// returns a single ascending sort on code.
func ParseSort(spec string) []SortKey {
	var keys []SortKey
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		key := SortKey{}
		if strings.HasPrefix(token, "-") {
			key.Descending = true
			token = token[1:]
		}
		field, known := sortFieldNames[token]
		if !known {
			continue
		}
		key.Field = field
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		keys = []SortKey{{Field: SortByCode}}
	}
	return keys
}

// FormatSort renders sort keys in the form ParseSort reads.
func FormatSort(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key.Field.String()
		if key.Descending {
			parts[i] = "-" + parts[i]
		}
	}
	return strings.Join(parts, ",")
}

// CountryQuery describes a filtered, sorted, paginated listing.  The
// zero value lists the first page of everything in code order.
type CountryQuery struct {
	// Continent, if non-empty, matches the continent code exactly.
	Continent string

	// Currency, if non-empty, matches records whose currency set
	// contains this currency code.
	Currency string

	// Language, if non-empty, matches records with a language
	// whose code is exactly this.
	Language string

	// Year, if non-zero, matches records visited in exactly this
	// year.
	Year int

	// Sort gives the sort order.  If empty, sorts by code.
	Sort []SortKey

	// Page is the 1-based page number.
	Page int

	// Size is the number of records per page.
	Size int
}

// Normalize returns a copy of q with filter values in their stored
// case and pagination defaults filled in.
func (q CountryQuery) Normalize() CountryQuery {
	q.Continent = strings.ToUpper(q.Continent)
	q.Currency = strings.ToUpper(q.Currency)
	q.Language = strings.ToLower(q.Language)
	if len(q.Sort) == 0 {
		q.Sort = []SortKey{{Field: SortByCode}}
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Size < 1 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	return q
}

// Offset returns the number of records that precede the requested
// page.  q should already be normalized.
func (q CountryQuery) Offset() int {
	return (q.Page - 1) * q.Size
}

// TotalPages returns the number of pages needed for total records at
// q's page size.
func (q CountryQuery) TotalPages(total int) int {
	if q.Size < 1 {
		return 0
	}
	return (total + q.Size - 1) / q.Size
}

// Matches determines whether a record passes q's filters.
func (q CountryQuery) Matches(country Country) bool {
	if q.Continent != "" && country.ContinentCode != q.Continent {
		return false
	}
	if q.Currency != "" && !containsString(country.Currencies, q.Currency) {
		return false
	}
	if q.Language != "" {
		found := false
		for _, lang := range country.Languages {
			if lang.Code == q.Language {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Year != 0 {
		i := sort.SearchInts(country.YearsVisited, q.Year)
		if i >= len(country.YearsVisited) || country.YearsVisited[i] != q.Year {
			return false
		}
	}
	return true
}

var comparators = map[SortField]func(a, b *Country) int{
	SortByCode: func(a, b *Country) int {
		return strings.Compare(a.Code, b.Code)
	},
	SortByName: func(a, b *Country) int {
		return strings.Compare(a.Name, b.Name)
	},
	SortByContinent: func(a, b *Country) int {
		return strings.Compare(a.Continent, b.Continent)
	},
	SortByLastUpdated: func(a, b *Country) int {
		switch {
		case a.LastUpdated.Before(b.LastUpdated):
			return -1
		case a.LastUpdated.After(b.LastUpdated):
			return 1
		default:
			return 0
		}
	},
}

// SortCountries sorts records in place by keys, breaking any
// remaining ties by ascending code.
func SortCountries(countries []Country, keys []SortKey) {
	keys = append(keys[:len(keys):len(keys)], SortKey{Field: SortByCode})
	sort.SliceStable(countries, func(i, j int) bool {
		for _, key := range keys {
			c := comparators[key.Field](&countries[i], &countries[j])
			if key.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// ApplyQuery evaluates a query over an in-memory set of records.
// This is the query engine for backends that cannot push filtering
// and sorting down into storage.  countries is not modified.
func ApplyQuery(countries []Country, query CountryQuery) CountryPage {
	q := query.Normalize()
	var matched []Country
	for _, country := range countries {
		if q.Matches(country) {
			matched = append(matched, country)
		}
	}
	SortCountries(matched, q.Sort)

	page := CountryPage{Total: len(matched), Countries: []Country{}}
	start := q.Offset()
	if start < len(matched) {
		end := start + q.Size
		if end > len(matched) {
			end = len(matched)
		}
		page.Countries = matched[start:end]
	}
	return page
}

// ResolveNeighbors finds the neighbors of code in a sorted list of
// stored codes.
func ResolveNeighbors(sortedCodes []string, code string) Neighbors {
	var result Neighbors
	i := sort.SearchStrings(sortedCodes, code)
	if i > 0 {
		result.Prev = sortedCodes[i-1]
	}
	if i < len(sortedCodes) && sortedCodes[i] == code {
		i++
	}
	if i < len(sortedCodes) {
		result.Next = sortedCodes[i]
	}
	return result
}

// SummarizeVisited counts records with visited years by continent
// name, sorted by descending count and then by continent.  Returns
// ErrNoData if nothing has been visited.
func SummarizeVisited(countries []Country) ([]ContinentCount, error) {
	counts := make(map[string]int)
	for _, country := range countries {
		if len(country.YearsVisited) > 0 {
			counts[country.Continent]++
		}
	}
	if len(counts) == 0 {
		return nil, ErrNoData
	}
	result := make([]ContinentCount, 0, len(counts))
	for continent, count := range counts {
		result = append(result, ContinentCount{Continent: continent, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Continent < result[j].Continent
	})
	return result, nil
}

func containsString(values []string, s string) bool {
	for _, value := range values {
		if value == s {
			return true
		}
	}
	return false
}
