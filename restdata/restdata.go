// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.  Generally JSON encodings of
// these are passed across the wire as the
// application/vnd.diffeo.travel.v1+json MIME type.
//
// API Usage
//
// HTTP GET the root document at its specified URL.  This will return
// a JSON serialization of the RootData object.  That serialization
// has links to other resources; follow these links, possibly filling
// in template values, to get to other resources.
//
// The URL fields of RootData are RFC 6570 URI templates.  If the
// system is rooted at /, a JSON serialization of RootData will look
// like
//
//     {
//         "countries_url": "/countries{?continent,currency,language,year,sort,page,size}",
//         "country_url": "/countries/{code}",
//         "visited_url": "/countries/visited"
//     }
//
// While the URL structure is predictable and formulaic, it is not
// actually part of the API contract.
//
// Countries
//
// A country is addressed by its two-letter code, in either case.  GET
// returns a Country.  PUT with a YearsRequest body fetches the
// country's reference data from the directory service and creates
// or overwrites the record, merging the submitted years into any
// already stored; it returns 201 Created with a Location header for
// a new record and 200 OK otherwise.  PATCH with a YearsRequest body
// merges years into an existing record without touching anything
// else.  DELETE removes the record and returns a DeleteResponse whose
// links name the records on either side of it.
//
// Every Country carries "_links" with "self", and, where such
// records exist, "prev" and "next" pointing at the stored codes
// immediately before and after it.  A link that does not apply is
// omitted.
//
// Listings
//
// GET on the countries collection returns a CountryList.  The query
// parameters continent, currency, language, and year filter on exact
// values; sort is a comma-separated list of code, name, continent,
// and last_updated, each optionally prefixed with "-" for descending
// order; page and size select a page.  Invalid values fall back to
// their defaults.
//
// Encoding Considerations
//
// Timestamps are represented as "2006-01-02 15:04:05" strings in UTC.
// Years are integers.  Responses may also be requested as CBOR
// (application/cbor), and request bodies may be sent that way.
//
// Errors
//
// Most errors are returned as encodings of the ErrorResponse type,
// with an appropriate HTTP status.  This can round-trip the travel and
// directory packages' errors.  If Go server code panics, this is
// captured and returned as an ErrorResponse with error code "panic".
package restdata

// V1JSONMediaType is the preferred, most specific MIME type for the
// JSON representation of this content.
const V1JSONMediaType = "application/vnd.diffeo.travel.v1+json"

// JSONMediaType requests the most recent version of the JSON
// representation of this content.
const JSONMediaType = "application/vnd.diffeo.travel+json"

// CBORMediaType is the CBOR representation of this content.
const CBORMediaType = "application/cbor"

// TimeLayout is the wire format of timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// RootData is the root document of the service.
type RootData struct {
	// CountriesURL is a URI template for the collection, with
	// its query parameters.
	CountriesURL string `json:"countries_url"`

	// CountryURL is a URI template for a single country, with
	// parameter "code".
	CountryURL string `json:"country_url"`

	// VisitedURL is the visited-by-continent summary.
	VisitedURL string `json:"visited_url"`
}

// Link is a single hypermedia link.
type Link struct {
	Href string `json:"href"`
}

// Links holds the navigation links of a resource.
type Links struct {
	Self *Link `json:"self,omitempty"`
	Prev *Link `json:"prev,omitempty"`
	Next *Link `json:"next,omitempty"`
}

// Language is one language spoken in a country.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

// Country is the full representation of a single record.
type Country struct {
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Native        string     `json:"native"`
	Flag          string     `json:"flag"`
	Capital       string     `json:"capital"`
	Continent     string     `json:"continent"`
	ContinentCode string     `json:"continent_code"`
	Languages     []Language `json:"languages"`
	Currencies    []string   `json:"currencies"`
	YearsVisited  []int      `json:"years_visited"`
	LastUpdated   string     `json:"last_updated"`
	Links         Links      `json:"_links"`
}

// YearsRequest is the body of a PUT or PATCH request.
type YearsRequest struct {
	YearsVisited []int `json:"years_visited"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	// Message names the deleted country.
	Message string `json:"message"`

	// Links point at the records that were on either side of the
	// deleted one.
	Links Links `json:"_links"`
}

// CountrySummary is the abbreviated representation of a record in a
// listing.
type CountrySummary struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Continent    string `json:"continent"`
	YearsVisited []int  `json:"years_visited"`
	LastUpdated  string `json:"last_updated"`
	Links        Links  `json:"_links"`
}

// ListMetadata describes the page of a listing.
type ListMetadata struct {
	Page           int `json:"page"`
	Size           int `json:"size"`
	TotalPages     int `json:"total_pages"`
	TotalCountries int `json:"total_countries"`
}

// CountryList is one page of a listing.  Links has "self" rebuilt
// from the effective query, and "prev" and "next" pages where they
// exist.
type CountryList struct {
	Metadata  ListMetadata     `json:"_metadata"`
	Countries []CountrySummary `json:"countries"`
	Links     Links            `json:"_links"`
}

// ContinentCount is one row of the visited summary.
type ContinentCount struct {
	Continent string `json:"continent"`
	Count     int    `json:"count"`
}

// VisitedSummary counts visited countries per continent, most
// visited first.
type VisitedSummary struct {
	Continents []ContinentCount `json:"continents"`
}

// ErrorResponse is returned as the body of an HTTP response that
// carries an error.
type ErrorResponse struct {
	// Error is a short description of the failure.  This may be
	// the name of a travel or directory API error, the string
	// "panic", or the string "error" for some other kind of
	// error.
	Error string `json:"error"`

	// Message is a human-readable description of the failure.
	Message string `json:"message"`

	// Value is an extra parameter to the error if applicable,
	// such as the offending code or year.
	Value string `json:"value,omitempty"`

	// Stack holds a formatted backtrace, if the method failed
	// due to a panic.
	Stack string `json:"stack,omitempty"`
}
