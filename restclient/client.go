// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides an HTTP REST client that talks to the
// matching server in the "restserver" package.
//
// The server in github.com/diffeo/go-travelhistory/cmd/travelhistoryd
// runs a compatible REST server.  Call New() with the base URL of that
// service; for instance,
//
//     c, err := restclient.New(ctx, "http://localhost:5980/")
//
// Errors the server reports are converted back to the travel and
// directory packages' error types where possible, so for instance a
// missing record produces travel.ErrNoSuchCountry.
package restclient

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
)

// Client talks to a travel history REST service.
type Client struct {
	resource
	Representation restdata.RootData
}

// New creates a client for the service rooted at baseURL, fetching
// its root document.
func New(ctx context.Context, baseURL string) (*Client, error) {
	return NewWithClient(ctx, baseURL, nil, "")
}

// NewWithClient creates a client with a specific HTTP client and wire
// media type.  A nil httpClient uses http.DefaultClient, and an empty
// mediaType uses JSON.
func NewWithClient(ctx context.Context, baseURL string, httpClient *http.Client, mediaType string) (*Client, error) {
	var (
		err  error
		base *url.URL
		c    *Client
	)
	base, err = url.Parse(baseURL)
	if err == nil {
		c = &Client{
			resource: resource{
				URL:        base,
				HTTPClient: httpClient,
				MediaType:  mediaType,
			},
		}
		err = c.Refresh(ctx)
	}

	if err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh reloads the root document.
func (c *Client) Refresh(ctx context.Context) error {
	c.Representation = restdata.RootData{}
	return c.Get(ctx, &c.Representation)
}

func codeVars(code string) map[string]interface{} {
	return map[string]interface{}{"code": code}
}

// Country retrieves a single record.
func (c *Client) Country(ctx context.Context, code string) (restdata.Country, error) {
	var country restdata.Country
	_, err := c.GetFrom(ctx, c.Representation.CountryURL, codeVars(code), &country)
	return country, err
}

// PutCountry asks the server to fetch reference data for code and
// record years as visited.  Returns the record as written and whether
// it was newly created.
func (c *Client) PutCountry(ctx context.Context, code string, years []int) (restdata.Country, bool, error) {
	var country restdata.Country
	in := restdata.YearsRequest{YearsVisited: years}
	if in.YearsVisited == nil {
		in.YearsVisited = []int{}
	}
	status, err := c.DoAt(ctx, "PUT", c.Representation.CountryURL, codeVars(code), in, &country)
	return country, status == http.StatusCreated, err
}

// AddYears records more visited years for an existing record.
func (c *Client) AddYears(ctx context.Context, code string, years []int) (restdata.Country, error) {
	var country restdata.Country
	in := restdata.YearsRequest{YearsVisited: years}
	_, err := c.DoAt(ctx, "PATCH", c.Representation.CountryURL, codeVars(code), in, &country)
	return country, err
}

// DeleteCountry removes a record.
func (c *Client) DeleteCountry(ctx context.Context, code string) (restdata.DeleteResponse, error) {
	var resp restdata.DeleteResponse
	_, err := c.DoAt(ctx, "DELETE", c.Representation.CountryURL, codeVars(code), nil, &resp)
	return resp, err
}

// Countries runs a listing query.  Zero-valued fields of query are not
// sent, so the server applies its defaults.
func (c *Client) Countries(ctx context.Context, query travel.CountryQuery) (restdata.CountryList, error) {
	vars := make(map[string]interface{})
	set := func(name, value string) {
		if value != "" {
			vars[name] = value
		}
	}
	set("continent", query.Continent)
	set("currency", query.Currency)
	set("language", query.Language)
	if query.Year != 0 {
		set("year", strconv.Itoa(query.Year))
	}
	if len(query.Sort) > 0 {
		set("sort", travel.FormatSort(query.Sort))
	}
	if query.Page > 0 {
		set("page", strconv.Itoa(query.Page))
	}
	if query.Size > 0 {
		set("size", strconv.Itoa(query.Size))
	}

	var list restdata.CountryList
	_, err := c.GetFrom(ctx, c.Representation.CountriesURL, vars, &list)
	return list, err
}

// Follow retrieves the resource a link points at, such as the next
// page of a listing or a record's neighbor.  out must be of pointer
// type.
func (c *Client) Follow(ctx context.Context, link *restdata.Link, out interface{}) error {
	target, err := c.URL.Parse(link.Href)
	if err == nil {
		_, err = c.Do(ctx, "GET", target, nil, out)
	}
	return err
}

// Visited retrieves the visited-per-continent summary.  If nothing has
// been visited, returns travel.ErrNoData.  This expects the server to
// return data, not a rendered image.
func (c *Client) Visited(ctx context.Context) (restdata.VisitedSummary, error) {
	var summary restdata.VisitedSummary
	status, err := c.GetFrom(ctx, c.Representation.VisitedURL, map[string]interface{}{}, &summary)
	if err == nil && status == http.StatusNoContent {
		err = travel.ErrNoData
	}
	return summary, err
}

// VisitedImage retrieves the visited summary in whatever form the
// server renders it, typically a chart image.  Returns the response
// media type and body.  If nothing has been visited, returns
// travel.ErrNoData.
func (c *Client) VisitedImage(ctx context.Context) (contentType string, body []byte, err error) {
	target, err := c.Template(c.Representation.VisitedURL, map[string]interface{}{})
	if err != nil {
		return "", nil, err
	}
	req, err := http.NewRequest("GET", target.String(), nil)
	if err != nil {
		return "", nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "*/*")

	resp, err := c.client().Do(req)
	if err != nil {
		return "", nil, err
	}
	defer func() {
		err = firstError(err, resp.Body.Close())
	}()
	if err = checkHTTPStatus(resp); err != nil {
		return "", nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return "", nil, travel.ErrNoData
	}
	body, err = ioutil.ReadAll(resp.Body)
	return resp.Header.Get("Content-Type"), body, err
}
