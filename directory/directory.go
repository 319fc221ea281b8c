// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package directory fetches country reference data from an external
// GraphQL directory service, by default the public countries API at
// https://countries.trevorblades.com.
//
// Each call makes exactly one HTTP request, bounded by the client's
// timeout.  There are no retries and nothing is cached.
package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	"github.com/diffeo/go-travelhistory/travel"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// DefaultURL is the GraphQL endpoint used when none is configured.
const DefaultURL = "https://countries.trevorblades.com"

// DefaultTimeout bounds a single FetchCountry call.
const DefaultTimeout = 5 * time.Second

// ErrNotFound is returned by FetchCountry() when the directory has no
// country with the requested code.
var ErrNotFound = errors.New("Country not found")

// ErrTimeout is returned by FetchCountry() when the directory does not
// answer within the client timeout.
var ErrTimeout = errors.New("External API timed out")

// UpstreamError is returned by FetchCountry() for any other failure
// talking to the directory: a network error, a non-2xx status, an
// unparseable response, or GraphQL-level errors.
type UpstreamError struct {
	// StatusCode is the HTTP status, or 0 if no response was
	// received.
	StatusCode int

	// Err is the underlying failure.
	Err error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Directory service failed with HTTP %v: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("Directory service failed: %v", e.Err)
}

// Unwrap returns the underlying failure.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Fetcher is anything that can look up country metadata by code.
// *Client is the production implementation.
type Fetcher interface {
	FetchCountry(ctx context.Context, code string) (travel.Metadata, error)
}

// Client talks to the directory service.  The zero value is usable
// and talks to DefaultURL with DefaultTimeout.
type Client struct {
	// URL is the GraphQL endpoint.
	URL string

	// Timeout bounds each request.
	Timeout time.Duration

	// HTTPClient performs requests; if nil, uses
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives a debug message for every request; if nil,
	// uses the logrus standard logger.
	Logger logrus.FieldLogger
}

// New creates a client for a specific endpoint.  An empty url or
// non-positive timeout selects the default.
func New(url string, timeout time.Duration) *Client {
	return &Client{URL: url, Timeout: timeout}
}

const countryQuery = `query($code: ID!) {
  country(code: $code) {
    name
    native
    emoji
    capital
    continent { code name }
    languages { code name native }
    currencies
  }
}`

type graphqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type countryData struct {
	Name      string `json:"name"`
	Native    string `json:"native"`
	Emoji     string `json:"emoji"`
	Capital   string `json:"capital"`
	Continent struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"continent"`
	Languages []struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Native string `json:"native"`
	} `json:"languages"`
	Currencies []string `json:"currencies"`
}

type graphqlResponse struct {
	Data struct {
		Country *countryData `json:"country"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func (c *Client) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c *Client) url() string {
	if c.URL == "" {
		return DefaultURL
	}
	return c.URL
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// FetchCountry retrieves the metadata for a (normalized) country code.
func (c *Client) FetchCountry(ctx context.Context, code string) (meta travel.Metadata, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	start := time.Now()
	defer func() {
		c.logger().WithFields(logrus.Fields{
			"code":     code,
			"url":      c.url(),
			"duration": time.Since(start),
			"err":      err,
		}).Debug("directory lookup")
	}()

	var body []byte
	json := &codec.JsonHandle{}
	err = codec.NewEncoderBytes(&body, json).Encode(graphqlRequest{
		Query:     countryQuery,
		Variables: map[string]string{"code": code},
	})
	if err != nil {
		return meta, &UpstreamError{Err: err}
	}

	req, err := http.NewRequest(http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return meta, &UpstreamError{Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return meta, classify(ctx, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message
		snippet, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 512))
		return meta, &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(snippet)),
		}
	}

	var decoded graphqlResponse
	err = codec.NewDecoder(resp.Body, json).Decode(&decoded)
	if err != nil {
		return meta, classify(ctx, resp.StatusCode, err)
	}
	if len(decoded.Errors) > 0 {
		return meta, &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(decoded.Errors[0].Message),
		}
	}
	if decoded.Data.Country == nil {
		return meta, ErrNotFound
	}
	return decoded.Data.Country.metadata(), nil
}

// classify turns a transport or decoding error into ErrTimeout if it
// was caused by the deadline, or an UpstreamError otherwise.
func classify(ctx context.Context, status int, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return &UpstreamError{StatusCode: status, Err: err}
}

func (d *countryData) metadata() travel.Metadata {
	meta := travel.Metadata{
		Name:          d.Name,
		Native:        d.Native,
		Flag:          d.Emoji,
		Capital:       d.Capital,
		Continent:     d.Continent.Name,
		ContinentCode: d.Continent.Code,
		Languages:     make([]travel.Language, len(d.Languages)),
		Currencies:    make([]string, len(d.Currencies)),
	}
	for i, lang := range d.Languages {
		meta.Languages[i] = travel.Language{Code: lang.Code, Name: lang.Name, Native: lang.Native}
	}
	copy(meta.Currencies, d.Currencies)
	return meta
}
