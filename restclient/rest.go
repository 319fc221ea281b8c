// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/jtacoma/uritemplates"
)

// resource is any object that has a URL and a representation.
type resource struct {
	URL *url.URL

	// HTTPClient performs requests; if nil, uses
	// http.DefaultClient.
	HTTPClient *http.Client

	// MediaType is the canonical media type used for request and
	// response bodies.
	MediaType string
}

func (r *resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	// Build the template object
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}

	// Expand the template to produce a string
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}

	// Return the parsed URL of the result, relative to ourselves
	return r.URL.Parse(expanded)
}

func (r *resource) client() *http.Client {
	if r.HTTPClient == nil {
		return http.DefaultClient
	}
	return r.HTTPClient
}

func (r *resource) mediaType() string {
	if r.MediaType == "" {
		return restdata.V1JSONMediaType
	}
	return r.MediaType
}

// Do performs some HTTP action.  If in is non-nil, the request data is
// serialized and sent as the body of, for instance, a PUT request.
// If out is non-nil, the response data (if any) is deserialized into
// this object, which must be of pointer type.  Returns the HTTP
// status code of a successful response.
func (r *resource) Do(ctx context.Context, method string, url *url.URL, in, out interface{}) (status int, err error) {
	mediaType := r.mediaType()

	// Set up the body, if there is one
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		err = restdata.Encode(mediaType, &buf, in)
		if err != nil {
			return 0, err
		}
		body = &buf
	}

	// Create the request and set headers
	req, err := http.NewRequest(method, url.String(), body)
	if err != nil {
		return 0, err
	}
	req = req.WithContext(ctx)
	if in != nil {
		req.Header.Set("Content-Type", mediaType)
	}
	if out != nil {
		req.Header.Set("Accept", mediaType)
	}

	// Actually do the request
	resp, err := r.client().Do(req)
	if err != nil {
		return 0, err
	}

	// If the response included a body, clean up afterwards
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	// Check the response code
	if err = checkHTTPStatus(resp); err != nil {
		return resp.StatusCode, err
	}

	// If there is both a body and a requested output,
	// decode it
	if resp.Body != nil && out != nil && resp.StatusCode != http.StatusNoContent {
		contentType := resp.Header.Get("Content-Type")
		err = restdata.Decode(contentType, resp.Body, out)
	}

	return resp.StatusCode, err // may be nil
}

// Get retrieves the resource from its own URL.  The result is stored
// in result, which must be of pointer type.
func (r *resource) Get(ctx context.Context, out interface{}) error {
	_, err := r.Do(ctx, "GET", r.URL, nil, out)
	return err
}

// GetFrom retrieves a resource from some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.  The result is stored in
// result, which must be of pointer type.
func (r *resource) GetFrom(ctx context.Context, template string, vars map[string]interface{}, out interface{}) (status int, err error) {
	url, err := r.Template(template, vars)
	if err == nil {
		status, err = r.Do(ctx, "GET", url, nil, out)
	}
	return
}

// DoAt performs some HTTP action at some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.  The server response is
// stored in out, which must be of pointer type.
func (r *resource) DoAt(ctx context.Context, method, template string, vars map[string]interface{}, in, out interface{}) (status int, err error) {
	url, err := r.Template(template, vars)
	if err == nil {
		status, err = r.Do(ctx, method, url, in, out)
	}
	return
}

// ErrorHTTP is a catch-all error for non-successes returned from the
// REST endpoint.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	var body []byte
	var err error
	if resp.Body != nil {
		body, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
	}

	// Take a shot at decoding it as a better error
	var errResp restdata.ErrorResponse
	contentType := resp.Header.Get("Content-Type")
	err2 := restdata.Decode(contentType, bytes.NewReader(body), &errResp)
	if err2 == nil && errResp.Error != "" {
		// Given that we decoded that successfully, return the
		// server-provided error
		return errResp.ToError()
	}

	return ErrorHTTP{Response: resp, Body: string(body)}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
