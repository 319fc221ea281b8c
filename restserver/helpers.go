// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains various HTTP-related helpers.  I sort of suspect
// most of them belong in some sort of standard library I haven't
// immediately found.

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/gorilla/mux"
)

type urlBuilder struct {
	Router *mux.Router
	Base   string
	Params []string
	Error  error
}

// buildURLs starts building URLs for a request.  If req is non-nil,
// the resulting URLs are absolute, using the scheme and host the
// client addressed.
func buildURLs(router *mux.Router, req *http.Request, params ...string) *urlBuilder {
	return &urlBuilder{Router: router, Base: baseURL(req), Params: params}
}

func baseURL(req *http.Request) string {
	if req == nil || req.Host == "" {
		return ""
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + req.Host
}

func (u *urlBuilder) Route(route string) *mux.Route {
	if u.Error != nil {
		return nil
	}
	r := u.Router.Get(route)
	if r == nil {
		u.Error = fmt.Errorf("No such route %q", route)
	}
	return r
}

func (u *urlBuilder) URL(out *string, route string) *urlBuilder {
	var r *mux.Route
	var url *url.URL
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		url, u.Error = r.URL(u.Params...)
	}
	if u.Error == nil {
		*out = u.Base + url.String()
	}
	return u
}

// Link fills in out with a link to route, unless a required parameter
// is empty, in which case out is set to nil.
func (u *urlBuilder) Link(out **restdata.Link, route string) *urlBuilder {
	for i := 1; i < len(u.Params); i += 2 {
		if u.Params[i] == "" {
			*out = nil
			return u
		}
	}
	var href string
	u.URL(&href, route)
	if u.Error == nil {
		*out = &restdata.Link{Href: href}
	}
	return u
}

func (u *urlBuilder) Template(out *string, route, param string) *urlBuilder {
	var r *mux.Route
	var url *url.URL
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		params := append([]string{param, "---"}, u.Params...)
		url, u.Error = r.URL(params...)
	}
	if u.Error == nil {
		*out = u.Base + strings.Replace(url.String(), "---", "{"+param+"}", 1)
	}
	return u
}

// queryString renders a normalized listing query for a specific page.
// The parameter order is fixed: filters that are set, then sort, page,
// and size.
func queryString(q travel.CountryQuery, page int) string {
	var parts []string
	add := func(name, value string) {
		value = strings.Replace(url.QueryEscape(value), "%2C", ",", -1)
		parts = append(parts, name+"="+value)
	}
	if q.Continent != "" {
		add("continent", q.Continent)
	}
	if q.Currency != "" {
		add("currency", q.Currency)
	}
	if q.Language != "" {
		add("language", q.Language)
	}
	if q.Year != 0 {
		add("year", strconv.Itoa(q.Year))
	}
	add("sort", travel.FormatSort(q.Sort))
	add("page", strconv.Itoa(page))
	add("size", strconv.Itoa(q.Size))
	return strings.Join(parts, "&")
}
