// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/gorilla/mux"
)

// errUnmarshal is returned if the put/patch contract is violated and
// a handler function is passed the wrong type.
var errUnmarshal = restdata.ErrBadRequest{
	Err: errors.New("Invalid input format"),
}

// requestContext holds all of the information and objects that can be
// extracted from the request URL.
type requestContext struct {
	Request     *http.Request
	Code        string
	QueryParams url.Values
}

// Context returns the request's context, which is canceled when the
// client goes away.
func (ctx *requestContext) Context() context.Context {
	return ctx.Request.Context()
}

func (api *restAPI) Context(req *http.Request) (ctx *requestContext, err error) {
	ctx = &requestContext{Request: req}
	ctx.QueryParams = req.URL.Query()
	vars := mux.Vars(req)

	if code, present := vars["code"]; present {
		ctx.Code, err = travel.NormalizeCode(code)
		if err != nil {
			err = restdata.ErrBadRequest{Err: err}
		}
	}

	return
}

// IntParam looks at ctx.QueryParams for a parameter named name.  If
// it is a positive integer, return it; otherwise return def.
func (ctx *requestContext) IntParam(name string, def int) int {
	value, err := strconv.Atoi(ctx.QueryParams.Get(name))
	if err != nil || value < 1 {
		return def
	}
	return value
}

// CountryQuery builds a normalized listing query from query
// parameters.  Malformed values fall back to their defaults, so this
// never fails.
func (ctx *requestContext) CountryQuery() travel.CountryQuery {
	q := travel.CountryQuery{
		Continent: ctx.QueryParams.Get("continent"),
		Currency:  ctx.QueryParams.Get("currency"),
		Language:  ctx.QueryParams.Get("language"),
		Year:      ctx.IntParam("year", 0),
		Sort:      travel.ParseSort(ctx.QueryParams.Get("sort")),
		Page:      ctx.IntParam("page", 1),
		Size:      ctx.IntParam("size", travel.DefaultPageSize),
	}
	return q.Normalize()
}
