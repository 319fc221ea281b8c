// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Options holds optional settings for the REST service.  The zero
// value is usable.
type Options struct {
	// Clock provides the current year for validating visited
	// years.  If nil, uses the system clock.
	Clock clock.Clock

	// Renderer draws the visited summary.  If nil, the summary is
	// returned as a restdata.VisitedSummary.
	Renderer Renderer

	// Logger receives server-side failures.  If nil, uses the
	// logrus standard logger.
	Logger logrus.FieldLogger
}

// NewRouter creates a new HTTP handler that processes all travel
// history requests.  All resources are under the URL path root, e.g.
// /countries/FR.  For more control over this setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(store travel.Store, fetcher directory.Fetcher, opts Options) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, store, fetcher, opts)
	return r
}

// PopulateRouter adds travel history routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the service under a subpath:
//
//     import "github.com/diffeo/go-travelhistory/memory"
//     import "github.com/gorilla/mux"
//     r := mux.NewRouter()
//     s := r.PathPrefix("/travel").Subrouter()
//     PopulateRouter(s, memory.New(), directory.New("", 0), Options{})
func PopulateRouter(r *mux.Router, store travel.Store, fetcher directory.Fetcher, opts Options) {
	api := &restAPI{
		Store:    store,
		Fetcher:  fetcher,
		Router:   r,
		Clock:    opts.Clock,
		Renderer: opts.Renderer,
		Logger:   opts.Logger,
	}
	if api.Clock == nil {
		api.Clock = clock.New()
	}
	if api.Logger == nil {
		api.Logger = logrus.StandardLogger()
	}
	api.PopulateRouter(r)
}

// restAPI holds the persistent state for the travel history REST API.
type restAPI struct {
	Store    travel.Store
	Fetcher  directory.Fetcher
	Router   *mux.Router
	Clock    clock.Clock
	Renderer Renderer
	Logger   logrus.FieldLogger
}

// PopulateRouter adds all URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	r.Path("/").Name("root").Handler(&resourceHandler{
		Representation: restdata.RootData{},
		Context:        api.Context,
		Logger:         api.Logger,
		Get:            api.RootDocument,
	})
	api.PopulateCountries(r)
}

func (api *restAPI) RootDocument(ctx *requestContext) (interface{}, error) {
	resp := restdata.RootData{}
	err := buildURLs(api.Router, ctx.Request).
		URL(&resp.CountriesURL, "countries").
		Template(&resp.CountryURL, "country", "code").
		URL(&resp.VisitedURL, "visited").
		Error
	resp.CountriesURL += "{?continent,currency,language,year,sort,page,size}"
	return resp, err
}
