// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"
	"fmt"

	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/gorilla/mux"
)

// notFound wraps missing-record errors so they produce 404.
func notFound(err error) error {
	var missing travel.ErrNoSuchCountry
	if errors.As(err, &missing) {
		return restdata.ErrNotFound{Err: err}
	}
	return err
}

// directoryError maps a directory failure to its HTTP status.
func directoryError(err error) error {
	var upstream *directory.UpstreamError
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return restdata.ErrNotFound{Err: err}
	case errors.Is(err, directory.ErrTimeout):
		return restdata.ErrGatewayTimeout{Err: err}
	case errors.As(err, &upstream):
		return restdata.ErrBadGateway{Err: err}
	default:
		return err
	}
}

func languagesData(languages []travel.Language) []restdata.Language {
	result := make([]restdata.Language, len(languages))
	for i, lang := range languages {
		result[i] = restdata.Language{Code: lang.Code, Name: lang.Name, Native: lang.Native}
	}
	return result
}

func stringsData(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func yearsData(years []int) []int {
	if years == nil {
		return []int{}
	}
	return years
}

func (api *restAPI) fillCountry(ctx *requestContext, country travel.Country, neighbors travel.Neighbors, result *restdata.Country) error {
	*result = restdata.Country{
		Code:          country.Code,
		Name:          country.Name,
		Native:        country.Native,
		Flag:          country.Flag,
		Capital:       country.Capital,
		Continent:     country.Continent,
		ContinentCode: country.ContinentCode,
		Languages:     languagesData(country.Languages),
		Currencies:    stringsData(country.Currencies),
		YearsVisited:  yearsData(country.YearsVisited),
		LastUpdated:   country.LastUpdated.UTC().Format(restdata.TimeLayout),
	}
	return api.fillLinks(ctx, country.Code, neighbors, &result.Links)
}

// fillLinks sets self, prev, and next links for a single record.  Any
// of the codes may be empty, leaving that link out.
func (api *restAPI) fillLinks(ctx *requestContext, code string, neighbors travel.Neighbors, links *restdata.Links) error {
	err := buildURLs(api.Router, ctx.Request, "code", code).
		Link(&links.Self, "country").
		Error
	if err == nil {
		err = buildURLs(api.Router, ctx.Request, "code", neighbors.Prev).
			Link(&links.Prev, "country").
			Error
	}
	if err == nil {
		err = buildURLs(api.Router, ctx.Request, "code", neighbors.Next).
			Link(&links.Next, "country").
			Error
	}
	return err
}

// CountryGet retrieves a single record with its neighbor links.
func (api *restAPI) CountryGet(ctx *requestContext) (interface{}, error) {
	country, err := api.Store.Country(ctx.Context(), ctx.Code)
	if err != nil {
		return nil, notFound(err)
	}
	neighbors, err := api.Store.Neighbors(ctx.Context(), ctx.Code)
	if err != nil {
		return nil, err
	}
	result := restdata.Country{}
	err = api.fillCountry(ctx, country, neighbors, &result)
	return result, err
}

// CountryPut fetches reference data from the directory and creates or
// overwrites the record, merging in the submitted years.
func (api *restAPI) CountryPut(ctx *requestContext, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.YearsRequest)
	if !valid {
		return nil, errUnmarshal
	}
	err := travel.ValidateYears(req.YearsVisited, api.Clock.Now())
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}

	meta, err := api.Fetcher.FetchCountry(ctx.Context(), ctx.Code)
	if err != nil {
		return nil, directoryError(err)
	}

	country, created, err := travel.PutCountry(ctx.Context(), api.Store, ctx.Code, meta, req.YearsVisited)
	if err != nil {
		return nil, err
	}
	neighbors, err := api.Store.Neighbors(ctx.Context(), ctx.Code)
	if err != nil {
		return nil, err
	}
	result := restdata.Country{}
	err = api.fillCountry(ctx, country, neighbors, &result)
	if err != nil {
		return nil, err
	}
	if created {
		return responseCreated{
			Location: result.Links.Self.Href,
			Body:     result,
		}, nil
	}
	return result, nil
}

// CountryPatch merges years into an existing record.
func (api *restAPI) CountryPatch(ctx *requestContext, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.YearsRequest)
	if !valid {
		return nil, errUnmarshal
	}
	err := travel.ValidateYears(req.YearsVisited, api.Clock.Now())
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}

	country, err := travel.AddYears(ctx.Context(), api.Store, ctx.Code, req.YearsVisited)
	if err != nil {
		return nil, notFound(err)
	}
	result := restdata.Country{}
	err = api.fillCountry(ctx, country, travel.Neighbors{}, &result)
	return result, err
}

// CountryDelete removes a record.  The response links to the records
// that were on either side of it.
func (api *restAPI) CountryDelete(ctx *requestContext) (interface{}, error) {
	country, neighbors, err := api.Store.DeleteCountry(ctx.Context(), ctx.Code)
	if err != nil {
		return nil, notFound(err)
	}
	result := restdata.DeleteResponse{
		Message: fmt.Sprintf("%v deleted", country.Name),
	}
	err = api.fillLinks(ctx, "", neighbors, &result.Links)
	return result, err
}

// PopulateCountries adds the country routes to a router.  r should be
// rooted at the root of the service URL tree, e.g. "/".
func (api *restAPI) PopulateCountries(r *mux.Router) {
	r.Path("/countries").Name("countries").Handler(&resourceHandler{
		Representation: restdata.CountryList{},
		Context:        api.Context,
		Logger:         api.Logger,
		Get:            api.CountryList,
	})
	r.Path("/countries/visited").Name("visited").Handler(&resourceHandler{
		Representation: restdata.VisitedSummary{},
		Context:        api.Context,
		Logger:         api.Logger,
		Get:            api.VisitedGet,
	})
	r.Path("/countries/{code}").Name("country").Handler(&resourceHandler{
		Representation: restdata.YearsRequest{},
		Context:        api.Context,
		Logger:         api.Logger,
		Get:            api.CountryGet,
		Put:            api.CountryPut,
		Patch:          api.CountryPatch,
		Delete:         api.CountryDelete,
	})
}
