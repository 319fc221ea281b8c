// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
)

// CountryList runs a filtered, sorted, paginated listing.
func (api *restAPI) CountryList(ctx *requestContext) (interface{}, error) {
	q := ctx.CountryQuery()
	page, err := api.Store.Countries(ctx.Context(), q)
	if err != nil {
		return nil, err
	}

	result := restdata.CountryList{
		Metadata: restdata.ListMetadata{
			Page:           q.Page,
			Size:           q.Size,
			TotalPages:     q.TotalPages(page.Total),
			TotalCountries: page.Total,
		},
		Countries: make([]restdata.CountrySummary, len(page.Countries)),
	}
	for i, country := range page.Countries {
		summary := &result.Countries[i]
		summary.Code = country.Code
		summary.Name = country.Name
		summary.Continent = country.Continent
		summary.YearsVisited = yearsData(country.YearsVisited)
		summary.LastUpdated = country.LastUpdated.UTC().Format(restdata.TimeLayout)
		err = buildURLs(api.Router, ctx.Request, "code", country.Code).
			Link(&summary.Links.Self, "country").
			Error
		if err != nil {
			return nil, err
		}
	}

	var base string
	err = buildURLs(api.Router, ctx.Request).URL(&base, "countries").Error
	if err != nil {
		return nil, err
	}
	result.Links.Self = pageLink(base, q, q.Page)
	if q.Page > 1 && page.Total > 0 {
		prev := q.Page - 1
		if last := result.Metadata.TotalPages; prev > last {
			prev = last
		}
		result.Links.Prev = pageLink(base, q, prev)
	}
	if q.Page < result.Metadata.TotalPages {
		result.Links.Next = pageLink(base, q, q.Page+1)
	}
	return result, nil
}

func pageLink(base string, q travel.CountryQuery, page int) *restdata.Link {
	return &restdata.Link{Href: base + "?" + queryString(q, page)}
}
