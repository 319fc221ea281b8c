// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"

	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
)

// Renderer draws the visited-per-continent summary, for instance as a
// bar chart image.
type Renderer interface {
	// ContentType is the media type of Render's output.
	ContentType() string

	// Render draws counts, which are sorted most-visited first
	// and never empty.
	Render(counts []travel.ContinentCount) ([]byte, error)
}

// VisitedGet returns the visited summary, either drawn by the
// configured Renderer or as data.  If nothing has been visited, the
// response is empty.
func (api *restAPI) VisitedGet(ctx *requestContext) (interface{}, error) {
	counts, err := api.Store.VisitedSummary(ctx.Context())
	if errors.Is(err, travel.ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if api.Renderer != nil {
		body, err := api.Renderer.Render(counts)
		if err != nil {
			return nil, err
		}
		return responseRaw{ContentType: api.Renderer.ContentType(), Body: body}, nil
	}

	result := restdata.VisitedSummary{
		Continents: make([]restdata.ContinentCount, len(counts)),
	}
	for i, count := range counts {
		result.Continents[i] = restdata.ContinentCount{
			Continent: count.Continent,
			Count:     count.Count,
		}
	}
	return result, nil
}
