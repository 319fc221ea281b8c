// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"io/ioutil"
	"net/http/httptest"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/chart"
	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/memory"
	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/restserver"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/diffeo/go-travelhistory/travel/traveltest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Suite runs the client against a real server over loopback HTTP.
type Suite struct {
	suite.Suite
	MediaType string
	Clock     *clock.Mock
	Server    *httptest.Server
	Client    *Client
}

func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Clock.Set(traveltest.Epoch)
	logger := logrus.New()
	logger.Out = ioutil.Discard
	router := restserver.NewRouter(memory.NewWithClock(s.Clock), &traveltest.Directory{}, restserver.Options{
		Clock:  s.Clock,
		Logger: logger,
	})
	s.Server = httptest.NewServer(router)

	var err error
	s.Client, err = NewWithClient(context.Background(), s.Server.URL+"/", nil, s.MediaType)
	s.Require().NoError(err)
}

func (s *Suite) TearDownTest() {
	s.Server.Close()
}

func (s *Suite) ctx() context.Context {
	return context.Background()
}

func TestJSON(t *testing.T) {
	suite.Run(t, &Suite{})
}

func TestCBOR(t *testing.T) {
	suite.Run(t, &Suite{MediaType: restdata.CBORMediaType})
}

func (s *Suite) TestRootDocument() {
	s.Equal(s.Server.URL+"/countries/{code}", s.Client.Representation.CountryURL)
	s.Equal(s.Server.URL+"/countries/visited", s.Client.Representation.VisitedURL)
}

func (s *Suite) TestPutAndGet() {
	country, created, err := s.Client.PutCountry(s.ctx(), "fr", []int{2012, 2011})
	s.Require().NoError(err)
	s.True(created)
	s.Equal("FR", country.Code)
	s.Equal("France", country.Name)
	s.Equal([]int{2011, 2012}, country.YearsVisited)

	country, created, err = s.Client.PutCountry(s.ctx(), "FR", nil)
	s.Require().NoError(err)
	s.False(created)
	s.Equal([]int{2011, 2012}, country.YearsVisited)

	country, err = s.Client.Country(s.ctx(), "FR")
	s.Require().NoError(err)
	s.Equal("Paris", country.Capital)
	s.Equal("2024-06-01 12:00:00", country.LastUpdated)
	s.Equal(s.Server.URL+"/countries/FR", country.Links.Self.Href)
}

func (s *Suite) TestErrors() {
	_, err := s.Client.Country(s.ctx(), "DE")
	s.Equal(travel.ErrNoSuchCountry{Code: "DE"}, err)

	_, err = s.Client.Country(s.ctx(), "DEU")
	s.Equal(travel.ErrInvalidCode{Code: "DEU"}, err)

	_, _, err = s.Client.PutCountry(s.ctx(), "DE", []int{1800})
	s.Equal(travel.ErrInvalidYear{Year: 1800}, err)

	_, _, err = s.Client.PutCountry(s.ctx(), "ZZ", []int{2011})
	s.Equal(directory.ErrNotFound, err)

	_, err = s.Client.AddYears(s.ctx(), "DE", []int{2011})
	s.Equal(travel.ErrNoSuchCountry{Code: "DE"}, err)

	_, err = s.Client.DeleteCountry(s.ctx(), "DE")
	s.Equal(travel.ErrNoSuchCountry{Code: "DE"}, err)
}

func (s *Suite) TestAddYearsAndDelete() {
	for _, code := range []string{"DE", "FR", "US"} {
		_, _, err := s.Client.PutCountry(s.ctx(), code, []int{2011})
		s.Require().NoError(err)
	}

	country, err := s.Client.AddYears(s.ctx(), "FR", []int{2014, 2011})
	s.Require().NoError(err)
	s.Equal([]int{2011, 2014}, country.YearsVisited)

	country, err = s.Client.Country(s.ctx(), "FR")
	s.Require().NoError(err)
	s.Require().NotNil(country.Links.Next)
	var next restdata.Country
	s.Require().NoError(s.Client.Follow(s.ctx(), country.Links.Next, &next))
	s.Equal("United States", next.Name)

	deleted, err := s.Client.DeleteCountry(s.ctx(), "FR")
	s.Require().NoError(err)
	s.Equal("France deleted", deleted.Message)
	s.Equal(s.Server.URL+"/countries/DE", deleted.Links.Prev.Href)
	s.Equal(s.Server.URL+"/countries/US", deleted.Links.Next.Href)
}

func (s *Suite) TestCountries() {
	for _, code := range []string{"CA", "DE", "FR", "IT", "US"} {
		_, _, err := s.Client.PutCountry(s.ctx(), code, []int{2011})
		s.Require().NoError(err)
	}

	list, err := s.Client.Countries(s.ctx(), travel.CountryQuery{
		Continent: "eu",
		Sort:      travel.ParseSort("-name"),
		Size:      2,
	})
	s.Require().NoError(err)
	s.Equal(3, list.Metadata.TotalCountries)
	s.Equal(2, list.Metadata.TotalPages)
	s.Require().Len(list.Countries, 2)
	s.Equal("IT", list.Countries[0].Code)
	s.Equal("DE", list.Countries[1].Code)

	s.Require().NotNil(list.Links.Next)
	var page2 restdata.CountryList
	s.Require().NoError(s.Client.Follow(s.ctx(), list.Links.Next, &page2))
	s.Require().Len(page2.Countries, 1)
	s.Equal("FR", page2.Countries[0].Code)
	s.Nil(page2.Links.Next)

	list, err = s.Client.Countries(s.ctx(), travel.CountryQuery{Language: "en", Year: 2011})
	s.Require().NoError(err)
	s.Equal(2, list.Metadata.TotalCountries)
	s.Equal(s.Server.URL+"/countries?language=en&year=2011&sort=code&page=1&size=10", list.Links.Self.Href)
}

func (s *Suite) TestVisited() {
	_, err := s.Client.Visited(s.ctx())
	s.Equal(travel.ErrNoData, err)

	for _, code := range []string{"CA", "FR", "JP", "US"} {
		_, _, err = s.Client.PutCountry(s.ctx(), code, []int{2011})
		s.Require().NoError(err)
	}
	summary, err := s.Client.Visited(s.ctx())
	s.Require().NoError(err)
	s.Equal([]restdata.ContinentCount{
		{Continent: "North America", Count: 2},
		{Continent: "Asia", Count: 1},
		{Continent: "Europe", Count: 1},
	}, summary.Continents)
}

func (s *Suite) TestVisitedImageAsData() {
	_, _, err := s.Client.PutCountry(s.ctx(), "FR", nil)
	s.Require().NoError(err)
	contentType, body, err := s.Client.VisitedImage(s.ctx())
	s.Require().NoError(err)
	s.Equal(restdata.V1JSONMediaType, contentType)
	s.Contains(string(body), `"Europe"`)
}

func TestVisitedImage(t *testing.T) {
	ctx := context.Background()
	logger := logrus.New()
	logger.Out = ioutil.Discard
	router := restserver.NewRouter(memory.New(), &traveltest.Directory{}, restserver.Options{
		Renderer: chart.Bar{},
		Logger:   logger,
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client, err := New(ctx, server.URL+"/")
	require.NoError(t, err)

	_, _, err = client.VisitedImage(ctx)
	assert.Equal(t, travel.ErrNoData, err)

	_, _, err = client.PutCountry(ctx, "JP", []int{2019})
	require.NoError(t, err)
	contentType, body, err := client.VisitedImage(ctx)
	require.NoError(t, err)
	assert.Equal(t, chart.SVGMediaType, contentType)
	assert.Contains(t, string(body), "<svg")
	assert.Contains(t, string(body), "Asia")
}
