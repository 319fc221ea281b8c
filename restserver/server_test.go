// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/memory"
	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/diffeo/go-travelhistory/travel/traveltest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// Suite drives the REST service end to end over an in-memory store.
type Suite struct {
	suite.Suite
	Clock     *clock.Mock
	Store     travel.Store
	Directory *traveltest.Directory
	Renderer  Renderer
	Router    http.Handler
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.Out = ioutil.Discard
	return logger
}

func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Clock.Set(traveltest.Epoch)
	s.Store = memory.NewWithClock(s.Clock)
	s.Directory = &traveltest.Directory{}
	s.Renderer = nil
	s.route()
}

func (s *Suite) route() {
	s.Router = NewRouter(s.Store, s.Directory, Options{
		Clock:    s.Clock,
		Renderer: s.Renderer,
		Logger:   quietLogger(),
	})
}

func (s *Suite) request(method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)
	return resp
}

func (s *Suite) do(method, path, body string) *httptest.ResponseRecorder {
	contentType := ""
	if body != "" {
		contentType = "application/json"
	}
	return s.request(method, path, contentType, body)
}

func (s *Suite) decode(resp *httptest.ResponseRecorder, out interface{}) {
	err := restdata.Decode(resp.Header().Get("Content-Type"), resp.Body, out)
	s.Require().NoError(err)
}

func (s *Suite) errorResponse(resp *httptest.ResponseRecorder, status int) restdata.ErrorResponse {
	s.Require().Equal(status, resp.Code, resp.Body.String())
	var errResp restdata.ErrorResponse
	s.decode(resp, &errResp)
	return errResp
}

func (s *Suite) put(code string, years string) {
	resp := s.do("PUT", "/countries/"+code, `{"years_visited": [`+years+`]}`)
	s.Require().Contains([]int{http.StatusOK, http.StatusCreated}, resp.Code, resp.Body.String())
}

func TestServer(t *testing.T) {
	suite.Run(t, &Suite{})
}

func (s *Suite) TestRoot() {
	resp := s.do("GET", "/", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	s.Equal(restdata.V1JSONMediaType, resp.Header().Get("Content-Type"))
	var root restdata.RootData
	s.decode(resp, &root)
	s.Equal("http://example.com/countries{?continent,currency,language,year,sort,page,size}", root.CountriesURL)
	s.Equal("http://example.com/countries/{code}", root.CountryURL)
	s.Equal("http://example.com/countries/visited", root.VisitedURL)
}

func (s *Suite) TestPutCreates() {
	resp := s.do("PUT", "/countries/fr", `{"years_visited": [2012, 2011, 2012]}`)
	s.Require().Equal(http.StatusCreated, resp.Code, resp.Body.String())
	s.Equal("http://example.com/countries/FR", resp.Header().Get("Location"))
	s.NotContains(resp.Body.String(), `"prev"`)
	s.NotContains(resp.Body.String(), `"next"`)

	var country restdata.Country
	s.decode(resp, &country)
	s.Equal("FR", country.Code)
	s.Equal("France", country.Name)
	s.Equal("Paris", country.Capital)
	s.Equal("Europe", country.Continent)
	s.Equal("EU", country.ContinentCode)
	s.Equal([]restdata.Language{{Code: "fr", Name: "French", Native: "Français"}}, country.Languages)
	s.Equal([]string{"EUR"}, country.Currencies)
	s.Equal([]int{2011, 2012}, country.YearsVisited)
	s.Equal("2024-06-01 12:00:00", country.LastUpdated)
	s.Equal(&restdata.Link{Href: "http://example.com/countries/FR"}, country.Links.Self)
	s.Nil(country.Links.Prev)
	s.Nil(country.Links.Next)
}

func (s *Suite) TestPutEmptyBody() {
	resp := s.request("PUT", "/countries/DE", "", "")
	s.Require().Equal(http.StatusCreated, resp.Code, resp.Body.String())
	s.Contains(resp.Body.String(), `"years_visited":[]`)
}

func (s *Suite) TestPutMerges() {
	s.put("FR", "2011")
	s.Clock.Add(time.Minute)

	resp := s.do("PUT", "/countries/FR", `{"years_visited": [2015, 2011]}`)
	s.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())
	s.Empty(resp.Header().Get("Location"))
	var country restdata.Country
	s.decode(resp, &country)
	s.Equal([]int{2011, 2015}, country.YearsVisited)
	s.Equal(2, s.Directory.Calls())
}

func (s *Suite) TestPutInvalidYear() {
	for _, body := range []string{
		`{"years_visited": [1899]}`,
		`{"years_visited": [2011, 2025]}`,
	} {
		errResp := s.errorResponse(s.do("PUT", "/countries/FR", body), http.StatusBadRequest)
		s.Equal("ErrInvalidYear", errResp.Error)
	}
	s.Equal(0, s.Directory.Calls())

	resp := s.do("GET", "/countries/FR", "")
	s.Equal(http.StatusNotFound, resp.Code)
}

func (s *Suite) TestInvalidYearLeavesRecord() {
	s.put("FR", "2011")
	s.Clock.Add(time.Hour)
	calls := s.Directory.Calls()
	tooLate := strconv.Itoa(s.Clock.Now().Year() + 1)

	for _, method := range []string{"PUT", "PATCH"} {
		for _, years := range []string{"1899", "2012, " + tooLate} {
			body := `{"years_visited": [` + years + `]}`
			errResp := s.errorResponse(s.do(method, "/countries/FR", body), http.StatusBadRequest)
			s.Equal("ErrInvalidYear", errResp.Error, method+" "+body)
		}
	}
	s.Equal(calls, s.Directory.Calls())

	resp := s.do("GET", "/countries/FR", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	var country restdata.Country
	s.decode(resp, &country)
	s.Equal([]int{2011}, country.YearsVisited)
	s.Equal("2024-06-01 12:00:00", country.LastUpdated)
}

func (s *Suite) TestInvalidCode() {
	for _, path := range []string{"/countries/FRA", "/countries/F1", "/countries/x"} {
		for _, method := range []string{"GET", "PUT", "PATCH", "DELETE"} {
			body := ""
			if method == "PUT" || method == "PATCH" {
				body = `{"years_visited": [2011]}`
			}
			errResp := s.errorResponse(s.do(method, path, body), http.StatusBadRequest)
			s.Equal("ErrInvalidCode", errResp.Error, method+" "+path)
		}
	}
	s.Equal(0, s.Directory.Calls())
}

func (s *Suite) TestPutDirectoryErrors() {
	errResp := s.errorResponse(s.do("PUT", "/countries/ZZ", `{}`), http.StatusNotFound)
	s.Equal("ErrDirectoryNotFound", errResp.Error)

	s.Directory.Err = directory.ErrTimeout
	errResp = s.errorResponse(s.do("PUT", "/countries/FR", `{}`), http.StatusGatewayTimeout)
	s.Equal("ErrDirectoryTimeout", errResp.Error)

	s.Directory.Err = &directory.UpstreamError{StatusCode: 500, Err: errors.New("boom")}
	errResp = s.errorResponse(s.do("PUT", "/countries/FR", `{}`), http.StatusBadGateway)
	s.Equal("ErrUpstream", errResp.Error)
	s.Equal("500", errResp.Value)

	_, err := s.Store.Country(context.Background(), "FR")
	s.Equal(travel.ErrNoSuchCountry{Code: "FR"}, err)
}

func (s *Suite) TestGetNotFound() {
	errResp := s.errorResponse(s.do("GET", "/countries/fr", ""), http.StatusNotFound)
	s.Equal("ErrNoSuchCountry", errResp.Error)
	s.Equal("FR", errResp.Value)
}

func (s *Suite) TestGetNeighbors() {
	s.put("US", "2019")
	s.put("DE", "")
	s.put("FR", "2011")

	resp := s.do("GET", "/countries/fr", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	var country restdata.Country
	s.decode(resp, &country)
	s.Equal("http://example.com/countries/FR", country.Links.Self.Href)
	if s.NotNil(country.Links.Prev) {
		s.Equal("http://example.com/countries/DE", country.Links.Prev.Href)
	}
	if s.NotNil(country.Links.Next) {
		s.Equal("http://example.com/countries/US", country.Links.Next.Href)
	}

	resp = s.do("GET", "/countries/DE", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	s.NotContains(resp.Body.String(), `"prev"`)
	country = restdata.Country{}
	s.decode(resp, &country)
	s.Nil(country.Links.Prev)
	s.Equal("http://example.com/countries/FR", country.Links.Next.Href)
}

func (s *Suite) TestPatch() {
	errResp := s.errorResponse(s.do("PATCH", "/countries/FR", `{"years_visited": [2011]}`), http.StatusNotFound)
	s.Equal("ErrNoSuchCountry", errResp.Error)
	s.Equal(http.StatusNotFound, s.do("GET", "/countries/FR", "").Code)

	s.put("DE", "")
	s.put("FR", "2011")
	s.Clock.Add(time.Hour)
	resp := s.do("PATCH", "/countries/fr", `{"years_visited": [2013, 2011]}`)
	s.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())
	var country restdata.Country
	s.decode(resp, &country)
	s.Equal([]int{2011, 2013}, country.YearsVisited)
	s.Equal("France", country.Name)
	s.Equal("2024-06-01 13:00:00", country.LastUpdated)
	s.Equal("http://example.com/countries/FR", country.Links.Self.Href)
	s.Nil(country.Links.Prev)
	s.Equal(2, s.Directory.Calls())

	errResp = s.errorResponse(s.do("PATCH", "/countries/FR", `{"years_visited": [1800]}`), http.StatusBadRequest)
	s.Equal("ErrInvalidYear", errResp.Error)
	s.Equal("1800", errResp.Value)
}

func (s *Suite) TestDelete() {
	s.put("DE", "")
	s.put("FR", "2011")
	s.put("US", "")

	resp := s.do("DELETE", "/countries/fr", "")
	s.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())
	var deleted restdata.DeleteResponse
	s.decode(resp, &deleted)
	s.Equal("France deleted", deleted.Message)
	s.Nil(deleted.Links.Self)
	if s.NotNil(deleted.Links.Prev) {
		s.Equal("http://example.com/countries/DE", deleted.Links.Prev.Href)
	}
	if s.NotNil(deleted.Links.Next) {
		s.Equal("http://example.com/countries/US", deleted.Links.Next.Href)
	}

	errResp := s.errorResponse(s.do("DELETE", "/countries/FR", ""), http.StatusNotFound)
	s.Equal("ErrNoSuchCountry", errResp.Error)
	s.Equal(http.StatusNotFound, s.do("GET", "/countries/FR", "").Code)
}

func (s *Suite) TestList() {
	s.put("DE", "2015")
	s.put("FR", "2011,2012")
	s.put("IT", "2011")
	s.put("JP", "2019")

	resp := s.do("GET", "/countries?continent=eu&sort=-name&size=2", "")
	s.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())
	var list restdata.CountryList
	s.decode(resp, &list)
	s.Equal(restdata.ListMetadata{Page: 1, Size: 2, TotalPages: 2, TotalCountries: 3}, list.Metadata)
	if s.Len(list.Countries, 2) {
		s.Equal("IT", list.Countries[0].Code)
		s.Equal("Italy", list.Countries[0].Name)
		s.Equal("Europe", list.Countries[0].Continent)
		s.Equal([]int{2011}, list.Countries[0].YearsVisited)
		s.Equal("2024-06-01 12:00:00", list.Countries[0].LastUpdated)
		s.Equal("http://example.com/countries/IT", list.Countries[0].Links.Self.Href)
		s.Equal("DE", list.Countries[1].Code)
	}
	s.Equal("http://example.com/countries?continent=EU&sort=-name&page=1&size=2", list.Links.Self.Href)
	s.Nil(list.Links.Prev)
	if s.NotNil(list.Links.Next) {
		s.Equal("http://example.com/countries?continent=EU&sort=-name&page=2&size=2", list.Links.Next.Href)
	}

	resp = s.do("GET", "/countries?continent=eu&sort=-name&size=2&page=2", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	list = restdata.CountryList{}
	s.decode(resp, &list)
	if s.Len(list.Countries, 1) {
		s.Equal("FR", list.Countries[0].Code)
	}
	s.Equal("http://example.com/countries?continent=EU&sort=-name&page=1&size=2", list.Links.Prev.Href)
	s.Nil(list.Links.Next)
}

func (s *Suite) TestListFilters() {
	s.put("CA", "2011")
	s.put("FR", "2011")
	s.put("US", "2012")

	tests := []struct {
		query string
		codes []string
		self  string
	}{
		{"language=EN", []string{"CA", "US"}, "language=en&sort=code&page=1&size=10"},
		{"currency=usd", []string{"US"}, "currency=USD&sort=code&page=1&size=10"},
		{"year=2011&sort=-code", []string{"FR", "CA"}, "year=2011&sort=-code&page=1&size=10"},
		{"year=201", nil, "year=201&sort=code&page=1&size=10"},
		{"continent=NA&currency=CAD&language=fr&year=2011&sort=name,bogus", []string{"CA"},
			"continent=NA&currency=CAD&language=fr&year=2011&sort=name&page=1&size=10"},
	}
	for _, test := range tests {
		resp := s.do("GET", "/countries?"+test.query, "")
		s.Require().Equal(http.StatusOK, resp.Code)
		var list restdata.CountryList
		s.decode(resp, &list)
		var codes []string
		for _, summary := range list.Countries {
			codes = append(codes, summary.Code)
		}
		s.Equal(test.codes, codes, test.query)
		s.Equal("http://example.com/countries?"+test.self, list.Links.Self.Href)
	}
}

func (s *Suite) TestListDefaults() {
	s.put("FR", "2011")
	resp := s.do("GET", "/countries?page=abc&size=0&year=soon&sort=", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	var list restdata.CountryList
	s.decode(resp, &list)
	s.Equal(restdata.ListMetadata{Page: 1, Size: 10, TotalPages: 1, TotalCountries: 1}, list.Metadata)
	s.Equal("http://example.com/countries?sort=code&page=1&size=10", list.Links.Self.Href)

	resp = s.do("GET", "/countries?size=1000", "")
	list = restdata.CountryList{}
	s.decode(resp, &list)
	s.Equal(travel.MaxPageSize, list.Metadata.Size)
}

func (s *Suite) TestListHugePage() {
	s.put("FR", "2011")
	resp := s.do("GET", "/countries?page=9223372036854775807", "")
	s.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())
	var list restdata.CountryList
	s.decode(resp, &list)
	s.Empty(list.Countries)
	s.Equal(restdata.ListMetadata{Page: travel.MaxPage, Size: 10, TotalPages: 1, TotalCountries: 1}, list.Metadata)
	if s.NotNil(list.Links.Prev) {
		s.Equal("http://example.com/countries?sort=code&page=1&size=10", list.Links.Prev.Href)
	}
	s.Nil(list.Links.Next)
}

func (s *Suite) TestListEmpty() {
	resp := s.do("GET", "/countries", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	s.Contains(resp.Body.String(), `"countries":[]`)
	var list restdata.CountryList
	s.decode(resp, &list)
	s.Equal(restdata.ListMetadata{Page: 1, Size: 10}, list.Metadata)
	s.Nil(list.Links.Prev)
	s.Nil(list.Links.Next)
}

func (s *Suite) TestVisitedEmpty() {
	s.put("FR", "")
	resp := s.do("GET", "/countries/visited", "")
	s.Equal(http.StatusNoContent, resp.Code)
	s.Empty(resp.Body.Bytes())
}

func (s *Suite) TestVisitedData() {
	s.put("CA", "2011")
	s.put("DE", "")
	s.put("FR", "2011")
	s.put("IT", "2012")
	s.put("US", "2013")
	s.put("JP", "2014")

	resp := s.do("GET", "/countries/visited", "")
	s.Require().Equal(http.StatusOK, resp.Code)
	var summary restdata.VisitedSummary
	s.decode(resp, &summary)
	s.Equal([]restdata.ContinentCount{
		{Continent: "Europe", Count: 2},
		{Continent: "North America", Count: 2},
		{Continent: "Asia", Count: 1},
	}, summary.Continents)
}

type textRenderer struct{}

func (textRenderer) ContentType() string { return "text/plain" }

func (textRenderer) Render(counts []travel.ContinentCount) ([]byte, error) {
	var buf bytes.Buffer
	for _, count := range counts {
		buf.WriteString(count.Continent)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func (s *Suite) TestVisitedRenderer() {
	s.Renderer = textRenderer{}
	s.route()
	s.put("JP", "2014")
	s.put("FR", "2011")
	s.put("IT", "2012")

	resp := s.request("GET", "/countries/visited", "", "", "Accept", "image/png")
	s.Require().Equal(http.StatusOK, resp.Code)
	s.Equal("text/plain", resp.Header().Get("Content-Type"))
	s.Equal("Europe\nAsia\n", resp.Body.String())
}

func (s *Suite) TestCBOR() {
	resp := s.request("PUT", "/countries/JP", restdata.CBORMediaType, cborBody(s, restdata.YearsRequest{YearsVisited: []int{2019}}),
		"Accept", restdata.CBORMediaType)
	s.Require().Equal(http.StatusCreated, resp.Code)
	s.Equal(restdata.CBORMediaType, resp.Header().Get("Content-Type"))
	var country restdata.Country
	s.decode(resp, &country)
	s.Equal("Japan", country.Name)
	s.Equal([]int{2019}, country.YearsVisited)
}

func cborBody(s *Suite, in interface{}) string {
	var buf bytes.Buffer
	s.Require().NoError(restdata.Encode(restdata.CBORMediaType, &buf, in))
	return buf.String()
}

func (s *Suite) TestBadRequests() {
	resp := s.request("PUT", "/countries/FR", "text/plain", "2011")
	s.Equal(http.StatusUnsupportedMediaType, resp.Code)

	resp = s.do("PUT", "/countries/FR", `{"years_visited": "2011"}`)
	s.Equal(http.StatusBadRequest, resp.Code)

	resp = s.do("PATCH", "/countries/FR", `{"years_visited": [`)
	s.Equal(http.StatusBadRequest, resp.Code)

	resp = s.do("POST", "/countries/FR", `{}`)
	s.Equal(http.StatusMethodNotAllowed, resp.Code)

	resp = s.do("DELETE", "/countries", "")
	s.Equal(http.StatusMethodNotAllowed, resp.Code)

	resp = s.request("GET", "/countries", "", "", "Accept", "text/html")
	s.Equal(http.StatusNotAcceptable, resp.Code)

	resp = s.request("GET", "/countries", "", "", "Accept", "application/json;q=2")
	s.Equal(http.StatusBadRequest, resp.Code)

	s.Equal(0, s.Directory.Calls())
}

func (s *Suite) TestHead() {
	s.put("FR", "2011")
	resp := s.do("HEAD", "/countries/FR", "")
	s.Equal(http.StatusOK, resp.Code)
	s.Empty(resp.Body.Bytes())
}

// panicStore panics on every read.
type panicStore struct {
	travel.Store
}

func (panicStore) Country(ctx context.Context, code string) (travel.Country, error) {
	panic("store exploded")
}

func (s *Suite) TestPanic() {
	s.Store = panicStore{Store: s.Store}
	s.route()
	errResp := s.errorResponse(s.do("GET", "/countries/FR", ""), http.StatusInternalServerError)
	s.Equal("panic", errResp.Error)
	s.Equal("store exploded", errResp.Message)
	s.NotEmpty(errResp.Stack)
}
