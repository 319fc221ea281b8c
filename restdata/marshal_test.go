// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	for _, contentType := range []string{
		"application/json",
		"application/json; charset=utf-8",
		"text/json",
		JSONMediaType,
		V1JSONMediaType,
	} {
		var req YearsRequest
		err := Decode(contentType, strings.NewReader(`{"years_visited": [2012, 2011]}`), &req)
		if assert.NoError(t, err, contentType) {
			assert.Equal(t, []int{2012, 2011}, req.YearsVisited)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	var req YearsRequest
	err := Decode("", strings.NewReader(`{}`), &req)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "application/octet-stream"}, err)

	err = Decode("text/plain", strings.NewReader(`{}`), &req)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "text/plain"}, err)

	err = Decode("application/json; =", strings.NewReader(`{}`), &req)
	assert.IsType(t, ErrBadRequest{}, err)

	err = Decode("application/json", strings.NewReader(`{"years_visited": ["soon"]}`), &req)
	assert.IsType(t, ErrBadRequest{}, err)
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(V1JSONMediaType, &buf, DeleteResponse{
		Message: "France deleted",
		Links:   Links{Prev: &Link{Href: "/countries/DE"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"message":"France deleted","_links":{"prev":{"href":"/countries/DE"}}}`, buf.String())
}

func TestJSONRoundTrip(t *testing.T) {
	country := Country{
		Code:          "FR",
		Name:          "France",
		ContinentCode: "EU",
		Languages:     []Language{{Code: "fr", Name: "French", Native: "Français"}},
		Currencies:    []string{"EUR"},
		YearsVisited:  []int{2011, 2012},
		LastUpdated:   "2024-06-01 12:00:00",
		Links:         Links{Self: &Link{Href: "/countries/FR"}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(V1JSONMediaType, &buf, country))
	assert.Contains(t, buf.String(), `"continent_code":"EU"`)
	assert.Contains(t, buf.String(), `"years_visited":[2011,2012]`)
	assert.Contains(t, buf.String(), `"_links":{"self":{"href":"/countries/FR"}}`)
	assert.False(t, strings.HasSuffix(buf.String(), "\n"))

	var decoded Country
	require.NoError(t, Decode("application/json", &buf, &decoded))
	assert.Equal(t, country, decoded)
}

func TestCBORRoundTrip(t *testing.T) {
	country := Country{
		Code:         "FR",
		Name:         "France",
		Languages:    []Language{{Code: "fr", Name: "French", Native: "Français"}},
		Currencies:   []string{"EUR"},
		YearsVisited: []int{2011, 2012},
		LastUpdated:  "2024-06-01 12:00:00",
		Links:        Links{Self: &Link{Href: "/countries/FR"}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(CBORMediaType, &buf, country))

	var decoded Country
	require.NoError(t, Decode(CBORMediaType, &buf, &decoded))
	assert.Equal(t, country, decoded)
}

func TestEncodeUnsupported(t *testing.T) {
	var buf bytes.Buffer
	err := Encode("text/html", &buf, RootData{})
	assert.Equal(t, ErrUnsupportedMediaType{Type: "text/html"}, err)
}

func TestCanonicalMediaType(t *testing.T) {
	assert.Equal(t, V1JSONMediaType, CanonicalMediaType("application/json"))
	assert.Equal(t, CBORMediaType, CanonicalMediaType(CBORMediaType))
	assert.Equal(t, "", CanonicalMediaType("image/png"))
}
