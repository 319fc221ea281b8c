// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/diffeo/go-travelhistory/travel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	counts := []travel.ContinentCount{
		{Continent: "Europe", Count: 3},
		{Continent: "Asia", Count: 1},
	}
	out, err := Bar{}.Render(counts)
	require.NoError(t, err)
	svg := string(out)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `width="640"`)
	assert.Contains(t, svg, "Top Visited Continents")
	assert.Contains(t, svg, "Number of Countries Visited")
	assert.Contains(t, svg, ">Continent</text>")
	assert.Contains(t, svg, "Europe: 3")
	assert.Contains(t, svg, "Asia: 1")
	// background plus one per bar
	assert.Equal(t, 3, strings.Count(svg, "<rect"))
	// one grid line per whole count, plus both axes
	assert.Equal(t, 5, strings.Count(svg, "<line"))
}

func TestRenderBarWidths(t *testing.T) {
	out, err := Bar{Width: 400, Height: 320, Title: "T"}.Render([]travel.ContinentCount{
		{Continent: "Europe", Count: 2},
		{Continent: "Asia", Count: 1},
	})
	require.NoError(t, err)
	svg := string(out)
	// plot area is 400-130-30 = 240 pixels wide, 200 tall
	assert.Contains(t, svg, `<rect x="130" y="172" width="240" height="75" fill="blue"><title>Europe: 2`)
	assert.Contains(t, svg, `<rect x="130" y="72" width="120" height="75" fill="blue"><title>Asia: 1`)
}

func TestRenderEscapes(t *testing.T) {
	out, err := Bar{}.Render([]travel.ContinentCount{{Continent: "<Antarctica>", Count: 1}})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<Antarctica>")
	assert.Contains(t, string(out), "&lt;Antarctica&gt;")
}

func TestRenderEmpty(t *testing.T) {
	_, err := Bar{}.Render(nil)
	assert.Equal(t, travel.ErrNoData, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/svg+xml", Bar{}.ContentType())
}

func TestRenderPNG(t *testing.T) {
	renderer := PNG{Bar{Width: 400, Height: 320}}
	assert.Equal(t, "image/png", renderer.ContentType())

	out, err := renderer.Render([]travel.ContinentCount{
		{Continent: "Europe", Count: 2},
		{Continent: "Asia", Count: 1},
	})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 320), img.Bounds())

	at := func(x, y int) color.Color {
		return color.RGBAModel.Convert(img.At(x, y))
	}
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	black := color.RGBA{0, 0, 0, 0xff}
	assert.Equal(t, white, at(5, 5))
	assert.Equal(t, color.RGBA{0, 0, 0xff, 0xff}, barColor)
	// the full-width Europe bar, at the bottom
	assert.Equal(t, barColor, at(200, 210))
	assert.Equal(t, barColor, at(360, 210))
	// the half-width Asia bar, above it
	assert.Equal(t, barColor, at(200, 110))
	assert.Equal(t, white, at(300, 110))
	// axes
	assert.Equal(t, black, at(300, 260))
	assert.Equal(t, black, at(129, 100))
}

func TestRenderPNGEmpty(t *testing.T) {
	_, err := PNG{}.Render(nil)
	assert.Equal(t, travel.ErrNoData, err)
}
