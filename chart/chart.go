// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package chart draws the visited-per-continent summary as a bar
// chart, either as SVG (Bar) or as a PNG image (PNG).  Both can be
// passed as a restserver.Renderer.
package chart

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/diffeo/go-travelhistory/travel"
)

// SVGMediaType is the media type of Bar's output.
const SVGMediaType = "image/svg+xml"

// Bar renders a horizontal bar chart, one bar per continent, with a
// vertical grid line at every whole count.  The first count is drawn
// at the bottom.  The zero value uses default dimensions.
type Bar struct {
	// Width and Height are the image size in pixels.
	Width, Height int

	// Title is drawn above the bars.
	Title string
}

const (
	defaultWidth  = 640
	defaultHeight = 480
	defaultTitle  = "Top Visited Continents"
	xLabel        = "Number of Countries Visited"
	yLabel        = "Continent"

	// margin is kept above and below the plot and, halved, to its
	// right; labelMargin is kept to its left for continent names.
	margin      = 60
	labelMargin = 130
)

type bar struct {
	X, Y, Width, Height int
	LabelX, LabelY      int
	Continent           string
	Count               int
}

type gridLine struct {
	X     int
	Label int
}

type chartData struct {
	Width, Height    int
	Title            string
	TitleX           int
	XLabel, YLabel   string
	XLabelX, XLabelY int
	YLabelX, YLabelY int
	Left, Right      int
	Top, Bottom      int
	Bars             []bar
	Grid             []gridLine
}

var svgTemplate = template.Must(template.New("bar").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<rect width="100%" height="100%" fill="white"/>
<text x="{{.TitleX}}" y="30" text-anchor="middle" font-family="sans-serif" font-size="18">{{.Title}}</text>
{{range .Grid}}<line x1="{{.X}}" y1="{{$.Top}}" x2="{{.X}}" y2="{{$.Bottom}}" stroke="#cccccc" stroke-dasharray="4 4"/>
<text x="{{.X}}" y="{{$.Bottom}}" dy="16" text-anchor="middle" font-family="sans-serif" font-size="12">{{.Label}}</text>
{{end}}{{range .Bars}}<rect x="{{.X}}" y="{{.Y}}" width="{{.Width}}" height="{{.Height}}" fill="blue"><title>{{.Continent}}: {{.Count}}</title></rect>
<text x="{{.LabelX}}" y="{{.LabelY}}" text-anchor="end" font-family="sans-serif" font-size="12">{{.Continent}}</text>
{{end}}<line x1="{{.Left}}" y1="{{.Bottom}}" x2="{{.Right}}" y2="{{.Bottom}}" stroke="black"/>
<line x1="{{.Left}}" y1="{{.Top}}" x2="{{.Left}}" y2="{{.Bottom}}" stroke="black"/>
<text x="{{.XLabelX}}" y="{{.XLabelY}}" text-anchor="middle" font-family="sans-serif" font-size="14">{{.XLabel}}</text>
<text x="{{.YLabelX}}" y="{{.YLabelY}}" text-anchor="middle" font-family="sans-serif" font-size="14">{{.YLabel}}</text>
</svg>
`))

// ContentType returns the SVG media type.
func (b Bar) ContentType() string {
	return SVGMediaType
}

// Render draws counts in the order given.
func (b Bar) Render(counts []travel.ContinentCount) ([]byte, error) {
	data, err := b.layout(counts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// layout positions every element of the chart in pixel coordinates,
// with y growing downwards.
func (b Bar) layout(counts []travel.ContinentCount) (chartData, error) {
	if len(counts) == 0 {
		return chartData{}, travel.ErrNoData
	}
	data := chartData{
		Width:  b.Width,
		Height: b.Height,
		Title:  b.Title,
		XLabel: xLabel,
		YLabel: yLabel,
	}
	if data.Width <= labelMargin+margin {
		data.Width = defaultWidth
	}
	if data.Height <= 2*margin {
		data.Height = defaultHeight
	}
	if data.Title == "" {
		data.Title = defaultTitle
	}
	data.Left = labelMargin
	data.Right = data.Width - margin/2
	data.Top = margin
	data.Bottom = data.Height - margin
	data.TitleX = data.Width / 2
	data.XLabelX = (data.Left + data.Right) / 2
	data.XLabelY = data.Bottom + 40
	data.YLabelX = data.Left / 2
	data.YLabelY = data.Top - 10

	max := 0
	for _, count := range counts {
		if count.Count > max {
			max = count.Count
		}
	}
	if max < 1 {
		max = 1
	}
	plotWidth := data.Right - data.Left
	slot := (data.Bottom - data.Top) / len(counts)
	for i, count := range counts {
		y := data.Bottom - (i+1)*slot + slot/8
		data.Bars = append(data.Bars, bar{
			X:         data.Left,
			Y:         y,
			Width:     count.Count * plotWidth / max,
			Height:    slot * 3 / 4,
			LabelX:    data.Left - 8,
			LabelY:    y + slot*3/8 + 4,
			Continent: count.Continent,
			Count:     count.Count,
		})
	}
	for n := 1; n <= max; n++ {
		data.Grid = append(data.Grid, gridLine{
			X:     data.Left + n*plotWidth/max,
			Label: n,
		})
	}
	return data, nil
}
