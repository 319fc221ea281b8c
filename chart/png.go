// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"github.com/diffeo/go-travelhistory/travel"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PNGMediaType is the media type of PNG's output.
const PNGMediaType = "image/png"

var (
	barColor  = color.RGBA{0, 0, 0xff, 0xff}
	gridColor = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
)

// PNG renders the same chart as Bar as a raster image.  Text uses a
// fixed 7x13 bitmap font, so labels outside ASCII are drawn as boxes.
type PNG struct {
	Bar
}

// ContentType returns the PNG media type.
func (p PNG) ContentType() string {
	return PNGMediaType
}

// Render draws counts in the order given.
func (p PNG) Render(counts []travel.ContinentCount) ([]byte, error) {
	data, err := p.layout(counts)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, data.Width, data.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, line := range data.Grid {
		for y := data.Top; y < data.Bottom; y++ {
			// 4 on, 4 off
			if (y-data.Top)%8 < 4 {
				img.Set(line.X, y, gridColor)
			}
		}
		drawText(img, strconv.Itoa(line.Label), line.X, data.Bottom+16, alignCenter)
	}
	for _, b := range data.Bars {
		rect := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		draw.Draw(img, rect, &image.Uniform{C: barColor}, image.Point{}, draw.Src)
		drawText(img, b.Continent, b.LabelX, b.LabelY, alignRight)
	}
	xAxis := image.Rect(data.Left, data.Bottom, data.Right, data.Bottom+1)
	draw.Draw(img, xAxis, image.Black, image.Point{}, draw.Src)
	yAxis := image.Rect(data.Left-1, data.Top, data.Left, data.Bottom+1)
	draw.Draw(img, yAxis, image.Black, image.Point{}, draw.Src)
	drawText(img, data.Title, data.TitleX, 30, alignCenter)
	drawText(img, data.XLabel, data.XLabelX, data.XLabelY, alignCenter)
	drawText(img, data.YLabel, data.YLabelX, data.YLabelY, alignCenter)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

type alignment int

const (
	alignLeft alignment = iota
	alignCenter
	alignRight
)

// drawText draws s in black with its baseline at y, positioned
// horizontally relative to x by align.
func drawText(img draw.Image, s string, x, y int, align alignment) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
	}
	dot := fixed.P(x, y)
	switch align {
	case alignCenter:
		dot.X -= d.MeasureString(s) / 2
	case alignRight:
		dot.X -= d.MeasureString(s)
	}
	d.Dot = dot
	d.DrawString(s)
}
