// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package plot renders film grain scaling curves into a raster image for
// visual inspection, written as PNG or 16-bit friendly TIFF by file suffix.
package plot

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/photongrain/internal/grain"
	"golang.org/x/image/tiff"
)

// One named scaling curve to draw
type Curve struct {
	Name   string        `json:"name"`
	Points []grain.Point `json:"points"`
}

const margin = 32

var (
	background = color.RGBA{255, 255, 255, 255}
	axisColor  = color.RGBA{96, 96, 96, 255}
	gridColor  = color.RGBA{224, 224, 224, 255}
)

// Renders the given curves into a fresh raster of the given dimensions.
// Both axes span [0,255]: encoded signal value on x, grain scaling on y.
func Render(curves []Curve, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, background)
		}
	}

	x0, y0 := margin, height-margin // plot origin, bottom left
	x1, y1 := width-margin, margin  // top right

	// grid at quarter intervals, then axes on top
	for i := 1; i <= 3; i++ {
		gx := x0 + (x1-x0)*i/4
		gy := y0 + (y1-y0)*i/4
		drawLine(img, gx, y0, gx, y1, gridColor)
		drawLine(img, x0, gy, x1, gy, gridColor)
	}
	drawLine(img, x0, y0, x1, y0, axisColor)
	drawLine(img, x0, y0, x0, y1, axisColor)

	palette := colorful.FastHappyPalette(len(curves))
	for ci, curve := range curves {
		r, g, b := palette[ci].RGB255()
		col := color.RGBA{r, g, b, 255}
		for i := 1; i < len(curve.Points); i++ {
			px, py := curve.Points[i-1], curve.Points[i]
			drawLine(img,
				x0+int(px.X)*(x1-x0)/255, y0+int(px.Scaling)*(y1-y0)/255,
				x0+int(py.X)*(x1-x0)/255, y0+int(py.Scaling)*(y1-y0)/255, col)
		}
		// swatch in the top left corner identifying the curve
		for y := 0; y < 8; y++ {
			for x := 0; x < 16; x++ {
				img.SetRGBA(x0+x, y1+ci*12+y, col)
			}
		}
	}
	return img
}

// Draws a straight line segment with integer DDA stepping
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx, dy := x1-x0, y1-y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.SetRGBA(x0, y0, col)
		return
	}
	for i := 0; i <= steps; i++ {
		img.SetRGBA(x0+dx*i/steps, y0+dy*i/steps, col)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Writes the image to a file with the given name, choosing the encoder by
// file suffix: .png for PNG, .tif or .tiff for deflate-compressed TIFF
func WriteFile(fileName string, img image.Image) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := Write(w, fileName, img); err != nil {
		return err
	}
	return w.Flush()
}

// Writes the image to the given writer with the encoder selected by the
// suffix of fileName
func Write(w io.Writer, fileName string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return png.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%s: unknown image suffix, expected .png, .tif or .tiff", fileName)
	}
}
