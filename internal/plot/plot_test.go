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

package plot

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlnoga/photongrain/internal/grain"
	"github.com/mlnoga/photongrain/internal/photon"
	"github.com/mlnoga/photongrain/internal/transfer"
	"golang.org/x/image/tiff"
)

func testCurves() []Curve {
	curves := make([]Curve, len(transfer.Functions))
	for i, tf := range transfer.Functions {
		params := photon.GrainParams(3840, 2160, 12800, tf)
		curves[i] = Curve{Name: tf.Name, Points: params.ScalingPointsY}
	}
	return curves
}

func TestRender(t *testing.T) {
	img := Render(testCurves(), 640, 480)
	if got := img.Bounds().Dx(); got != 640 {
		t.Errorf("width=%d; want 640", got)
	}
	if got := img.Bounds().Dy(); got != 480 {
		t.Errorf("height=%d; want 480", got)
	}

	// curves and swatches must leave pixels that are neither background,
	// grid nor axis colored
	colored := 0
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			c := img.RGBAAt(x, y)
			if c != background && c != axisColor && c != gridColor {
				colored++
			}
		}
	}
	if colored < 100 {
		t.Errorf("%d colored pixels; want at least 100 from curves", colored)
	}
}

func TestRenderSingleCurve(t *testing.T) {
	curve := Curve{Name: "flat", Points: []grain.Point{{X: 0, Scaling: 100}, {X: 255, Scaling: 100}}}
	img := Render([]Curve{curve}, 320, 240)

	// a horizontal line must color a full plot row
	colored := 0
	for x := margin; x < 320-margin; x++ {
		for y := 0; y < 240; y++ {
			c := img.RGBAAt(x, y)
			if c != background && c != axisColor && c != gridColor {
				colored++
				break
			}
		}
	}
	if colored < (320 - 2*margin) {
		t.Errorf("%d columns colored; want %d", colored, 320-2*margin)
	}
}

func TestWriteFile(t *testing.T) {
	img := Render(testCurves(), 320, 240)
	dir := t.TempDir()

	pngName := filepath.Join(dir, "curves.png")
	if err := WriteFile(pngName, img); err != nil {
		t.Fatalf("png write error: %s", err.Error())
	}
	f, err := os.Open(pngName)
	if err != nil {
		t.Fatalf("png open error: %s", err.Error())
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png decode error: %s", err.Error())
	}
	if decoded.Bounds().Dx() != 320 || decoded.Bounds().Dy() != 240 {
		t.Errorf("png bounds %v; want 320x240", decoded.Bounds())
	}

	tiffName := filepath.Join(dir, "curves.tif")
	if err := WriteFile(tiffName, img); err != nil {
		t.Fatalf("tiff write error: %s", err.Error())
	}
	g, err := os.Open(tiffName)
	if err != nil {
		t.Fatalf("tiff open error: %s", err.Error())
	}
	defer g.Close()
	decoded, err = tiff.Decode(g)
	if err != nil {
		t.Fatalf("tiff decode error: %s", err.Error())
	}
	if decoded.Bounds().Dx() != 320 || decoded.Bounds().Dy() != 240 {
		t.Errorf("tiff bounds %v; want 320x240", decoded.Bounds())
	}

	if err := WriteFile(filepath.Join(dir, "curves.bmp"), img); err == nil {
		t.Errorf("write with unknown suffix succeeded; want error")
	}
}
