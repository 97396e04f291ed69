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

package photon

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mlnoga/photongrain/internal/transfer"
)

func TestScalingPointGrid(t *testing.T) {
	for _, tf := range transfer.Functions {
		params := GrainParams(3840, 2160, 25600, tf)
		pts := params.ScalingPointsY
		if len(pts) != 14 {
			t.Fatalf("%s: %d scaling points; want 14", tf.Name, len(pts))
		}
		if pts[0].X != 0 {
			t.Errorf("%s: first point x=%d; want 0", tf.Name, pts[0].X)
		}
		if pts[13].X != 255 {
			t.Errorf("%s: last point x=%d; want 255", tf.Name, pts[13].X)
		}
		for i, pt := range pts {
			if pt.X < 0 || pt.X > 255 || pt.Scaling < 0 || pt.Scaling > 255 {
				t.Errorf("%s: point %d is (%d,%d); want components in [0,255]", tf.Name, i, pt.X, pt.Scaling)
			}
			if i > 0 && pt.X <= pts[i-1].X {
				t.Errorf("%s: point %d has x=%d after x=%d; want strictly increasing", tf.Name, i, pt.X, pts[i-1].X)
			}
		}
		if err := params.Validate(); err != nil {
			t.Errorf("%s: synthesized parameters invalid: %s", tf.Name, err.Error())
		}
	}
}

func TestFixedDescriptorFields(t *testing.T) {
	params := GrainParams(1920, 1080, 800, transfer.SRGB)
	if !params.ApplyGrain || !params.UpdateParameters {
		t.Errorf("apply=%v update=%v; want both true", params.ApplyGrain, params.UpdateParameters)
	}
	if params.RandomSeed != 7391 {
		t.Errorf("random seed %d; want 7391", params.RandomSeed)
	}
	if params.ScalingShift != 8 {
		t.Errorf("scaling shift %d; want 8", params.ScalingShift)
	}
	if params.ARCoeffLag != 0 || params.ARCoeffShift != 6 {
		t.Errorf("AR lag %d shift %d; want 0 and 6", params.ARCoeffLag, params.ARCoeffShift)
	}
	if len(params.ScalingPointsCb) != 0 || len(params.ScalingPointsCr) != 0 {
		t.Errorf("%d/%d chroma points; want none", len(params.ScalingPointsCb), len(params.ScalingPointsCr))
	}
	if len(params.ARCoeffsY) != 0 || len(params.ARCoeffsCb) != 1 || len(params.ARCoeffsCr) != 1 {
		t.Errorf("AR coefficient counts %d/%d/%d; want 0/1/1", len(params.ARCoeffsY), len(params.ARCoeffsCb), len(params.ARCoeffsCr))
	}
	if params.ChromaScalingFromLuma {
		t.Errorf("chroma scaling from luma enabled; want disabled")
	}
	if !params.OverlapFlag {
		t.Errorf("overlap disabled; want enabled")
	}
}

func TestDeterminism(t *testing.T) {
	a := GrainParams(3840, 2160, 25600, transfer.SRGB)
	b := GrainParams(3840, 2160, 25600, transfer.SRGB)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated synthesis differs (-first +second):\n%s", diff)
	}
}

func TestFullScaleElectrons(t *testing.T) {
	// electron budget shrinks as ISO grows
	prev := FullScaleElectrons(3840, 2160, 100, transfer.SRGB)
	for _, iso := range []float32{200, 400, 1600, 6400, 25600, 102400} {
		fs := FullScaleElectrons(3840, 2160, iso, transfer.SRGB)
		if fs >= prev {
			t.Errorf("full scale electrons %v at ISO %v, %v at lower ISO; want strictly decreasing", fs, iso, prev)
		}
		prev = fs
	}

	// anchoring at the curve mid-tone gives PQ a far larger budget than sRGB
	srgb := FullScaleElectrons(3840, 2160, 25600, transfer.SRGB)
	pq := FullScaleElectrons(3840, 2160, 25600, transfer.PQ)
	ratio := pq / srgb
	want := float32(0.18 / 0.0026)
	if ratio < want*0.99 || ratio > want*1.01 {
		t.Errorf("PQ/sRGB full scale ratio %v; want %v", ratio, want)
	}
}

func TestMonotonicISOResponse(t *testing.T) {
	low := GrainParams(3840, 2160, 400, transfer.SRGB)
	high := GrainParams(3840, 2160, 25600, transfer.SRGB)
	for i := range low.ScalingPointsY {
		l, h := low.ScalingPointsY[i], high.ScalingPointsY[i]
		if h.Scaling < l.Scaling && h.Scaling < 255 {
			t.Errorf("point %d: scaling %d at ISO 25600 below %d at ISO 400", i, h.Scaling, l.Scaling)
		}
	}
}

// The canonical 4K scenario: at x=0 the electron term vanishes and only read
// noise remains, so the first scaling point follows from read noise alone
// projected through the local slope of the sRGB curve
func TestCanonicalSRGBScenario(t *testing.T) {
	params := GrainParams(3840, 2160, 25600, transfer.SRGB)

	pixelArea := float32(36000*24000) / (3840 * 2160)
	midToneElectrons := float32(QuantumEfficiency) * PhotonsPerLxSPerUm2 * (10.0 / 25600) * pixelArea
	fullScale := midToneElectrons / 0.18

	linearNoise := float32(InputReferredReadNoise) / fullScale
	rangeEnd := 2 * linearNoise
	slope := transfer.SRGB.FromLinear(rangeEnd) / rangeEnd
	want := int32(math.Round(float64(255 * 7.88 * linearNoise * slope)))

	got := params.ScalingPointsY[0]
	if got.X != 0 {
		t.Errorf("first point x=%d; want 0", got.X)
	}
	if got.Scaling < want-1 || got.Scaling > want+1 {
		t.Errorf("first point scaling %d; want %d±1 from read noise alone", got.Scaling, want)
	}

	// near full scale shot noise dominates: the electron term is far larger
	// than read noise and non-uniformity combined
	linear := transfer.SRGB.ToLinear(1)
	electrons := fullScale * linear
	shot := electrons
	rest := float32(InputReferredReadNoise*InputReferredReadNoise) +
		float32(PhotoResponseNonUniformity*PhotoResponseNonUniformity)*electrons*electrons
	if shot < 10*rest {
		t.Errorf("shot noise variance %v not dominant over %v near full scale", shot, rest)
	}
	if params.ScalingPointsY[13].X != 255 || params.ScalingPointsY[13].Scaling <= 0 {
		t.Errorf("last point (%d,%d); want x=255 with positive noise", params.ScalingPointsY[13].X, params.ScalingPointsY[13].Scaling)
	}
}
