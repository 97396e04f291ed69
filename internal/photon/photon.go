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

// Package photon models the photon shot noise a digital camera would have
// produced at a given light level, and expresses it as an AV1 film grain
// scaling curve. The light level proxy is the ISO setting at which a 35mm
// camera (36×24mm sensor) would have mapped the focal plane exposure to the
// output lightness observed in the image. Photon arrival is Poisson, so noise
// grows as the square root of the expected electron count; the model adds
// sensor read noise and photo response non-uniformity on top, and projects
// the result through the encoding transfer function.
package photon

import (
	"math"

	"github.com/mlnoga/photongrain/internal/grain"
	"github.com/mlnoga/photongrain/internal/transfer"
)

// Sensor model constants
const (
	// Photon flux for a daylight-like spectrum, in photons per lx·s per µm²
	PhotonsPerLxSPerUm2 = 11260

	// Order of magnitude for cameras of the 2010-2020 decade, taking the
	// color filter array into account
	QuantumEfficiency = 0.20

	// Reasonable values for current sensors. Read noise is typically higher
	// at low ISO settings, but matters less there
	PhotoResponseNonUniformity = 0.005
	InputReferredReadNoise     = 1.5 // electrons rms

	// Calibrates the internal noise units to the grain strength the AV1
	// synthesis engine produces for a given scaling value
	grainScale = 7.88

	// Fixed random seed for the grain synthesis pseudo-random number generator
	grainSeed = 7391

	// Number of luma scaling points emitted, the maximum AV1 allows
	numScalingPoints = 14
)

// Synthesizer settings, shared between the command line and the REST API
type Op struct {
	Width            int32  `json:"width"`
	Height           int32  `json:"height"`
	ISO              int32  `json:"iso"`
	TransferFunction string `json:"transferFunction"`
}

// Resolves the transfer function and synthesizes the grain parameters.
// The settings must have been validated by the caller; only an unknown
// transfer function identifier is reported as an error.
func (op *Op) GrainParams() (*grain.Params, error) {
	tf, err := transfer.ForName(op.TransferFunction)
	if err != nil {
		return nil, err
	}
	return GrainParams(op.Width, op.Height, op.ISO, tf), nil
}

// Returns the modeled electron count per pixel at linear light level 1.0.
// The electron budget is anchored at the transfer function's mid-tone, so an
// HDR curve with a small mid-tone fraction yields a far larger full-scale
// count than an SDR curve at the same ISO setting.
func FullScaleElectrons(width, height int32, iso float32, tf *transfer.Function) float32 {
	// focal plane exposure for a mid-tone (typically an 18% reflectance
	// card) per ISO 12232, in lx·s
	midToneExposure := 10.0 / iso

	// per-pixel photosensitive area in µm², for an image covering a full
	// 35mm sensor (36mm × 24mm)
	pixelAreaUm2 := float32(36000*24000) / (float32(width) * float32(height))

	midToneElectrons := QuantumEfficiency * PhotonsPerLxSPerUm2 * midToneExposure * pixelAreaUm2
	return midToneElectrons / tf.MidTone
}

// Returns the noise at encoded position x in [0,1], as a linear light
// fraction and projected into the encoded domain. The projection linearizes
// the transfer function across ±2 noise amplitudes around the sample with a
// finite difference, avoiding the need for a closed-form derivative.
func NoiseAt(x, fullScaleElectrons float32, tf *transfer.Function) (linear, linearNoise, encodedNoise float32) {
	linear = tf.ToLinear(x)
	electrons := fullScaleElectrons * linear

	// quadrature sum of the noise sources, in electrons rms. Photon shot
	// noise has variance equal to the electron count, so it enters the sum
	// of squares without squaring
	noiseElectrons := float32(math.Sqrt(float64(InputReferredReadNoise*InputReferredReadNoise +
		electrons +
		PhotoResponseNonUniformity*PhotoResponseNonUniformity*electrons*electrons)))

	linearNoise = noiseElectrons / fullScaleElectrons
	rangeStart := maxf(0, linear-2*linearNoise)
	rangeEnd := minf(1, linear+2*linearNoise)
	tfSlope := (tf.FromLinear(rangeEnd) - tf.FromLinear(rangeStart)) / (rangeEnd - rangeStart)
	encodedNoise = linearNoise * tfSlope
	return linear, linearNoise, encodedNoise
}

// Returns the unquantized grain scaling amplitude at encoded position x in
// [0,1], in the units of a grain table scaling point
func Amplitude(x, fullScaleElectrons float32, tf *transfer.Function) float32 {
	_, _, encodedNoise := NoiseAt(x, fullScaleElectrons, tf)
	return 255 * grainScale * encodedNoise
}

// Synthesizes AV1 film grain parameters modeling the photon noise of an
// image with the given dimensions, taken at the given ISO setting and
// encoded with the given transfer function. Emits luma-only grain with no
// spatial correlation: 14 scaling points across the encoded range, zero
// chroma points, zero AR lag, overlap enabled and a fixed random seed.
func GrainParams(width, height, iso int32, tf *transfer.Function) *grain.Params {
	fullScale := FullScaleElectrons(width, height, float32(iso), tf)

	points := make([]grain.Point, numScalingPoints)
	for i := range points {
		x := float32(i) / (numScalingPoints - 1)
		amplitude := Amplitude(x, fullScale, tf)
		points[i] = grain.Point{
			X:       int32(roundf(255 * x)),
			Scaling: int32(minf(255, roundf(amplitude))),
		}
	}

	return &grain.Params{
		ApplyGrain:       true,
		UpdateParameters: true,
		RandomSeed:       grainSeed,
		ScalingPointsY:   points,
		ScalingShift:     8,
		ARCoeffLag:       0,
		ARCoeffsCb:       []int32{0},
		ARCoeffsCr:       []int32{0},
		ARCoeffShift:     6,
		OverlapFlag:      true,
	}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func roundf(x float32) float32 { return float32(math.Round(float64(x))) }
