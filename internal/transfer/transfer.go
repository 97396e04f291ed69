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

package transfer

import (
	"fmt"
	"math"
)

// A photometric transfer function, mapping between encoded signal values and
// linear display light, both normalized to [0,1]. Both directions are
// monotonically increasing and mutual inverses up to rounding.
type Function struct {
	// Maps an encoded value in [0,1] to linear light in [0,1] (the EOTF)
	ToLinear func(encoded float32) float32

	// Maps linear light in [0,1] to an encoded value in [0,1] (the inverse EOTF)
	FromLinear func(linear float32) float32

	// The linear light level considered standard output sensitivity mid-gray.
	// 0.18 for SDR curves per ISO 12232. For HDR curves 18% of peak luminance
	// is not a sane mid-tone, so PQ uses 26 cd/m² out of 10000, and HLG
	// 26 cd/m² out of a nominal 1000 cd/m² peak display luminance.
	MidTone float32

	// Identifier accepted by ForName, e.g. "srgb"
	Name string
}

var (
	// ITU-R BT.470 System M, a pure gamma of 2.2
	Gamma22 = &Function{
		ToLinear:   func(g float32) float32 { return powf(g, 2.2) },
		FromLinear: func(l float32) float32 { return powf(l, 1/2.2) },
		MidTone:    0.18,
		Name:       "gamma22",
	}

	// ITU-R BT.470 System B/G, a pure gamma of 2.8
	Gamma28 = &Function{
		ToLinear:   func(g float32) float32 { return powf(g, 2.8) },
		FromLinear: func(l float32) float32 { return powf(l, 1/2.8) },
		MidTone:    0.18,
		Name:       "gamma28",
	}

	// IEC 61966-2-1 sRGB, piecewise linear below 0.04045 encoded
	SRGB = &Function{
		ToLinear:   srgbToLinear,
		FromLinear: srgbFromLinear,
		MidTone:    0.18,
		Name:       "srgb",
	}

	// SMPTE ST 2084 perceptual quantizer, absolute scale with 1.0 = 10000 cd/m².
	// Mid-tone of 26 cd/m² per ITU-R BT.2408-4 page 6
	PQ = &Function{
		ToLinear:   pqToLinear,
		FromLinear: pqFromLinear,
		MidTone:    26.0 / 10000,
		Name:       "pq",
	}

	// ITU-R BT.2100 hybrid log-gamma in terms of display light, assuming a
	// nominal peak display luminance of 1000 cd/m² and hence a system gamma
	// of 1.2
	HLG = &Function{
		ToLinear:   hlgToLinear,
		FromLinear: hlgFromLinear,
		MidTone:    26.0 / 1000,
		Name:       "hlg",
	}
)

// The closed set of supported transfer functions, in CLI display order
var Functions = []*Function{Gamma22, Gamma28, SRGB, PQ, HLG}

// Returns the transfer function with the given identifier, or an error if the
// identifier is not in the closed set. Silently substituting a default here
// would corrupt noise amplitudes by orders of magnitude for HDR material, so
// callers must treat the error as fatal.
func ForName(name string) (*Function, error) {
	for _, tf := range Functions {
		if tf.Name == name {
			return tf, nil
		}
	}
	return nil, fmt.Errorf("unknown transfer function '%s', expected one of %s", name, Names())
}

// Returns the identifiers of all supported transfer functions for usage messages
func Names() string {
	s := ""
	for i, tf := range Functions {
		if i > 0 {
			s += "|"
		}
		s += tf.Name
	}
	return s
}

func powf(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) }

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func srgbToLinear(srgb float32) float32 {
	if srgb <= 0.04045 {
		return srgb / 12.92
	}
	return powf((srgb+0.055)/1.055, 2.4)
}

func srgbFromLinear(linear float32) float32 {
	if linear <= 0.0031308 {
		return 12.92 * linear
	}
	return 1.055*powf(linear, 1/2.4) - 0.055
}

// SMPTE ST 2084 constants
const (
	pqM1 = 2610.0 / 16384
	pqM2 = 128 * 2523.0 / 4096
	pqC1 = 3424.0 / 4096
	pqC2 = 32 * 2413.0 / 4096
	pqC3 = 32 * 2392.0 / 4096
)

func pqToLinear(pq float32) float32 {
	pqPowInvM2 := powf(pq, 1/pqM2)
	return powf(maxf(0, pqPowInvM2-pqC1)/(pqC2-pqC3*pqPowInvM2), 1/pqM1)
}

func pqFromLinear(linear float32) float32 {
	linearPowM1 := powf(linear, pqM1)
	return powf((pqC1+pqC2*linearPowM1)/(1+pqC3*linearPowM1), pqM2)
}

// ITU-R BT.2100 HLG constants
const (
	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

// EOTF = OOTF ∘ OETF⁻¹
func hlgToLinear(hlg float32) float32 {
	var linear float32
	if hlg <= 0.5 {
		linear = hlg * hlg / 3
	} else {
		linear = (float32(math.Exp(float64((hlg-hlgC)/hlgA))) + hlgB) / 12
	}
	return powf(linear, 1.2)
}

// EOTF⁻¹ = OETF ∘ OOTF⁻¹
func hlgFromLinear(linear float32) float32 {
	linear = powf(linear, 1/1.2)
	if linear <= 1.0/12 {
		return float32(math.Sqrt(float64(3 * linear)))
	}
	return hlgA*float32(math.Log(float64(12*linear-hlgB))) + hlgC
}
