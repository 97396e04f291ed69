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

package grain

import (
	"fmt"
)

// One grain scaling point. X is the encoded signal value, Scaling the grain
// amplitude at that value. Both components lie in [0,255].
type Point struct {
	X       int32 `json:"x"`
	Scaling int32 `json:"scaling"`
}

// AV1 film grain synthesis parameters, as stored in a filmgrn1 table entry
type Params struct {
	ApplyGrain       bool   `json:"applyGrain"`
	RandomSeed       uint16 `json:"randomSeed"`
	UpdateParameters bool   `json:"updateParameters"`

	ScalingPointsY  []Point `json:"scalingPointsY"`  // up to 14 points, X strictly increasing
	ScalingPointsCb []Point `json:"scalingPointsCb"` // up to 10 points
	ScalingPointsCr []Point `json:"scalingPointsCr"` // up to 10 points
	ScalingShift    int32   `json:"scalingShift"`    // in [8,11]

	ARCoeffLag   int32   `json:"arCoeffLag"`   // in [0,3]
	ARCoeffsY    []int32 `json:"arCoeffsY"`    // 2*lag*(lag+1) coefficients in [-128,127]
	ARCoeffsCb   []int32 `json:"arCoeffsCb"`   // 2*lag*(lag+1)+1 coefficients
	ARCoeffsCr   []int32 `json:"arCoeffsCr"`   // 2*lag*(lag+1)+1 coefficients
	ARCoeffShift int32   `json:"arCoeffShift"` // in [6,9]

	GrainScaleShift int32 `json:"grainScaleShift"` // in [0,3]

	CbMult     int32 `json:"cbMult"`
	CbLumaMult int32 `json:"cbLumaMult"`
	CbOffset   int32 `json:"cbOffset"`
	CrMult     int32 `json:"crMult"`
	CrLumaMult int32 `json:"crLumaMult"`
	CrOffset   int32 `json:"crOffset"`

	OverlapFlag           bool `json:"overlapFlag"`
	ChromaScalingFromLuma bool `json:"chromaScalingFromLuma"`
}

// Number of luma AR coefficients for the given lag, per the AV1 specification
func numARCoeffsY(lag int32) int { return int(2 * lag * (lag + 1)) }

// Checks that all parameters lie within the ranges the AV1 specification
// permits a bitstream to carry. Tables built by the synthesizer are valid by
// construction; this guards tables arriving from files or API clients.
func (p *Params) Validate() error {
	if len(p.ScalingPointsY) > 14 {
		return fmt.Errorf("%d luma scaling points, expected at most 14", len(p.ScalingPointsY))
	}
	if len(p.ScalingPointsCb) > 10 {
		return fmt.Errorf("%d Cb scaling points, expected at most 10", len(p.ScalingPointsCb))
	}
	if len(p.ScalingPointsCr) > 10 {
		return fmt.Errorf("%d Cr scaling points, expected at most 10", len(p.ScalingPointsCr))
	}
	for _, pts := range [][]Point{p.ScalingPointsY, p.ScalingPointsCb, p.ScalingPointsCr} {
		for i, pt := range pts {
			if pt.X < 0 || pt.X > 255 || pt.Scaling < 0 || pt.Scaling > 255 {
				return fmt.Errorf("scaling point %d is (%d,%d), expected components in [0,255]", i, pt.X, pt.Scaling)
			}
			if i > 0 && pt.X <= pts[i-1].X {
				return fmt.Errorf("scaling point %d has x=%d after x=%d, expected strictly increasing", i, pt.X, pts[i-1].X)
			}
		}
	}
	if p.ScalingShift < 8 || p.ScalingShift > 11 {
		return fmt.Errorf("scaling shift %d, expected [8,11]", p.ScalingShift)
	}
	if p.ARCoeffLag < 0 || p.ARCoeffLag > 3 {
		return fmt.Errorf("AR coefficient lag %d, expected [0,3]", p.ARCoeffLag)
	}
	numY := numARCoeffsY(p.ARCoeffLag)
	if len(p.ARCoeffsY) != numY {
		return fmt.Errorf("%d luma AR coefficients, expected %d for lag %d", len(p.ARCoeffsY), numY, p.ARCoeffLag)
	}
	if len(p.ARCoeffsCb) != numY+1 || len(p.ARCoeffsCr) != numY+1 {
		return fmt.Errorf("%d/%d chroma AR coefficients, expected %d for lag %d", len(p.ARCoeffsCb), len(p.ARCoeffsCr), numY+1, p.ARCoeffLag)
	}
	for _, cs := range [][]int32{p.ARCoeffsY, p.ARCoeffsCb, p.ARCoeffsCr} {
		for i, c := range cs {
			if c < -128 || c > 127 {
				return fmt.Errorf("AR coefficient %d is %d, expected [-128,127]", i, c)
			}
		}
	}
	if p.ARCoeffShift < 6 || p.ARCoeffShift > 9 {
		return fmt.Errorf("AR coefficient shift %d, expected [6,9]", p.ARCoeffShift)
	}
	if p.GrainScaleShift < 0 || p.GrainScaleShift > 3 {
		return fmt.Errorf("grain scale shift %d, expected [0,3]", p.GrainScaleShift)
	}
	return nil
}

// Deep equality of all parameters, used to merge table entries on append
func (p *Params) Equal(q *Params) bool {
	if p.ApplyGrain != q.ApplyGrain || p.RandomSeed != q.RandomSeed ||
		p.UpdateParameters != q.UpdateParameters ||
		p.ScalingShift != q.ScalingShift || p.ARCoeffLag != q.ARCoeffLag ||
		p.ARCoeffShift != q.ARCoeffShift || p.GrainScaleShift != q.GrainScaleShift ||
		p.CbMult != q.CbMult || p.CbLumaMult != q.CbLumaMult || p.CbOffset != q.CbOffset ||
		p.CrMult != q.CrMult || p.CrLumaMult != q.CrLumaMult || p.CrOffset != q.CrOffset ||
		p.OverlapFlag != q.OverlapFlag || p.ChromaScalingFromLuma != q.ChromaScalingFromLuma {
		return false
	}
	if !pointsEqual(p.ScalingPointsY, q.ScalingPointsY) ||
		!pointsEqual(p.ScalingPointsCb, q.ScalingPointsCb) ||
		!pointsEqual(p.ScalingPointsCr, q.ScalingPointsCr) {
		return false
	}
	return coeffsEqual(p.ARCoeffsY, q.ARCoeffsY) &&
		coeffsEqual(p.ARCoeffsCb, q.ARCoeffsCb) &&
		coeffsEqual(p.ARCoeffsCr, q.ARCoeffsCr)
}

func pointsEqual(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func coeffsEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
