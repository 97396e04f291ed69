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
	"fmt"
	"math"

	"github.com/mlnoga/photongrain/internal/transfer"
	"gonum.org/v1/gonum/optimize"
)

// Inverts the noise model: finds the ISO setting at which the grain scaling
// amplitude at encoded position x in [0,255] matches the given target, for
// an image of the given dimensions and transfer function. Minimizes the
// squared amplitude error over log ISO with Nelder-Mead, as the model has no
// convenient closed-form inverse.
func FitISO(width, height int32, tf *transfer.Function, x int32, target float32) (iso float32, err error) {
	xf := float32(x) / 255

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			iso := float32(math.Exp(p[0]))
			fullScale := FullScaleElectrons(width, height, iso, tf)
			diff := float64(Amplitude(xf, fullScale, tf) - target)
			return diff * diff
		},
	}
	x0 := []float64{math.Log(1600)}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, err
	}

	iso = float32(math.Exp(result.X[0]))
	achieved := Amplitude(xf, FullScaleElectrons(width, height, iso, tf), tf)
	if math.Abs(float64(achieved-target)) > 0.5 {
		return iso, fmt.Errorf("no ISO setting reaches amplitude %.4g at x=%d, nearest is %.4g at ISO %.5g", target, x, achieved, iso)
	}
	return iso, nil
}
