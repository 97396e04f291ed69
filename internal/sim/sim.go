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

// Package sim verifies the analytic photon noise model with a Monte Carlo
// simulation. It draws per-pixel electron counts with Poisson statistics,
// adds read noise and photo response non-uniformity, pushes the samples
// through the transfer function, and compares the robust scale of the
// resulting encoded values against the model prediction.
package sim

import (
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/photongrain/internal/photon"
	"github.com/mlnoga/photongrain/internal/stats"
	"github.com/mlnoga/photongrain/internal/transfer"
	"github.com/pbnjay/memory"
	"github.com/valyala/fastrand"
)

// Simulation settings, shared between the command line and the REST API
type Op struct {
	photon.Op
	Samples int    `json:"samples"` // pixels simulated per scaling point
	Seed    uint32 `json:"seed"`    // random seed, results are deterministic per seed
}

// Simulation outcome for one scaling point
type PointResult struct {
	X        int32   `json:"x"`        // encoded position in [0,255]
	Linear   float32 `json:"linear"`   // linear light at that position
	Analytic float32 `json:"analytic"` // model noise in the encoded domain
	Observed float32 `json:"observed"` // robust scale of the simulated samples
}

// Simulation outcome across the scaling point grid
type Result struct {
	FullScaleElectrons float32       `json:"fullScaleElectrons"`
	Samples            int           `json:"samples"`
	Points             []PointResult `json:"points"`
}

// Subsample size beyond which the robust estimators switch to sampling
const numSubSamples = 128 * 1024

// Caps the per-point sample count so the two float32 working buffers stay
// within 70% of physical memory
func maxSamples() int {
	budget := memory.TotalMemory() / 10 * 7
	return int(budget / (2 * 4))
}

// Runs the simulation, logging a per-point comparison table to logWriter.
// Fails only for an unknown transfer function identifier.
func (op *Op) Run(logWriter io.Writer) (res *Result, err error) {
	tf, err := transfer.ForName(op.TransferFunction)
	if err != nil {
		return nil, err
	}

	numSamples := op.Samples
	if numSamples < 1024 {
		numSamples = 1024
	}
	if max := maxSamples(); numSamples > max {
		fmt.Fprintf(logWriter, "Limiting samples from %d to %d to fit memory\n", numSamples, max)
		numSamples = max
	}

	fullScale := photon.FullScaleElectrons(op.Width, op.Height, float32(op.ISO), tf)
	fmt.Fprintf(logWriter, "Simulating %dx%d ISO %d %s with %d samples per point, %.5g electrons at full scale\n",
		op.Width, op.Height, op.ISO, tf.Name, numSamples, fullScale)

	rng := randSource{}
	rng.rng.Seed(op.Seed)

	res = &Result{FullScaleElectrons: fullScale, Samples: numSamples}
	samples := make([]float32, numSamples)
	scratch := make([]float32, numSamples)

	fmt.Fprintf(logWriter, "%5s %9s %9s %9s %7s\n", "x", "linear", "analytic", "observed", "ratio")
	for i := 0; i < 14; i++ {
		x := float32(i) / 13
		linear, _, encodedNoise := photon.NoiseAt(x, fullScale, tf)
		meanElectrons := fullScale * linear

		for j := range samples {
			electrons := rng.poisson(meanElectrons)
			// fixed-pattern gain error and read noise
			electrons *= 1 + photon.PhotoResponseNonUniformity*rng.gauss()
			electrons += photon.InputReferredReadNoise * rng.gauss()
			l := electrons / fullScale
			if l < 0 {
				l = 0
			} else if l > 1 {
				l = 1
			}
			samples[j] = tf.FromLinear(l)
		}

		var location, scale float32
		if numSamples > numSubSamples {
			sub := scratch[:numSubSamples]
			location = stats.FastApproxMedian(samples, sub, &rng.rng)
			scale = stats.FastApproxMAD(samples, location, sub, &rng.rng)
		} else {
			copy(scratch, samples)
			location = stats.Median(scratch)
			scale = stats.MAD(samples, location, scratch)
		}

		ratio := float32(math.NaN())
		if encodedNoise > 0 {
			ratio = scale / encodedNoise
		}
		pr := PointResult{X: int32(math.Round(float64(255 * x))), Linear: linear, Analytic: encodedNoise, Observed: scale}
		res.Points = append(res.Points, pr)
		fmt.Fprintf(logWriter, "%5d %9.3g %9.3g %9.3g %7.3f\n", pr.X, pr.Linear, pr.Analytic, pr.Observed, ratio)
	}
	return res, nil
}

// Deterministic random source with uniform, gaussian and Poisson deviates
type randSource struct {
	rng      fastrand.RNG
	spare    float32
	hasSpare bool
}

// Returns a uniform deviate in (0,1)
func (r *randSource) uniform() float32 {
	return (float32(r.rng.Uint32n(1<<24)) + 0.5) * (1.0 / (1 << 24))
}

// Returns a standard normal deviate via Box-Muller
func (r *randSource) gauss() float32 {
	if r.hasSpare {
		r.hasSpare = false
		return r.spare
	}
	u1, u2 := r.uniform(), r.uniform()
	radius := float32(math.Sqrt(-2 * math.Log(float64(u1))))
	angle := 2 * math.Pi * float64(u2)
	r.spare = radius * float32(math.Sin(angle))
	r.hasSpare = true
	return radius * float32(math.Cos(angle))
}

// Returns a Poisson deviate with the given mean. Uses Knuth's product method
// for small means and a normal approximation above, where the distribution
// is close to gaussian anyway.
func (r *randSource) poisson(mean float32) float32 {
	if mean <= 0 {
		return 0
	}
	if mean < 50 {
		limit := float32(math.Exp(float64(-mean)))
		k, p := float32(0), float32(1)
		for {
			p *= r.uniform()
			if p <= limit {
				return k
			}
			k++
		}
	}
	n := mean + float32(math.Sqrt(float64(mean)))*r.gauss()
	if n < 0 {
		return 0
	}
	return float32(math.Round(float64(n)))
}
