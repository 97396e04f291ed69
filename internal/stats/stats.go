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

// Package stats provides robust location and scale estimators for float32
// sample buffers, used to compare simulated noise realizations against the
// analytic model.
package stats

import (
	"math"

	"github.com/valyala/fastrand"
)

// Returns the mean and standard deviation of the given data
func MeanStdDev(xs []float32) (mean, stdDev float32) {
	m := float32(0)
	for _, x := range xs {
		m += x
	}
	m /= float32(len(xs))
	v := float32(0)
	for _, x := range xs {
		diff := x - m
		v += diff * diff
	}
	v /= float32(len(xs))
	return m, float32(math.Sqrt(float64(v)))
}

// Returns the median of the data. Partially reorders the data.
// Data must not contain IEEE NaN
func Median(data []float32) float32 {
	return QSelect(data, (len(data)>>1)+1)
}

// Returns the median absolute deviation from the given location, scaled to
// be comparable with a standard deviation for normally distributed data.
// Uses the provided scratch buffer, which must be of equal length.
func MAD(data []float32, location float32, scratch []float32) float32 {
	for i, d := range data {
		scratch[i] = float32(math.Abs(float64(d - location)))
	}
	return Median(scratch) * 1.4826
}

// Returns an approximate median of presumably large data by taking the exact
// median of a random subsample. Uses the provided samples array as scratchpad.
func FastApproxMedian(data []float32, samples []float32, rng *fastrand.RNG) float32 {
	max := uint32(len(data))
	for i := range samples {
		samples[i] = data[rng.Uint32n(max)]
	}
	return Median(samples)
}

// Returns an approximate scaled median absolute deviation of presumably
// large data by subsampling. Uses the provided samples array as scratchpad.
func FastApproxMAD(data []float32, location float32, samples []float32, rng *fastrand.RNG) float32 {
	max := uint32(len(data))
	for i := range samples {
		samples[i] = float32(math.Abs(float64(data[rng.Uint32n(max)] - location)))
	}
	return Median(samples) * 1.4826
}

// Selects the kth lowest element from the data. Partially reorders the data.
// Data must not contain IEEE NaN
func QSelect(a []float32, k int) float32 {
	left, right := 0, len(a)-1
	for left < right {
		// partition around the middle pivot element
		mid := (left + right) >> 1
		pivot := a[mid]
		l, r := left-1, right+1
		for {
			for {
				l++
				if a[l] >= pivot {
					break
				}
			}
			for {
				r--
				if a[r] <= pivot {
					break
				}
			}
			if l >= r {
				break
			}
			a[l], a[r] = a[r], a[l]
		}
		index := r

		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k = k - offset
		}
	}
	return a[left]
}
