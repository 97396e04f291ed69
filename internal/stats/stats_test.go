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

package stats

import (
	"math"
	"testing"

	"github.com/valyala/fastrand"
)

func TestMedian(t *testing.T) {
	rng := fastrand.RNG{}
	for i := 1; i < 500; i++ {
		// prepare array of given length with a random permutation of 1..n
		arr := make([]float32, i)
		for j := 0; j < len(arr); j++ {
			arr[j] = float32(j + 1)
		}
		for j := 0; j < len(arr); j++ {
			k := rng.Uint32n(uint32(len(arr)))
			arr[j], arr[k] = arr[k], arr[j]
		}

		// the selector returns the upper middle element for even lengths
		expect := float32(i/2 + 1)
		if (i & 1) != 0 {
			expect = float32((i + 1) / 2)
		}

		res := Median(arr)
		if res != expect {
			t.Errorf("median(perm(1..%d))=%f; want %f", i, res, expect)
		}
	}
}

func TestMAD(t *testing.T) {
	data := []float32{1, 2, 3, 4, 100}
	scratch := make([]float32, len(data))
	location := Median(data)
	if location != 3 {
		t.Fatalf("median=%f; want 3", location)
	}
	mad := MAD(data, location, scratch)
	if math.Abs(float64(mad-1.4826)) > 1e-4 {
		t.Errorf("MAD=%f; want 1.4826", mad)
	}

	constant := []float32{5, 5, 5, 5}
	if mad := MAD(constant, 5, scratch[:4]); mad != 0 {
		t.Errorf("MAD of constant data=%f; want 0", mad)
	}
}

func TestMeanStdDev(t *testing.T) {
	mean, stdDev := MeanStdDev([]float32{1, 2, 3, 4})
	if math.Abs(float64(mean-2.5)) > 1e-6 {
		t.Errorf("mean=%f; want 2.5", mean)
	}
	want := float32(math.Sqrt(1.25))
	if math.Abs(float64(stdDev-want)) > 1e-6 {
		t.Errorf("stdDev=%f; want %f", stdDev, want)
	}
}

func TestFastApproxMedian(t *testing.T) {
	// uniform data in [0,1): the sampled median must land near 0.5
	rng := fastrand.RNG{}
	data := make([]float32, 1<<20)
	for i := range data {
		data[i] = float32(rng.Uint32n(1<<20)) / (1 << 20)
	}
	samples := make([]float32, 16384)
	median := FastApproxMedian(data, samples, &rng)
	if median < 0.47 || median > 0.53 {
		t.Errorf("sampled median=%f; want ~0.5", median)
	}

	// uniform MAD is 0.25 scaled by 1.4826
	mad := FastApproxMAD(data, median, samples, &rng)
	want := float32(0.25 * 1.4826)
	if mad < want*0.9 || mad > want*1.1 {
		t.Errorf("sampled MAD=%f; want ~%f", mad, want)
	}
}
