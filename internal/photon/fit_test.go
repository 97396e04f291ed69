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
	"testing"

	"github.com/mlnoga/photongrain/internal/transfer"
)

func TestFitISORecovers(t *testing.T) {
	cases := []struct {
		tf  *transfer.Function
		iso float32
		x   int32
	}{
		{transfer.SRGB, 6400, 128},
		{transfer.SRGB, 800, 192},
		{transfer.PQ, 25600, 128},
	}
	for _, c := range cases {
		fullScale := FullScaleElectrons(3840, 2160, c.iso, c.tf)
		target := Amplitude(float32(c.x)/255, fullScale, c.tf)

		iso, err := FitISO(3840, 2160, c.tf, c.x, target)
		if err != nil {
			t.Errorf("%s ISO %v: fit error: %s", c.tf.Name, c.iso, err.Error())
			continue
		}
		if iso < c.iso*0.85 || iso > c.iso*1.15 {
			t.Errorf("%s: fitted ISO %v; want %v within 15%%", c.tf.Name, iso, c.iso)
		}
	}
}

func TestFitISOUnreachable(t *testing.T) {
	// no ISO setting yields zero grain at mid-curve
	if _, err := FitISO(3840, 2160, transfer.SRGB, 128, 0); err == nil {
		t.Errorf("fit to amplitude 0 succeeded; want error")
	}
}
