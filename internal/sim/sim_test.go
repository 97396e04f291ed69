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

package sim

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mlnoga/photongrain/internal/photon"
)

func testOp() *Op {
	return &Op{
		Op: photon.Op{
			Width:            3840,
			Height:           2160,
			ISO:              25600,
			TransferFunction: "srgb",
		},
		Samples: 20000,
		Seed:    7391,
	}
}

func TestRunMatchesModel(t *testing.T) {
	res, err := testOp().Run(io.Discard)
	if err != nil {
		t.Fatalf("run error: %s", err.Error())
	}
	if len(res.Points) != 14 {
		t.Fatalf("%d points; want 14", len(res.Points))
	}

	// skip the darkest points, where clipping at zero distorts the
	// distribution, and the brightest, where clipping at one does
	for _, p := range res.Points[2:12] {
		if p.Analytic <= 0 {
			t.Errorf("x=%d: analytic noise %v; want positive", p.X, p.Analytic)
			continue
		}
		ratio := p.Observed / p.Analytic
		if ratio < 0.5 || ratio > 2.0 {
			t.Errorf("x=%d: observed %v vs analytic %v, ratio %v; want within [0.5,2]", p.X, p.Observed, p.Analytic, ratio)
		}
	}
}

func TestRunDeterminism(t *testing.T) {
	a, err := testOp().Run(io.Discard)
	if err != nil {
		t.Fatalf("run error: %s", err.Error())
	}
	b, err := testOp().Run(io.Discard)
	if err != nil {
		t.Fatalf("run error: %s", err.Error())
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated runs with equal seed differ (-first +second):\n%s", diff)
	}
}

func TestRunSeedMatters(t *testing.T) {
	a, _ := testOp().Run(io.Discard)
	op := testOp()
	op.Seed = 12345
	b, _ := op.Run(io.Discard)
	same := true
	for i := range a.Points {
		if a.Points[i].Observed != b.Points[i].Observed {
			same = false
			break
		}
	}
	if same {
		t.Errorf("runs with different seeds produced identical observations")
	}
}

func TestRunRejectsUnknownTransferFunction(t *testing.T) {
	op := testOp()
	op.TransferFunction = "bt709"
	if _, err := op.Run(io.Discard); err == nil {
		t.Errorf("run with unknown transfer function succeeded; want error")
	}
}
