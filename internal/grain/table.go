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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Magic first line of the film grain table text format
const tableMagic = "filmgrn1"

// One table entry: grain parameters valid for display times in [StartTime,EndTime)
type Entry struct {
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Params    Params `json:"params"`
}

// A film grain parameter table, an ordered sequence of timestamped parameter
// sets in the filmgrn1 text format understood by AV1 encoders
type Table struct {
	Entries []Entry `json:"entries"`
}

// Appends grain parameters covering display times [start,end) to the table.
// If the tail entry carries equal parameters, its time span is extended
// instead of adding a duplicate entry.
func (t *Table) Append(start, end int64, p *Params) {
	if n := len(t.Entries); n > 0 && t.Entries[n-1].Params.Equal(p) {
		tail := &t.Entries[n-1]
		if end > tail.EndTime {
			tail.EndTime = end
		}
		return
	}
	t.Entries = append(t.Entries, Entry{StartTime: start, EndTime: end, Params: *p})
}

// Returns the parameters in effect at the given display time, or nil if no
// entry covers it
func (t *Table) At(time int64) *Params {
	for i := range t.Entries {
		e := &t.Entries[i]
		if time >= e.StartTime && time < e.EndTime {
			return &e.Params
		}
	}
	return nil
}

// Writes the table to a file with the given name, creating or overwriting it
func (t *Table) WriteFile(fileName string) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := t.Write(w); err != nil {
		return fmt.Errorf("%s: %s", fileName, err.Error())
	}
	return w.Flush()
}

// Writes the table in the filmgrn1 text format. The exact field layout,
// including tab indentation and spacing, matches the reference grain table
// writer so that existing encoders accept the output unchanged.
func (t *Table) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n", tableMagic); err != nil {
		return err
	}
	for i := range t.Entries {
		if err := writeEntry(w, &t.Entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(w io.Writer, e *Entry) error {
	p := &e.Params
	_, err := fmt.Fprintf(w, "E %d %d %d %d %d\n", e.StartTime, e.EndTime,
		btoi(p.ApplyGrain), p.RandomSeed, btoi(p.UpdateParameters))
	if err != nil {
		return err
	}
	if !p.UpdateParameters {
		return nil
	}
	_, err = fmt.Fprintf(w, "\tp %d %d %d %d %d %d %d %d %d %d %d %d\n",
		p.ARCoeffLag, p.ARCoeffShift, p.GrainScaleShift, p.ScalingShift,
		btoi(p.ChromaScalingFromLuma), btoi(p.OverlapFlag),
		p.CbMult, p.CbLumaMult, p.CbOffset, p.CrMult, p.CrLumaMult, p.CrOffset)
	if err != nil {
		return err
	}
	// the reference writer emits a trailing blank after the luma point count,
	// but not after the chroma ones
	if _, err = fmt.Fprintf(w, "\tsY %d ", len(p.ScalingPointsY)); err != nil {
		return err
	}
	for _, pt := range p.ScalingPointsY {
		if _, err = fmt.Fprintf(w, " %d %d", pt.X, pt.Scaling); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w, "\n\tsCb %d", len(p.ScalingPointsCb)); err != nil {
		return err
	}
	for _, pt := range p.ScalingPointsCb {
		if _, err = fmt.Fprintf(w, " %d %d", pt.X, pt.Scaling); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w, "\n\tsCr %d", len(p.ScalingPointsCr)); err != nil {
		return err
	}
	for _, pt := range p.ScalingPointsCr {
		if _, err = fmt.Fprintf(w, " %d %d", pt.X, pt.Scaling); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w, "\n\tcY"); err != nil {
		return err
	}
	for _, c := range p.ARCoeffsY {
		if _, err = fmt.Fprintf(w, " %d", c); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w, "\n\tcCb"); err != nil {
		return err
	}
	for _, c := range p.ARCoeffsCb {
		if _, err = fmt.Fprintf(w, " %d", c); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w, "\n\tcCr"); err != nil {
		return err
	}
	for _, c := range p.ARCoeffsCr {
		if _, err = fmt.Fprintf(w, " %d", c); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "\n")
	return err
}

// Reads a table from a file with the given name
func (t *Table) ReadFile(fileName string) error {
	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := t.Read(f); err != nil {
		return fmt.Errorf("%s: %s", fileName, err.Error())
	}
	return nil
}

// Reads a table in the filmgrn1 text format, appending its entries to t.
// Entries flagged as not updating parameters inherit them from the preceding
// entry, as in the reference reader.
func (t *Table) Read(r io.Reader) error {
	br := bufio.NewReader(r)
	magic, err := br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading magic: %s", err.Error())
	}
	if strings.TrimRight(magic, "\r\n") != tableMagic {
		return fmt.Errorf("invalid magic '%s', expected '%s'", strings.TrimSpace(magic), tableMagic)
	}

	var prev *Params
	for {
		var tag string
		if _, err := fmt.Fscan(br, &tag); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("reading entry tag: %s", err.Error())
		}
		if tag != "E" {
			return fmt.Errorf("unexpected tag '%s', expected 'E'", tag)
		}

		var e Entry
		var apply, update int
		_, err := fmt.Fscan(br, &e.StartTime, &e.EndTime, &apply, &e.Params.RandomSeed, &update)
		if err != nil {
			return fmt.Errorf("reading entry header: %s", err.Error())
		}
		e.Params.ApplyGrain = apply != 0
		e.Params.UpdateParameters = update != 0

		if update != 0 {
			if err := readParams(br, &e.Params); err != nil {
				return err
			}
		} else {
			if prev == nil {
				return fmt.Errorf("entry at time %d does not update parameters, but no prior entry exists", e.StartTime)
			}
			seed, apply, update := e.Params.RandomSeed, e.Params.ApplyGrain, e.Params.UpdateParameters
			e.Params = *prev
			e.Params.RandomSeed, e.Params.ApplyGrain, e.Params.UpdateParameters = seed, apply, update
		}
		t.Entries = append(t.Entries, e)
		prev = &t.Entries[len(t.Entries)-1].Params
	}
}

func readParams(br *bufio.Reader, p *Params) error {
	var tag string
	var csfl, overlap int
	_, err := fmt.Fscan(br, &tag, &p.ARCoeffLag, &p.ARCoeffShift, &p.GrainScaleShift,
		&p.ScalingShift, &csfl, &overlap,
		&p.CbMult, &p.CbLumaMult, &p.CbOffset, &p.CrMult, &p.CrLumaMult, &p.CrOffset)
	if err != nil {
		return fmt.Errorf("reading parameter line: %s", err.Error())
	}
	if tag != "p" {
		return fmt.Errorf("unexpected tag '%s', expected 'p'", tag)
	}
	p.ChromaScalingFromLuma = csfl != 0
	p.OverlapFlag = overlap != 0

	if p.ScalingPointsY, err = readPoints(br, "sY"); err != nil {
		return err
	}
	if p.ScalingPointsCb, err = readPoints(br, "sCb"); err != nil {
		return err
	}
	if p.ScalingPointsCr, err = readPoints(br, "sCr"); err != nil {
		return err
	}

	numY := numARCoeffsY(p.ARCoeffLag)
	if p.ARCoeffsY, err = readCoeffs(br, "cY", numY); err != nil {
		return err
	}
	if p.ARCoeffsCb, err = readCoeffs(br, "cCb", numY+1); err != nil {
		return err
	}
	if p.ARCoeffsCr, err = readCoeffs(br, "cCr", numY+1); err != nil {
		return err
	}
	return nil
}

func readPoints(br *bufio.Reader, expectTag string) ([]Point, error) {
	var tag string
	var num int
	if _, err := fmt.Fscan(br, &tag, &num); err != nil {
		return nil, fmt.Errorf("reading %s count: %s", expectTag, err.Error())
	}
	if tag != expectTag {
		return nil, fmt.Errorf("unexpected tag '%s', expected '%s'", tag, expectTag)
	}
	if num < 0 || num > 14 {
		return nil, fmt.Errorf("%s point count %d, expected [0,14]", tag, num)
	}
	if num == 0 {
		return nil, nil
	}
	pts := make([]Point, num)
	for i := range pts {
		if _, err := fmt.Fscan(br, &pts[i].X, &pts[i].Scaling); err != nil {
			return nil, fmt.Errorf("reading %s point %d: %s", tag, i, err.Error())
		}
	}
	return pts, nil
}

func readCoeffs(br *bufio.Reader, expectTag string, num int) ([]int32, error) {
	var tag string
	if _, err := fmt.Fscan(br, &tag); err != nil {
		return nil, fmt.Errorf("reading %s tag: %s", expectTag, err.Error())
	}
	if tag != expectTag {
		return nil, fmt.Errorf("unexpected tag '%s', expected '%s'", tag, expectTag)
	}
	if num == 0 {
		return nil, nil
	}
	cs := make([]int32, num)
	for i := range cs {
		if _, err := fmt.Fscan(br, &cs[i]); err != nil {
			return nil, fmt.Errorf("reading %s coefficient %d: %s", tag, i, err.Error())
		}
	}
	return cs, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
