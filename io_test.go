/*
Copyright © 2019 the Dipole authors.
This file is part of Dipole.

Dipole is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Dipole is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Dipole.  If not, see <http://www.gnu.org/licenses/>.
*/

package dipole

import (
	"bufio"
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"
)

func testSeries() []*DipoleSeries {
	solvent := &DipoleSeries{Role: Solvent, Species: Water}
	solute := &DipoleSeries{Role: Solute, Species: Methanol}
	for i := 0; i < 4; i++ {
		f := float64(i)
		solvent.Entries = append(solvent.Entries, SeriesEntry{Frame: i, Time: f * 0.5, Dipole: r3.Vec{X: 3, Y: f, Z: -1}})
		solute.Entries = append(solute.Entries, SeriesEntry{Frame: i, Time: f * 0.5, Dipole: r3.Vec{Z: 4}})
	}
	return []*DipoleSeries{solvent, solute}
}

func testCurve() *RelaxationCurve {
	c := &RelaxationCurve{Normalized: true, Method: Direct, Fit: &DecayFit{Tau: 2, RSquared: 0.98, Status: FitConverged, Points: 5}}
	for i := 0; i < 10; i++ {
		l := float64(i) * 0.5
		c.Points = append(c.Points, CurvePoint{Lag: l, Value: math.Exp(-l / 2)})
	}
	return c
}

func TestWriteSeriesText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSeriesText(&buf, testSeries()...); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("have %d lines, want 5", len(lines))
	}
	wantHead := "frame\ttime_ps\tsolvent_x_D\tsolvent_y_D\tsolvent_z_D\tsolvent_abs_D\tsolute_x_D\tsolute_y_D\tsolute_z_D\tsolute_abs_D"
	if lines[0] != wantHead {
		t.Errorf("header:\nhave %q\nwant %q", lines[0], wantHead)
	}
	if want := "2\t1\t3\t2\t-1\t3.7416573867739413\t0\t0\t4\t4"; lines[3] != want {
		t.Errorf("line 3:\nhave %q\nwant %q", lines[3], want)
	}

	s := testSeries()
	s[1].Entries = s[1].Entries[:2]
	if err := WriteSeriesText(&buf, s...); err == nil {
		t.Error("expected an error for series of different lengths")
	}
	if err := WriteSeriesText(&buf); err == nil {
		t.Error("expected an error for no series")
	}
}

func TestWriteCurveText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCurveText(&buf, testCurve()); err != nil {
		t.Fatal(err)
	}
	sc := bufio.NewScanner(&buf)
	var comments, data []string
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), "#") {
			comments = append(comments, sc.Text())
		} else {
			data = append(data, sc.Text())
		}
	}
	if len(comments) != 4 || comments[0] != "# tau_ps\t2" || comments[2] != "# fit_status\tconverged" ||
		!strings.HasPrefix(comments[3], "# integrated_time_ps\t") {
		t.Errorf("comments: %q", comments)
	}
	if len(data) != 11 || data[0] != "lag_ps\tcorrelation" || data[1] != "0\t1" {
		t.Errorf("data: %q", data[:2])
	}

	c := testCurve()
	c.Fit, c.Normalized = nil, false
	buf.Reset()
	if err := WriteCurveText(&buf, c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "lag_ps\tcorrelation_D2\n") || strings.Contains(buf.String(), "tau_ps") ||
		!strings.Contains(buf.String(), "# integrated_D2_ps\t") || strings.Contains(buf.String(), "integrated_time") {
		t.Errorf("unnormalized output:\n%s", buf.String())
	}
}

func TestNetCDFRoundTrip(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "dipole.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	want := testCurve()
	if err := WriteNetCDF(f, testSeries(), want, map[string]string{"version": "test"}); err != nil {
		t.Fatal(err)
	}
	have, err := ReadCurveNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(have.Points, want.Points); len(diff) > 0 {
		t.Errorf("points: %v", diff)
	}
	if !have.Normalized || have.Fit == nil || have.Fit.Tau != 2 || have.Fit.RSquared != 0.98 {
		t.Errorf("curve: %# v", pretty.Formatter(have))
	}

	g, err := os.Create(filepath.Join(t.TempDir(), "empty.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if err := WriteNetCDF(g, nil, want, nil); err == nil {
		t.Error("expected an error for no series")
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	meta := map[string]string{"version": "test"}
	if err := WriteXLSX(&buf, testSeries(), testCurve(), meta); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("output is not a zip archive")
	}
	if len(meta) != 1 {
		t.Errorf("meta was modified: %v", meta)
	}
}

func TestPlotCurve(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotCurve(&buf, testCurve(), 4*vg.Inch, 3*vg.Inch); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG image")
	}
}
