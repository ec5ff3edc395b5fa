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

package dipoleutil

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/dipole"
	"github.com/spatialmodel/dipole/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// writeTestSystem writes a PDB trajectory of three rotating TIP3P
// waters and one methanol and returns its path.
func writeTestSystem(t *testing.T, dir string, frames int) string {
	t.Helper()
	top := &trajectory.Topology{}
	type site struct {
		name string
		pos  r3.Vec
	}
	water := []site{{"OH2", r3.Vec{}}, {"H1", r3.Vec{X: 0.757, Y: 0.586}}, {"H2", r3.Vec{X: -0.757, Y: 0.586}}}
	methanol := []site{
		{"C3", r3.Vec{}}, {"O2", r3.Vec{X: 1.43}}, {"H1", r3.Vec{X: 1.7, Y: 0.9}},
		{"H4", r3.Vec{X: -0.4, Y: 1}}, {"H5", r3.Vec{X: -0.4, Y: -0.5, Z: 0.9}}, {"H6", r3.Vec{X: -0.4, Y: -0.5, Z: -0.9}},
	}
	serial := 1
	for res := 1; res <= 3; res++ {
		for _, s := range water {
			top.Atoms = append(top.Atoms, trajectory.Atom{Serial: serial, Name: s.name, ResName: "TIP3", ResID: res, Chain: "W"})
			serial++
		}
	}
	for _, s := range methanol {
		top.Atoms = append(top.Atoms, trajectory.Atom{Serial: serial, Name: s.name, ResName: "MET", ResID: 4, Chain: "M"})
		serial++
	}

	snaps := make([]trajectory.Snapshot, frames)
	for i := range snaps {
		snaps[i] = trajectory.Snapshot{Index: i}
		for res := 0; res < 3; res++ {
			// Each water rotates about z at its own rate so the total
			// dipole decorrelates.
			a := 0.3 * float64(i) * float64(res+1)
			c, s := math.Cos(a), math.Sin(a)
			o := r3.Vec{X: 4 * float64(res), Y: 5}
			for _, w := range water {
				p := r3.Vec{X: c*w.pos.X - s*w.pos.Y, Y: s*w.pos.X + c*w.pos.Y}
				snaps[i].Coords = append(snaps[i].Coords, r3.Add(o, p))
			}
		}
		for _, m := range methanol {
			snaps[i].Coords = append(snaps[i].Coords, r3.Add(r3.Vec{X: 20, Y: 20, Z: 20 + 0.01*float64(i)}, m.pos))
		}
	}
	path := filepath.Join(dir, "system.pdb")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := trajectory.WritePDB(f, top, snaps); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var buf bytes.Buffer
	Root.SetOut(&buf)
	Root.SetErr(&buf)
	Root.SetArgs(args)
	err := Root.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "dipole v"+Version+"\n" {
		t.Errorf("have %q", out)
	}
}

func TestModels(t *testing.T) {
	out, err := execute(t, "models", "--charges=")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"water (TIP3P) residues: HOH, WAT, TIP3", "methanol (CHARMM)", "ethanol (CHARMM)", "    H6   +0.400"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}

	charges := filepath.Join(t.TempDir(), "charges.toml")
	toml := `
[[model]]
species = "chloride"
name = "test"
residues = ["CL"]
[model.charges]
CL = -1.0
`
	if err := os.WriteFile(charges, []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "models", "--charges="+charges)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chloride (test)") || !strings.Contains(out, "dipoles depend on the coordinate origin") {
		t.Errorf("missing chloride model:\n%s", out)
	}
	if _, err := execute(t, "models", "--charges=/does/not/exist.toml"); err == nil {
		t.Error("expected an error for a missing charges file")
	}

	url := "file://" + filepath.ToSlash(charges)
	_, err = execute(t, "models", "--charges="+url+".missing")
	if err == nil {
		t.Error("expected an error for a missing charges blob")
	}
	// A file URL names a blob, so it is read through the bucket.
	out, err = execute(t, "models", "--charges="+url)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chloride (test)") {
		t.Errorf("missing chloride model from %s:\n%s", url, out)
	}
}

func TestSpeciesCmd(t *testing.T) {
	dir := t.TempDir()
	top := writeTestSystem(t, dir, 2)
	out, err := execute(t, "species", "--top="+top, "--solvent=", "--solute=", "--charges=")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"TIP3   solvent water (TIP3P)", "MET    solute  methanol (CHARMM)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if _, err := execute(t, "species", "--top="+top, "--solute=ethanol"); err == nil {
		t.Error("expected an error for a missing solute")
	}
	if _, err := execute(t, "species", "--top=", "--solute="); err == nil {
		t.Error("expected an error without a topology")
	}
}

func TestSeriesCmd(t *testing.T) {
	dir := t.TempDir()
	top := writeTestSystem(t, dir, 20)
	out := filepath.Join(dir, "series.txt")
	log, err := execute(t, "series", "--top="+top, "--traj=", "--dt=0.5", "--solvent=", "--solute=",
		"--series_out="+out, "--log_every=5", "--charges=")
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 21 {
		t.Errorf("have %d lines, want 21", len(lines))
	}
	if !strings.HasPrefix(lines[0], "frame\ttime_ps\tsolvent_x_D") || !strings.Contains(lines[0], "solute_abs_D") {
		t.Errorf("header %q", lines[0])
	}
	if !strings.Contains(log, "processing frames") || !strings.Contains(log, "built dipole series") {
		t.Errorf("log output:\n%s", log)
	}
	if _, err := os.Stat(filepath.Join(dir, "series.log")); err != nil {
		t.Errorf("log file: %v", err)
	}

	if _, err := execute(t, "series", "--top="+top, "--dt=0", "--series_out="+out); err == nil {
		t.Error("expected an error for a PDB trajectory without dt")
	}
}

func TestRelaxCmd(t *testing.T) {
	dir := t.TempDir()
	top := writeTestSystem(t, dir, 40)
	gob := filepath.Join(dir, "series.gob")
	nc := filepath.Join(dir, "relax.nc")
	out, err := execute(t, "relax", "--top="+top, "--traj=", "--dt=0.25", "--solvent=water", "--solute=none",
		"--fit=true", "--method=fft", "--series_in=", "--series_out="+gob, "--curve_out="+nc, "--charges=")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "relaxation time:") {
		t.Errorf("output:\n%s", out)
	}
	f, err := os.Open(nc)
	if err != nil {
		t.Fatal(err)
	}
	c, err := dipole.ReadCurveNetCDF(f)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Points) != 40 || c.Points[0].Value != 1 || c.Points[1].Lag != 0.25 || c.Fit == nil {
		t.Errorf("curve: %d points, first %+v, fit %+v", len(c.Points), c.Points[:2], c.Fit)
	}

	// Reanalyze the saved series without the trajectory.
	txt := filepath.Join(dir, "relax.txt")
	if _, err := execute(t, "relax", "--series_in="+gob, "--dt=0.25", "--fit=false", "--method=direct",
		"--unnormalized=true", "--curve_out="+txt); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(txt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "lag_ps\tcorrelation_D2") {
		t.Errorf("curve output:\n%s", b)
	}
}

func TestRelaxUpload(t *testing.T) {
	dir := t.TempDir()
	top := writeTestSystem(t, dir, 10)
	remote := filepath.Join(dir, "remote")
	_, err := execute(t, "relax", "--top=file://"+top, "--traj=", "--dt=1", "--solvent=", "--solute=",
		"--fit=false", "--series_in=", "--unnormalized=false",
		"--series_out=file://"+filepath.Join(remote, "series.xlsx"),
		"--curve_out=file://"+filepath.Join(remote, "relax.png"), "--charges=")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"series.xlsx", "relax.png", "relax.log"} {
		if _, err := os.Stat(filepath.Join(remote, name)); err != nil {
			t.Errorf("%s was not uploaded: %v", name, err)
		}
	}
}

func TestAnalysisConfig(t *testing.T) {
	cfg := viper.New()
	cfg.Set("dt", 0.0)
	cfg.Set("solvent", "water")
	cfg.Set("solvent_aliases", "SOL, TIP")
	cfg.Set("method", "fft")
	cfg.Set("fit_window", 0.25)
	c, err := AnalysisConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !c.InferDt || c.Solvent != dipole.Water || c.Method != dipole.FFT || c.FitWindow != 0.25 {
		t.Errorf("config: %+v", c)
	}
	if len(c.SolventAliases) != 2 || c.SolventAliases[0] != "SOL" || c.SolventAliases[1] != "TIP" {
		t.Errorf("aliases: %q", c.SolventAliases)
	}

	cfg.Set("method", "wavelet")
	if _, err := AnalysisConfig(cfg); err == nil {
		t.Error("expected an error for an unknown method")
	}
}

func TestFormatTau(t *testing.T) {
	if s := formatTau(math.Inf(1)); s != "∞" {
		t.Errorf("have %q", s)
	}
	if s := formatTau(8.31234); s != "8.312 ps" {
		t.Errorf("have %q", s)
	}
}
