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


package trajectory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/dipole"
	"gonum.org/v1/gonum/spatial/r3"
)

func testSource(t *testing.T) *Source {
	top, mem, err := ReadPDB(strings.NewReader(testPDB), 0.5)
	if err != nil {
		t.Fatal(err)
	}
	return NewSource(top, mem)
}

func TestSourceFrames(t *testing.T) {
	src := testSource(t)
	if have := src.ResidueNames(); !reflect.DeepEqual(have, []string{"MET", "TIP3"}) {
		t.Errorf("residue names: %v", have)
	}
	ctx := context.Background()

	moleculeDipole := func(m dipole.Molecule) r3.Vec {
		v, err := dipole.ComputeFrameDipole([]dipole.Molecule{m}, dipole.TIP3PWater)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	r, err := src.Frames(dipole.Selection{Residues: []string{"TIP3"}, UnwrapPBC: true})
	if err != nil {
		t.Fatal(err)
	}
	f, err := r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Molecules) != 2 {
		t.Fatalf("have %d molecules, want 2", len(f.Molecules))
	}
	m := f.Molecules[1]
	if labels := []string{m[0].Label, m[1].Label, m[2].Label}; !reflect.DeepEqual(labels, []string{"OH2", "H1", "H2"}) {
		t.Errorf("labels: %v", labels)
	}
	if different(m[1].Pos.X, 10.257, 1e-9) {
		t.Errorf("unwrapped H1 at x=%g, want 10.257", m[1].Pos.X)
	}
	a, b := moleculeDipole(f.Molecules[0]), moleculeDipole(f.Molecules[1])
	if d := r3.Norm(r3.Sub(a, b)); d > 1e-9 {
		t.Errorf("whole molecules differ in dipole by %g D", d)
	}

	// Without unwrapping the split molecule has a spurious dipole.
	r, err = src.Frames(dipole.Selection{Residues: []string{"TIP3"}})
	if err != nil {
		t.Fatal(err)
	}
	f, err = r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.Index != 0 {
		t.Errorf("first frame %d", f.Index)
	}
	if d := r3.Norm(r3.Sub(a, moleculeDipole(f.Molecules[1]))); d <= 1 {
		t.Errorf("wrapped molecule differs by only %g D", d)
	}

	f, err = r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.Index != 1 || f.Time != 0.5 {
		t.Errorf("second frame %d at %g ps", f.Index, f.Time)
	}
}

func TestSourceAnalysis(t *testing.T) {
	a := dipole.NewAnalysis(dipole.Config{Solvent: dipole.Water, SolventAliases: []string{"TIP"}, Dt: 0.5, UnwrapPBC: true}, testSource(t))
	ctx := context.Background()
	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if a.Classification.Solute == nil || a.Classification.Solute.Species() != dipole.Methanol {
		t.Fatalf("classification: %+v", a.Classification)
	}
	if err := a.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(a.Series) != 2 {
		t.Fatalf("have %d series, want 2", len(a.Series))
	}
	if a.Series[0].Len() != 2 {
		t.Errorf("have %d frames, want 2", a.Series[0].Len())
	}
	if a.Curve.Points[0].Value != 1 || a.Curve.Points[1].Lag != 0.5 {
		t.Errorf("curve: %+v", a.Curve.Points)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	top, mem, err := ReadPDB(strings.NewReader(testPDB), 1)
	if err != nil {
		t.Fatal(err)
	}
	pdbPath := filepath.Join(dir, "system.pdb")
	if err := os.WriteFile(pdbPath, []byte(testPDB), 0644); err != nil {
		t.Fatal(err)
	}
	writeDCD := func(path string, h DCDHeader, snaps []Snapshot) {
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := WriteDCD(f, h, snaps); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}

	dcdPath := filepath.Join(dir, "system.dcd")
	writeDCD(dcdPath, DCDHeader{IStart: 0, NSavC: 1, Delta: 20.45482949774598}, mem.Snapshots)

	src, closer, err := Open(pdbPath, dcdPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if !reflect.DeepEqual(src.Topology, top) {
		t.Errorf("topology: %v", pretty.Diff(src.Topology, top))
	}
	r, err := src.Frames(dipole.Selection{Residues: []string{"MET"}})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := r.Next(ctx); err != nil {
		t.Fatal(err)
	}
	fr, err := r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 20.4548 AKMA time units is 1 ps.
	if different(fr.Time, 1, 1e-6) {
		t.Errorf("time %g ps, want 1", fr.Time)
	}
	if different(fr.Molecules[0][0].Pos.Z, 6, 1e-5) {
		t.Errorf("C3 z = %g, want 6", fr.Molecules[0][0].Pos.Z)
	}

	src, closer, err = Open(pdbPath, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	closer.Close()
	if n := len(src.Reader.(*Memory).Snapshots); n != 2 {
		t.Errorf("have %d snapshots, want 2", n)
	}

	if _, _, err := Open(pdbPath, filepath.Join(dir, "system.xtc"), 1); err == nil {
		t.Error("unsupported extension should fail")
	}

	small := filepath.Join(dir, "small.dcd")
	writeDCD(small, DCDHeader{NSavC: 1, Delta: 1}, testSnapshots(1, 3, r3.Vec{}))
	if _, _, err := Open(pdbPath, small, 0); !errors.Is(err, ErrAtomCount) {
		t.Errorf("have %v, want ErrAtomCount", err)
	}
}
