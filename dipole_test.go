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
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const testTolerance = 1e-6

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// rigidWater returns a TIP3P water molecule with its oxygen at o and its
// HOH angle bisector along +y.
func rigidWater(o r3.Vec) Molecule {
	const (
		r     = 0.9572 // Å
		theta = 104.52 // degrees
	)
	a := theta / 2 * math.Pi / 180
	return Molecule{
		{Label: "OH2", Pos: o},
		{Label: "H1", Pos: r3.Add(o, r3.Vec{X: r * math.Sin(a), Y: r * math.Cos(a)})},
		{Label: "H2", Pos: r3.Add(o, r3.Vec{X: -r * math.Sin(a), Y: r * math.Cos(a)})},
	}
}

func TestWaterDipole(t *testing.T) {
	a := 104.52 / 2 * math.Pi / 180
	want := 2 * 0.417 * 0.9572 * math.Cos(a) * EAngstromToDebye

	m, err := ComputeFrameDipole([]Molecule{rigidWater(r3.Vec{})}, TIP3PWater)
	if err != nil {
		t.Fatal(err)
	}
	if different(r3.Norm(m), want, testTolerance) {
		t.Errorf("dipole magnitude: have %g D, want %g D", r3.Norm(m), want)
	}
	if different(m.Y, want, testTolerance) || math.Abs(m.X) > 1e-12 || m.Z != 0 {
		t.Errorf("dipole should point along the bisector: %v", m)
	}

	// The model is neutral, so the dipole does not depend on the origin.
	m2, err := ComputeFrameDipole([]Molecule{rigidWater(r3.Vec{X: 12.5, Y: -3, Z: 40})}, TIP3PWater)
	if err != nil {
		t.Fatal(err)
	}
	if r3.Norm(r3.Sub(m, m2)) > 1e-9 {
		t.Errorf("translated molecule: have %v, want %v", m2, m)
	}
}

func TestComputeFrameDipoleDeterministic(t *testing.T) {
	var mols []Molecule
	for i := 0; i < 500; i++ {
		f := float64(i)
		mols = append(mols, rigidWater(r3.Vec{X: math.Sin(f) * 30, Y: math.Cos(f*1.3) * 30, Z: f / 7}))
	}
	a, err := ComputeFrameDipole(mols, TIP3PWater)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeFrameDipole(mols, TIP3PWater)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("results differ: %v and %v", a, b)
	}
}

func TestComputeFrameDipoleEdgeCases(t *testing.T) {
	t.Run("zero instances", func(t *testing.T) {
		m, err := ComputeFrameDipole(nil, CHARMMMethanol)
		if err != nil {
			t.Fatal(err)
		}
		if m != (r3.Vec{}) {
			t.Errorf("have %v, want zero vector", m)
		}
	})
	t.Run("unknown label", func(t *testing.T) {
		mol := Molecule{{Label: "O", Pos: r3.Vec{}}, {Label: "HX", Pos: r3.Vec{X: 1}}}
		_, err := ComputeFrameDipole([]Molecule{mol}, TIP3PWater)
		var e *UnknownAtomLabelError
		if !errors.As(err, &e) {
			t.Fatalf("have error %v, want UnknownAtomLabelError", err)
		}
		if e.Label != "HX" || e.Species != Water {
			t.Errorf("error fields: %+v", e)
		}
	})
	t.Run("ethanol point charges", func(t *testing.T) {
		// A single charge at a known position gives q·r.
		mol := Molecule{{Label: "H6", Pos: r3.Vec{Z: 2}}}
		m, err := ComputeFrameDipole([]Molecule{mol}, CHARMMEthanol)
		if err != nil {
			t.Fatal(err)
		}
		if different(m.Z, 0.8*EAngstromToDebye, testTolerance) {
			t.Errorf("have %g, want %g", m.Z, 0.8*EAngstromToDebye)
		}
	})
}

func ExampleComputeFrameDipole() {
	water := Molecule{
		{Label: "O", Pos: r3.Vec{X: 0, Y: 0, Z: 0}},
		{Label: "H1", Pos: r3.Vec{X: 0.7570, Y: 0.5859, Z: 0}},
		{Label: "H2", Pos: r3.Vec{X: -0.7570, Y: 0.5859, Z: 0}},
	}
	m, err := ComputeFrameDipole([]Molecule{water}, TIP3PWater)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%.2f D\n", r3.Norm(m))
	// Output: 2.35 D
}
