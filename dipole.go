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

// Package dipole calculates the electric dipole moments of the solvent and
// solute species of molecular dynamics trajectories and derives
// dielectric relaxation curves from the resulting dipole time series.
package dipole

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"
)

// Role is the part a species plays in a system.
type Role int

// Roles.
const (
	Solvent Role = iota
	Solute
)

func (r Role) String() string {
	switch r {
	case Solvent:
		return "solvent"
	case Solute:
		return "solute"
	default:
		return "unknown role"
	}
}

// Atom is a labeled atom position in Å.
type Atom struct {
	Label string
	Pos   r3.Vec
}

// Molecule is one instance of a species. Atoms are kept in topology
// order so that sums over them are reproducible.
type Molecule []Atom

// Frame holds the molecules of one role at one trajectory frame.
type Frame struct {
	Index     int
	Time      float64 // ps
	Molecules []Molecule
}

// FrameReader supplies trajectory frames in order. Next returns io.EOF
// after the last frame.
type FrameReader interface {
	Next(ctx context.Context) (*Frame, error)
}

// ComputeFrameDipole returns the total dipole moment, in Debye, of the
// given molecule instances using the charges in model. Atom positions
// must be in Å and molecules must be whole; no periodic image correction
// is applied. Zero instances give the zero vector.
func ComputeFrameDipole(instances []Molecule, model *ChargeModel) (r3.Vec, error) {
	var m r3.Vec
	for _, mol := range instances {
		var mm r3.Vec
		for _, a := range mol {
			q, err := model.Charge(a.Label)
			if err != nil {
				return r3.Vec{}, err
			}
			mm = r3.Add(mm, r3.Scale(q, a.Pos))
		}
		m = r3.Add(m, mm)
	}
	return r3.Scale(EAngstromToDebye, m), nil
}
