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
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MakeWhole moves each atom of a molecule to the periodic image nearest
// to the first atom, so that a molecule split across the faces of an
// orthorhombic box is whole again. Box components that are zero are
// treated as non-periodic. pos is modified in place.
func MakeWhole(pos []r3.Vec, box r3.Vec) {
	if len(pos) < 2 {
		return
	}
	ref := pos[0]
	for i := 1; i < len(pos); i++ {
		d := r3.Sub(pos[i], ref)
		d.X = minimumImage(d.X, box.X)
		d.Y = minimumImage(d.Y, box.Y)
		d.Z = minimumImage(d.Z, box.Z)
		pos[i] = r3.Add(ref, d)
	}
}

func minimumImage(d, l float64) float64 {
	if l <= 0 {
		return d
	}
	return d - l*math.Round(d/l)
}
