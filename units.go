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
	"strings"

	"github.com/ctessum/unit"
)

// SI values of the physical constants used for unit conversion.
const (
	Angstrom         = 1e-10           // m
	Debye            = 3.33564e-30     // C·m
	ElementaryCharge = 1.602176634e-19 // C
	Picosecond       = 1e-12           // s
	AKMATime         = 4.888821e-14    // s, CHARMM internal time unit

	// EAngstromToDebye converts a dipole in e·Å to Debye.
	EAngstromToDebye = ElementaryCharge * Angstrom / Debye
)

var physicalConstants = map[string]float64{
	"ANGSTROM":          Angstrom,
	"DEBYE":             Debye,
	"ELEMENTARY_CHARGE": ElementaryCharge,
	"PICOSECOND":        Picosecond,
	"AKMA_TIME":         AKMATime,
}

// PhysicalConstant returns the SI value of the named constant.
func PhysicalConstant(name string) (float64, bool) {
	v, ok := physicalConstants[name]
	return v, ok
}

var (
	// ErrUnknownUnit is returned when a unit name is not recognized.
	ErrUnknownUnit = errors.New("dipole: unknown unit")
	// ErrIncompatibleUnits is returned when converting between units
	// with different dimensions.
	ErrIncompatibleUnits = errors.New("dipole: incompatible units")
)

var (
	lengthDims = unit.Dimensions{unit.LengthDim: 1}
	chargeDims = unit.Dimensions{unit.CurrentDim: 1, unit.TimeDim: 1}
	dipoleDims = unit.Dimensions{unit.CurrentDim: 1, unit.TimeDim: 1, unit.LengthDim: 1}
	timeDims   = unit.Dimensions{unit.TimeDim: 1}
)

// namedUnit is a unit with its SI factor and dimensions.
type namedUnit struct {
	factor float64
	dims   unit.Dimensions
}

var units = map[string]namedUnit{
	"m":          {1, lengthDims},
	"nm":         {1e-9, lengthDims},
	"angstrom":   {Angstrom, lengthDims},
	"C":          {1, chargeDims},
	"e":          {ElementaryCharge, chargeDims},
	"C*m":        {1, dipoleDims},
	"debye":      {Debye, dipoleDims},
	"e*angstrom": {ElementaryCharge * Angstrom, dipoleDims},
	"s":          {1, timeDims},
	"ns":         {1e-9, timeDims},
	"ps":         {Picosecond, timeDims},
	"fs":         {1e-15, timeDims},
	"akma":       {AKMATime, timeDims},
}

// lookupUnit finds a unit by name. "Å" and "D" are accepted as aliases.
func lookupUnit(name string) (namedUnit, error) {
	switch name {
	case "Å", "A":
		name = "angstrom"
	case "D":
		name = "debye"
	case "e*Å", "e*A":
		name = "e*angstrom"
	}
	u, ok := units[name]
	if !ok {
		u, ok = units[strings.ToLower(name)]
	}
	if !ok {
		return namedUnit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return u, nil
}

// Convert converts value from unit from to unit to. Supported units are
// m, nm and angstrom for length; C and e for charge; C*m, debye
// and e*angstrom for dipole moment; and s, ns, ps, fs and akma for time.
func Convert(value float64, from, to string) (float64, error) {
	f, err := lookupUnit(from)
	if err != nil {
		return 0, err
	}
	t, err := lookupUnit(to)
	if err != nil {
		return 0, err
	}
	si := unit.New(value*f.factor, f.dims)
	if err := si.Check(t.dims); err != nil {
		return 0, fmt.Errorf("%w: %s to %s: %v", ErrIncompatibleUnits, from, to, err)
	}
	return si.Value() / t.factor, nil
}
