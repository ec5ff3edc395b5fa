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
)

var (
	// ErrEmptySeries is returned when a relaxation analysis is
	// requested for a series with no frames.
	ErrEmptySeries = errors.New("dipole: empty dipole series")

	// ErrDegenerateSeries is returned when the zero-lag correlation is
	// zero, so the curve cannot be normalized.
	ErrDegenerateSeries = errors.New("dipole: zero-lag correlation is zero")

	// ErrSeriesMismatch is returned when the solvent and solute series of
	// a mixture do not cover the same frames.
	ErrSeriesMismatch = errors.New("dipole: solvent and solute series do not match")

	// ErrInvalidTimestep is returned when the sampling interval is not
	// a positive finite number.
	ErrInvalidTimestep = errors.New("dipole: sampling interval must be > 0")
)

// UnknownSpeciesError is returned when no charge model is registered
// for a species or residue name.
type UnknownSpeciesError struct {
	Species Species
}

func (e *UnknownSpeciesError) Error() string {
	return fmt.Sprintf("dipole: unknown species %q", string(e.Species))
}

// UnknownAtomLabelError is returned when an atom label is missing from
// the charge model of its species.
type UnknownAtomLabelError struct {
	Species Species
	Label   string
}

func (e *UnknownAtomLabelError) Error() string {
	return fmt.Sprintf("dipole: atom label %q is not in the %s charge model", e.Label, e.Species)
}

// NoSolventFoundError is returned when none of the residue names in a
// system match a solvent alias.
type NoSolventFoundError struct {
	Residues []string
}

func (e *NoSolventFoundError) Error() string {
	return fmt.Sprintf("dipole: no solvent found among residues [%s]", strings.Join(e.Residues, " "))
}

// AmbiguousSolventError is returned when more than one solvent species
// matches the residue names of a system.
type AmbiguousSolventError struct {
	Candidates []Species
}

func (e *AmbiguousSolventError) Error() string {
	return fmt.Sprintf("dipole: ambiguous solvent: %s all match; choose one explicitly", joinSpecies(e.Candidates))
}

// AmbiguousSoluteError is returned when a system contains more than one
// non-solvent species and the caller has not said which one is the solute.
type AmbiguousSoluteError struct {
	Candidates []string
}

func (e *AmbiguousSoluteError) Error() string {
	return fmt.Sprintf("dipole: more than one possible solute [%s]; choose one explicitly", strings.Join(e.Candidates, " "))
}

// NoSoluteFoundError is returned when an explicitly chosen solute is not
// present in the system.
type NoSoluteFoundError struct {
	Solute Species
}

func (e *NoSoluteFoundError) Error() string {
	return fmt.Sprintf("dipole: solute %s is not present in the system", e.Solute)
}

// TopologyDriftWarning reports a change in the number of molecule
// instances of a role between consecutive frames. It is returned as an
// error unless the caller opts in to drifting topologies.
type TopologyDriftWarning struct {
	Role            Role
	Frame           int
	Previous, Count int
}

func (w *TopologyDriftWarning) Error() string {
	return fmt.Sprintf("dipole: %s instance count changed from %d to %d at frame %d",
		w.Role, w.Previous, w.Count, w.Frame)
}

// Warning is a non-fatal problem found while building a result.
type Warning interface {
	error
}

// FitDivergenceError is returned when the exponential decay fit does not
// produce a valid relaxation time.
type FitDivergenceError struct {
	Reason string
	Err    error
}

func (e *FitDivergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dipole: exponential fit did not converge: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("dipole: exponential fit did not converge: %s", e.Reason)
}

func (e *FitDivergenceError) Unwrap() error { return e.Err }

func joinSpecies(s []Species) string {
	names := make([]string, len(s))
	for i, sp := range s {
		names[i] = string(sp)
	}
	return strings.Join(names, ", ")
}
