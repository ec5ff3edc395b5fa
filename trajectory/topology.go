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

// Package trajectory reads molecular dynamics topologies and trajectories
// and supplies their frames to dipole analyses.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Atom is an atom of a topology.
type Atom struct {
	Serial  int
	Name    string
	ResName string
	ResID   int
	Chain   string
}

// Topology is the ordered list of atoms of a system.
type Topology struct {
	Atoms []Atom
}

// ResidueNames returns the distinct residue names of the topology in
// sorted order.
func (t *Topology) ResidueNames() []string {
	seen := make(map[string]bool)
	var o []string
	for _, a := range t.Atoms {
		n := strings.TrimSpace(a.ResName)
		if !seen[n] {
			seen[n] = true
			o = append(o, n)
		}
	}
	sort.Strings(o)
	return o
}

// Residues returns the atom indices of each residue instance whose name
// is in resnames, in topology order. Consecutive atoms with the same
// chain, residue number and residue name belong to the same instance.
func (t *Topology) Residues(resnames []string) [][]int {
	want := make(map[string]bool, len(resnames))
	for _, n := range resnames {
		want[strings.TrimSpace(n)] = true
	}
	var (
		groups [][]int
		last   Atom
		open   bool
	)
	for i, a := range t.Atoms {
		if !want[strings.TrimSpace(a.ResName)] {
			open = false
			continue
		}
		if !open || a.ResID != last.ResID || a.ResName != last.ResName || a.Chain != last.Chain {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], i)
		last, open = a, true
	}
	return groups
}

// Snapshot holds the coordinates, in Å, of every atom of a topology at
// one time.
type Snapshot struct {
	Index  int
	Time   float64 // ps
	Coords []r3.Vec
	Box    r3.Vec // orthorhombic box lengths in Å, zero if unknown
}

// Reader supplies snapshots in order. ReadFrame returns io.EOF after the
// last snapshot and Rewind starts over from the first.
type Reader interface {
	ReadFrame(ctx context.Context) (*Snapshot, error)
	Rewind() error
}

// Memory is a Reader over snapshots held in memory.
type Memory struct {
	Snapshots []Snapshot
	pos       int
}

// ReadFrame implements Reader.
func (m *Memory) ReadFrame(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.pos >= len(m.Snapshots) {
		return nil, io.EOF
	}
	s := &m.Snapshots[m.pos]
	m.pos++
	return s, nil
}

// Rewind implements Reader.
func (m *Memory) Rewind() error {
	m.pos = 0
	return nil
}

// ErrAtomCount is returned when a snapshot does not have one coordinate
// per topology atom.
var ErrAtomCount = errors.New("trajectory: number of coordinates does not match topology")

func checkCount(t *Topology, s *Snapshot) error {
	if len(s.Coords) != len(t.Atoms) {
		return fmt.Errorf("%w: frame %d has %d coordinates for %d atoms", ErrAtomCount, s.Index, len(s.Coords), len(t.Atoms))
	}
	return nil
}
