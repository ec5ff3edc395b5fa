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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spatialmodel/dipole"
	"gonum.org/v1/gonum/spatial/r3"
)

// Source supplies the frames of a trajectory to a dipole analysis.
type Source struct {
	Topology *Topology
	Reader   Reader
}

// NewSource creates a Source from a topology and a trajectory reader
// with matching atoms.
func NewSource(top *Topology, r Reader) *Source {
	return &Source{Topology: top, Reader: r}
}

// ResidueNames implements dipole.Source.
func (s *Source) ResidueNames() []string { return s.Topology.ResidueNames() }

// Frames implements dipole.Source. The reader is rewound so that each
// call starts at the first frame.
func (s *Source) Frames(sel dipole.Selection) (dipole.FrameReader, error) {
	if err := s.Reader.Rewind(); err != nil {
		return nil, fmt.Errorf("trajectory: rewinding: %v", err)
	}
	return &frameReader{src: s, groups: s.Topology.Residues(sel.Residues), unwrap: sel.UnwrapPBC}, nil
}

type frameReader struct {
	src    *Source
	groups [][]int
	unwrap bool
}

func (f *frameReader) Next(ctx context.Context) (*dipole.Frame, error) {
	snap, err := f.src.Reader.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkCount(f.src.Topology, snap); err != nil {
		return nil, err
	}
	fr := &dipole.Frame{
		Index:     snap.Index,
		Time:      snap.Time,
		Molecules: make([]dipole.Molecule, len(f.groups)),
	}
	pos := make([]r3.Vec, 0, 16)
	for i, g := range f.groups {
		pos = pos[:0]
		for _, a := range g {
			pos = append(pos, snap.Coords[a])
		}
		if f.unwrap {
			MakeWhole(pos, snap.Box)
		}
		m := make(dipole.Molecule, len(g))
		for j, a := range g {
			m[j] = dipole.Atom{Label: f.src.Topology.Atoms[a].Name, Pos: pos[j]}
		}
		fr.Molecules[i] = m
	}
	return fr, nil
}

// Open opens a topology and trajectory by file name. A PDB topology may
// also serve as the trajectory, in which case trajPath may be empty or
// equal to topPath; dt is then the time between models in ps.
// Otherwise the trajectory must be a DCD file.
func Open(topPath, trajPath string, dt float64) (*Source, io.Closer, error) {
	tf, err := os.Open(topPath)
	if err != nil {
		return nil, nil, err
	}
	top, mem, err := ReadPDB(tf, dt)
	tf.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("trajectory: reading topology %s: %w", topPath, err)
	}
	if trajPath == "" || trajPath == topPath {
		return NewSource(top, mem), io.NopCloser(nil), nil
	}
	switch strings.ToLower(filepath.Ext(trajPath)) {
	case ".dcd":
		f, err := os.Open(trajPath)
		if err != nil {
			return nil, nil, err
		}
		d, err := OpenDCD(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("trajectory: reading %s: %w", trajPath, err)
		}
		if d.NAtoms != len(top.Atoms) {
			f.Close()
			return nil, nil, fmt.Errorf("%w: %s has %d atoms, %s has %d", ErrAtomCount, trajPath, d.NAtoms, topPath, len(top.Atoms))
		}
		return NewSource(top, d), d, nil
	case ".pdb":
		f, err := os.Open(trajPath)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		_, m, err := ReadPDB(f, dt)
		if err != nil {
			return nil, nil, fmt.Errorf("trajectory: reading %s: %w", trajPath, err)
		}
		return NewSource(top, m), io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("trajectory: unsupported trajectory format %q", filepath.Ext(trajPath))
	}
}
