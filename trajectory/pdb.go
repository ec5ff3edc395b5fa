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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadPDB reads a PDB file with one or more MODEL records. The topology
// is taken from the first model; every model must list the same atoms.
// Snapshot times are the model index multiplied by dt in ps, since PDB
// files do not store times.
func ReadPDB(r io.Reader, dt float64) (*Topology, *Memory, error) {
	var (
		top     Topology
		mem     Memory
		cur     *Snapshot
		box     r3.Vec
		nModels int
		lineNo  int
	)
	start := func() {
		mem.Snapshots = append(mem.Snapshots, Snapshot{Index: nModels, Time: float64(nModels) * dt, Box: box})
		cur = &mem.Snapshots[len(mem.Snapshots)-1]
		nModels++
	}
	finish := func() error {
		if cur == nil {
			return nil
		}
		if nModels > 1 && len(cur.Coords) != len(top.Atoms) {
			return fmt.Errorf("trajectory: pdb model %d has %d atoms, the first model has %d", cur.Index, len(cur.Coords), len(top.Atoms))
		}
		cur = nil
		return nil
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 1024), 1024*1024)
	for s.Scan() {
		lineNo++
		line := s.Text()
		switch record(line) {
		case "CRYST1":
			b, err := parseCryst1(line)
			if err != nil {
				return nil, nil, fmt.Errorf("trajectory: pdb line %d: %v", lineNo, err)
			}
			box = b
			if cur != nil {
				cur.Box = b
			}
		case "MODEL":
			if err := finish(); err != nil {
				return nil, nil, err
			}
			start()
		case "ATOM", "HETATM":
			if cur == nil {
				start()
			}
			a, pos, err := parseAtom(line)
			if err != nil {
				return nil, nil, fmt.Errorf("trajectory: pdb line %d: %v", lineNo, err)
			}
			if cur.Index == 0 {
				top.Atoms = append(top.Atoms, a)
			} else if n := len(cur.Coords); n >= len(top.Atoms) || top.Atoms[n].Name != a.Name || top.Atoms[n].ResName != a.ResName {
				return nil, nil, fmt.Errorf("trajectory: pdb line %d: atom %s %s does not match the first model", lineNo, a.ResName, a.Name)
			}
			cur.Coords = append(cur.Coords, pos)
		case "ENDMDL":
			if err := finish(); err != nil {
				return nil, nil, err
			}
		case "END":
			if err := finish(); err != nil {
				return nil, nil, err
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, nil, fmt.Errorf("trajectory: reading pdb: %v", err)
	}
	if err := finish(); err != nil {
		return nil, nil, err
	}
	if len(top.Atoms) == 0 {
		return nil, nil, fmt.Errorf("trajectory: pdb file has no atoms")
	}
	return &top, &mem, nil
}

func record(line string) string {
	if len(line) > 6 {
		return strings.TrimSpace(line[:6])
	}
	return strings.TrimSpace(line)
}

// column returns the 1-based, inclusive column range [a, b] of line.
func column(line string, a, b int) string {
	if len(line) < a {
		return ""
	}
	if len(line) < b {
		b = len(line)
	}
	return strings.TrimSpace(line[a-1 : b])
}

func parseAtom(line string) (Atom, r3.Vec, error) {
	var a Atom
	var err error
	if f := column(line, 7, 11); f != "" {
		// Large systems overflow the serial field; the order is what matters.
		a.Serial, _ = strconv.Atoi(f)
	}
	a.Name = column(line, 13, 16)
	a.ResName = column(line, 18, 21)
	a.Chain = column(line, 22, 22)
	if f := column(line, 23, 26); f != "" {
		if a.ResID, err = strconv.Atoi(f); err != nil {
			return a, r3.Vec{}, fmt.Errorf("invalid residue number %q", f)
		}
	}
	var xyz [3]float64
	for i, c := range [][2]int{{31, 38}, {39, 46}, {47, 54}} {
		f := column(line, c[0], c[1])
		if xyz[i], err = strconv.ParseFloat(f, 64); err != nil {
			return a, r3.Vec{}, fmt.Errorf("invalid coordinate %q", f)
		}
	}
	if a.Name == "" || a.ResName == "" {
		return a, r3.Vec{}, fmt.Errorf("missing atom or residue name")
	}
	return a, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func parseCryst1(line string) (r3.Vec, error) {
	var v [3]float64
	for i, c := range [][2]int{{7, 15}, {16, 24}, {25, 33}} {
		f := column(line, c[0], c[1])
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("invalid box length %q", f)
		}
		v[i] = x
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// WritePDB writes the snapshots of top as PDB models.
func WritePDB(w io.Writer, top *Topology, snaps []Snapshot) error {
	b := bufio.NewWriter(w)
	for _, s := range snaps {
		if err := checkCount(top, &s); err != nil {
			return err
		}
		if s.Box != (r3.Vec{}) {
			fmt.Fprintf(b, "CRYST1%9.3f%9.3f%9.3f  90.00  90.00  90.00 P 1           1\n", s.Box.X, s.Box.Y, s.Box.Z)
		}
		fmt.Fprintf(b, "MODEL     %4d\n", s.Index+1)
		for i, a := range top.Atoms {
			p := s.Coords[i]
			fmt.Fprintf(b, "ATOM  %5d %-4s %-4s%1s%4d    %8.3f%8.3f%8.3f  1.00  0.00\n",
				(a.Serial)%100000, a.Name, a.ResName, a.Chain, a.ResID%10000, p.X, p.Y, p.Z)
		}
		fmt.Fprintln(b, "ENDMDL")
	}
	fmt.Fprintln(b, "END")
	return b.Flush()
}
