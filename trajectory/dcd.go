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
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spatialmodel/dipole"
	"gonum.org/v1/gonum/spatial/r3"
)

// DCD reads CHARMM and NAMD binary trajectory files.
type DCD struct {
	// NSet is the number of frames given in the header.
	NSet int
	// IStart is the step of the first frame and NSavC the number of
	// steps between frames.
	IStart, NSavC int
	// Delta is the step length in AKMA time units.
	Delta float64
	// HasCell reports whether each frame carries unit cell lengths.
	HasCell bool
	NAtoms  int
	Titles  []string

	r       io.ReadSeeker
	order   binary.ByteOrder
	first   int64 // offset of the first frame
	index   int
	psPerMD float64
	buf     []byte
}

// ErrBadDCD is returned when a file is not a valid DCD file.
var ErrBadDCD = errors.New("trajectory: invalid dcd file")

// OpenDCD reads the header of a DCD file.
func OpenDCD(r io.ReadSeeker) (*DCD, error) {
	d := &DCD{r: r}
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDCD, err)
	}
	d.order = binary.LittleEndian
	if n != 84 {
		if bits := binary.BigEndian.Uint32(littleBytes(n)); bits != 84 {
			return nil, fmt.Errorf("%w: first record length is %d", ErrBadDCD, n)
		}
		d.order = binary.BigEndian
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	h, err := d.record(84)
	if err != nil {
		return nil, err
	}
	if string(h[:4]) != "CORD" {
		return nil, fmt.Errorf("%w: missing CORD signature", ErrBadDCD)
	}
	icntrl := func(i int) int32 { return int32(d.order.Uint32(h[4+4*i:])) }
	d.NSet = int(icntrl(0))
	d.IStart = int(icntrl(1))
	d.NSavC = int(icntrl(2))
	if icntrl(8) != 0 {
		return nil, fmt.Errorf("%w: fixed atoms are not supported", ErrBadDCD)
	}
	d.Delta = float64(math.Float32frombits(d.order.Uint32(h[40:])))
	charmm := icntrl(19) != 0
	d.HasCell = charmm && icntrl(10) != 0
	if d.NSavC == 0 {
		d.NSavC = 1
	}
	if d.psPerMD, err = dipole.Convert(d.Delta, "akma", "ps"); err != nil {
		return nil, err
	}

	t, err := d.record(-1)
	if err != nil {
		return nil, err
	}
	if len(t) < 4 {
		return nil, fmt.Errorf("%w: short title record", ErrBadDCD)
	}
	nt := int(int32(d.order.Uint32(t)))
	for i := 0; i < nt && 4+80*(i+1) <= len(t); i++ {
		d.Titles = append(d.Titles, strings.TrimRight(string(t[4+80*i:4+80*(i+1)]), " \x00"))
	}

	a, err := d.record(4)
	if err != nil {
		return nil, err
	}
	d.NAtoms = int(int32(d.order.Uint32(a)))
	if d.first, err = r.Seek(0, io.SeekCurrent); err != nil {
		return nil, err
	}
	return d, nil
}

func littleBytes(n int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

// record reads one Fortran unformatted record. If size >= 0 the record
// must have that length.
func (d *DCD) record(size int) ([]byte, error) {
	var n int32
	if err := binary.Read(d.r, d.order, &n); err != nil {
		return nil, err
	}
	if size >= 0 && int(n) != size {
		return nil, fmt.Errorf("%w: record length %d, expected %d", ErrBadDCD, n, size)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative record length", ErrBadDCD)
	}
	if cap(d.buf) < int(n) {
		d.buf = make([]byte, n)
	}
	b := d.buf[:n]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, unexpected(err)
	}
	var m int32
	if err := binary.Read(d.r, d.order, &m); err != nil {
		return nil, unexpected(err)
	}
	if m != n {
		return nil, fmt.Errorf("%w: record markers %d and %d differ", ErrBadDCD, n, m)
	}
	return b, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadFrame implements Reader.
func (d *DCD) ReadFrame(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Snapshot{
		Index:  d.index,
		Time:   float64(d.IStart+d.index*d.NSavC) * d.psPerMD,
		Coords: make([]r3.Vec, d.NAtoms),
	}
	first := true
	if d.HasCell {
		c, err := d.record(48)
		if err != nil {
			return nil, err
		}
		cell := make([]float64, 6)
		if err := binary.Read(bytes.NewReader(c), d.order, cell); err != nil {
			return nil, err
		}
		s.Box = r3.Vec{X: cell[0], Y: cell[2], Z: cell[5]}
		first = false
	}
	for dim := 0; dim < 3; dim++ {
		b, err := d.record(4 * d.NAtoms)
		if err != nil {
			if err == io.EOF && (!first || dim > 0) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		for i := range s.Coords {
			v := float64(math.Float32frombits(d.order.Uint32(b[4*i:])))
			switch dim {
			case 0:
				s.Coords[i].X = v
			case 1:
				s.Coords[i].Y = v
			case 2:
				s.Coords[i].Z = v
			}
		}
	}
	d.index++
	return s, nil
}

// Rewind implements Reader.
func (d *DCD) Rewind() error {
	if _, err := d.r.Seek(d.first, io.SeekStart); err != nil {
		return err
	}
	d.index = 0
	return nil
}

// Close closes the underlying file if it is an io.Closer.
func (d *DCD) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DCDHeader holds the timing information written to a DCD file.
type DCDHeader struct {
	IStart, NSavC int
	Delta         float64 // AKMA time units
	Title         string
}

// WriteDCD writes snapshots to w in little-endian CHARMM DCD format.
// Unit cells are written if any snapshot has a box.
func WriteDCD(w io.Writer, h DCDHeader, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return errors.New("trajectory: no frames to write")
	}
	natoms := len(snaps[0].Coords)
	cell := false
	for _, s := range snaps {
		if len(s.Coords) != natoms {
			return fmt.Errorf("%w: frame %d has %d atoms, expected %d", ErrAtomCount, s.Index, len(s.Coords), natoms)
		}
		cell = cell || s.Box != (r3.Vec{})
	}
	var b bytes.Buffer
	le := binary.LittleEndian
	rec := func(data interface{}) {
		var p bytes.Buffer
		binary.Write(&p, le, data)
		binary.Write(&b, le, int32(p.Len()))
		b.Write(p.Bytes())
		binary.Write(&b, le, int32(p.Len()))
	}
	var icntrl [20]int32
	icntrl[0] = int32(len(snaps))
	icntrl[1] = int32(h.IStart)
	icntrl[2] = int32(h.NSavC)
	icntrl[3] = int32(h.IStart + (len(snaps)-1)*h.NSavC)
	icntrl[7] = int32(3*natoms - 6)
	icntrl[9] = int32(math.Float32bits(float32(h.Delta)))
	if cell {
		icntrl[10] = 1
	}
	icntrl[19] = 24
	rec(struct {
		Sig    [4]byte
		ICntrl [20]int32
	}{[4]byte{'C', 'O', 'R', 'D'}, icntrl})
	var title [80]byte
	copy(title[:], fmt.Sprintf("%-80s", h.Title))
	rec(struct {
		N     int32
		Title [80]byte
	}{1, title})
	rec(int32(natoms))
	xyz := make([]float32, natoms)
	for _, s := range snaps {
		if cell {
			rec([6]float64{s.Box.X, 90, s.Box.Y, 90, 90, s.Box.Z})
		}
		for dim := 0; dim < 3; dim++ {
			for i, p := range s.Coords {
				xyz[i] = float32([3]float64{p.X, p.Y, p.Z}[dim])
			}
			rec(xyz)
		}
	}
	_, err := w.Write(b.Bytes())
	return err
}
