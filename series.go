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
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
)

// SeriesEntry is the dipole moment of one role at one frame.
type SeriesEntry struct {
	Frame  int
	Time   float64 // ps
	Dipole r3.Vec  // Debye
}

// DipoleSeries is the dipole moment of one role at each frame of a
// trajectory, in frame order.
type DipoleSeries struct {
	Role    Role
	Species Species
	Entries []SeriesEntry
}

// Len returns the number of frames in the series.
func (s *DipoleSeries) Len() int { return len(s.Entries) }

// Vectors returns the dipole vectors of the series.
func (s *DipoleSeries) Vectors() []r3.Vec {
	v := make([]r3.Vec, len(s.Entries))
	for i, e := range s.Entries {
		v[i] = e.Dipole
	}
	return v
}

// FrameStatus describes a processed frame. It is passed to the
// SeriesOptions Observer.
type FrameStatus struct {
	Role      Role
	Frame     int
	Time      float64
	Instances int
	Dipole    r3.Vec
}

// SeriesOptions control how a DipoleSeries is built.
type SeriesOptions struct {
	// AllowDrift allows the number of molecule instances to change
	// between frames. The changes are still returned as warnings.
	AllowDrift bool

	// Observer, if not nil, is called after each frame.
	Observer func(FrameStatus)
}

// BuildSeries reads every frame from r once, in order, and returns the
// dipole moment of role at each frame. Only the dipole vectors are kept.
// If ctx is canceled between frames, BuildSeries returns ctx.Err() and
// no series.
func BuildSeries(ctx context.Context, r FrameReader, role Role, model *ChargeModel, o SeriesOptions) (*DipoleSeries, []Warning, error) {
	s := &DipoleSeries{Role: role, Species: model.Species()}
	var warnings []Warning
	prev := -1
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		f, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, nil, fmt.Errorf("dipole: reading %s frame %d: %w", role, len(s.Entries), err)
		}
		n := len(f.Molecules)
		if prev >= 0 && n != prev {
			w := &TopologyDriftWarning{Role: role, Frame: f.Index, Previous: prev, Count: n}
			if !o.AllowDrift {
				return nil, nil, w
			}
			warnings = append(warnings, w)
		}
		prev = n
		m, err := ComputeFrameDipole(f.Molecules, model)
		if err != nil {
			return nil, nil, err
		}
		s.Entries = append(s.Entries, SeriesEntry{Frame: f.Index, Time: f.Time, Dipole: m})
		if o.Observer != nil {
			o.Observer(FrameStatus{Role: role, Frame: f.Index, Time: f.Time, Instances: n, Dipole: m})
		}
	}
	return s, warnings, nil
}

// Total returns the frame-by-frame sum of the dipoles of a and b, which
// must cover the same frames.
func Total(a, b *DipoleSeries) ([]r3.Vec, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("%w: %d and %d frames", ErrSeriesMismatch, a.Len(), b.Len())
	}
	v := make([]r3.Vec, a.Len())
	for i, e := range a.Entries {
		if e.Frame != b.Entries[i].Frame {
			return nil, fmt.Errorf("%w: frame %d and %d at position %d", ErrSeriesMismatch, e.Frame, b.Entries[i].Frame, i)
		}
		v[i] = r3.Add(e.Dipole, b.Entries[i].Dipole)
	}
	return v, nil
}

// SaveSeries writes the given series to w so they can be analyzed again
// later without rereading the trajectory.
func SaveSeries(w io.Writer, series ...*DipoleSeries) error {
	if err := gob.NewEncoder(w).Encode(series); err != nil {
		return fmt.Errorf("dipole.SaveSeries: %v", err)
	}
	return nil
}

// LoadSeries reads series previously written by SaveSeries.
func LoadSeries(r io.Reader) ([]*DipoleSeries, error) {
	var series []*DipoleSeries
	if err := gob.NewDecoder(r).Decode(&series); err != nil {
		return nil, fmt.Errorf("dipole.LoadSeries: %v", err)
	}
	return series, nil
}
