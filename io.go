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
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteSeriesText writes tab-separated dipole series to w, one line per
// frame. All series must cover the same frames.
func WriteSeriesText(w io.Writer, series ...*DipoleSeries) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}
	for _, s := range series[1:] {
		if s.Len() != series[0].Len() {
			return fmt.Errorf("%w: %d and %d frames", ErrSeriesMismatch, series[0].Len(), s.Len())
		}
	}
	b := bufio.NewWriter(w)
	fmt.Fprint(b, "frame\ttime_ps")
	for _, s := range series {
		p := s.Role.String()
		fmt.Fprintf(b, "\t%s_x_D\t%s_y_D\t%s_z_D\t%s_abs_D", p, p, p, p)
	}
	fmt.Fprintln(b)
	for i, e := range series[0].Entries {
		fmt.Fprintf(b, "%d\t%g", e.Frame, e.Time)
		for _, s := range series {
			m := s.Entries[i].Dipole
			fmt.Fprintf(b, "\t%g\t%g\t%g\t%g", m.X, m.Y, m.Z, r3.Norm(m))
		}
		fmt.Fprintln(b)
	}
	return b.Flush()
}

// WriteCurveText writes a relaxation curve to w as tab-separated lag and
// correlation columns, preceded by comment lines describing any fit.
func WriteCurveText(w io.Writer, c *RelaxationCurve) error {
	b := bufio.NewWriter(w)
	if c.Fit != nil {
		fmt.Fprintf(b, "# tau_ps\t%g\n# r_squared\t%g\n# fit_status\t%s\n", c.Fit.Tau, c.Fit.RSquared, c.Fit.Status)
	}
	unit, integral := "", "integrated_time_ps"
	if !c.Normalized {
		unit, integral = "_D2", "integrated_D2_ps"
	}
	fmt.Fprintf(b, "# %s\t%g\n", integral, c.IntegratedTime())
	fmt.Fprintf(b, "lag_ps\tcorrelation%s\n", unit)
	for _, p := range c.Points {
		fmt.Fprintf(b, "%g\t%g\n", p.Lag, p.Value)
	}
	return b.Flush()
}

// WriteNetCDF writes the dipole series and, if it is not nil, the
// relaxation curve to a NetCDF file. meta is stored as global attributes.
func WriteNetCDF(ff cdf.ReaderWriterAt, series []*DipoleSeries, c *RelaxationCurve, meta map[string]string) error {
	if len(series) == 0 || series[0].Len() == 0 {
		return ErrEmptySeries
	}
	n := series[0].Len()
	dims := []string{"frame"}
	lengths := []int{n}
	if c != nil {
		dims = append(dims, "lag")
		lengths = append(lengths, len(c.Points))
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "comment", "Dipole moment time series and dielectric relaxation")
	for _, k := range sortedKeys(meta) {
		h.AddAttribute("", k, meta[k])
	}
	h.AddVariable("frame", []string{"frame"}, []int32{0})
	h.AddVariable("time", []string{"frame"}, []float64{0})
	h.AddAttribute("time", "units", "ps")
	for _, s := range series {
		if s.Len() != n {
			return fmt.Errorf("%w: %d and %d frames", ErrSeriesMismatch, n, s.Len())
		}
		for _, d := range []string{"x", "y", "z"} {
			v := fmt.Sprintf("%s_dipole_%s", s.Role, d)
			h.AddVariable(v, []string{"frame"}, []float64{0})
			h.AddAttribute(v, "units", "D")
			h.AddAttribute(v, "species", string(s.Species))
		}
	}
	if c != nil {
		h.AddVariable("lag", []string{"lag"}, []float64{0})
		h.AddAttribute("lag", "units", "ps")
		h.AddVariable("correlation", []string{"lag"}, []float64{0})
		if c.Normalized {
			h.AddAttribute("correlation", "units", "1")
		} else {
			h.AddAttribute("correlation", "units", "D2")
		}
		if c.Fit != nil {
			h.AddAttribute("", "tau_ps", []float64{c.Fit.Tau})
			h.AddAttribute("", "r_squared", []float64{c.Fit.RSquared})
			h.AddAttribute("", "fit_status", c.Fit.Status.String())
		}
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("dipole: creating netcdf header: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("dipole: creating netcdf file: %v", err)
	}
	write := func(v string, data interface{}, l int) error {
		w := f.Writer(v, []int{0}, []int{l})
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("dipole: writing netcdf variable %s: %v", v, err)
		}
		return nil
	}
	frames := make([]int32, n)
	times := make([]float64, n)
	for i, e := range series[0].Entries {
		frames[i] = int32(e.Frame)
		times[i] = e.Time
	}
	if err := write("frame", frames, n); err != nil {
		return err
	}
	if err := write("time", times, n); err != nil {
		return err
	}
	for _, s := range series {
		x, y, z := make([]float64, n), make([]float64, n), make([]float64, n)
		for i, e := range s.Entries {
			x[i], y[i], z[i] = e.Dipole.X, e.Dipole.Y, e.Dipole.Z
		}
		for i, d := range [][]float64{x, y, z} {
			if err := write(fmt.Sprintf("%s_dipole_%c", s.Role, "xyz"[i]), d, n); err != nil {
				return err
			}
		}
	}
	if c != nil {
		if err := write("lag", c.Lags(), len(c.Points)); err != nil {
			return err
		}
		if err := write("correlation", c.Values(), len(c.Points)); err != nil {
			return err
		}
	}
	return nil
}

// ReadCurveNetCDF reads the relaxation curve from a file written by
// WriteNetCDF.
func ReadCurveNetCDF(ff cdf.ReaderWriterAt) (*RelaxationCurve, error) {
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("dipole: opening netcdf file: %v", err)
	}
	read := func(v string) ([]float64, error) {
		r := f.Reader(v, nil, nil)
		buf := r.Zero(-1)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("dipole: reading netcdf variable %s: %v", v, err)
		}
		return buf.([]float64), nil
	}
	lags, err := read("lag")
	if err != nil {
		return nil, err
	}
	vals, err := read("correlation")
	if err != nil {
		return nil, err
	}
	c := &RelaxationCurve{
		Points:     make([]CurvePoint, len(lags)),
		Normalized: f.Header.GetAttribute("correlation", "units") == "1",
	}
	for i := range lags {
		c.Points[i] = CurvePoint{Lag: lags[i], Value: vals[i]}
	}
	if tau, ok := f.Header.GetAttribute("", "tau_ps").([]float64); ok && len(tau) > 0 {
		c.Fit = &DecayFit{Tau: tau[0], Status: FitConverged}
		if math.IsInf(tau[0], 1) {
			c.Fit.Status = FitNoDecay
		}
		if r2, ok := f.Header.GetAttribute("", "r_squared").([]float64); ok && len(r2) > 0 {
			c.Fit.RSquared = r2[0]
		}
	}
	return c, nil
}

// WriteXLSX writes the dipole series, the relaxation curve (if not nil)
// and meta to an Excel workbook with one sheet each.
func WriteXLSX(w io.Writer, series []*DipoleSeries, c *RelaxationCurve, meta map[string]string) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("series")
	if err != nil {
		return fmt.Errorf("dipole: creating xlsx sheet: %v", err)
	}
	head := sh.AddRow()
	head.AddCell().SetString("frame")
	head.AddCell().SetString("time (ps)")
	for _, s := range series {
		for _, d := range []string{"x", "y", "z"} {
			head.AddCell().SetString(fmt.Sprintf("%s %s (D)", s.Role, d))
		}
	}
	if len(series) > 0 {
		for i, e := range series[0].Entries {
			row := sh.AddRow()
			row.AddCell().SetInt(e.Frame)
			row.AddCell().SetFloat(e.Time)
			for _, s := range series {
				if i >= s.Len() {
					return fmt.Errorf("%w: %d and %d frames", ErrSeriesMismatch, series[0].Len(), s.Len())
				}
				m := s.Entries[i].Dipole
				row.AddCell().SetFloat(m.X)
				row.AddCell().SetFloat(m.Y)
				row.AddCell().SetFloat(m.Z)
			}
		}
	}
	if c != nil {
		sh, err := f.AddSheet("relaxation")
		if err != nil {
			return fmt.Errorf("dipole: creating xlsx sheet: %v", err)
		}
		head := sh.AddRow()
		head.AddCell().SetString("lag (ps)")
		head.AddCell().SetString("correlation")
		for _, p := range c.Points {
			row := sh.AddRow()
			row.AddCell().SetFloat(p.Lag)
			row.AddCell().SetFloat(p.Value)
		}
		if c.Fit != nil {
			m := make(map[string]string, len(meta)+2)
			for k, v := range meta {
				m[k] = v
			}
			meta = m
			meta["tau_ps"] = fmt.Sprint(c.Fit.Tau)
			meta["r_squared"] = fmt.Sprint(c.Fit.RSquared)
		}
	}
	if len(meta) > 0 {
		sh, err := f.AddSheet("info")
		if err != nil {
			return fmt.Errorf("dipole: creating xlsx sheet: %v", err)
		}
		for _, k := range sortedKeys(meta) {
			row := sh.AddRow()
			row.AddCell().SetString(k)
			row.AddCell().SetString(meta[k])
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("dipole: writing xlsx file: %v", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	k := make([]string, 0, len(m))
	for kk := range m {
		k = append(k, kk)
	}
	sort.Strings(k)
	return k
}
