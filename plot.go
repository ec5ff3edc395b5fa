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
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotCurve draws the relaxation curve, and its fit if there is one, as
// a PNG image of the given size.
func PlotCurve(w io.Writer, c *RelaxationCurve, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "Dipole autocorrelation"
	p.X.Label.Text = "Lag (ps)"
	if c.Normalized {
		p.Y.Label.Text = "C(τ)"
	} else {
		p.Y.Label.Text = "⟨M(0)·M(τ)⟩ (D²)"
	}
	xy := make(plotter.XYs, len(c.Points))
	for i, pt := range c.Points {
		xy[i].X, xy[i].Y = pt.Lag, pt.Value
	}
	l, err := plotter.NewLine(xy)
	if err != nil {
		return fmt.Errorf("dipole: plotting curve: %v", err)
	}
	p.Add(l)
	p.Legend.Add("calculated", l)
	if c.Fit != nil && c.Fit.Status == FitConverged && c.Normalized {
		tau := c.Fit.Tau
		f := plotter.NewFunction(func(x float64) float64 { return math.Exp(-x / tau) })
		f.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(f)
		p.Legend.Add(fmt.Sprintf("fit, τ = %.3g ps", tau), f)
	}
	img := vgimg.New(width, height)
	p.Draw(draw.New(img))
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("dipole: writing plot: %v", err)
	}
	return nil
}
