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
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/spatial/r3"
)

// CurvePoint is the correlation value at one lag time.
type CurvePoint struct {
	Lag   float64 // ps
	Value float64
}

// RelaxationCurve is a dipole autocorrelation function, in order of
// increasing lag.
type RelaxationCurve struct {
	Points     []CurvePoint
	Normalized bool
	Method     Method
	Fit        *DecayFit // nil unless a fit was requested
}

// Lags returns the lag times of the curve.
func (c *RelaxationCurve) Lags() []float64 {
	o := make([]float64, len(c.Points))
	for i, p := range c.Points {
		o[i] = p.Lag
	}
	return o
}

// Values returns the correlation values of the curve.
func (c *RelaxationCurve) Values() []float64 {
	o := make([]float64, len(c.Points))
	for i, p := range c.Points {
		o[i] = p.Value
	}
	return o
}

// IntegratedTime returns the integral of the curve over lag time, using
// the trapezoidal rule. For a normalized single-exponential curve that
// has decayed to zero it approaches the relaxation time.
func (c *RelaxationCurve) IntegratedTime() float64 {
	if len(c.Points) < 2 {
		return 0
	}
	return integrate.Trapezoidal(c.Lags(), c.Values())
}

// DefaultFitWindow is the fraction of the curve, starting at zero lag,
// used for the decay fit. Long-lag values are averaged over few start
// times and are mostly noise.
const DefaultFitWindow = 0.5

// Analyzer calculates relaxation curves from dipole series.
type Analyzer struct {
	// Method is the autocorrelation algorithm.
	Method Method

	// Unnormalized requests the raw ⟨M(t)·M(t+τ)⟩ values, in D², rather
	// than values divided by the zero-lag correlation.
	Unnormalized bool

	// Fit requests a single-exponential fit of the curve.
	Fit bool

	// FitWindow is the fraction of lags used in the fit. Zero means
	// DefaultFitWindow.
	FitWindow float64

	// Log receives progress messages. If nil, logrus.StandardLogger()
	// is used.
	Log logrus.FieldLogger
}

func (a *Analyzer) log() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Analyze returns the autocorrelation curve of the dipole series of a
// pure system, sampled every dt picoseconds.
func (a *Analyzer) Analyze(dt float64, s *DipoleSeries) (*RelaxationCurve, error) {
	return a.AnalyzeVectors(dt, s.Vectors())
}

// AnalyzeMixture returns the autocorrelation curve of the total dipole
// moment of a solvent and solute mixture. Cross-correlations between
// the roles are included through the total.
func (a *Analyzer) AnalyzeMixture(dt float64, solvent, solute *DipoleSeries) (*RelaxationCurve, error) {
	v, err := Total(solvent, solute)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeVectors(dt, v)
}

// AnalyzeVectors returns the autocorrelation curve of the dipole vectors
// v, sampled every dt picoseconds.
func (a *Analyzer) AnalyzeVectors(dt float64, v []r3.Vec) (*RelaxationCurve, error) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidTimestep, dt)
	}
	if len(v) == 0 {
		return nil, ErrEmptySeries
	}
	method := a.Method
	if method == Auto {
		method = Direct
		if len(v) > AutoFFTThreshold {
			method = FFT
		}
	}
	c := Autocorrelate(v, method)
	c0 := c[0]
	if c0 == 0 {
		return nil, ErrDegenerateSeries
	}
	curve := &RelaxationCurve{
		Points:     make([]CurvePoint, len(c)),
		Normalized: !a.Unnormalized,
		Method:     method,
	}
	norm := make([]float64, len(c))
	for k, ck := range c {
		norm[k] = ck / c0
		curve.Points[k].Lag = float64(k) * dt
		if a.Unnormalized {
			curve.Points[k].Value = ck
		} else {
			curve.Points[k].Value = norm[k]
		}
	}
	a.log().WithFields(logrus.Fields{
		"frames": len(v),
		"method": method,
		"dt":     dt,
	}).Info("calculated dipole autocorrelation")

	if !a.Fit {
		return curve, nil
	}
	window := a.FitWindow
	if window == 0 {
		window = DefaultFitWindow
	}
	if window < 0 || window > 1 {
		return nil, fmt.Errorf("dipole: fit window %g must be between 0 and 1", window)
	}
	n := int(math.Ceil(window * float64(len(c))))
	if n < 2 {
		n = 2
	}
	if n > len(c) {
		n = len(c)
	}
	fit, err := FitExponential(curve.Lags()[:n], norm[:n])
	if err != nil {
		return nil, err
	}
	curve.Fit = fit
	a.log().WithFields(logrus.Fields{
		"tau":      fit.Tau,
		"rsquared": fit.RSquared,
		"status":   fit.Status,
		"points":   fit.Points,
	}).Info("fitted relaxation time")
	return curve, nil
}
