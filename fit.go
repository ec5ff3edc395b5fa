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
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// FitStatus describes the outcome of a successful decay fit.
type FitStatus int

// Fit statuses.
const (
	// FitConverged means the optimizer found a finite relaxation time.
	FitConverged FitStatus = iota
	// FitNoDecay means the curve does not decay and the relaxation
	// time is infinite.
	FitNoDecay
)

func (s FitStatus) String() string {
	if s == FitNoDecay {
		return "no decay"
	}
	return "converged"
}

// DecayFit is a single-exponential fit C(τ) = exp(-τ/Tau) to a
// normalized correlation curve.
type DecayFit struct {
	Tau        float64 // ps, +Inf if Status is FitNoDecay
	RSquared   float64
	Status     FitStatus
	Points     int // number of curve points used in the fit
	Iterations int
}

// flatTolerance is the largest deviation from 1 of a curve that is
// considered not to decay. It grows with the curve length, as does the
// rounding error of the long-lag averages.
func flatTolerance(n int) float64 {
	return math.Max(1e-12, 16*float64(n)*epsilon)
}

// epsilon is the float64 machine epsilon.
const epsilon = 0x1p-52

// FitExponential fits exp(-lag/τ) to the given evenly spaced lags,
// which start at zero, and normalized correlation values. It returns a
// *FitDivergenceError if no finite positive τ is found.
func FitExponential(lags, values []float64) (*DecayFit, error) {
	if len(lags) != len(values) {
		return nil, &FitDivergenceError{Reason: "lags and values have different lengths"}
	}
	if len(lags) < 2 {
		return nil, &FitDivergenceError{Reason: "fewer than two points to fit"}
	}
	dt := lags[1] - lags[0]
	if !(dt > 0) {
		return nil, &FitDivergenceError{Reason: "lags are not increasing"}
	}

	flat := true
	tol := flatTolerance(len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &FitDivergenceError{Reason: "curve contains non-finite values"}
		}
		if math.Abs(v-1) > tol {
			flat = false
		}
	}
	if flat {
		return &DecayFit{Tau: math.Inf(1), RSquared: 1, Status: FitNoDecay, Points: len(values)}, nil
	}

	// Fit the decay rate p per lag step: SSE(p) = Σ (C_i - exp(-p i))².
	x := make([]float64, len(lags))
	for i, l := range lags {
		x[i] = (l - lags[0]) / dt
	}
	sse := func(p []float64) float64 {
		var s float64
		for i, xi := range x {
			d := values[i] - math.Exp(-p[0]*xi)
			s += d * d
		}
		return s
	}
	grad := func(g, p []float64) {
		var s float64
		for i, xi := range x {
			e := math.Exp(-p[0] * xi)
			s += 2 * (values[i] - e) * xi * e
		}
		g[0] = s
	}
	prob := optimize.Problem{Func: sse, Grad: grad}
	settings := &optimize.Settings{
		GradientThreshold: 1e-12,
		MajorIterations:   1000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-15,
			Relative:   1e-12,
			Iterations: 100,
		},
	}
	result, err := optimize.Minimize(prob, []float64{initialRate(x, values)}, settings, &optimize.BFGS{})
	if (err != nil || result.Status.Early()) && !stalledAtMinimum(result, grad, len(x)) {
		if err != nil {
			return nil, &FitDivergenceError{Reason: "optimizer failed", Err: err}
		}
		return nil, &FitDivergenceError{Reason: result.Status.String(), Err: result.Status.Err()}
	}
	p := result.X[0]
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil, &FitDivergenceError{Reason: "decay rate is not finite"}
	}
	if p <= 0 {
		return nil, &FitDivergenceError{Reason: "curve grows with lag"}
	}

	est := make([]float64, len(x))
	for i, xi := range x {
		est[i] = math.Exp(-p * xi)
	}
	return &DecayFit{
		Tau:        dt / p,
		RSquared:   stat.RSquaredFrom(est, values, nil),
		Status:     FitConverged,
		Points:     len(values),
		Iterations: result.MajorIterations,
	}, nil
}

// initialRate estimates the decay rate from a straight line fit to the
// logarithm of the positive values.
func initialRate(x, values []float64) float64 {
	var lx, ly []float64
	for i, v := range values {
		if v > 0 {
			lx = append(lx, x[i])
			ly = append(ly, math.Log(v))
		}
	}
	fallback := 1 / float64(len(x))
	if len(lx) < 2 {
		return fallback
	}
	slope, _, _, _, _, _ := stats.LinearRegression(lx, ly)
	if math.IsNaN(slope) || slope >= 0 {
		return fallback
	}
	return -slope
}

// stalledAtMinimum reports whether an optimization that stopped early,
// typically because the line search could make no further progress, did
// so at a point where the gradient vanishes to within rounding.
func stalledAtMinimum(r *optimize.Result, grad func(g, p []float64), n int) bool {
	if r == nil || len(r.X) != 1 || math.IsNaN(r.X[0]) || math.IsInf(r.X[0], 0) {
		return false
	}
	g := make([]float64, 1)
	grad(g, r.X)
	return math.Abs(g[0]) <= 1e-9*float64(n)
}
