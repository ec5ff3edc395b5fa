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
	"runtime"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/spatial/r3"
)

// Method is an algorithm for calculating autocorrelation functions.
type Method int

// Autocorrelation methods.
const (
	// Auto uses FFT for series longer than AutoFFTThreshold frames and
	// Direct otherwise.
	Auto Method = iota
	// Direct sums over all pairs of frames.
	Direct
	// FFT uses the Wiener-Khinchin theorem with zero padding.
	FFT
)

// AutoFFTThreshold is the series length above which Auto uses FFT.
const AutoFFTThreshold = 1024

func (m Method) String() string {
	switch m {
	case Auto:
		return "auto"
	case Direct:
		return "direct"
	case FFT:
		return "fft"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses a method name.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "direct":
		return Direct, nil
	case "fft":
		return FFT, nil
	default:
		return Auto, fmt.Errorf("dipole: unknown correlation method %q", s)
	}
}

// Autocorrelate returns the unnormalized autocorrelation
// ⟨v(t)·v(t+k)⟩ of v, averaged over the N-k valid start times, for
// lags k = 0…N-1.
func Autocorrelate(v []r3.Vec, method Method) []float64 {
	if constant(v) {
		// Every product is the same, so rounding in the sums would be
		// the only thing distinguishing the lags.
		c := make([]float64, len(v))
		for k := range c {
			c[k] = r3.Dot(v[0], v[0])
		}
		return c
	}
	if method == Auto {
		method = Direct
		if len(v) > AutoFFTThreshold {
			method = FFT
		}
	}
	if method == FFT {
		return autocorrelateFFT(v)
	}
	return autocorrelateDirect(v)
}

// constant reports whether v has at least one element and all of its
// elements are equal.
func constant(v []r3.Vec) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

// autocorrelateDirect calculates each lag independently, spreading the
// lags over GOMAXPROCS goroutines.
func autocorrelateDirect(v []r3.Vec) []float64 {
	n := len(v)
	c := make([]float64, n)
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for k := pp; k < n; k += nprocs {
				var sum float64
				for t := 0; t+k < n; t++ {
					sum += r3.Dot(v[t], v[t+k])
				}
				c[k] = sum / float64(n-k)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
	return c
}

// autocorrelateFFT pads each component to twice its length so the
// circular correlation equals the linear one.
func autocorrelateFFT(v []r3.Vec) []float64 {
	n := len(v)
	c := make([]float64, n)
	if n == 0 {
		return c
	}
	m := 2 * n
	fft := fourier.NewFFT(m)
	seq := make([]float64, m)
	coef := make([]complex128, m/2+1)
	out := make([]float64, m)
	for dim := 0; dim < 3; dim++ {
		for i := range seq {
			seq[i] = 0
		}
		for i, x := range v {
			switch dim {
			case 0:
				seq[i] = x.X
			case 1:
				seq[i] = x.Y
			case 2:
				seq[i] = x.Z
			}
		}
		fft.Coefficients(coef, seq)
		for i, z := range coef {
			coef[i] = complex(real(z)*real(z)+imag(z)*imag(z), 0)
		}
		fft.Sequence(out, coef)
		for k := 0; k < n; k++ {
			c[k] += out[k] / float64(m)
		}
	}
	for k := range c {
		c[k] /= float64(n - k)
	}
	return c
}
