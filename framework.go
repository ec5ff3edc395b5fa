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
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"
)

// Config holds the settings for a dipole relaxation analysis.
type Config struct {
	// Solvent is the solvent species. If empty, it is detected
	// from the residue names.
	Solvent Species

	// Solute is the solute species, None for a pure solvent, or empty
	// to detect it from the residue names.
	Solute Species

	// SolventAliases, if set, replace the residue-name prefixes used to
	// recognize the solvent.
	SolventAliases []string

	// Dt is the time between stored frames in ps.
	Dt float64

	// InferDt sets Dt from the frame times of the trajectory instead.
	InferDt bool

	// DecayFit requests a single-exponential fit of the relaxation curve.
	DecayFit bool

	// FitWindow is the fraction of the curve used for the fit.
	FitWindow float64

	// Method is the autocorrelation algorithm.
	Method Method

	// Unnormalized requests correlation values in D² instead of
	// normalized values.
	Unnormalized bool

	// UnwrapPBC asks the trajectory source to make molecules whole
	// across periodic boundaries before dipoles are calculated.
	UnwrapPBC bool

	// AllowDrift allows the number of molecules to change between
	// frames.
	AllowDrift bool

	// Registry holds the charge models. If nil, DefaultRegistry is used.
	Registry *Registry
}

// Check returns an error if the configuration is invalid.
func (c *Config) Check() error {
	if !c.InferDt && (!(c.Dt > 0) || math.IsInf(c.Dt, 1)) {
		return fmt.Errorf("%w: %g", ErrInvalidTimestep, c.Dt)
	}
	if c.FitWindow < 0 || c.FitWindow > 1 {
		return fmt.Errorf("dipole: fit window %g must be between 0 and 1", c.FitWindow)
	}
	r := c.registry()
	if c.Solvent != "" {
		if _, err := r.Model(c.Solvent); err != nil {
			return err
		}
	}
	if c.Solute != "" && c.Solute != None {
		if _, err := r.Model(c.Solute); err != nil {
			return err
		}
	}
	if len(c.SolventAliases) > 0 && c.Solvent == "" {
		return errors.New("dipole: solvent aliases require an explicit solvent species")
	}
	return nil
}

func (c *Config) registry() *Registry {
	if c.Registry == nil {
		return DefaultRegistry()
	}
	return c.Registry
}

// Selection specifies the atoms a Source should supply frames for.
type Selection struct {
	Residues  []string
	UnwrapPBC bool
}

// Source is a trajectory that can enumerate its residue names and
// supply frames for a selection of them. Each call to Frames starts a
// new pass from the first frame.
type Source interface {
	ResidueNames() []string
	Frames(sel Selection) (FrameReader, error)
}

// Manipulator is a step in an analysis.
type Manipulator func(ctx context.Context, a *Analysis) error

// Analysis holds the state of a dipole relaxation analysis.
type Analysis struct {
	Config Config
	Source Source

	// Log receives progress messages. If nil, logrus.StandardLogger()
	// is used.
	Log logrus.FieldLogger

	// Observer, if not nil, is called after each frame is processed.
	Observer func(FrameStatus)

	// InitFuncs are run by Init and RunFuncs by Run.
	InitFuncs, RunFuncs []Manipulator

	Classification *Classification
	Series         []*DipoleSeries // solvent first
	Curve          *RelaxationCurve
	Warnings       []Warning
}

// NewAnalysis creates an analysis of src with the default steps.
func NewAnalysis(cfg Config, src Source) *Analysis {
	return &Analysis{
		Config:    cfg,
		Source:    src,
		InitFuncs: []Manipulator{CheckConfig(), Classify()},
		RunFuncs:  []Manipulator{BuildAllSeries(), Correlate()},
	}
}

func (a *Analysis) log() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Init runs the InitFuncs. If one fails, any partial results are
// discarded.
func (a *Analysis) Init(ctx context.Context) error {
	return a.run(ctx, a.InitFuncs)
}

// Run runs the RunFuncs. If one fails, any partial results are
// discarded.
func (a *Analysis) Run(ctx context.Context) error {
	return a.run(ctx, a.RunFuncs)
}

func (a *Analysis) run(ctx context.Context, funcs []Manipulator) error {
	for _, f := range funcs {
		if err := ctx.Err(); err != nil {
			a.discard()
			return err
		}
		if err := f(ctx, a); err != nil {
			a.discard()
			return err
		}
	}
	return nil
}

func (a *Analysis) discard() {
	a.Series = nil
	a.Curve = nil
	a.Warnings = nil
}

// SeriesFor returns the series for role, or nil if there is none.
func (a *Analysis) SeriesFor(role Role) *DipoleSeries {
	for _, s := range a.Series {
		if s.Role == role {
			return s
		}
	}
	return nil
}

// CheckConfig returns a function that checks the analysis configuration.
func CheckConfig() Manipulator {
	return func(_ context.Context, a *Analysis) error {
		return a.Config.Check()
	}
}

// Classify returns a function that assigns the residues of the source
// to the solvent and solute roles.
func Classify() Manipulator {
	return func(_ context.Context, a *Analysis) error {
		if a.Source == nil {
			return errors.New("dipole: analysis has no trajectory source")
		}
		c := NewClassifier(a.Config.registry())
		if len(a.Config.SolventAliases) > 0 {
			if err := c.SetAliases(a.Config.Solvent, a.Config.SolventAliases...); err != nil {
				return err
			}
		}
		cl, err := c.Classify(a.Source.ResidueNames(), Choice{Solvent: a.Config.Solvent, Solute: a.Config.Solute})
		if err != nil {
			return err
		}
		a.Classification = cl
		f := logrus.Fields{"solvent": cl.Solvent.Species(), "solvent_residues": cl.Solvent.Residues}
		if cl.Solute != nil {
			f["solute"] = cl.Solute.Species()
			f["solute_residues"] = cl.Solute.Residues
		}
		a.log().WithFields(f).Info("classified residues")
		return nil
	}
}

// BuildAllSeries returns a function that reads the trajectory once for
// each classified role and stores the dipole series.
func BuildAllSeries() Manipulator {
	return func(ctx context.Context, a *Analysis) error {
		if a.Classification == nil {
			return errors.New("dipole: residues have not been classified")
		}
		a.Warnings = nil
		roles := []Assignment{a.Classification.Solvent}
		if a.Classification.Solute != nil {
			roles = append(roles, *a.Classification.Solute)
		}
		series := make([]*DipoleSeries, 0, len(roles))
		for _, as := range roles {
			r, err := a.Source.Frames(Selection{Residues: as.Residues, UnwrapPBC: a.Config.UnwrapPBC})
			if err != nil {
				return fmt.Errorf("dipole: opening %s frames: %w", as.Role, err)
			}
			s, w, err := BuildSeries(ctx, r, as.Role, as.Model, SeriesOptions{
				AllowDrift: a.Config.AllowDrift,
				Observer:   a.Observer,
			})
			if c, ok := r.(io.Closer); ok {
				if cerr := c.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("dipole: closing %s frames: %w", as.Role, cerr)
				}
			}
			if err != nil {
				return err
			}
			for _, ww := range w {
				a.log().Warn(ww.Error())
			}
			a.Warnings = append(a.Warnings, w...)
			series = append(series, s)
			a.log().WithFields(logrus.Fields{
				"role":    as.Role,
				"species": as.Species(),
				"frames":  s.Len(),
			}).Info("built dipole series")
		}
		a.Series = series
		return nil
	}
}

// LoadSeriesFrom returns a function that loads series previously saved
// with SaveSeriesTo in place of reading a trajectory.
func LoadSeriesFrom(r io.Reader) Manipulator {
	return func(_ context.Context, a *Analysis) error {
		s, err := LoadSeries(r)
		if err != nil {
			return err
		}
		if len(s) == 0 || s[0].Role != Solvent {
			return errors.New("dipole: saved series do not start with a solvent series")
		}
		a.Series = s
		return nil
	}
}

// SaveSeriesTo returns a function that writes the series of the analysis
// to w.
func SaveSeriesTo(w io.Writer) Manipulator {
	return func(_ context.Context, a *Analysis) error {
		return SaveSeries(w, a.Series...)
	}
}

// Correlate returns a function that calculates the relaxation curve
// from the series of the analysis.
func Correlate() Manipulator {
	return func(_ context.Context, a *Analysis) error {
		solvent := a.SeriesFor(Solvent)
		if solvent == nil {
			return ErrEmptySeries
		}
		dt := a.Config.Dt
		if a.Config.InferDt {
			var err error
			if dt, err = InferTimestep(solvent); err != nil {
				return err
			}
		}
		an := &Analyzer{
			Method:       a.Config.Method,
			Unnormalized: a.Config.Unnormalized,
			Fit:          a.Config.DecayFit,
			FitWindow:    a.Config.FitWindow,
			Log:          a.log(),
		}
		var (
			c   *RelaxationCurve
			err error
		)
		if solute := a.SeriesFor(Solute); solute != nil {
			c, err = an.AnalyzeMixture(dt, solvent, solute)
		} else {
			c, err = an.Analyze(dt, solvent)
		}
		if err != nil {
			return err
		}
		a.Curve = c
		return nil
	}
}

// InferTimestep returns the time between the first two frames of s.
func InferTimestep(s *DipoleSeries) (float64, error) {
	if s.Len() < 2 {
		return 0, fmt.Errorf("%w: cannot infer from %d frames", ErrInvalidTimestep, s.Len())
	}
	dt := s.Entries[1].Time - s.Entries[0].Time
	if !(dt > 0) {
		return 0, fmt.Errorf("%w: frame times do not increase", ErrInvalidTimestep)
	}
	return dt, nil
}
