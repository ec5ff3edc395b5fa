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

package dipoleutil

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dipole"
	"github.com/spatialmodel/dipole/internal/hash"
	"github.com/spatialmodel/dipole/trajectory"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

// Run calculates dipole series, and the relaxation curve if relax is
// true, with the settings in cfg, writing log messages to the output
// of cmd and to a log file next to the output.
func Run(cmd *cobra.Command, cfg *viper.Viper, relax bool) error {
	ctx := cmdContext(cmd)
	c, err := AnalysisConfig(cfg)
	if err != nil {
		return err
	}

	u := new(uploader)
	seriesOut := u.maybeUpload(os.ExpandEnv(cfg.GetString("series_out")))
	var curveOut string
	logBase := cfg.GetString("series_out")
	if relax {
		curveOut = u.maybeUpload(os.ExpandEnv(cfg.GetString("curve_out")))
		logBase = cfg.GetString("curve_out")
	}
	logPath := u.maybeUpload(strings.TrimSuffix(os.ExpandEnv(logBase), filepath.Ext(logBase)) + ".log")
	if u.err != nil {
		return u.err
	}
	logfile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("dipole: problem creating log file: %v", err)
	}
	defer logfile.Close()

	runID := uuid.New().String()
	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(cmd.OutOrStdout(), logfile))
	log := logger.WithField("run", runID)

	var a *dipole.Analysis
	if in := cfg.GetString("series_in"); relax && in != "" {
		in, err = maybeDownload(ctx, os.ExpandEnv(in))
		if err != nil {
			return err
		}
		f, err := os.Open(in)
		if err != nil {
			return fmt.Errorf("dipole: opening saved series: %v", err)
		}
		defer f.Close()
		a = &dipole.Analysis{
			Config:    *c,
			InitFuncs: []dipole.Manipulator{dipole.CheckConfig(), dipole.LoadSeriesFrom(f)},
			RunFuncs:  []dipole.Manipulator{dipole.Correlate()},
		}
		seriesOut = ""
	} else {
		src, closer, err := openSource(ctx, cfg, c.Dt)
		if err != nil {
			return err
		}
		defer closer.Close()
		a = dipole.NewAnalysis(*c, src)
		if !relax {
			a.RunFuncs = []dipole.Manipulator{dipole.BuildAllSeries()}
		}
	}
	a.Log = log
	a.Observer = progress(log, cast.ToInt(cfg.Get("log_every")))

	log.WithFields(logrus.Fields{
		"version": Version,
		"config":  hash.Hash(configFingerprint(c)),
	}).Info("starting analysis")
	if err := a.Init(ctx); err != nil {
		return err
	}
	if err := a.Run(ctx); err != nil {
		return err
	}

	meta := map[string]string{
		"run_id":      runID,
		"version":     Version,
		"config_hash": hash.Hash(configFingerprint(c)),
	}
	if a.Classification != nil {
		meta["solvent"] = string(a.Classification.Solvent.Species())
		if a.Classification.Solute != nil {
			meta["solute"] = string(a.Classification.Solute.Species())
		}
	}
	if seriesOut != "" {
		if err := writeSeries(seriesOut, a.Series, meta); err != nil {
			return err
		}
		log.WithField("file", cfg.GetString("series_out")).Info("wrote dipole series")
	}
	if relax {
		if err := writeCurve(curveOut, a.Series, a.Curve, meta); err != nil {
			return err
		}
		f := logrus.Fields{
			"file":            cfg.GetString("curve_out"),
			"integrated_time": a.Curve.IntegratedTime(),
		}
		if a.Curve.Fit != nil {
			f["tau_ps"] = a.Curve.Fit.Tau
			f["r_squared"] = a.Curve.Fit.RSquared
			f["fit_status"] = a.Curve.Fit.Status.String()
		}
		log.WithFields(f).Info("wrote relaxation curve")
		if a.Curve.Fit != nil {
			cmd.Printf("relaxation time: %s (R² = %.4f)\n", formatTau(a.Curve.Fit.Tau), a.Curve.Fit.RSquared)
		}
	}
	if len(a.Warnings) > 0 {
		log.WithField("count", len(a.Warnings)).Warn("analysis finished with warnings")
	}
	logfile.Sync()
	return u.uploadOutput(ctx, log)
}

// openSource opens the topology and trajectory named in cfg.
func openSource(ctx context.Context, cfg *viper.Viper, dt float64) (*trajectory.Source, io.Closer, error) {
	top := os.ExpandEnv(cfg.GetString("top"))
	if top == "" {
		return nil, nil, fmt.Errorf("dipole: a topology file must be specified with --top")
	}
	traj := os.ExpandEnv(cfg.GetString("traj"))
	if (traj == "" || strings.EqualFold(filepath.Ext(traj), ".pdb")) && dt == 0 {
		return nil, nil, fmt.Errorf("dipole: --dt must be set for PDB trajectories")
	}
	top, err := maybeDownload(ctx, top)
	if err != nil {
		return nil, nil, err
	}
	if traj != "" {
		if traj, err = maybeDownload(ctx, traj); err != nil {
			return nil, nil, err
		}
	}
	return trajectory.Open(top, traj, dt)
}

// configFingerprint returns the parts of c that determine the results.
func configFingerprint(c *dipole.Config) interface{} {
	cc := *c
	cc.Registry = nil
	var models []string
	for _, m := range c.Registry.Models() {
		models = append(models, fmt.Sprintf("%s:%s:%v", m.Species(), m.Name(), m.Charges()))
	}
	return struct {
		Config dipole.Config
		Models []string
	}{cc, models}
}

// progress returns an observer that logs every n frames.
func progress(log logrus.FieldLogger, n int) func(dipole.FrameStatus) {
	if n <= 0 {
		return nil
	}
	count := 0
	return func(s dipole.FrameStatus) {
		count++
		if count%n != 0 {
			return
		}
		log.WithFields(logrus.Fields{
			"role":      s.Role,
			"frame":     s.Frame,
			"time_ps":   s.Time,
			"molecules": s.Instances,
		}).Info("processing frames")
	}
}

func writeSeries(path string, series []*dipole.DipoleSeries, meta map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dipole: creating series output: %v", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nc":
		err = dipole.WriteNetCDF(f, series, nil, meta)
	case ".xlsx":
		err = dipole.WriteXLSX(f, series, nil, meta)
	case ".gob":
		err = dipole.SaveSeries(f, series...)
	default:
		err = dipole.WriteSeriesText(f, series...)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCurve(path string, series []*dipole.DipoleSeries, c *dipole.RelaxationCurve, meta map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dipole: creating relaxation output: %v", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nc":
		err = dipole.WriteNetCDF(f, series, c, meta)
	case ".xlsx":
		err = dipole.WriteXLSX(f, series, c, meta)
	case ".png":
		err = dipole.PlotCurve(f, c, 6*vg.Inch, 4*vg.Inch)
	default:
		err = dipole.WriteCurveText(f, c)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// formatTau formats a relaxation time for display.
func formatTau(tau float64) string {
	if math.IsInf(tau, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.4g ps", tau)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
