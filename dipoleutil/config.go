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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/dipole"
	"github.com/spatialmodel/dipole/cloud"
	"github.com/spf13/cast"
)

// registry returns the built-in charge models plus any models in the
// file or blob URL named by the "charges" option.
func registry(cfg *viper.Viper) (*dipole.Registry, error) {
	reg := dipole.DefaultRegistry()
	path := os.ExpandEnv(cfg.GetString("charges"))
	if path == "" {
		return reg, nil
	}
	var r io.Reader
	if _, err := os.Stat(path); os.IsNotExist(err) && cloud.IsURL(path) {
		b, err := cloud.ReadBlob(context.TODO(), path)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("dipole: opening charges file: %v", err)
		}
		defer f.Close()
		r = f
	}
	models, err := dipole.LoadChargeModels(r)
	if err != nil {
		return nil, err
	}
	return reg.With(models...), nil
}

// AnalysisConfig creates an analysis configuration from cfg.
func AnalysisConfig(cfg *viper.Viper) (*dipole.Config, error) {
	reg, err := registry(cfg)
	if err != nil {
		return nil, err
	}
	dt, err := cast.ToFloat64E(cfg.Get("dt"))
	if err != nil {
		return nil, fmt.Errorf("dipole: invalid dt: %v", err)
	}
	window, err := cast.ToFloat64E(cfg.Get("fit_window"))
	if err != nil {
		return nil, fmt.Errorf("dipole: invalid fit_window: %v", err)
	}
	method, err := dipole.ParseMethod(cfg.GetString("method"))
	if err != nil {
		return nil, err
	}
	c := &dipole.Config{
		Solvent:        dipole.Species(strings.TrimSpace(cfg.GetString("solvent"))),
		Solute:         dipole.Species(strings.TrimSpace(cfg.GetString("solute"))),
		SolventAliases: stringSlice(cfg.Get("solvent_aliases")),
		Dt:             dt,
		InferDt:        dt == 0,
		DecayFit:       cast.ToBool(cfg.Get("fit")),
		FitWindow:      window,
		Method:         method,
		Unnormalized:   cast.ToBool(cfg.Get("unnormalized")),
		UnwrapPBC:      cast.ToBool(cfg.Get("unwrap")),
		AllowDrift:     cast.ToBool(cfg.Get("allow_drift")),
		Registry:       reg,
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

// stringSlice handles slices given as lists in configuration files and
// as comma-separated strings in environment variables.
func stringSlice(v interface{}) []string {
	var o []string
	for _, s := range cast.ToStringSlice(v) {
		for _, ss := range strings.Split(s, ",") {
			if ss = strings.TrimSpace(ss); ss != "" {
				o = append(o, ss)
			}
		}
	}
	return o
}
