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

// Package dipoleutil contains the command-line interface for the dipole
// moment and dielectric relaxation tools.
package dipoleutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/dipole"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is the version of the command-line tools.
const Version = "1.0.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the tools.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "top",
			usage: `
              top specifies the PDB topology file. It may be a local path
              or a blob URL (gs://, s3:// or file://). If no trajectory
              is given, the models in the topology file are the frames.`,
			shorthand:  "t",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{speciesCmd.Flags(), seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "traj",
			usage: `
              traj specifies the trajectory file (DCD or multi-model PDB).`,
			shorthand:  "f",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "solvent",
			usage: `
              solvent specifies the solvent species (water, methanol,
              ethanol or a species from the charges file). If empty, it
              is detected from the residue names.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{speciesCmd.Flags(), seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "solute",
			usage: `
              solute specifies the solute species, or "none" for a pure
              solvent. If empty, it is detected from the residue names.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{speciesCmd.Flags(), seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "solvent_aliases",
			usage: `
              solvent_aliases specifies residue-name prefixes that
              identify the solvent, replacing the defaults. Requires
              --solvent.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{speciesCmd.Flags(), seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "charges",
			usage: `
              charges specifies a TOML file with additional charge models.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "dt",
			usage: `
              dt specifies the time between stored frames in ps. If it
              is 0, it is taken from the trajectory; PDB trajectories
              require it.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "unwrap",
			usage: `
              unwrap specifies whether to make molecules whole across
              periodic boundaries before calculating dipoles.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "allow_drift",
			usage: `
              allow_drift specifies whether a change in the number of
              molecules between frames is allowed. Changes are always
              logged.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "fit",
			usage: `
              fit specifies whether to fit a single-exponential decay to
              the relaxation curve.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{relaxCmd.Flags()},
		},
		{
			name: "fit_window",
			usage: `
              fit_window specifies the fraction of the relaxation curve,
              starting at zero lag, used for the fit.`,
			defaultVal: dipole.DefaultFitWindow,
			flagsets:   []*pflag.FlagSet{relaxCmd.Flags()},
		},
		{
			name: "method",
			usage: `
              method specifies the autocorrelation algorithm: auto,
              direct or fft.`,
			defaultVal: "auto",
			flagsets:   []*pflag.FlagSet{relaxCmd.Flags()},
		},
		{
			name: "unnormalized",
			usage: `
              unnormalized specifies whether to report ⟨M(0)·M(τ)⟩ in D²
              instead of normalizing it by its zero-lag value.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{relaxCmd.Flags()},
		},
		{
			name: "series_out",
			usage: `
              series_out specifies where to write the dipole series. The
              format is chosen by extension: .nc for NetCDF, .xlsx for
              Excel, .gob for a file that can be reloaded with
              --series_in, and tab-separated text otherwise.`,
			shorthand:  "o",
			defaultVal: "dipole_series.txt",
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), relaxCmd.Flags()},
		},
		{
			name: "series_in",
			usage: `
              series_in specifies a .gob file written by series_out to
              analyze instead of a trajectory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{relaxCmd.Flags()},
		},
		{
			name: "curve_out",
			usage: `
              curve_out specifies where to write the relaxation curve.
              The format is chosen by extension: .nc for NetCDF, .xlsx
              for Excel, .png for a plot, and tab-separated text
              otherwise.`,
			shorthand:  "c",
			defaultVal: "relaxation.txt",
			flagsets:   []*pflag.FlagSet{relaxCmd.Flags()},
		},
		{
			name: "log_every",
			usage: `
              log_every specifies how many frames to process between
              progress messages. 0 disables progress messages.`,
			defaultVal: 1000,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), relaxCmd.Flags()},
		},
	}

	Cfg = viper.New()
	Cfg.SetEnvPrefix("DIPOLE")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(modelsCmd)
	Root.AddCommand(speciesCmd)
	Root.AddCommand(seriesCmd)
	Root.AddCommand(relaxCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("dipole: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "dipole",
	Short: "Dipole moments and dielectric relaxation from MD trajectories.",
	Long: `dipole calculates the total dipole moment of the solvent and solute
of a molecular dynamics trajectory at every frame, and the dipole
autocorrelation function that characterizes dielectric relaxation.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'DIPOLE_var' where 'var' is the
name of the variable to be set.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of dipole.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("dipole v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the charge models.",
	Long: `models lists the registered charge models, their residue-name
prefixes and atom charges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry(Cfg)
		if err != nil {
			return err
		}
		return printModels(cmd.OutOrStdout(), reg)
	},
	DisableAutoGenTag: true,
}

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "Classify the residues of a system.",
	Long: `species lists the residue names in the topology and shows which
species is used as the solvent and which as the solute.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Species(cmd, Cfg)
	},
	DisableAutoGenTag: true,
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Calculate dipole moment time series.",
	Long: `series calculates the total dipole moment of the solvent, and of
the solute if there is one, at every frame of the trajectory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd, Cfg, false)
	},
	DisableAutoGenTag: true,
}

var relaxCmd = &cobra.Command{
	Use:   "relax",
	Short: "Calculate the dielectric relaxation curve.",
	Long: `relax calculates the dipole time series and their normalized
autocorrelation function, optionally fitting an exponential decay to
obtain the relaxation time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd, Cfg, true)
	},
	DisableAutoGenTag: true,
}
