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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/dipole"
	"github.com/spatialmodel/dipole/trajectory"
	"github.com/spf13/cobra"
)

var (
	solventColor = color.New(color.FgGreen, color.Bold)
	soluteColor  = color.New(color.FgCyan, color.Bold)
	otherColor   = color.New(color.FgYellow)
)

// Species prints the residue names of the topology in cfg and their
// classification into solvent and solute.
func Species(cmd *cobra.Command, cfg *viper.Viper) error {
	c, err := AnalysisConfig(cfg)
	if err != nil {
		return err
	}
	top := os.ExpandEnv(cfg.GetString("top"))
	if top == "" {
		return fmt.Errorf("dipole: a topology file must be specified with --top")
	}
	if top, err = maybeDownload(cmdContext(cmd), top); err != nil {
		return err
	}
	f, err := os.Open(top)
	if err != nil {
		return err
	}
	t, _, err := trajectory.ReadPDB(f, 1)
	f.Close()
	if err != nil {
		return err
	}
	cl := dipole.NewClassifier(c.Registry)
	if len(c.SolventAliases) > 0 {
		if err := cl.SetAliases(c.Solvent, c.SolventAliases...); err != nil {
			return err
		}
	}
	resnames := t.ResidueNames()
	result, err := cl.Classify(resnames, dipole.Choice{Solvent: c.Solvent, Solute: c.Solute})
	if err != nil {
		return err
	}
	return printClassification(cmd.OutOrStdout(), resnames, result)
}

func printClassification(w io.Writer, resnames []string, cl *dipole.Classification) error {
	role := make(map[string]*dipole.Assignment)
	for _, r := range cl.Solvent.Residues {
		role[r] = &cl.Solvent
	}
	if cl.Solute != nil {
		for _, r := range cl.Solute.Residues {
			role[r] = cl.Solute
		}
	}
	for _, r := range resnames {
		a, ok := role[r]
		var err error
		switch {
		case !ok:
			_, err = otherColor.Fprintf(w, "%-6s not analyzed\n", r)
		case a.Role == dipole.Solvent:
			_, err = solventColor.Fprintf(w, "%-6s solvent %s (%s)\n", r, a.Species(), a.Model.Name())
		default:
			_, err = soluteColor.Fprintf(w, "%-6s solute  %s (%s)\n", r, a.Species(), a.Model.Name())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printModels(w io.Writer, reg *dipole.Registry) error {
	for _, m := range reg.Models() {
		c := soluteColor
		if m.Solvent() {
			c = solventColor
		}
		if _, err := c.Fprintf(w, "%s (%s)", m.Species(), m.Name()); err != nil {
			return err
		}
		fmt.Fprintf(w, " residues: %s; net charge: %.4f e\n", strings.Join(m.Residues(), ", "), m.NetCharge())
		q := m.Charges()
		for _, l := range m.Labels() {
			fmt.Fprintf(w, "    %-4s %+.3f\n", l, q[l])
		}
		if m.OriginDependent() {
			otherColor.Fprintln(w, "    warning: nonzero net charge; dipoles depend on the coordinate origin")
		}
	}
	return nil
}
