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
	"errors"
	"testing"

	"github.com/kr/pretty"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultRegistry())
	for _, test := range []struct {
		name           string
		resnames       []string
		choice         Choice
		solvent        Species
		solute         Species // "" for none
		soluteResidues []string
	}{
		{name: "pure water", resnames: []string{"HOH"}, solvent: Water},
		{name: "water methanol", resnames: []string{"HOH", "MET"}, solvent: Water, solute: Methanol, soluteResidues: []string{"MET"}},
		{name: "tip3 ethanol", resnames: []string{" TIP3", "ETHA", "TIP3 "}, solvent: Water, solute: Ethanol, soluteResidues: []string{"ETHA"}},
		{name: "explicit solute", resnames: []string{"HOH", "MET", "ETH"}, choice: Choice{Solute: Ethanol}, solvent: Water, solute: Ethanol, soluteResidues: []string{"ETH"}},
		{name: "explicit none", resnames: []string{"WAT", "MET", "ETH", "SOD"}, choice: Choice{Solute: None}, solvent: Water},
		{name: "pure methanol", resnames: []string{"MET"}, choice: Choice{Solvent: Methanol}, solvent: Methanol},
		{name: "methanol solvent with ethanol", resnames: []string{"MET", "ETH"}, choice: Choice{Solvent: Methanol}, solvent: Methanol, solute: Ethanol, soluteResidues: []string{"ETH"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			cl, err := c.Classify(test.resnames, test.choice)
			if err != nil {
				t.Fatal(err)
			}
			if cl.Solvent.Species() != test.solvent || cl.Solvent.Role != Solvent {
				t.Errorf("solvent: have %s, want %s", cl.Solvent.Species(), test.solvent)
			}
			switch {
			case test.solute == "" && cl.Solute != nil:
				t.Errorf("unexpected solute %s", cl.Solute.Species())
			case test.solute != "" && cl.Solute == nil:
				t.Errorf("missing solute %s", test.solute)
			case test.solute != "":
				if cl.Solute.Species() != test.solute || cl.Solute.Role != Solute {
					t.Errorf("solute: have %s, want %s", cl.Solute.Species(), test.solute)
				}
				if diff := pretty.Diff(cl.Solute.Residues, test.soluteResidues); len(diff) > 0 {
					t.Errorf("solute residues: %v", diff)
				}
			}
		})
	}
}

func TestAutoClassifyErrors(t *testing.T) {
	c := NewClassifier(DefaultRegistry())

	_, err := c.AutoClassify([]string{"HOH", "MET", "ETH"})
	var amb *AmbiguousSoluteError
	if !errors.As(err, &amb) {
		t.Errorf("two solutes: have %v, want AmbiguousSoluteError", err)
	} else if diff := pretty.Diff(amb.Candidates, []string{"methanol", "ethanol"}); len(diff) > 0 {
		t.Errorf("candidates: %v", diff)
	}

	_, err = c.AutoClassify([]string{"MET", "ETH"})
	var none *NoSolventFoundError
	if !errors.As(err, &none) {
		t.Errorf("no water: have %v, want NoSolventFoundError", err)
	}

	_, err = c.AutoClassify([]string{"HOH", "LIG"})
	var unk *UnknownSpeciesError
	if !errors.As(err, &unk) || unk.Species != "LIG" {
		t.Errorf("unknown solute: have %v, want UnknownSpeciesError", err)
	}

	_, err = c.AutoClassify([]string{"HOH", "LIG", "MET"})
	if !errors.As(err, &amb) {
		t.Errorf("known and unknown solutes: have %v, want AmbiguousSoluteError", err)
	}

	_, err = c.Classify([]string{"HOH", "MET"}, Choice{Solute: Ethanol})
	var ns *NoSoluteFoundError
	if !errors.As(err, &ns) {
		t.Errorf("missing solute: have %v, want NoSoluteFoundError", err)
	}

	_, err = c.Classify([]string{"HOH"}, Choice{Solvent: "benzene"})
	if !errors.As(err, &unk) {
		t.Errorf("unregistered solvent: have %v, want UnknownSpeciesError", err)
	}

	// Prefix matching is case sensitive.
	_, err = c.AutoClassify([]string{"hoh"})
	if !errors.As(err, &none) {
		t.Errorf("lower case: have %v, want NoSolventFoundError", err)
	}
}

func TestAmbiguousSolvent(t *testing.T) {
	acn, err := NewChargeModel("acetonitrile", "test", map[string]float64{"C": 0.1, "N": -0.1}, nil, []string{"ACN"}, true)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClassifier(DefaultRegistry().With(acn))
	_, err = c.AutoClassify([]string{"HOH", "ACN"})
	var amb *AmbiguousSolventError
	if !errors.As(err, &amb) {
		t.Fatalf("have %v, want AmbiguousSolventError", err)
	}
	cl, err := c.Classify([]string{"HOH", "ACN"}, Choice{Solvent: "acetonitrile"})
	if err != nil {
		t.Fatal(err)
	}
	if cl.Solvent.Species() != "acetonitrile" || cl.Solute == nil || cl.Solute.Species() != Water {
		t.Errorf("have solvent %s, solute %v", cl.Solvent.Species(), cl.Solute)
	}
}

func TestSetAliases(t *testing.T) {
	c := NewClassifier(DefaultRegistry())
	if err := c.SetAliases(Water, "SOL"); err != nil {
		t.Fatal(err)
	}
	cl, err := c.AutoClassify([]string{"SOL", "MET"})
	if err != nil {
		t.Fatal(err)
	}
	if cl.Solvent.Species() != Water || cl.Solute.Species() != Methanol {
		t.Errorf("have %s and %s", cl.Solvent.Species(), cl.Solute.Species())
	}
	// The replaced aliases no longer match.
	if _, ok := c.Match("HOH"); ok {
		t.Error("HOH should not match after replacing the aliases")
	}
	if err := c.SetAliases("benzene", "BNZ"); err == nil {
		t.Error("expected an error for an unregistered species")
	}
}
