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
	"sort"
	"strings"
)

// Choice is an explicit species selection for classification. Empty
// fields are detected automatically; a Solute of None requests a
// pure-solvent analysis.
type Choice struct {
	Solvent Species
	Solute  Species
}

// Assignment is a species assigned to a role, together with its charge
// model and the residue names in the system that belong to it.
type Assignment struct {
	Role     Role
	Model    *ChargeModel
	Residues []string
}

// Species returns the species of the assignment.
func (a Assignment) Species() Species { return a.Model.Species() }

// Classification is the result of partitioning the residues of a system
// into a solvent and an optional solute.
type Classification struct {
	Solvent Assignment
	Solute  *Assignment // nil for a pure-solvent system
}

// Classifier matches residue names to species by case-sensitive prefix.
type Classifier struct {
	registry *Registry
	aliases  map[Species][]string
}

// NewClassifier creates a classifier that uses the residue prefixes of
// the models in r.
func NewClassifier(r *Registry) *Classifier {
	c := &Classifier{registry: r, aliases: make(map[Species][]string)}
	for _, m := range r.Models() {
		c.aliases[m.Species()] = m.Residues()
	}
	return c
}

// SetAliases replaces the residue-name prefixes for species.
func (c *Classifier) SetAliases(species Species, prefixes ...string) error {
	if _, err := c.registry.Model(species); err != nil {
		return err
	}
	c.aliases[species] = append([]string(nil), prefixes...)
	return nil
}

// Match returns the species whose longest alias is a prefix of the
// trimmed residue name.
func (c *Classifier) Match(resname string) (Species, bool) {
	resname = strings.TrimSpace(resname)
	var best Species
	bestLen := 0
	for _, m := range c.registry.Models() {
		for _, a := range c.aliases[m.Species()] {
			if a != "" && strings.HasPrefix(resname, a) && len(a) > bestLen {
				best, bestLen = m.Species(), len(a)
			}
		}
	}
	return best, bestLen > 0
}

// Classify partitions resnames into a solvent and at most one solute.
// Fields of choice that are set are honored exactly; the remaining roles
// are detected from the residue names. When more than one non-solvent
// species is present and no solute has been chosen, Classify fails with
// an *AmbiguousSoluteError rather than guessing.
func (c *Classifier) Classify(resnames []string, choice Choice) (*Classification, error) {
	names := uniqueTrimmed(resnames)
	groups := make(map[Species][]string)
	var unmatched []string
	for _, n := range names {
		if s, ok := c.Match(n); ok {
			groups[s] = append(groups[s], n)
		} else {
			unmatched = append(unmatched, n)
		}
	}

	var solvent Species
	if choice.Solvent != "" {
		if _, err := c.registry.Model(choice.Solvent); err != nil {
			return nil, err
		}
		if len(groups[choice.Solvent]) == 0 {
			return nil, &NoSolventFoundError{Residues: names}
		}
		solvent = choice.Solvent
	} else {
		var candidates []Species
		for _, m := range c.registry.Models() {
			if m.Solvent() && len(groups[m.Species()]) > 0 {
				candidates = append(candidates, m.Species())
			}
		}
		switch len(candidates) {
		case 0:
			return nil, &NoSolventFoundError{Residues: names}
		case 1:
			solvent = candidates[0]
		default:
			return nil, &AmbiguousSolventError{Candidates: candidates}
		}
	}
	solventModel, _ := c.registry.Model(solvent)
	cl := &Classification{Solvent: Assignment{
		Role:     Solvent,
		Model:    solventModel,
		Residues: groups[solvent],
	}}

	switch choice.Solute {
	case None:
		return cl, nil
	case "":
	default:
		m, err := c.registry.Model(choice.Solute)
		if err != nil {
			return nil, err
		}
		if choice.Solute == solvent || len(groups[choice.Solute]) == 0 {
			return nil, &NoSoluteFoundError{Solute: choice.Solute}
		}
		cl.Solute = &Assignment{Role: Solute, Model: m, Residues: groups[choice.Solute]}
		return cl, nil
	}

	var candidates []string
	var soluteSpecies []Species
	for _, m := range c.registry.Models() {
		if s := m.Species(); s != solvent && len(groups[s]) > 0 {
			candidates = append(candidates, string(s))
			soluteSpecies = append(soluteSpecies, s)
		}
	}
	candidates = append(candidates, unmatched...)
	switch {
	case len(candidates) == 0:
		return cl, nil
	case len(candidates) > 1:
		return nil, &AmbiguousSoluteError{Candidates: candidates}
	case len(soluteSpecies) == 0:
		return nil, &UnknownSpeciesError{Species: Species(unmatched[0])}
	}
	m, _ := c.registry.Model(soluteSpecies[0])
	cl.Solute = &Assignment{Role: Solute, Model: m, Residues: groups[soluteSpecies[0]]}
	return cl, nil
}

// AutoClassify detects the solvent and solute from resnames alone.
func (c *Classifier) AutoClassify(resnames []string) (*Classification, error) {
	return c.Classify(resnames, Choice{})
}

func uniqueTrimmed(resnames []string) []string {
	seen := make(map[string]bool, len(resnames))
	var o []string
	for _, n := range resnames {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}
