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
	"io"
	"math"
	"sort"

	"github.com/BurntSushi/toml"
)

// Species identifies a molecular species with a registered charge model.
type Species string

// Built-in species.
const (
	Water    Species = "water"
	Methanol Species = "methanol"
	Ethanol  Species = "ethanol"

	// None is used in place of a solute species to request a
	// pure-solvent analysis.
	None Species = "none"
)

// ChargeModel holds the partial charges, in elementary-charge units, of
// the atoms of one molecular species. A ChargeModel cannot be changed
// after it is created.
type ChargeModel struct {
	species  Species
	name     string
	charges  map[string]float64
	aliases  map[string]string
	residues []string
	solvent  bool
	labels   []string
}

// NewChargeModel creates a charge model for species. aliases maps
// alternative atom labels (such as "OH2" for "O") onto labels in charges.
// residues holds the residue-name prefixes that identify the species, and
// solvent specifies whether the species is considered a solvent when
// the solvent is detected automatically.
func NewChargeModel(species Species, name string, charges map[string]float64, aliases map[string]string, residues []string, solvent bool) (*ChargeModel, error) {
	if species == "" || species == None {
		return nil, fmt.Errorf("dipole: invalid species name %q", species)
	}
	if len(charges) == 0 {
		return nil, fmt.Errorf("dipole: charge model for %s has no atoms", species)
	}
	m := &ChargeModel{
		species:  species,
		name:     name,
		charges:  make(map[string]float64, len(charges)),
		aliases:  make(map[string]string, len(aliases)),
		residues: append([]string(nil), residues...),
		solvent:  solvent,
	}
	for l, q := range charges {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, fmt.Errorf("dipole: charge of %s in %s model is not finite", l, species)
		}
		m.charges[l] = q
		m.labels = append(m.labels, l)
	}
	sort.Strings(m.labels)
	for a, l := range aliases {
		if _, ok := m.charges[l]; !ok {
			return nil, fmt.Errorf("dipole: alias %s in %s model refers to missing label %s", a, species, l)
		}
		m.aliases[a] = l
	}
	return m, nil
}

func mustChargeModel(species Species, name string, charges map[string]float64, aliases map[string]string, residues []string, solvent bool) *ChargeModel {
	m, err := NewChargeModel(species, name, charges, aliases, residues, solvent)
	if err != nil {
		panic(err)
	}
	return m
}

// Species returns the species the model describes.
func (m *ChargeModel) Species() Species { return m.species }

// Name returns the name of the force field the charges come from.
func (m *ChargeModel) Name() string { return m.name }

// Residues returns the residue-name prefixes that identify the species.
func (m *ChargeModel) Residues() []string { return append([]string(nil), m.residues...) }

// Solvent reports whether the species is a solvent candidate during
// automatic classification.
func (m *ChargeModel) Solvent() bool { return m.solvent }

// Labels returns the atom labels of the model in sorted order.
func (m *ChargeModel) Labels() []string { return append([]string(nil), m.labels...) }

// Charges returns a copy of the label to charge mapping.
func (m *ChargeModel) Charges() map[string]float64 {
	o := make(map[string]float64, len(m.charges))
	for l, q := range m.charges {
		o[l] = q
	}
	return o
}

// Charge returns the partial charge of the atom with the given label.
// Labels that are not in the model are an error; there is no default charge.
func (m *ChargeModel) Charge(label string) (float64, error) {
	if q, ok := m.charges[label]; ok {
		return q, nil
	}
	if l, ok := m.aliases[label]; ok {
		return m.charges[l], nil
	}
	return 0, &UnknownAtomLabelError{Species: m.species, Label: label}
}

// NetCharge returns the sum of the charges in the model.
func (m *ChargeModel) NetCharge() float64 {
	var sum float64
	for _, l := range m.labels {
		sum += m.charges[l]
	}
	return sum
}

// OriginDependent reports whether the model has a nonzero net charge, in
// which case dipoles calculated with it depend on the coordinate origin.
func (m *ChargeModel) OriginDependent() bool {
	return math.Abs(m.NetCharge()) > 1e-9
}

// TIP3PWater is the TIP3P water model. It is net neutral.
var TIP3PWater = mustChargeModel(Water, "TIP3P",
	map[string]float64{"O": -0.834, "H1": 0.417, "H2": 0.417},
	map[string]string{"OH2": "O", "OW": "O", "HW1": "H1", "HW2": "H2"},
	[]string{"HOH", "WAT", "TIP3"}, true)

// CHARMMMethanol is the methanol model. It is net neutral.
var CHARMMMethanol = mustChargeModel(Methanol, "CHARMM",
	map[string]float64{"C3": 0.10, "O2": -0.65, "H1": 0.40, "H4": 0.05, "H5": 0.05, "H6": 0.05},
	nil, []string{"MET"}, false)

// CHARMMEthanol is the ethanol model. It is net neutral.
var CHARMMEthanol = mustChargeModel(Ethanol, "CHARMM",
	map[string]float64{
		"C1": -0.15, "C2": 0.15, "O3": -0.65,
		"H1": 0.05, "H2": 0.05, "H3": 0.05, "H4": 0.05, "H5": 0.05, "H6": 0.40,
	},
	nil, []string{"ETH"}, false)

// Registry holds the charge models of the supported species.
type Registry struct {
	models []*ChargeModel
	index  map[Species]*ChargeModel
}

// NewRegistry creates a registry from the given models. Later models
// replace earlier models of the same species.
func NewRegistry(models ...*ChargeModel) *Registry {
	r := &Registry{index: make(map[Species]*ChargeModel)}
	r.add(models...)
	return r
}

// DefaultRegistry returns a registry holding the built-in water, methanol
// and ethanol models.
func DefaultRegistry() *Registry {
	return NewRegistry(TIP3PWater, CHARMMMethanol, CHARMMEthanol)
}

func (r *Registry) add(models ...*ChargeModel) {
	for _, m := range models {
		if old, ok := r.index[m.species]; ok {
			for i, mm := range r.models {
				if mm == old {
					r.models[i] = m
				}
			}
		} else {
			r.models = append(r.models, m)
		}
		r.index[m.species] = m
	}
}

// With returns a new registry with the models of r plus the given models.
func (r *Registry) With(models ...*ChargeModel) *Registry {
	o := NewRegistry(r.models...)
	o.add(models...)
	return o
}

// Model returns the charge model for species.
func (r *Registry) Model(species Species) (*ChargeModel, error) {
	m, ok := r.index[species]
	if !ok {
		return nil, &UnknownSpeciesError{Species: species}
	}
	return m, nil
}

// Charges returns the label to charge mapping, in elementary-charge
// units, for species.
func (r *Registry) Charges(species Species) (map[string]float64, error) {
	m, err := r.Model(species)
	if err != nil {
		return nil, err
	}
	return m.Charges(), nil
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*ChargeModel {
	return append([]*ChargeModel(nil), r.models...)
}

// chargeModelFile is the layout of a TOML charge-model file:
//
//	[[model]]
//	species = "acetonitrile"
//	name = "OPLS"
//	residues = ["ACN"]
//	solvent = true
//	[model.charges]
//	C1 = 0.28
//	...
type chargeModelFile struct {
	Model []struct {
		Species  string
		Name     string
		Residues []string
		Solvent  bool
		Charges  map[string]float64
		Aliases  map[string]string
	}
}

// LoadChargeModels reads charge models from a TOML document.
func LoadChargeModels(r io.Reader) ([]*ChargeModel, error) {
	var f chargeModelFile
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("dipole: reading charge models: %w", err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		return nil, fmt.Errorf("dipole: reading charge models: unknown keys %v", u)
	}
	models := make([]*ChargeModel, 0, len(f.Model))
	for _, m := range f.Model {
		cm, err := NewChargeModel(Species(m.Species), m.Name, m.Charges, m.Aliases, m.Residues, m.Solvent)
		if err != nil {
			return nil, err
		}
		models = append(models, cm)
	}
	return models, nil
}
