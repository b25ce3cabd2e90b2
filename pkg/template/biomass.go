package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mmundy42/mackinac/pkg/model"
)

// Required fields in a source file that defines biomass entities.
var biomassFields = []string{
	"id", "name", "type", "other", "dna", "rna", "protein", "lipid", "cellwall",
	"cofactor", "energy",
}

// Required fields in a source file that defines biomass components.
var biomassComponentFields = []string{
	"biomass_id", "id", "coefficient", "coefficient_type", "class", "linked_compounds",
	"compartment",
}

// Classes of biomass components. The dna, rna, protein, and cellwall
// classes mean the metabolite is required for production of the class,
// lipid means the metabolite is an essential lipid the cell must
// synthesize or import, cofactor means the metabolite must be
// continuously replenished to support growth, energy accounts for the
// energy required to grow and divide, and other is everything else.
var biomassClassTypes = map[string]bool{
	"dna": true, "rna": true, "protein": true, "cellwall": true, "lipid": true,
	"cofactor": true, "energy": true, "other": true,
}

// Coefficient types that control how a biomass component contributes
// to the overall biomass reaction.
const (
	CoefficientMolFraction  = "MOLFRACTION"
	CoefficientMolSplit     = "MOLSPLIT"
	CoefficientMassFraction = "MASSFRACTION"
	CoefficientMassSplit    = "MASSSPLIT"
	CoefficientGC           = "GC"
	CoefficientAT           = "AT"
	CoefficientExact        = "EXACT"
	CoefficientMultiplier   = "MULTIPLIER"
)

var biomassCoefficientTypes = map[string]bool{
	CoefficientMolFraction: true, CoefficientMolSplit: true,
	CoefficientMassFraction: true, CoefficientMassSplit: true,
	CoefficientGC: true, CoefficientAT: true,
	CoefficientExact: true, CoefficientMultiplier: true,
}

// BiomassComponent is a metabolite that is part of a biomass entity.
// A negative coefficient indicates a reactant and a positive value
// indicates a product.
type BiomassComponent struct {
	UniversalID       string
	BiomassID         string
	ClassType         string
	CoefficientType   string
	CompartmentID     string
	Coefficient       float64
	LinkedMetabolites map[string]float64
}

// Biomass is a collection of metabolites in specific ratios and
// compartments that are necessary for a cell to function. The class
// moles map holds the amount of each component class in moles.
type Biomass struct {
	ID         string
	Name       string
	Type       string
	ClassMoles map[string]float64
	Components []*BiomassComponent

	metabolites map[string]*Metabolite
}

// parseLinkedMetabolites parses the linked compounds field of a
// biomass component. Each linked metabolite is specified as a
// universal ID and coefficient separated by a colon, with entries
// separated by vertical bars.
func parseLinkedMetabolites(value string) (map[string]float64, error) {
	linked := make(map[string]float64)
	for _, entry := range strings.Split(value, "|") {
		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("linked compound %q does not have two fields", entry)
		}
		coefficient, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("linked compound %q has an invalid coefficient: %w", entry, err)
		}
		linked[parts[0]] = coefficient
	}
	return linked, nil
}

// ReadBiomassComponents reads a source file that defines biomass
// components. An unknown class or coefficient type is a fatal error.
func ReadBiomassComponents(path string) ([]*BiomassComponent, error) {
	var components []*BiomassComponent
	err := readSource(path, biomassComponentFields, func(fields []string, names map[string]int, linenum int) error {
		component := &BiomassComponent{
			UniversalID:     fields[names["id"]],
			BiomassID:       fields[names["biomass_id"]],
			ClassType:       fields[names["class"]],
			CoefficientType: fields[names["coefficient_type"]],
			CompartmentID:   fields[names["compartment"]],
		}
		if !biomassClassTypes[component.ClassType] {
			return fmt.Errorf("component %s in biomass %s has invalid class type %s",
				component.UniversalID, component.BiomassID, component.ClassType)
		}
		if !biomassCoefficientTypes[component.CoefficientType] {
			return fmt.Errorf("component %s in biomass %s has invalid coefficient type %s",
				component.UniversalID, component.BiomassID, component.CoefficientType)
		}
		var err error
		if component.Coefficient, err = strconv.ParseFloat(fields[names["coefficient"]], 64); err != nil {
			return fmt.Errorf("component %s in biomass %s has an invalid coefficient: %w",
				component.UniversalID, component.BiomassID, err)
		}
		if fields[names["linked_compounds"]] != "null" {
			if component.LinkedMetabolites, err = parseLinkedMetabolites(fields[names["linked_compounds"]]); err != nil {
				return fmt.Errorf("component %s in biomass %s: %w",
					component.UniversalID, component.BiomassID, err)
			}
		}
		components = append(components, component)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return components, nil
}

// ReadBiomasses reads a source file that defines biomass entities. A
// duplicate biomass ID is a fatal error.
func ReadBiomasses(path string) ([]*Biomass, error) {
	var biomasses []*Biomass
	seen := make(map[string]bool)
	err := readSource(path, biomassFields, func(fields []string, names map[string]int, linenum int) error {
		biomass := &Biomass{
			ID:          fields[names["id"]],
			Name:        fields[names["name"]],
			Type:        fields[names["type"]],
			ClassMoles:  make(map[string]float64),
			metabolites: make(map[string]*Metabolite),
		}
		if seen[biomass.ID] {
			return &DuplicateError{ID: biomass.ID, Line: linenum}
		}
		for class := range biomassClassTypes {
			value, err := strconv.ParseFloat(fields[names[class]], 64)
			if err != nil {
				return fmt.Errorf("biomass %s has an invalid %s amount: %w", biomass.ID, class, err)
			}
			biomass.ClassMoles[class] = value
		}
		seen[biomass.ID] = true
		biomasses = append(biomasses, biomass)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return biomasses, nil
}

// AddComponents adds biomass components to the biomass entity. Every
// metabolite referenced by a component must be a universal metabolite
// and a component with a mass coefficient type must refer to a
// metabolite with a non-zero mass.
func (b *Biomass) AddComponents(components []*BiomassComponent, universal map[string]*Metabolite) error {
	lookup := func(universalID string) (*Metabolite, bool) {
		if metabolite, ok := universal[universalID]; ok {
			return metabolite, true
		}
		metabolite, ok := universal[fmt.Sprintf("%s_%s", universalID, defaultCompartmentIndex)]
		return metabolite, ok
	}

	for _, component := range components {
		if component.BiomassID != b.ID {
			continue
		}
		if _, ok := b.metabolites[component.UniversalID]; !ok {
			metabolite, ok := lookup(component.UniversalID)
			if !ok {
				return &TemplateError{fmt.Sprintf(
					"biomass %s uses metabolite %s which is not available", b.ID, component.UniversalID)}
			}
			if component.CoefficientType == CoefficientMassFraction && metabolite.Mass == 0.0 {
				return &TemplateError{fmt.Sprintf(
					"metabolite %s (%s) in biomass %s has coefficient type MASSFRACTION and a mass of zero",
					metabolite.ID, metabolite.Name, b.ID)}
			}
			if component.CoefficientType == CoefficientMassSplit && metabolite.Mass == 0.0 {
				return &TemplateError{fmt.Sprintf(
					"metabolite %s (%s) in biomass %s has coefficient type MASSSPLIT and a mass of zero",
					metabolite.ID, metabolite.Name, b.ID)}
			}
			b.metabolites[component.UniversalID] = metabolite.InCompartment(component.CompartmentID)
		}
		for universalID := range component.LinkedMetabolites {
			if _, ok := b.metabolites[universalID]; ok {
				continue
			}
			metabolite, ok := lookup(universalID)
			if !ok {
				return &TemplateError{fmt.Sprintf(
					"biomass %s uses metabolite %s which is not available", b.ID, universalID)}
			}
			b.metabolites[universalID] = metabolite.InCompartment(component.CompartmentID)
		}
		b.Components = append(b.Components, component)
	}
	return nil
}

// Metabolites returns the relocated metabolites used by the biomass
// components, sorted by ID.
func (b *Biomass) Metabolites() []*Metabolite {
	ids := make([]string, 0, len(b.metabolites))
	for id := range b.metabolites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	metabolites := make([]*Metabolite, len(ids))
	for i, id := range ids {
		metabolites[i] = b.metabolites[id]
	}
	return metabolites
}

// classTotals accumulates per-class amounts while the biomass
// coefficients are calculated.
type classTotals struct {
	moleFraction      float64
	molecularWeight   float64
	massFraction      float64
	moleSplitCount    float64
	moleSplitWeight   float64
	massSplitCount    float64
	massSplitMoles    float64
	moles             float64
	moleSplitFraction float64
	massSplitFraction float64
}

// CreateObjective creates the reaction used as the objective function
// for an organism model. The GC content of the genome drives the AT
// and GC coefficient types and must be a value between 0 and 1.
// Coefficients are scaled by 1000 to convert moles per gram dry weight
// to millimoles. Metabolites whose summed coefficient is exactly zero
// are left out of the reaction.
func (b *Biomass) CreateObjective(gcContent float64) (*model.Reaction, []*model.Metabolite, error) {
	totals := make(map[string]*classTotals)
	for class := range biomassClassTypes {
		totals[class] = &classTotals{}
	}
	included := make(map[string]bool)

	// First pass identifies included class types and adds up fractions,
	// split counts, and molecular weights in each class.
	for _, component := range b.Components {
		mass := b.metabolites[component.UniversalID].Mass
		class := totals[component.ClassType]
		included[component.ClassType] = true

		switch component.CoefficientType {
		case CoefficientMolFraction:
			class.moleFraction += -1.0 * component.Coefficient
			if mass > 0.0 {
				class.molecularWeight += -1.0 * mass * component.Coefficient
			}
		case CoefficientMassFraction:
			class.massFraction += -1.0 * component.Coefficient
		case CoefficientAT:
			class.moleFraction += (1.0 - gcContent) / 2.0
			if mass > 0.0 {
				class.molecularWeight += mass * (1.0 - gcContent) / 2.0
			}
		case CoefficientGC:
			class.moleFraction += gcContent / 2.0
			if mass > 0.0 {
				class.molecularWeight += mass * gcContent / 2.0
			}
		case CoefficientMolSplit:
			class.moleSplitCount++
			if mass > 0.0 {
				class.moleSplitWeight += mass
			}
		case CoefficientMassSplit:
			class.massSplitCount++
			class.massSplitMoles += b.ClassMoles[component.ClassType] / mass
		}
	}

	// Second pass calculates the moles of each included class. The mass
	// not claimed by fraction components is divided across the split
	// components.
	for class := range included {
		totalSplit := totals[class].moleSplitCount + totals[class].massSplitCount
		mass := (1.0 - totals[class].massFraction) * b.ClassMoles[class]
		if mass <= 0.0 {
			continue
		}
		remaining := 1.0 - totals[class].moleFraction
		if totalSplit > 0 {
			totals[class].massSplitFraction = remaining * totals[class].massSplitCount / totalSplit
			totals[class].moleSplitFraction = remaining * totals[class].moleSplitCount / totalSplit
			if totals[class].moleSplitCount > 0.0 {
				totals[class].molecularWeight += totals[class].moleSplitFraction *
					totals[class].moleSplitWeight / totals[class].moleSplitCount
			}
			if totals[class].massSplitCount > 0.0 {
				totals[class].molecularWeight += totals[class].massSplitFraction *
					b.ClassMoles[class] / (totals[class].massSplitMoles / totals[class].massSplitCount)
			}
		}
		if totals[class].molecularWeight > 0.0 {
			totals[class].moles = mass / totals[class].molecularWeight
		} else {
			totals[class].moles = 1.0
		}
	}

	// Third pass computes the coefficient contribution of each
	// component and sums them per metabolite.
	coefficients := make(map[string]float64)
	for _, component := range b.Components {
		class := totals[component.ClassType]
		var coefficient float64
		switch component.CoefficientType {
		case CoefficientMolFraction:
			coefficient = component.Coefficient * class.moles * 1000.0
		case CoefficientMassFraction:
			mass := b.metabolites[component.UniversalID].Mass
			coefficient = component.Coefficient * b.ClassMoles[component.ClassType] / mass * 1000.0
		case CoefficientAT:
			coefficient = component.Coefficient * class.moles * (1.0 - gcContent) / 2.0 * 1000.0
		case CoefficientGC:
			coefficient = component.Coefficient * gcContent * class.moles / 2.0 * 1000.0
		case CoefficientMultiplier:
			coefficient = component.Coefficient * b.ClassMoles[component.ClassType]
		case CoefficientExact:
			coefficient = component.Coefficient
		case CoefficientMolSplit:
			coefficient = component.Coefficient * class.moles * class.moleSplitFraction *
				1000.0 / class.moleSplitCount
		case CoefficientMassSplit:
			mass := b.metabolites[component.UniversalID].Mass
			coefficient = component.Coefficient * b.ClassMoles[component.ClassType] *
				class.massSplitFraction / class.massSplitCount / mass * 1000.0
		}

		coefficients[component.UniversalID] += coefficient
		for universalID, linked := range component.LinkedMetabolites {
			coefficients[universalID] += coefficient * linked
		}
	}

	rxn := &model.Reaction{
		ID:          b.ID,
		Name:        fmt.Sprintf("%s (%s)", b.Name, b.Type),
		LowerBound:  0.0,
		UpperBound:  1000.0,
		Metabolites: make(map[string]float64),
	}
	ids := make([]string, 0, len(coefficients))
	for id := range coefficients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mets []*model.Metabolite
	for _, id := range ids {
		if coefficients[id] == 0.0 {
			continue
		}
		metabolite := b.metabolites[id]
		rxn.Metabolites[metabolite.ID] = coefficients[id]
		mets = append(mets, metabolite.ToModel())
	}
	return rxn, mets, nil
}
