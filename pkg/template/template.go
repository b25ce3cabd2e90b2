package template

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/logger"
	"github.com/mmundy42/mackinac/pkg/model"
)

// Template is the source for automated reconstruction of organism
// models. Build one with New, load it once with LoadFromFiles, and
// treat it as read-only afterwards. A loaded template is safe to share
// across sequential reconstruction and likelihood runs.
type Template struct {
	ID     string
	Name   string
	Type   string
	Domain string

	roles        map[string]*Role
	complexes    map[string]*Complex
	compartments map[string]*Compartment
	reactions    map[string]*Reaction
	metabolites  map[string]*Metabolite
	biomasses    map[string]*Biomass

	searchNames          map[string]*Role
	rolesToComplexes     map[string][]string
	complexesToRoles     map[string][]string
	complexesToReactions map[string][]string
	reactionsToComplexes map[string][]string
}

// New creates an empty template.
func New(id, name, templateType, domain string) *Template {
	return &Template{
		ID:           id,
		Name:         name,
		Type:         templateType,
		Domain:       domain,
		roles:        make(map[string]*Role),
		complexes:    make(map[string]*Complex),
		compartments: make(map[string]*Compartment),
		reactions:    make(map[string]*Reaction),
		metabolites:  make(map[string]*Metabolite),
		biomasses:    make(map[string]*Biomass),
	}
}

// SourcePaths locates the source files a template is built from. The
// universal files define every known metabolite and reaction and the
// remaining files select and organize the subset for one domain.
type SourcePaths struct {
	UniversalMetabolites string
	UniversalReactions   string
	Compartments         string
	Biomasses            string
	BiomassComponents    string
	Reactions            string
	Complexes            string
	Roles                string
}

// LoadFromFiles builds the template from source files. Universal
// reactions referenced by the template reaction file are copied into
// the template along with the complexes that catalyze them and the
// roles that trigger those complexes. After loading, the adjacency
// maps between roles, complexes, and reactions are fixed.
func (t *Template) LoadFromFiles(paths SourcePaths) error {
	universalMetabolites, err := ReadUniversalMetabolites(paths.UniversalMetabolites)
	if err != nil {
		return err
	}
	universalReactions, err := ReadUniversalReactions(paths.UniversalReactions)
	if err != nil {
		return err
	}
	t.metabolites = universalMetabolites

	t.compartments, err = ReadCompartments(paths.Compartments)
	if err != nil {
		return err
	}
	if err := t.addBiomasses(paths.Biomasses, paths.BiomassComponents); err != nil {
		return err
	}

	universalComplexes, err := ReadComplexes(paths.Complexes)
	if err != nil {
		return err
	}
	universalRoles, err := ReadRoles(paths.Roles)
	if err != nil {
		return err
	}
	if err := t.addReactions(paths.Reactions, universalReactions, universalComplexes, universalRoles); err != nil {
		return err
	}

	if err := expandMetaboliteCompartments(t.reactions, t.metabolites); err != nil {
		return err
	}
	t.resolve()

	logger.Info("loaded template",
		zap.String("template", t.ID),
		zap.Int("roles", len(t.roles)),
		zap.Int("complexes", len(t.complexes)),
		zap.Int("reactions", len(t.reactions)),
		zap.Int("biomasses", len(t.biomasses)))
	return nil
}

// addBiomasses loads the biomass entities and their components and
// registers the relocated component metabolites with the template.
func (t *Template) addBiomasses(biomassPath, componentPath string) error {
	components, err := ReadBiomassComponents(componentPath)
	if err != nil {
		return err
	}
	biomasses, err := ReadBiomasses(biomassPath)
	if err != nil {
		return err
	}
	for _, biomass := range biomasses {
		if err := biomass.AddComponents(components, t.metabolites); err != nil {
			return err
		}
		for _, metabolite := range biomass.Metabolites() {
			if _, ok := t.metabolites[metabolite.ID]; !ok {
				t.metabolites[metabolite.ID] = metabolite
			}
		}
		t.biomasses[biomass.ID] = biomass
	}
	return nil
}

// addReactions loads the template reaction file. Each row references a
// universal reaction by ID and adds template data to it. Rows that
// reference an unknown universal reaction are skipped with a warning.
// A conditional reaction referencing an unknown complex, or a complex
// referencing an unknown role, means the source data is inconsistent.
func (t *Template) addReactions(path string, universalReactions map[string]*Reaction,
	universalComplexes map[string]*Complex, universalRoles map[string]*Role) error {

	err := readSource(path, reactionFields, func(fields []string, names map[string]int, linenum int) error {
		id := fields[names["id"]]
		rxn, ok := universalReactions[id]
		if !ok {
			logger.Warn("template reaction is not a universal reaction",
				zap.String("reaction", id), zap.Int("line", linenum))
			return errSkip
		}
		if _, ok := t.reactions[id]; ok {
			return &DuplicateError{ID: id, Line: linenum}
		}
		if err := readReactionRow(rxn, fields, names); err != nil {
			return err
		}
		t.reactions[id] = rxn

		if rxn.Type != ReactionTypeConditional {
			return nil
		}
		for _, complexID := range rxn.ComplexIDs {
			complx, ok := universalComplexes[complexID]
			if !ok {
				return &TemplateError{fmt.Sprintf(
					"complex %s on line %d is not available", complexID, linenum)}
			}
			t.complexes[complexID] = complx
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Add the roles referenced by the included complexes.
	for _, complx := range t.complexes {
		for _, link := range complx.Roles {
			role, ok := universalRoles[link.RoleID]
			if !ok {
				return &TemplateError{fmt.Sprintf(
					"role %s referenced by complex %s is not available", link.RoleID, complx.ID)}
			}
			t.roles[role.ID] = role
		}
	}
	return nil
}

// resolve builds the fixed adjacency maps between roles, complexes,
// and reactions and the search name index used for role matching.
func (t *Template) resolve() {
	t.searchNames = make(map[string]*Role, len(t.roles))
	t.rolesToComplexes = make(map[string][]string)
	t.complexesToRoles = make(map[string][]string, len(t.complexes))
	t.complexesToReactions = make(map[string][]string)
	t.reactionsToComplexes = make(map[string][]string)

	for _, role := range t.roles {
		t.searchNames[role.SearchName] = role
	}
	for _, complx := range t.complexes {
		for _, link := range complx.Roles {
			t.complexesToRoles[complx.ID] = append(t.complexesToRoles[complx.ID], link.RoleID)
			t.rolesToComplexes[link.RoleID] = append(t.rolesToComplexes[link.RoleID], complx.ID)
		}
	}
	for _, rxn := range t.reactions {
		if rxn.Type != ReactionTypeConditional {
			continue
		}
		for _, complexID := range rxn.ComplexIDs {
			t.reactionsToComplexes[rxn.ID] = append(t.reactionsToComplexes[rxn.ID], complexID)
			t.complexesToReactions[complexID] = append(t.complexesToReactions[complexID], rxn.ID)
		}
	}
	for _, adjacency := range []map[string][]string{
		t.rolesToComplexes, t.complexesToRoles, t.complexesToReactions, t.reactionsToComplexes,
	} {
		for id := range adjacency {
			sort.Strings(adjacency[id])
		}
	}
}

// ComplexesToRoles returns the mapping from complex ID to the IDs of
// the roles that trigger it. The likelihood engine consumes this map.
func (t *Template) ComplexesToRoles() map[string][]string {
	return t.complexesToRoles
}

// ReactionsToComplexes returns the mapping from reaction ID to the IDs
// of the complexes that catalyze it. The likelihood engine consumes
// this map.
func (t *Template) ReactionsToComplexes() map[string][]string {
	return t.reactionsToComplexes
}

// GetRole looks up a role by ID.
func (t *Template) GetRole(id string) (*Role, bool) {
	role, ok := t.roles[id]
	return role, ok
}

// RoleBySearchName looks up a role by its search name.
func (t *Template) RoleBySearchName(searchName string) (*Role, bool) {
	role, ok := t.searchNames[searchName]
	return role, ok
}

// GetComplex looks up a complex by ID.
func (t *Template) GetComplex(id string) (*Complex, bool) {
	complx, ok := t.complexes[id]
	return complx, ok
}

// GetReaction looks up a reaction by ID.
func (t *Template) GetReaction(id string) (*Reaction, bool) {
	rxn, ok := t.reactions[id]
	return rxn, ok
}

// GetBiomass looks up a biomass entity by ID.
func (t *Template) GetBiomass(id string) (*Biomass, bool) {
	biomass, ok := t.biomasses[id]
	return biomass, ok
}

// GetMetabolite looks up a metabolite by its compartment-suffixed ID.
func (t *Template) GetMetabolite(id string) (*Metabolite, bool) {
	metabolite, ok := t.metabolites[id]
	return metabolite, ok
}

// ReactionIDs returns the IDs of the template reactions in sorted
// order.
func (t *Template) ReactionIDs() []string {
	ids := make([]string, 0, len(t.reactions))
	for id := range t.reactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// addModelCompartments copies the template compartments into a model.
func (t *Template) addModelCompartments(m *model.Model) {
	for _, compartment := range t.compartments {
		m.Compartments[compartment.ModelID] = compartment.Name
	}
}

// ToModel renders the whole template as one organism model with every
// template reaction in its default compartment. External gap fill
// services consume this as the universal model.
func (t *Template) ToModel() (*model.Model, error) {
	m := model.New(t.ID, t.Name)
	t.addModelCompartments(m)
	for _, id := range t.ReactionIDs() {
		rxn, mets, err := t.reactions[id].createModelReaction(t.metabolites)
		if err != nil {
			return nil, err
		}
		if err := m.AddReaction(rxn, mets...); err != nil {
			return nil, err
		}
	}
	return m, nil
}
