// Package model defines the metabolic model objects that reconstruction
// produces and the store persists. A Model keeps its metabolites and
// reactions in insertion order and indexed by ID, with duplicate IDs
// rejected on add.
package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Metabolite is a compound located in one compartment of a model.
type Metabolite struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Formula     string            `json:"formula,omitempty"`
	Charge      float64           `json:"charge"`
	Compartment string            `json:"compartment"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Reaction converts a set of metabolites into another set. Metabolite
// coefficients are keyed by metabolite ID where a negative value is a
// reactant and a positive value is a product.
type Reaction struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	LowerBound           float64            `json:"lower_bound"`
	UpperBound           float64            `json:"upper_bound"`
	Metabolites          map[string]float64 `json:"metabolites"`
	GeneReactionRule     string             `json:"gene_reaction_rule,omitempty"`
	ObjectiveCoefficient float64            `json:"objective_coefficient,omitempty"`
	Notes                map[string]string  `json:"notes,omitempty"`
}

// Boundary is true when the reaction has exactly one metabolite and
// moves it across the model boundary.
func (r *Reaction) Boundary() bool {
	return len(r.Metabolites) == 1
}

// SetNote records a key value pair in the reaction notes.
func (r *Reaction) SetNote(key, value string) {
	if r.Notes == nil {
		r.Notes = make(map[string]string)
	}
	r.Notes[key] = value
}

// Model is a draft metabolic network for one organism.
type Model struct {
	ID           string
	Name         string
	Compartments map[string]string

	metabolites     []*Metabolite
	metaboliteIndex map[string]int
	reactions       []*Reaction
	reactionIndex   map[string]int
}

// New creates an empty model.
func New(id, name string) *Model {
	return &Model{
		ID:              id,
		Name:            name,
		Compartments:    make(map[string]string),
		metaboliteIndex: make(map[string]int),
		reactionIndex:   make(map[string]int),
	}
}

// AddMetabolite registers a metabolite. Adding a second metabolite with
// the same ID is an error.
func (m *Model) AddMetabolite(met *Metabolite) error {
	if _, ok := m.metaboliteIndex[met.ID]; ok {
		return fmt.Errorf("metabolite %s is already in model %s", met.ID, m.ID)
	}
	m.metaboliteIndex[met.ID] = len(m.metabolites)
	m.metabolites = append(m.metabolites, met)
	return nil
}

// GetMetabolite looks up a metabolite by ID.
func (m *Model) GetMetabolite(id string) (*Metabolite, bool) {
	index, ok := m.metaboliteIndex[id]
	if !ok {
		return nil, false
	}
	return m.metabolites[index], true
}

// Metabolites returns the metabolites in insertion order.
func (m *Model) Metabolites() []*Metabolite {
	return m.metabolites
}

// AddReaction adds a reaction to the model. Metabolites referenced by
// the reaction that the model has not seen yet must be supplied in mets
// and are registered as a side effect. A reaction that references an
// unknown metabolite or reuses an existing reaction ID is an error.
func (m *Model) AddReaction(rxn *Reaction, mets ...*Metabolite) error {
	if _, ok := m.reactionIndex[rxn.ID]; ok {
		return fmt.Errorf("reaction %s is already in model %s", rxn.ID, m.ID)
	}
	for _, met := range mets {
		if _, ok := m.metaboliteIndex[met.ID]; !ok {
			if err := m.AddMetabolite(met); err != nil {
				return err
			}
		}
	}
	for metID := range rxn.Metabolites {
		if _, ok := m.metaboliteIndex[metID]; !ok {
			return fmt.Errorf("reaction %s references unknown metabolite %s", rxn.ID, metID)
		}
	}
	m.reactionIndex[rxn.ID] = len(m.reactions)
	m.reactions = append(m.reactions, rxn)
	return nil
}

// GetReaction looks up a reaction by ID.
func (m *Model) GetReaction(id string) (*Reaction, bool) {
	index, ok := m.reactionIndex[id]
	if !ok {
		return nil, false
	}
	return m.reactions[index], true
}

// HasReaction reports whether a reaction with the ID is in the model.
func (m *Model) HasReaction(id string) bool {
	_, ok := m.reactionIndex[id]
	return ok
}

// Reactions returns the reactions in insertion order.
func (m *Model) Reactions() []*Reaction {
	return m.reactions
}

// ReactionsForMetabolite returns every reaction that uses the metabolite.
func (m *Model) ReactionsForMetabolite(metID string) []*Reaction {
	var result []*Reaction
	for _, rxn := range m.reactions {
		if _, ok := rxn.Metabolites[metID]; ok {
			result = append(result, rxn)
		}
	}
	return result
}

// ReactionCompartments returns the sorted set of compartments touched
// by the reaction's metabolites.
func (m *Model) ReactionCompartments(rxn *Reaction) []string {
	seen := make(map[string]bool)
	for metID := range rxn.Metabolites {
		if met, ok := m.GetMetabolite(metID); ok {
			seen[met.Compartment] = true
		}
	}
	compartments := make([]string, 0, len(seen))
	for id := range seen {
		compartments = append(compartments, id)
	}
	sort.Strings(compartments)
	return compartments
}

var geneTokenRe = regexp.MustCompile(`[()]`)

// Genes returns the sorted set of gene IDs mentioned in the gene
// reaction rules of the model.
func (m *Model) Genes() []string {
	seen := make(map[string]bool)
	for _, rxn := range m.reactions {
		if rxn.GeneReactionRule == "" {
			continue
		}
		rule := geneTokenRe.ReplaceAllString(rxn.GeneReactionRule, " ")
		for _, token := range strings.Fields(rule) {
			if token == "and" || token == "or" {
				continue
			}
			seen[token] = true
		}
	}
	genes := make([]string, 0, len(seen))
	for gene := range seen {
		genes = append(genes, gene)
	}
	sort.Strings(genes)
	return genes
}
