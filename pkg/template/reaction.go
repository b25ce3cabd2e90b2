package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mmundy42/mackinac/pkg/model"
)

// Required fields in a source file that defines template reactions.
var reactionFields = []string{
	"id", "compartment", "direction", "gfdir", "type", "base_cost", "forward_cost",
	"reverse_cost", "complexes",
}

// Types of template reactions. Universal and spontaneous reactions are
// added to every model, conditional reactions are added when a gene
// association is found, and gapfilling reactions are only added by a
// gap fill algorithm.
const (
	ReactionTypeUniversal   = "universal"
	ReactionTypeSpontaneous = "spontaneous"
	ReactionTypeConditional = "conditional"
	ReactionTypeGapfilling  = "gapfilling"
)

// Reaction is a chemical process that converts one set of metabolites
// to another set. Metabolite coefficients are keyed by metabolite ID
// with a compartment index suffix and the compartments list maps index
// numbers to compartment IDs, with index 0 as the default compartment.
type Reaction struct {
	ID                     string
	Name                   string
	Compartments           []string
	Type                   string
	Direction              string
	GapfillDirection       string
	UniversalDirection     string
	UniversalReversibility string
	BaseCost               float64
	ForwardCost            float64
	ReverseCost            float64
	ComplexIDs             []string
	LowerBound             float64
	UpperBound             float64
	Metabolites            map[string]float64
	Status                 string
	IsTransport            bool
}

// validateType confirms the reaction type is consistent with the
// linked complexes. A conditional reaction needs a gene association so
// it must have at least one complex and a gapfilling reaction is only
// added by a gap fill algorithm so it must have none.
func (r *Reaction) validateType() error {
	switch r.Type {
	case ReactionTypeUniversal, ReactionTypeSpontaneous:
		return nil
	case ReactionTypeConditional:
		if len(r.ComplexIDs) == 0 {
			return fmt.Errorf("conditional reaction %s must have at least one complex", r.ID)
		}
		return nil
	case ReactionTypeGapfilling:
		if len(r.ComplexIDs) > 0 {
			return fmt.Errorf("gapfilling reaction %s must have no complexes", r.ID)
		}
		return nil
	}
	return fmt.Errorf("reaction %s has invalid type %s", r.ID, r.Type)
}

// DefaultCompartment returns the compartment the reaction is placed in
// when it is added to a model.
func (r *Reaction) DefaultCompartment() string {
	return r.Compartments[0]
}

// ModelID returns the ID of the reaction when added to a model, which
// includes the default compartment.
func (r *Reaction) ModelID() string {
	return fmt.Sprintf("%s_%s", r.ID, r.DefaultCompartment())
}

// createModelReaction instantiates the template reaction for an
// organism model. Each metabolite is relocated from its compartment
// index to the corresponding model compartment using the reaction's
// compartment list. A compartment index with no entry in the list
// means the template is corrupted.
func (r *Reaction) createModelReaction(metabolites map[string]*Metabolite) (*model.Reaction, []*model.Metabolite, error) {

	rxn := &model.Reaction{
		ID:          r.ModelID(),
		Name:        r.Name,
		LowerBound:  r.LowerBound,
		UpperBound:  r.UpperBound,
		Metabolites: make(map[string]float64, len(r.Metabolites)),
	}

	ids := make([]string, 0, len(r.Metabolites))
	for id := range r.Metabolites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	mets := make([]*model.Metabolite, 0, len(ids))
	for _, id := range ids {
		match := universalCompartmentSuffixRe.FindStringSubmatch(id)
		if match == nil {
			return nil, nil, &TemplateError{fmt.Sprintf(
				"metabolite %s in reaction %s has no compartment index", id, r.ID)}
		}
		index, err := strconv.Atoi(match[1])
		if err != nil || index >= len(r.Compartments) {
			return nil, nil, &TemplateError{fmt.Sprintf(
				"metabolite %s in reaction %s has compartment index %s but reaction has %d compartments",
				id, r.ID, match[1], len(r.Compartments))}
		}
		compartmentID := r.Compartments[index]
		metabolite, ok := metabolites[id]
		if !ok {
			return nil, nil, &TemplateError{fmt.Sprintf(
				"metabolite %s in reaction %s is not in the template", id, r.ID)}
		}
		relocated := metabolite.InCompartment(compartmentID)
		rxn.Metabolites[relocated.ID] = r.Metabolites[id]
		mets = append(mets, relocated.ToModel())
	}
	return rxn, mets, nil
}

// resolveBounds sets the reaction bounds from a direction symbol. An
// unknown symbol is assumed to mean reversible.
func resolveBounds(direction string) (float64, float64, bool) {
	switch direction {
	case "=":
		return -1000.0, 1000.0, true
	case ">":
		return 0.0, 1000.0, true
	case "<":
		return -1000.0, 0.0, true
	}
	return -1000.0, 1000.0, false
}

// readReactionRow fills in a universal reaction with the template data
// from one row of a template reaction source file.
func readReactionRow(rxn *Reaction, fields []string, names map[string]int) error {
	if fields[names["complexes"]] != "null" {
		rxn.ComplexIDs = strings.Split(fields[names["complexes"]], "|")
	}
	if fields[names["compartment"]] != "null" {
		rxn.Compartments = strings.Split(fields[names["compartment"]], "|")
	}
	if len(rxn.Compartments) == 0 {
		return fmt.Errorf("reaction %s has no compartments", rxn.ID)
	}
	rxn.Type = fields[names["type"]]
	if err := rxn.validateType(); err != nil {
		return err
	}
	rxn.Direction = fields[names["direction"]]
	rxn.GapfillDirection = fields[names["gfdir"]]

	var err error
	if rxn.BaseCost, err = strconv.ParseFloat(fields[names["base_cost"]], 64); err != nil {
		return fmt.Errorf("reaction %s has an invalid base cost: %w", rxn.ID, err)
	}
	if rxn.ForwardCost, err = strconv.ParseFloat(fields[names["forward_cost"]], 64); err != nil {
		return fmt.Errorf("reaction %s has an invalid forward cost: %w", rxn.ID, err)
	}
	if rxn.ReverseCost, err = strconv.ParseFloat(fields[names["reverse_cost"]], 64); err != nil {
		return fmt.Errorf("reaction %s has an invalid reverse cost: %w", rxn.ID, err)
	}
	return nil
}
