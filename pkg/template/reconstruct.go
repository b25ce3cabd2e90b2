package template

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/logger"
	"github.com/mmundy42/mackinac/pkg/genome"
	"github.com/mmundy42/mackinac/pkg/model"
)

// Compartment code for a feature whose annotation does not place it in
// a specific compartment. An unlocalized feature can trigger a
// reaction in any compartment.
const unknownCompartment = "u"

// ModelSEED models require a sink for the special biomass metabolite.
// This is a ModelSEED convention, not something derived from the
// template data.
const biomassMetaboliteID = "cpd11416_c"

// matchedRoles records the features of a genome that match a template
// role, keyed by role ID and then by the compartment the feature is
// active in.
type matchedRoles map[string]map[string][]*genome.Feature

// matchRoles matches every role of every feature against the template
// roles by exact search name. Roles with no match are counted but do
// not stop the reconstruction.
func (t *Template) matchRoles(features []*genome.Feature) matchedRoles {
	matched := make(matchedRoles)
	numMatched := 0
	numUnmatched := 0
	for _, feature := range features {
		for _, searchRole := range feature.SearchRoles {
			role, ok := t.searchNames[searchRole]
			if !ok {
				numUnmatched++
				continue
			}
			if matched[role.ID] == nil {
				matched[role.ID] = make(map[string][]*genome.Feature)
			}
			for _, compartment := range feature.Compartments {
				matched[role.ID][compartment] = append(matched[role.ID][compartment], feature)
				numMatched++
			}
		}
	}
	logger.Info("matched genome roles to template roles",
		zap.String("template", t.ID),
		zap.Int("matched", numMatched), zap.Int("unmatched", numUnmatched))
	return matched
}

// compartmentMatch reports whether a matched role compartment allows
// the reaction to be added. An unlocalized feature matches any
// reaction and a localized feature only matches reactions in its
// compartment.
func compartmentMatch(compartment string, rxn *Reaction) bool {
	return compartment == unknownCompartment || compartment == rxn.DefaultCompartment()
}

// addTemplateReaction instantiates a template reaction into the model
// unless it is already there.
func (t *Template) addTemplateReaction(m *model.Model, rxn *Reaction) error {
	if m.HasReaction(rxn.ModelID()) {
		return nil
	}
	modelReaction, mets, err := rxn.createModelReaction(t.metabolites)
	if err != nil {
		return err
	}
	return m.AddReaction(modelReaction, mets...)
}

// geneRule builds the gene reaction rule for a reaction from the
// matched roles. Features contributing to one subunit of a complex are
// joined with OR, the subunits of a complex are joined with AND, and
// the complexes that catalyze the reaction are joined with OR. All
// joins are over sorted operands so the rule is deterministic.
func (t *Template) geneRule(rxn *Reaction, matched matchedRoles) string {
	complexIDs := append([]string(nil), rxn.ComplexIDs...)
	sort.Strings(complexIDs)

	var complexParts []string
	for _, complexID := range complexIDs {
		complx, ok := t.complexes[complexID]
		if !ok {
			continue
		}
		var subunits []string
		for _, link := range complx.Roles {
			compartments := matched[link.RoleID]
			if compartments == nil {
				continue
			}
			seen := make(map[string]bool)
			for compartment, features := range compartments {
				if !compartmentMatch(compartment, rxn) {
					continue
				}
				for _, feature := range features {
					seen[feature.ID] = true
				}
			}
			if len(seen) == 0 {
				continue
			}
			ids := make([]string, 0, len(seen))
			for id := range seen {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			subunit := strings.Join(ids, " or ")
			if len(ids) > 1 {
				subunit = "(" + subunit + ")"
			}
			subunits = append(subunits, subunit)
		}
		if len(subunits) == 0 {
			continue
		}
		subunits = uniqueSortedStrings(subunits)
		part := strings.Join(subunits, " and ")
		if len(subunits) > 1 {
			part = "(" + part + ")"
		}
		complexParts = append(complexParts, part)
	}
	return strings.Join(uniqueSortedStrings(complexParts), " or ")
}

// Reconstruct builds a draft model for an organism from its annotated
// features. Universal and spontaneous reactions are always added,
// conditional reactions are added when a matched role triggers a
// complex that catalyzes them, exchange reactions are added for every
// extracellular metabolite, and the biomass reaction built from the
// named biomass entity becomes the objective.
func (t *Template) Reconstruct(modelID, modelName string, features []*genome.Feature,
	biomassID string, gcContent float64) (*model.Model, error) {

	biomass, ok := t.biomasses[biomassID]
	if !ok {
		return nil, &TemplateError{fmt.Sprintf(
			"biomass %q does not exist in template %s", biomassID, t.ID)}
	}

	matched := t.matchRoles(features)
	if len(matched) == 0 {
		return nil, &TemplateError{fmt.Sprintf(
			"genome %s with %d features has no matches to roles in template %s",
			modelID, len(features), t.ID)}
	}

	m := model.New(modelID, modelName)
	t.addModelCompartments(m)

	// Universal and spontaneous reactions are part of every model.
	for _, id := range t.ReactionIDs() {
		rxn := t.reactions[id]
		if rxn.Type != ReactionTypeUniversal && rxn.Type != ReactionTypeSpontaneous {
			continue
		}
		if err := t.addTemplateReaction(m, rxn); err != nil {
			return nil, err
		}
	}

	// Walk from each matched role through its complexes to the
	// conditional reactions they catalyze.
	conditional := make(map[string]*Reaction)
	roleIDs := make([]string, 0, len(matched))
	for roleID := range matched {
		roleIDs = append(roleIDs, roleID)
	}
	sort.Strings(roleIDs)
	for _, roleID := range roleIDs {
		for _, complexID := range t.rolesToComplexes[roleID] {
			for _, reactionID := range t.complexesToReactions[complexID] {
				rxn := t.reactions[reactionID]
				for compartment := range matched[roleID] {
					if !compartmentMatch(compartment, rxn) {
						continue
					}
					if err := t.addTemplateReaction(m, rxn); err != nil {
						return nil, err
					}
					conditional[rxn.ModelID()] = rxn
				}
			}
		}
	}

	// Build the gene reaction rules after every reaction is in place so
	// each rule sees all contributing features.
	for modelReactionID, rxn := range conditional {
		modelReaction, _ := m.GetReaction(modelReactionID)
		modelReaction.GeneReactionRule = t.geneRule(rxn, matched)
	}

	if err := t.addBoundaryReactions(m); err != nil {
		return nil, err
	}
	if err := t.attachBiomass(m, biomass, gcContent); err != nil {
		return nil, err
	}

	logger.Info("reconstructed draft model",
		zap.String("model", m.ID),
		zap.Int("reactions", len(m.Reactions())),
		zap.Int("metabolites", len(m.Metabolites())),
		zap.Int("genes", len(m.Genes())))
	return m, nil
}

// ReconstructFromLikelihoods builds a draft model from reaction
// likelihoods instead of gene matches. Every template reaction with a
// likelihood at or above the cutoff is added with its likelihood
// recorded in the reaction notes.
func (t *Template) ReconstructFromLikelihoods(modelID, modelName string,
	likelihoods map[string]float64, cutoff float64, biomassID string,
	gcContent float64) (*model.Model, error) {

	biomass, ok := t.biomasses[biomassID]
	if !ok {
		return nil, &TemplateError{fmt.Sprintf(
			"biomass %q does not exist in template %s", biomassID, t.ID)}
	}

	m := model.New(modelID, modelName)
	t.addModelCompartments(m)

	reactionIDs := make([]string, 0, len(likelihoods))
	for id := range likelihoods {
		reactionIDs = append(reactionIDs, id)
	}
	sort.Strings(reactionIDs)

	numAdded := 0
	for _, id := range reactionIDs {
		if likelihoods[id] < cutoff {
			continue
		}
		rxn, ok := t.reactions[id]
		if !ok {
			logger.Warn("likelihood reaction is not in template",
				zap.String("reaction", id), zap.String("template", t.ID))
			continue
		}
		if err := t.addTemplateReaction(m, rxn); err != nil {
			return nil, err
		}
		modelReaction, _ := m.GetReaction(rxn.ModelID())
		modelReaction.SetNote("likelihood", fmt.Sprintf("%1.6f", likelihoods[id]))
		numAdded++
	}
	if numAdded == 0 {
		return nil, fmt.Errorf("there are no reactions with a likelihood greater than cutoff of %g", cutoff)
	}

	if err := t.addBoundaryReactions(m); err != nil {
		return nil, err
	}
	if err := t.attachBiomass(m, biomass, gcContent); err != nil {
		return nil, err
	}

	logger.Info("reconstructed model from likelihoods",
		zap.String("model", m.ID), zap.Int("reactions", len(m.Reactions())))
	return m, nil
}

// addBoundaryReactions adds an exchange reaction for every metabolite
// in the extracellular compartment and the sink for the special
// biomass metabolite.
func (t *Template) addBoundaryReactions(m *model.Model) error {
	numExchanges := 0
	for _, metabolite := range m.Metabolites() {
		if metabolite.Compartment != "e" {
			continue
		}
		if err := m.AddReaction(model.NewExchange(metabolite)); err != nil {
			return err
		}
		numExchanges++
	}
	logger.Info("added exchange reactions to model",
		zap.String("model", m.ID), zap.Int("count", numExchanges))

	sinkMetabolite, ok := m.GetMetabolite(biomassMetaboliteID)
	if !ok {
		templateMetabolite, found := t.metabolites[biomassMetaboliteID]
		if !found {
			return &TemplateError{fmt.Sprintf(
				"biomass metabolite %s is not in template %s", biomassMetaboliteID, t.ID)}
		}
		sinkMetabolite = templateMetabolite.ToModel()
		if err := m.AddMetabolite(sinkMetabolite); err != nil {
			return err
		}
	}
	return m.AddReaction(model.NewSink(sinkMetabolite))
}

// attachBiomass creates the biomass reaction and makes it the model
// objective.
func (t *Template) attachBiomass(m *model.Model, biomass *Biomass, gcContent float64) error {
	rxn, mets, err := biomass.CreateObjective(gcContent)
	if err != nil {
		return err
	}
	rxn.ObjectiveCoefficient = 1.0
	if err := m.AddReaction(rxn, mets...); err != nil {
		return err
	}
	logger.Info("added biomass reaction as objective",
		zap.String("model", m.ID), zap.String("biomass", rxn.ID))
	return nil
}

// CheckBoundaryMetabolites audits that every metabolite in the
// extracellular compartment has an exchange reaction and a transport
// reaction into the target compartment. Problems are logged as
// warnings and the count of valid metabolites is returned.
func CheckBoundaryMetabolites(m *model.Model, extracellular, toCompartment string) int {
	numValid := 0
	numChecked := 0
	for _, metabolite := range m.Metabolites() {
		if metabolite.Compartment != extracellular {
			continue
		}
		numChecked++

		exchangeID := model.ExchangePrefix + metabolite.ID
		if rxn, ok := m.GetReaction(exchangeID); ok {
			if !rxn.Boundary() {
				logger.Warn("reaction for metabolite is not an exchange reaction",
					zap.String("reaction", rxn.ID), zap.String("metabolite", metabolite.Name))
			}
			if rxn.LowerBound == 0.0 || rxn.UpperBound == 0.0 {
				logger.Warn("exchange reaction has invalid bounds",
					zap.String("reaction", rxn.ID), zap.String("metabolite", metabolite.Name))
			}
		} else {
			logger.Warn("exchange reaction missing for metabolite",
				zap.String("metabolite", metabolite.ID), zap.String("name", metabolite.Name))
		}

		transport := false
		for _, rxn := range m.ReactionsForMetabolite(metabolite.ID) {
			compartments := m.ReactionCompartments(rxn)
			if len(compartments) < 2 {
				continue
			}
			if containsString(compartments, extracellular) && containsString(compartments, toCompartment) {
				transport = true
				if rxn.LowerBound == 0.0 || rxn.UpperBound == 0.0 {
					logger.Warn("transport reaction has invalid bounds",
						zap.String("reaction", rxn.ID), zap.String("metabolite", metabolite.Name))
				}
			}
		}
		if !transport {
			logger.Warn("metabolite has no transport reaction to compartment",
				zap.String("metabolite", metabolite.ID), zap.String("compartment", toCompartment))
		} else {
			numValid++
		}
	}
	if numChecked-numValid != 0 {
		logger.Warn("metabolites do not have a path from boundary",
			zap.Int("count", numChecked-numValid), zap.String("compartment", toCompartment))
	}
	return numValid
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// uniqueSortedStrings returns the distinct values in sorted order.
func uniqueSortedStrings(values []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(values))
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			result = append(result, value)
		}
	}
	sort.Strings(result)
	return result
}
