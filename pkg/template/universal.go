package template

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/logger"
	"github.com/mmundy42/mackinac/pkg/model"
)

// Compartment index for universal metabolites before a reaction or a
// biomass places them in a real compartment.
const defaultCompartmentIndex = "0"

// Metabolite is a compound from the universal metabolite catalog. The
// mass comes from the source files so biomass coefficients stay
// consistent with the reference data.
type Metabolite struct {
	ID          string
	Name        string
	Formula     string
	Charge      float64
	Compartment string
	Mass        float64
	IsCore      bool
	IsCofactor  bool
}

// InCompartment returns a copy of the metabolite relocated to a new
// compartment. The compartment suffix on the ID is replaced.
func (m *Metabolite) InCompartment(compartment string) *Metabolite {
	relocated := *m
	relocated.Compartment = compartment
	stripped := universalCompartmentSuffixRe.ReplaceAllString(m.ID, "")
	stripped = strings.TrimSuffix(stripped, "_"+m.Compartment)
	relocated.ID = fmt.Sprintf("%s_%s", stripped, compartment)
	return &relocated
}

// ToModel converts the metabolite for use in an organism model.
func (m *Metabolite) ToModel() *model.Metabolite {
	return &model.Metabolite{
		ID:          m.ID,
		Name:        m.Name,
		Formula:     m.Formula,
		Charge:      m.Charge,
		Compartment: m.Compartment,
	}
}

type universalMetaboliteJSON struct {
	Name       string  `json:"name"`
	Formula    string  `json:"formula"`
	Charge     float64 `json:"charge"`
	Mass       float64 `json:"mass"`
	IsObsolete int     `json:"is_obsolete"`
	IsCore     int     `json:"is_core"`
	IsCofactor int     `json:"is_cofactor"`
}

// ReadUniversalMetabolites reads universal metabolites from a JSON
// object keyed by metabolite ID. Obsolete metabolites are skipped. All
// metabolites start in the default compartment.
func ReadUniversalMetabolites(path string) (map[string]*Metabolite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records map[string]universalMetaboliteJSON
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse universal metabolite file %s: %w", path, err)
	}

	metabolites := make(map[string]*Metabolite, len(records))
	skipped := 0
	for id, record := range records {
		if record.IsObsolete == 1 {
			skipped++
			continue
		}
		metabolite := &Metabolite{
			ID:          fmt.Sprintf("%s_%s", id, defaultCompartmentIndex),
			Name:        record.Name,
			Charge:      record.Charge,
			Compartment: defaultCompartmentIndex,
			Mass:        record.Mass,
			IsCore:      record.IsCore == 1,
			IsCofactor:  record.IsCofactor == 1,
		}
		if record.Formula != "null" {
			metabolite.Formula = record.Formula
		}
		metabolites[metabolite.ID] = metabolite
	}
	if skipped > 0 {
		logger.Debug("skipped obsolete universal metabolites",
			zap.String("path", path), zap.Int("count", skipped))
	}
	return metabolites, nil
}

type universalReactionJSON struct {
	Name          string `json:"name"`
	Stoichiometry string `json:"stoichiometry"`
	Direction     string `json:"direction"`
	Reversibility string `json:"reversibility"`
	Status        string `json:"status"`
	IsObsolete    int    `json:"is_obsolete"`
	IsTransport   int    `json:"is_transport"`
}

// ReadUniversalReactions reads universal reactions from a JSON object
// keyed by reaction ID. Obsolete reactions and reactions with no
// metabolites are skipped. Metabolites and bounds are not set until
// ResolveUniversalReactions runs.
func ReadUniversalReactions(path string) (map[string]*Reaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records map[string]universalReactionJSON
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse universal reaction file %s: %w", path, err)
	}

	reactions := make(map[string]*Reaction, len(records))
	stoichiometries := make(map[string]string, len(records))
	skipped := 0
	for id, record := range records {
		if record.IsObsolete == 1 || record.Status == "EMPTY" {
			skipped++
			continue
		}
		reactions[id] = &Reaction{
			ID:                     id,
			Name:                   record.Name,
			UniversalDirection:     record.Direction,
			UniversalReversibility: record.Reversibility,
			Status:                 record.Status,
			IsTransport:            record.IsTransport == 1,
		}
		stoichiometries[id] = record.Stoichiometry
	}
	if skipped > 0 {
		logger.Debug("skipped obsolete or empty universal reactions",
			zap.String("path", path), zap.Int("count", skipped))
	}
	if err := resolveUniversalReactions(reactions, stoichiometries); err != nil {
		return nil, err
	}
	return reactions, nil
}

// resolveUniversalReactions parses each reaction's stoichiometry string
// to set its metabolites and sets bounds from the universal direction.
// Each metabolite in the stoichiometry has the format
//
//	n:ID:m:i:"NAME"
//
// where "n" is the coefficient with a negative number indicating a
// reactant, "ID" is the metabolite ID, "m" is the compartment index
// number, and "i" is the community index number. Metabolites are
// separated by semicolons.
func resolveUniversalReactions(reactions map[string]*Reaction, stoichiometries map[string]string) error {
	ids := make([]string, 0, len(reactions))
	for id := range reactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rxn := reactions[id]
		var known bool
		rxn.LowerBound, rxn.UpperBound, known = resolveBounds(rxn.UniversalDirection)
		if !known {
			logger.Warn("reaction direction assumed to be reversible",
				zap.String("reaction", rxn.ID), zap.String("direction", rxn.UniversalDirection))
		}

		rxn.Metabolites = make(map[string]float64)
		for _, entry := range strings.Split(stoichiometries[id], ";") {
			fields := strings.SplitN(entry, ":", 5)
			if len(fields) < 3 {
				return &TemplateError{fmt.Sprintf(
					"reaction %s has invalid stoichiometry entry %q", rxn.ID, entry)}
			}
			coefficient, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return &TemplateError{fmt.Sprintf(
					"reaction %s has invalid coefficient in stoichiometry entry %q", rxn.ID, entry)}
			}
			metaboliteID := fmt.Sprintf("%s_%s", fields[1], fields[2])
			rxn.Metabolites[metaboliteID] += coefficient
		}
	}
	return nil
}

// expandMetaboliteCompartments makes sure a metabolite copy exists for
// every compartment index referenced by the reactions. The source files
// only define metabolites in the default compartment.
func expandMetaboliteCompartments(reactions map[string]*Reaction, metabolites map[string]*Metabolite) error {
	ids := make([]string, 0, len(reactions))
	for id := range reactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for metaboliteID := range reactions[id].Metabolites {
			if _, ok := metabolites[metaboliteID]; ok {
				continue
			}
			match := universalCompartmentSuffixRe.FindStringSubmatch(metaboliteID)
			if match == nil {
				return &TemplateError{fmt.Sprintf(
					"metabolite %s in reaction %s has no compartment index", metaboliteID, id)}
			}
			baseID := universalCompartmentSuffixRe.ReplaceAllString(metaboliteID, "")
			base, ok := metabolites[fmt.Sprintf("%s_%s", baseID, defaultCompartmentIndex)]
			if !ok {
				return &TemplateError{fmt.Sprintf(
					"metabolite %s in reaction %s is not a universal metabolite", metaboliteID, id)}
			}
			metabolites[metaboliteID] = base.InCompartment(match[1])
		}
	}
	return nil
}
