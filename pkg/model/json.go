package model

import "encoding/json"

type modelJSON struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Compartments map[string]string `json:"compartments"`
	Metabolites  []*Metabolite     `json:"metabolites"`
	Reactions    []*Reaction       `json:"reactions"`
}

// MarshalJSON serializes the model with metabolites and reactions in
// insertion order so repeated serializations of the same model are
// byte identical.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelJSON{
		ID:           m.ID,
		Name:         m.Name,
		Compartments: m.Compartments,
		Metabolites:  m.metabolites,
		Reactions:    m.reactions,
	})
}

// UnmarshalJSON rebuilds a model, including its ID indexes, from the
// serialized form.
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rebuilt := New(raw.ID, raw.Name)
	if raw.Compartments != nil {
		rebuilt.Compartments = raw.Compartments
	}
	for _, met := range raw.Metabolites {
		if err := rebuilt.AddMetabolite(met); err != nil {
			return err
		}
	}
	for _, rxn := range raw.Reactions {
		if err := rebuilt.AddReaction(rxn); err != nil {
			return err
		}
	}
	*m = *rebuilt
	return nil
}
