package template

import (
	"strings"
)

// Required fields in a source file that defines compartments.
var compartmentFields = []string{"id", "name", "index"}

// Compartment is a region in a cell of an organism. The compartment ID
// is the index number that identifies the compartment in a universal
// reaction stoichiometry and the model ID is the single character code
// used when the compartment is added to an organism model.
type Compartment struct {
	ID      string
	ModelID string
	Name    string
	Aliases []string
}

// ReadCompartments reads a source file that defines compartments. A
// duplicate compartment index is a fatal error.
func ReadCompartments(path string) (map[string]*Compartment, error) {
	compartments := make(map[string]*Compartment)
	err := readSource(path, compartmentFields, func(fields []string, names map[string]int, linenum int) error {
		compartment := &Compartment{
			ID:      fields[names["index"]],
			ModelID: fields[names["id"]],
			Name:    fields[names["name"]],
		}
		if _, ok := compartments[compartment.ID]; ok {
			return &DuplicateError{ID: compartment.ID, Line: linenum}
		}
		if column, ok := names["aliases"]; ok && fields[column] != "null" {
			compartment.Aliases = strings.Split(fields[column], ";")
		}
		compartments[compartment.ID] = compartment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return compartments, nil
}
