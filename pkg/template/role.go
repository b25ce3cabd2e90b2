package template

import (
	"strings"

	"github.com/mmundy42/mackinac/pkg/genome"
)

// Required fields in a source file that defines roles.
var roleFields = []string{"id", "name", "source", "features", "aliases"}

// Role is a biological function fulfilled by a feature. Most roles are
// effected by the construction of proteins.
type Role struct {
	ID         string
	Name       string
	Source     string
	Features   []string
	Aliases    []string
	ECNumbers  []string
	TCNumbers  []string
	SearchName string
}

// NewRole creates a role and derives its EC numbers, TC numbers, and
// search name from the descriptive name.
func NewRole(id, name, source string) *Role {
	return &Role{
		ID:         id,
		Name:       name,
		Source:     source,
		ECNumbers:  genome.ECNumbers(name),
		TCNumbers:  genome.TCNumbers(name),
		SearchName: genome.MakeSearchName(name),
	}
}

// ReadRoles reads a source file that defines roles. A duplicate role ID
// is a fatal error.
func ReadRoles(path string) (map[string]*Role, error) {
	roles := make(map[string]*Role)
	err := readSource(path, roleFields, func(fields []string, names map[string]int, linenum int) error {
		role := NewRole(fields[names["id"]], fields[names["name"]], fields[names["source"]])
		if _, ok := roles[role.ID]; ok {
			return &DuplicateError{ID: role.ID, Line: linenum}
		}
		if fields[names["features"]] != "null" {
			role.Features = strings.Split(fields[names["features"]], ";")
		}
		if fields[names["aliases"]] != "null" {
			role.Aliases = strings.Split(fields[names["aliases"]], ";")
		}
		roles[role.ID] = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}
