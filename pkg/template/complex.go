package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Required fields in a source file that defines complexes.
var complexFields = []string{"id", "name", "source", "reference", "confidence", "roles"}

// RoleLink connects a complex to one of the roles that trigger it. A
// complex requires all of its non-optional roles to be present.
type RoleLink struct {
	RoleID     string
	Type       string
	Optional   bool
	Triggering bool
}

// Complex is a set of proteins that act in concert to catalyze one or
// more reactions.
type Complex struct {
	ID         string
	Name       string
	Source     string
	Reference  string
	Confidence float64
	Roles      []RoleLink
}

// RoleIDs returns the IDs of the roles linked to the complex in source
// file order.
func (c *Complex) RoleIDs() []string {
	ids := make([]string, len(c.Roles))
	for i, link := range c.Roles {
		ids[i] = link.RoleID
	}
	return ids
}

// parseRoleLinks parses the roles field of a complex. Each link has the
// format "role_id;type;optional;triggering" and links are separated by
// vertical bars.
func parseRoleLinks(value string) ([]RoleLink, error) {
	links := strings.Split(value, "|")
	parsed := make([]RoleLink, 0, len(links))
	for _, link := range links {
		values := strings.Split(link, ";")
		if len(values) != 4 {
			return nil, fmt.Errorf("role link %q does not have four fields", link)
		}
		optional, err := strconv.Atoi(values[2])
		if err != nil {
			return nil, fmt.Errorf("role link %q has an invalid optional flag: %w", link, err)
		}
		triggering, err := strconv.Atoi(values[3])
		if err != nil {
			return nil, fmt.Errorf("role link %q has an invalid triggering flag: %w", link, err)
		}
		parsed = append(parsed, RoleLink{
			RoleID:     values[0],
			Type:       values[1],
			Optional:   optional != 0,
			Triggering: triggering != 0,
		})
	}
	return parsed, nil
}

// ReadComplexes reads a source file that defines complexes. A duplicate
// complex ID is a fatal error.
func ReadComplexes(path string) (map[string]*Complex, error) {
	complexes := make(map[string]*Complex)
	err := readSource(path, complexFields, func(fields []string, names map[string]int, linenum int) error {
		id := fields[names["id"]]
		if _, ok := complexes[id]; ok {
			return &DuplicateError{ID: id, Line: linenum}
		}
		confidence, err := strconv.ParseFloat(fields[names["confidence"]], 64)
		if err != nil {
			return fmt.Errorf("complex %s has an invalid confidence: %w", id, err)
		}
		complx := &Complex{
			ID:         id,
			Name:       fields[names["name"]],
			Source:     fields[names["source"]],
			Confidence: confidence,
		}
		if fields[names["reference"]] != "null" {
			complx.Reference = fields[names["reference"]]
		}
		if fields[names["roles"]] != "null" {
			complx.Roles, err = parseRoleLinks(fields[names["roles"]])
			if err != nil {
				return fmt.Errorf("complex %s: %w", id, err)
			}
		}
		complexes[id] = complx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return complexes, nil
}
