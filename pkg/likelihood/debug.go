package likelihood

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// saveData writes the intermediate tables to tab separated files in the
// work folder for detailed analysis or debug.
func (a *Annotation) saveData(genomeID string) error {
	if err := a.saveRolesets(genomeID); err != nil {
		return err
	}
	if err := a.saveRoles(genomeID); err != nil {
		return err
	}
	if err := a.saveTotalRoles(genomeID); err != nil {
		return err
	}
	if err := a.saveComplexes(genomeID); err != nil {
		return err
	}
	return a.saveReactions(genomeID)
}

func (a *Annotation) saveRolesets(genomeID string) error {
	return a.writeTable(genomeID+".roleset.tsv", []string{"Query ID", "Likelihood", "Roleset"},
		func(writer *bufio.Writer) {
			queryIDs := make([]string, 0, len(a.RolesetValues))
			for queryID := range a.RolesetValues {
				queryIDs = append(queryIDs, queryID)
			}
			sort.Strings(queryIDs)
			for _, queryID := range queryIDs {
				for _, value := range a.RolesetValues[queryID] {
					fmt.Fprintf(writer, "%s\t%1.6f\t%s\n", queryID, value.Likelihood, value.Roleset)
				}
			}
		})
}

func (a *Annotation) saveRoles(genomeID string) error {
	return a.writeTable(genomeID+".role.tsv", []string{"Query ID", "Likelihood", "Role"},
		func(writer *bufio.Writer) {
			values := make([]RoleValue, len(a.RoleValues))
			copy(values, a.RoleValues)
			sort.Slice(values, func(i, j int) bool {
				if values[i].QueryID != values[j].QueryID {
					return values[i].QueryID < values[j].QueryID
				}
				if values[i].Role != values[j].Role {
					return values[i].Role < values[j].Role
				}
				return values[i].Likelihood < values[j].Likelihood
			})
			for _, value := range values {
				fmt.Fprintf(writer, "%s\t%1.6f\t%s\n", value.QueryID, value.Likelihood, value.Role)
			}
		})
}

func (a *Annotation) saveTotalRoles(genomeID string) error {
	return a.writeTable(genomeID+".totalrole.tsv", []string{"Role", "Likelihood", "GPR"},
		func(writer *bufio.Writer) {
			roles := make([]string, 0, len(a.TotalRoleValues))
			for role := range a.TotalRoleValues {
				roles = append(roles, role)
			}
			sort.Strings(roles)
			for _, role := range roles {
				value := a.TotalRoleValues[role]
				fmt.Fprintf(writer, "%s\t%1.6f\t%s\n", role, value.Likelihood, value.GPR)
			}
		})
}

func (a *Annotation) saveComplexes(genomeID string) error {
	return a.writeTable(genomeID+".complex.tsv",
		[]string{"Complex ID", "Likelihood", "Type", "GPR", "Unavailable Roles", "Missing Roles"},
		func(writer *bufio.Writer) {
			complexIDs := make([]string, 0, len(a.ComplexValues))
			for complexID := range a.ComplexValues {
				complexIDs = append(complexIDs, complexID)
			}
			sort.Strings(complexIDs)
			for _, complexID := range complexIDs {
				value := a.ComplexValues[complexID]
				fmt.Fprintf(writer, "%s\t%1.6f\t%s\t%s\t%s\t%s\n",
					complexID, value.Likelihood, value.Type, value.GPR,
					strings.Join(value.UnavailableRoles, a.Separator),
					strings.Join(value.MissingRoles, a.Separator))
			}
		})
}

func (a *Annotation) saveReactions(genomeID string) error {
	return a.writeTable(genomeID+".reaction.tsv",
		[]string{"Reaction ID", "Likelihood", "Type", "Complexes", "GPR"},
		func(writer *bufio.Writer) {
			reactionIDs := make([]string, 0, len(a.ReactionValues))
			for reactionID := range a.ReactionValues {
				reactionIDs = append(reactionIDs, reactionID)
			}
			sort.Strings(reactionIDs)
			for _, reactionID := range reactionIDs {
				value := a.ReactionValues[reactionID]
				fmt.Fprintf(writer, "%s\t%1.6f\t%s\t%s\t%s\n",
					reactionID, value.Likelihood, value.Type, value.ComplexString, value.GPR)
			}
		})
}

func (a *Annotation) writeTable(fileName string, header []string, rows func(*bufio.Writer)) error {
	file, err := os.Create(filepath.Join(a.workFolder, fileName))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintln(writer, strings.Join(header, "\t"))
	rows(writer)
	return writer.Flush()
}
