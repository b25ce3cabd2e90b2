package likelihood

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/internal/util"
	"github.com/mmundy42/mackinac/logger"
	"github.com/mmundy42/mackinac/pkg/genome"
)

// MinEValue is added to every e-value before taking the log so an
// e-value of zero does not blow up the score.
const MinEValue = 1e-200

// Default values for the likelihood calculation parameters.
const (
	DefaultPseudoCount     = 40.0
	DefaultDilutionPercent = 80.0
	DefaultSeparator       = "///"
)

// Complex types assigned while calculating complex likelihoods.
const (
	ComplexTypeUnknown        = "UNKNOWN"
	ComplexTypeFull           = "CPLX_FULL"
	ComplexTypeNotThere       = "CPLX_NOTTHERE"
	ComplexTypeNoReps         = "CPLX_NOREPS"
	ComplexTypeNoRepsNotThere = "CPLX_NOREPS_AND_NOTTHERE"
	ReactionTypeHasComplexes  = "HASCOMPLEXES"
	ReactionTypeNoComplexes   = "NOCOMPLEXES"
)

// BadLikelihoodError reports an invalid number in a likelihood
// calculation.
type BadLikelihoodError struct {
	Msg string
}

func (e *BadLikelihoodError) Error() string { return e.Msg }

// RoleNotFoundError reports a role missing from an intermediate table.
type RoleNotFoundError struct {
	Role string
}

func (e *RoleNotFoundError) Error() string {
	return fmt.Sprintf("role %s not found in role maximum likelihood table", e.Role)
}

// RolesetValue is the likelihood that a query feature has the roleset
// as its function.
type RolesetValue struct {
	Roleset    string
	Likelihood float64
}

// RoleValue is the likelihood that a query feature performs a role.
type RoleValue struct {
	QueryID    string
	Role       string
	Likelihood float64
}

// TotalRoleValue is the likelihood that the organism as a whole has a
// role, with the features most likely responsible linked by OR in the
// GPR string.
type TotalRoleValue struct {
	Likelihood float64
	GPR        string
}

// ComplexValue is the likelihood that a protein complex exists in the
// organism along with how its roles partitioned.
type ComplexValue struct {
	Likelihood       float64
	Type             string
	GPR              string
	UnavailableRoles []string
	MissingRoles     []string
}

// ReactionValue is the likelihood that a reaction occurs in the
// organism with details on the complexes that could catalyze it.
type ReactionValue struct {
	Likelihood    float64
	Type          string
	GPR           string
	ComplexString string
}

// ComplexTypeCounts tallies complexes by how their roles partitioned.
type ComplexTypeCounts struct {
	NumNoReps            int
	NumNotThere          int
	NumNoRepsAndNotThere int
	NumFull              int
	NumPartial           int
}

// ReactionTypeCounts tallies reactions by whether any complex was found.
type ReactionTypeCounts struct {
	HasComplexes int
	NoComplexes  int
}

// Statistics summarizes a likelihood calculation.
type Statistics struct {
	NumFeatures           int
	NumProteins           int
	NumNonzeroLikelihoods int
	NumZeroLikelihoods    int
	AverageLikelihood     float64
	ComplexTypes          ComplexTypeCounts
	ReactionTypes         ReactionTypeCounts
}

// Annotation calculates reaction likelihoods for a genome. Create one
// with NewAnnotation, adjust the exported parameters if needed, and
// call Calculate. The intermediate tables from the most recent
// calculation stay available through the exported fields.
type Annotation struct {
	searcher     *Searcher
	databasePath string
	fidRolePath  string
	workFolder   string

	PseudoCount     float64
	DilutionPercent float64
	Separator       string
	Debug           bool

	RolesetValues   map[string][]RolesetValue
	RoleValues      []RoleValue
	TotalRoleValues map[string]TotalRoleValue
	ComplexValues   map[string]ComplexValue
	ReactionValues  map[string]ReactionValue
	Statistics      Statistics
}

// NewAnnotation creates an annotation calculator that searches against
// the database at databasePath, maps target features to rolesets with
// the file at fidRolePath, and keeps intermediate files in workFolder.
func NewAnnotation(searcher *Searcher, databasePath, fidRolePath, workFolder string) *Annotation {
	return &Annotation{
		searcher:        searcher,
		databasePath:    databasePath,
		fidRolePath:     fidRolePath,
		workFolder:      workFolder,
		PseudoCount:     DefaultPseudoCount,
		DilutionPercent: DefaultDilutionPercent,
		Separator:       DefaultSeparator,
	}
}

type targetScore struct {
	targetID string
	score    float64
}

// Calculate runs the likelihood calculation for the genome. The
// features must include amino acid sequences. The complexesToRoles and
// reactionsToComplexes maps come from the template the model is built
// with. Results replace any tables from a previous calculation.
func (a *Annotation) Calculate(genomeID string, features []genome.FeatureRecord,
	complexesToRoles, reactionsToComplexes map[string][]string) error {

	if err := util.EnsureDir(a.workFolder); err != nil {
		return err
	}
	targetRolesets, err := ReadFidRoleFile(a.fidRolePath)
	if err != nil {
		return err
	}

	a.RolesetValues = make(map[string][]RolesetValue)
	a.RoleValues = nil
	a.TotalRoleValues = make(map[string]TotalRoleValue)
	a.ComplexValues = make(map[string]ComplexValue)
	a.ReactionValues = make(map[string]ReactionValue)
	a.Statistics = Statistics{}

	if err := a.calculateRolesetLikelihoods(genomeID, features, targetRolesets); err != nil {
		return err
	}
	if err := a.calculateRoleLikelihoods(); err != nil {
		return err
	}
	if err := a.calculateTotalRoleLikelihoods(); err != nil {
		return err
	}
	if err := a.calculateComplexLikelihoods(complexesToRoles, targetRolesets); err != nil {
		return err
	}
	if err := a.calculateReactionLikelihoods(reactionsToComplexes); err != nil {
		return err
	}

	if a.Debug {
		if err := a.saveData(genomeID); err != nil {
			return err
		}
	}
	return nil
}

// calculateRolesetLikelihoods searches the features of the genome
// against the database of proteins with known roles and converts the
// alignments into the likelihood of each possible roleset for each
// query feature.
func (a *Annotation) calculateRolesetLikelihoods(genomeID string, features []genome.FeatureRecord,
	targetRolesets map[string]string) error {

	if len(features) == 0 {
		return fmt.Errorf("no features in genome %s", genomeID)
	}
	a.Statistics.NumFeatures = len(features)

	// Build a query fasta file from the features with sequences.
	queryFile := filepath.Join(a.workFolder, genomeID+".faa")
	file, err := os.Create(queryFile)
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(file)
	for _, feature := range features {
		if feature.AASequence == "" {
			continue
		}
		featureID, err := feature.FeatureID()
		if err != nil {
			file.Close()
			return err
		}
		fmt.Fprintf(writer, ">%s\n%s\n", featureID, feature.AASequence)
		a.Statistics.NumProteins++
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	resultFile := filepath.Join(a.workFolder, genomeID+".blastout")
	if err := a.searcher.Run(queryFile, a.databasePath, resultFile); err != nil {
		return err
	}
	hits, err := ReadHits(resultFile)
	if err != nil {
		return err
	}
	if err := a.rolesetLikelihoodsFromHits(hits, targetRolesets); err != nil {
		return err
	}

	if !a.Debug {
		if err := os.Remove(queryFile); err != nil {
			logger.Warn("failed to remove query file", zap.String("path", queryFile), zap.Error(err))
		}
		if err := os.Remove(resultFile); err != nil {
			logger.Warn("failed to remove result file", zap.String("path", resultFile), zap.Error(err))
		}
	}
	return nil
}

// rolesetLikelihoodsFromHits converts alignment hits into the
// likelihood of each possible roleset for each query feature.
func (a *Annotation) rolesetLikelihoodsFromHits(hits []Hit, targetRolesets map[string]string) error {
	// Group the scores by query feature, converting each e-value to a
	// log score. Alignments with a negative bit score are dropped.
	queryScores := make(map[string][]targetScore)
	for _, hit := range hits {
		if hit.BitScore < 0.0 {
			logger.Warn("negative bit score is ignored",
				zap.String("query", hit.QSeqID), zap.String("target", hit.SSeqID))
			continue
		}
		score := -1.0 * math.Log10(hit.EValue+MinEValue)
		queryScores[hit.QSeqID] = append(queryScores[hit.QSeqID], targetScore{hit.SSeqID, score})
	}

	queryIDs := make([]string, 0, len(queryScores))
	for queryID := range queryScores {
		queryIDs = append(queryIDs, queryID)
	}
	sort.Strings(queryIDs)

	for _, queryID := range queryIDs {
		scores := queryScores[queryID]
		maxScore := 0.0
		for _, value := range scores {
			if value.score > maxScore {
				maxScore = value.score
			}
		}

		// Accumulate the squared scores for each possible roleset.
		// Together with pseudocount*maxscore this weights high scoring
		// hits so lower scoring hits and noise do not drown them out.
		rolesetScores := make(map[string]float64)
		numMissing := 0
		for _, value := range scores {
			roleset, ok := targetRolesets[value.targetID]
			if !ok {
				numMissing++
				continue
			}
			rolesetScores[roleset] += value.score * value.score
		}
		if numMissing > 0 {
			logger.Warn("target rolesets missing from dictionary",
				zap.String("query", queryID), zap.Int("count", numMissing))
		}

		denom := a.PseudoCount * maxScore
		for _, squared := range rolesetScores {
			denom += squared
		}
		if math.IsNaN(denom) {
			return &BadLikelihoodError{fmt.Sprintf(
				"denominator in likelihood calculation for gene %s is NaN", queryID)}
		}

		rolesets := make([]string, 0, len(rolesetScores))
		for roleset := range rolesetScores {
			rolesets = append(rolesets, roleset)
		}
		sort.Strings(rolesets)
		for _, roleset := range rolesets {
			value := rolesetScores[roleset] / denom
			if math.IsNaN(value) {
				return &BadLikelihoodError{fmt.Sprintf(
					"likelihood for roleset %s in gene %s is NaN based on score %f",
					roleset, queryID, rolesetScores[roleset])}
			}
			if value < 0.0 || value > 1.0 {
				logger.Warn("roleset has an invalid likelihood",
					zap.String("query", queryID), zap.String("roleset", roleset),
					zap.String("likelihood", fmt.Sprintf("%1.6f", value)))
			}
			a.RolesetValues[queryID] = append(a.RolesetValues[queryID], RolesetValue{roleset, value})
		}
	}
	return nil
}

// calculateRoleLikelihoods computes the likelihood of each role for
// each query feature from the roleset likelihoods. Rolesets containing
// the same role have their likelihoods added, so a role backed by both
// a bifunctional and a monofunctional enzyme ends up more likely than
// a role backed by only one of them.
func (a *Annotation) calculateRoleLikelihoods() error {
	if len(a.RolesetValues) == 0 {
		return errors.New("there are no values in roleset likelihoods table")
	}

	queryIDs := make([]string, 0, len(a.RolesetValues))
	for queryID := range a.RolesetValues {
		queryIDs = append(queryIDs, queryID)
	}
	sort.Strings(queryIDs)

	for _, queryID := range queryIDs {
		functional := make(map[string]float64)
		for _, value := range a.RolesetValues[queryID] {
			for _, role := range strings.Split(value.Roleset, a.Separator) {
				functional[role] += value.Likelihood
			}
		}

		roles := make([]string, 0, len(functional))
		for role := range functional {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			if functional[role] < 0.0 || functional[role] > 1.0 {
				logger.Warn("role has an invalid likelihood",
					zap.String("query", queryID), zap.String("role", role),
					zap.String("likelihood", fmt.Sprintf("%1.6f", functional[role])))
			}
			a.RoleValues = append(a.RoleValues, RoleValue{queryID, role, functional[role]})
		}
	}
	return nil
}

// calculateTotalRoleLikelihoods estimates the likelihood that the
// organism as a whole has each role. The maximum likelihood over all
// query features is used so noise does not inflate the estimate, and
// the features within the dilution threshold of the maximum form the
// GPR for the role.
func (a *Annotation) calculateTotalRoleLikelihoods() error {
	if len(a.RoleValues) == 0 {
		return errors.New("there are no values in the role likelihoods table")
	}

	roleMaxLikelihood := make(map[string]float64)
	for _, value := range a.RoleValues {
		if current, ok := roleMaxLikelihood[value.Role]; !ok || value.Likelihood > current {
			roleMaxLikelihood[value.Role] = value.Likelihood
		}
	}

	roleGenes := make(map[string][]string)
	dilution := a.DilutionPercent / 100.0
	for _, value := range a.RoleValues {
		maxLikelihood, ok := roleMaxLikelihood[value.Role]
		if !ok {
			return &RoleNotFoundError{Role: value.Role}
		}
		if value.Likelihood >= dilution*maxLikelihood {
			roleGenes[value.Role] = append(roleGenes[value.Role], value.QueryID)
		}
	}

	roles := make([]string, 0, len(roleMaxLikelihood))
	for role := range roleMaxLikelihood {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		genes := uniqueSorted(roleGenes[role])
		gpr := strings.Join(genes, " or ")
		if len(genes) > 1 {
			gpr = "(" + gpr + ")"
		}
		if roleMaxLikelihood[role] < 0.0 || roleMaxLikelihood[role] > 1.0 {
			logger.Warn("role has an invalid total likelihood", zap.String("role", role),
				zap.String("likelihood", fmt.Sprintf("%1.6f", roleMaxLikelihood[role])))
		}
		a.TotalRoleValues[role] = TotalRoleValue{roleMaxLikelihood[role], gpr}
	}
	return nil
}

// calculateComplexLikelihoods computes the likelihood of each protein
// complex as the minimum likelihood of its available roles. Roles with
// no representatives in the search database are separated from roles
// that simply were not found in the organism.
func (a *Annotation) calculateComplexLikelihoods(complexesToRoles map[string][]string,
	targetRolesets map[string]string) error {

	if len(a.TotalRoleValues) == 0 {
		return errors.New("there are no values in the total role likelihoods table")
	}

	// Every role with a representative in the search database.
	allRoles := make(map[string]bool)
	for _, roleset := range targetRolesets {
		for _, role := range strings.Split(roleset, a.Separator) {
			allRoles[role] = true
		}
	}

	complexIDs := make([]string, 0, len(complexesToRoles))
	for complexID := range complexesToRoles {
		complexIDs = append(complexIDs, complexID)
	}
	sort.Strings(complexIDs)

	for _, complexID := range complexIDs {
		complexRoles := complexesToRoles[complexID]
		var availRoles, unavailRoles, missingRoles []string
		for _, role := range complexRoles {
			if !allRoles[role] {
				missingRoles = append(missingRoles, role)
			} else if _, ok := a.TotalRoleValues[role]; !ok {
				unavailRoles = append(unavailRoles, role)
			} else {
				availRoles = append(availRoles, role)
			}
		}

		value := ComplexValue{
			Likelihood:       0.0,
			Type:             ComplexTypeUnknown,
			UnavailableRoles: unavailRoles,
			MissingRoles:     missingRoles,
		}

		if len(missingRoles) == len(complexRoles) {
			a.Statistics.ComplexTypes.NumNoReps++
			value.Type = ComplexTypeNoReps
			a.ComplexValues[complexID] = value
			continue
		}
		if len(unavailRoles) == len(complexRoles) {
			a.Statistics.ComplexTypes.NumNotThere++
			value.Type = ComplexTypeNotThere
			a.ComplexValues[complexID] = value
			continue
		}
		if len(unavailRoles)+len(missingRoles) == len(complexRoles) {
			a.Statistics.ComplexTypes.NumNoRepsAndNotThere++
			value.Type = ComplexTypeNoRepsNotThere
			a.ComplexValues[complexID] = value
			continue
		}
		if len(availRoles) == len(complexRoles) {
			a.Statistics.ComplexTypes.NumFull++
			value.Type = ComplexTypeFull
		} else {
			a.Statistics.ComplexTypes.NumPartial++
			value.Type = fmt.Sprintf("CPLX_PARTIAL_%d_of_%d", len(availRoles), len(complexRoles))
		}

		// Link the roles of the complex with an AND relationship.
		var gprList []string
		for _, role := range availRoles {
			gprList = append(gprList, a.TotalRoleValues[role].GPR)
		}
		gprList = uniqueSorted(gprList)
		if len(gprList) > 1 {
			value.GPR = "(" + strings.Join(gprList, " and ") + ")"
		} else if len(gprList) == 1 {
			value.GPR = gprList[0]
		}

		minLikelihood := 1000.0
		for _, role := range availRoles {
			if a.TotalRoleValues[role].Likelihood < minLikelihood {
				minLikelihood = a.TotalRoleValues[role].Likelihood
			}
		}
		if minLikelihood < 0.0 || minLikelihood > 1.0 {
			logger.Warn("complex has an invalid likelihood", zap.String("complex", complexID),
				zap.String("likelihood", fmt.Sprintf("%1.6f", minLikelihood)))
		}
		value.Likelihood = minLikelihood
		a.ComplexValues[complexID] = value
	}
	return nil
}

// calculateReactionLikelihoods computes the likelihood of each reaction
// as the maximum likelihood of the complexes that catalyze it.
func (a *Annotation) calculateReactionLikelihoods(reactionsToComplexes map[string][]string) error {
	if len(a.ComplexValues) == 0 {
		return errors.New("there are no values in the complex likelihoods table")
	}

	reactionIDs := make([]string, 0, len(reactionsToComplexes))
	for reactionID := range reactionsToComplexes {
		reactionIDs = append(reactionIDs, reactionID)
	}
	sort.Strings(reactionIDs)

	dilution := a.DilutionPercent / 100.0
	totalLikelihood := 0.0
	for _, reactionID := range reactionIDs {
		type complexInfo struct {
			id          string
			likelihood  float64
			complexType string
		}
		var complexes []complexInfo
		for _, complexID := range reactionsToComplexes[reactionID] {
			if value, ok := a.ComplexValues[complexID]; ok {
				complexes = append(complexes, complexInfo{complexID, value.Likelihood, value.Type})
			}
		}

		maxLikelihood := 0.0
		complexString := ""
		var reactionType string
		if len(complexes) > 0 {
			reactionType = ReactionTypeHasComplexes
			a.Statistics.ReactionTypes.HasComplexes++
			sort.SliceStable(complexes, func(i, j int) bool {
				return complexes[i].likelihood > complexes[j].likelihood
			})
			maxLikelihood = complexes[0].likelihood
			parts := make([]string, len(complexes))
			for i, cpx := range complexes {
				parts[i] = fmt.Sprintf("%s (%1.4f; %s)", cpx.id, cpx.likelihood, cpx.complexType)
			}
			complexString = strings.Join(parts, a.Separator)
		} else {
			reactionType = ReactionTypeNoComplexes
			a.Statistics.ReactionTypes.NoComplexes++
		}
		if maxLikelihood > 0.0 {
			a.Statistics.NumNonzeroLikelihoods++
		} else {
			a.Statistics.NumZeroLikelihoods++
		}
		if maxLikelihood < 0.0 || maxLikelihood > 1.0 {
			logger.Warn("reaction has an invalid likelihood", zap.String("reaction", reactionID),
				zap.String("likelihood", fmt.Sprintf("%1.6f", maxLikelihood)))
		}

		// Apply the dilution threshold here too so a complex with a high
		// likelihood is not linked by OR to one with a tiny likelihood.
		var gprList []string
		for _, complexID := range reactionsToComplexes[reactionID] {
			value, ok := a.ComplexValues[complexID]
			if !ok {
				continue
			}
			if value.Likelihood < maxLikelihood*dilution {
				continue
			}
			if value.GPR == "" {
				continue
			}
			gprList = append(gprList, value.GPR)
		}
		gpr := strings.Join(uniqueSorted(gprList), " or ")

		a.ReactionValues[reactionID] = ReactionValue{maxLikelihood, reactionType, gpr, complexString}
		totalLikelihood += maxLikelihood
	}

	if len(a.ReactionValues) > 0 {
		a.Statistics.AverageLikelihood = totalLikelihood / float64(len(a.ReactionValues))
	}
	return nil
}

// uniqueSorted returns the distinct values in sorted order.
func uniqueSorted(values []string) []string {
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
