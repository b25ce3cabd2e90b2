package template

import (
	"context"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/mmundy42/mackinac/pkg/genome"
	"github.com/mmundy42/mackinac/pkg/likelihood"
	"github.com/mmundy42/mackinac/pkg/store"
)

const testUniversalMetabolites = `{
	"cpd00001": {"name": "H2O", "formula": "H2O", "charge": 0, "mass": 18.0, "is_obsolete": 0, "is_core": 1, "is_cofactor": 0},
	"cpd00002": {"name": "ATP", "formula": "C10H13N5O13P3", "charge": -3, "mass": 507.0, "is_obsolete": 0, "is_core": 1, "is_cofactor": 1},
	"cpd00008": {"name": "ADP", "formula": "C10H13N5O10P2", "charge": -2, "mass": 427.0, "is_obsolete": 0, "is_core": 1, "is_cofactor": 1},
	"cpd00009": {"name": "Phosphate", "formula": "HPO4", "charge": -2, "mass": 96.0, "is_obsolete": 0, "is_core": 1, "is_cofactor": 0},
	"cpd00027": {"name": "D-Glucose", "formula": "C6H12O6", "charge": 0, "mass": 180.0, "is_obsolete": 0, "is_core": 1, "is_cofactor": 0},
	"cpd00067": {"name": "H+", "formula": "H", "charge": 1, "mass": 1.0, "is_obsolete": 0, "is_core": 1, "is_cofactor": 0},
	"cpd11416": {"name": "Biomass", "formula": "null", "charge": 0, "mass": 0, "is_obsolete": 0, "is_core": 0, "is_cofactor": 0}
}`

const testUniversalReactions = `{
	"rxn00001": {"name": "D-Glucose transport", "stoichiometry": "-1:cpd00027:1:0:\"D-Glucose\";1:cpd00027:0:0:\"D-Glucose\"", "direction": "=", "reversibility": "=", "status": "OK", "is_obsolete": 0, "is_transport": 1},
	"rxn00002": {"name": "Glucokinase", "stoichiometry": "-1:cpd00027:0:0:\"D-Glucose\";-1:cpd00002:0:0:\"ATP\";1:cpd00008:0:0:\"ADP\";1:cpd00067:0:0:\"H+\"", "direction": ">", "reversibility": ">", "status": "OK", "is_obsolete": 0, "is_transport": 0}
}`

const testCompartments = "id\tname\tindex\n" +
	"c\tCytosol\t0\n" +
	"e\tExtracellular\t1\n"

const testReactions = "id\tcompartment\tdirection\tgfdir\ttype\tbase_cost\tforward_cost\treverse_cost\tcomplexes\n" +
	"rxn00001\tc|e\t=\t=\tuniversal\t1\t1\t1\tnull\n" +
	"rxn00002\tc\t>\t>\tconditional\t1\t1\t1\tcpx1\n" +
	"rxn99999\tc\t=\t=\tuniversal\t1\t1\t1\tnull\n"

const testComplexes = "id\tname\tsource\treference\tconfidence\troles\n" +
	"cpx1\tGlucokinase complex\tModelSEED\tnull\t1.0\trole1;role_mapping;0;1|role2;role_mapping;0;1\n"

const testRoles = "id\tname\tsource\tfeatures\taliases\n" +
	"role1\tGlucokinase (EC 2.7.1.2)\tModelSEED\tnull\tnull\n" +
	"role2\tGlucokinase regulatory subunit\tModelSEED\tnull\tnull\n"

const testBiomasses = "id\tname\ttype\tother\tdna\trna\tprotein\tlipid\tcellwall\tcofactor\tenergy\n" +
	"bio1\tBiomass\tgrowth\t0\t0\t0\t0\t0\t0\t0\t40\n"

const testBiomassComponents = "biomass_id\tid\tcoefficient\tcoefficient_type\tclass\tlinked_compounds\tcompartment\n" +
	"bio1\tcpd11416\t1\tEXACT\tother\tnull\tc\n" +
	"bio1\tcpd00002\t-1\tMULTIPLIER\tenergy\tcpd00001:1|cpd00008:-1|cpd00009:-1|cpd00067:-1\tc\n"

func writeTemplateFixture(t *testing.T) SourcePaths {
	t.Helper()
	folder := t.TempDir()
	files := map[string]string{
		"metabolites.json":        testUniversalMetabolites,
		"reactions.json":          testUniversalReactions,
		"compartments.tsv":        testCompartments,
		"reactions.tsv":           testReactions,
		"complexes.tsv":           testComplexes,
		"roles.tsv":               testRoles,
		"biomasses.tsv":           testBiomasses,
		"biomass_metabolites.tsv": testBiomassComponents,
	}
	for name, data := range files {
		if err := os.WriteFile(path.Join(folder, name), []byte(data), 0644); err != nil {
			t.Fatalf("failed to write fixture file %s: %v", name, err)
		}
	}
	return SourcePaths{
		UniversalMetabolites: path.Join(folder, "metabolites.json"),
		UniversalReactions:   path.Join(folder, "reactions.json"),
		Compartments:         path.Join(folder, "compartments.tsv"),
		Biomasses:            path.Join(folder, "biomasses.tsv"),
		BiomassComponents:    path.Join(folder, "biomass_metabolites.tsv"),
		Reactions:            path.Join(folder, "reactions.tsv"),
		Complexes:            path.Join(folder, "complexes.tsv"),
		Roles:                path.Join(folder, "roles.tsv"),
	}
}

func loadTestTemplate(t *testing.T) *Template {
	t.Helper()
	tpl := New("growth", "Growth template", "growth", "Bacteria")
	if err := tpl.LoadFromFiles(writeTemplateFixture(t)); err != nil {
		t.Fatalf("failed to load template: %v", err)
	}
	return tpl
}

func TestLoadFromFiles(t *testing.T) {
	tpl := loadTestTemplate(t)

	// The row referencing an unknown universal reaction is skipped so
	// only two reactions load.
	ids := tpl.ReactionIDs()
	if len(ids) != 2 || ids[0] != "rxn00001" || ids[1] != "rxn00002" {
		t.Fatalf("unexpected reaction IDs: %+v", ids)
	}

	rxn, ok := tpl.GetReaction("rxn00001")
	if !ok {
		t.Fatal("expected rxn00001 in the template")
	}
	if rxn.Type != ReactionTypeUniversal || rxn.DefaultCompartment() != "c" {
		t.Fatalf("unexpected reaction: %+v", rxn)
	}
	if rxn.ModelID() != "rxn00001_c" {
		t.Fatalf("unexpected model ID: %q", rxn.ModelID())
	}

	if _, ok := tpl.GetComplex("cpx1"); !ok {
		t.Fatal("expected cpx1 in the template")
	}
	if _, ok := tpl.GetRole("role1"); !ok {
		t.Fatal("expected role1 in the template")
	}
	if _, ok := tpl.RoleBySearchName("glucokinase"); !ok {
		t.Fatal("expected role1 by its search name")
	}
	if _, ok := tpl.GetBiomass("bio1"); !ok {
		t.Fatal("expected bio1 in the template")
	}

	// The transport reaction references glucose in compartment index 1
	// so a relocated copy of the metabolite must exist.
	if _, ok := tpl.GetMetabolite("cpd00027_1"); !ok {
		t.Fatal("expected cpd00027 in compartment index 1")
	}

	complexesToRoles := tpl.ComplexesToRoles()
	if roles := complexesToRoles["cpx1"]; len(roles) != 2 || roles[0] != "role1" || roles[1] != "role2" {
		t.Fatalf("unexpected complex roles: %+v", roles)
	}
	reactionsToComplexes := tpl.ReactionsToComplexes()
	if complexes := reactionsToComplexes["rxn00002"]; len(complexes) != 1 || complexes[0] != "cpx1" {
		t.Fatalf("unexpected reaction complexes: %+v", complexes)
	}
	if _, ok := reactionsToComplexes["rxn00001"]; ok {
		t.Fatal("universal reactions must not appear in the complex map")
	}
}

func TestToModel(t *testing.T) {
	tpl := loadTestTemplate(t)
	m, err := tpl.ToModel()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Reactions()) != 2 {
		t.Fatalf("expected two reactions, got %d", len(m.Reactions()))
	}

	rxn, ok := m.GetReaction("rxn00001_c")
	if !ok {
		t.Fatal("expected rxn00001_c in the model")
	}
	if rxn.Metabolites["cpd00027_e"] != -1.0 || rxn.Metabolites["cpd00027_c"] != 1.0 {
		t.Fatalf("unexpected coefficients: %+v", rxn.Metabolites)
	}
	if met, ok := m.GetMetabolite("cpd00027_e"); !ok || met.Compartment != "e" {
		t.Fatalf("unexpected extracellular metabolite: %+v", met)
	}
}

func TestReconstruct(t *testing.T) {
	tpl := loadTestTemplate(t)
	features := []*genome.Feature{
		genome.NewFeature("fig|83333.1.peg.1", "Glucokinase (EC 2.7.1.2)"),
		genome.NewFeature("fig|83333.1.peg.2", "Glucokinase regulatory subunit"),
	}

	m, err := tpl.Reconstruct("83333.1", "Escherichia coli", features, "bio1", 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Compartments["c"] != "Cytosol" || m.Compartments["e"] != "Extracellular" {
		t.Fatalf("unexpected compartments: %+v", m.Compartments)
	}

	// The universal transport reaction is always included.
	if !m.HasReaction("rxn00001_c") {
		t.Fatal("expected the universal reaction in the model")
	}

	// Both subunits of the glucokinase complex matched so the
	// conditional reaction is included with an AND rule.
	rxn, ok := m.GetReaction("rxn00002_c")
	if !ok {
		t.Fatal("expected the conditional reaction in the model")
	}
	if rxn.GeneReactionRule != "(83333.1.peg.1 and 83333.1.peg.2)" {
		t.Fatalf("unexpected gene rule: %q", rxn.GeneReactionRule)
	}
	if rxn.LowerBound != 0.0 || rxn.UpperBound != 1000.0 {
		t.Fatalf("unexpected bounds: %+v", rxn)
	}

	// Extracellular glucose gets an exchange reaction.
	exchange, ok := m.GetReaction("EX_cpd00027_e")
	if !ok {
		t.Fatal("expected an exchange reaction for extracellular glucose")
	}
	if exchange.LowerBound != -1000.0 || exchange.UpperBound != 1000.0 {
		t.Fatalf("unexpected exchange bounds: %+v", exchange)
	}

	// The biomass metabolite sink is a ModelSEED convention.
	if !m.HasReaction("SK_cpd11416_c") {
		t.Fatal("expected the biomass metabolite sink")
	}

	// The biomass reaction is the objective.
	biomass, ok := m.GetReaction("bio1")
	if !ok {
		t.Fatal("expected the biomass reaction in the model")
	}
	if biomass.ObjectiveCoefficient != 1.0 {
		t.Fatalf("unexpected objective coefficient: %f", biomass.ObjectiveCoefficient)
	}
	if !closeTo(biomass.Metabolites["cpd00002_c"], -40.0) {
		t.Fatalf("unexpected ATP coefficient: %f", biomass.Metabolites["cpd00002_c"])
	}
	if !closeTo(biomass.Metabolites["cpd00008_c"], 40.0) {
		t.Fatalf("unexpected ADP coefficient: %f", biomass.Metabolites["cpd00008_c"])
	}
	if biomass.Metabolites["cpd11416_c"] != 1.0 {
		t.Fatalf("unexpected biomass coefficient: %f", biomass.Metabolites["cpd11416_c"])
	}

	genes := m.Genes()
	if len(genes) != 2 || genes[0] != "83333.1.peg.1" || genes[1] != "83333.1.peg.2" {
		t.Fatalf("unexpected genes: %+v", genes)
	}

	// Glucose reaches the cytosol through the transport reaction.
	if numValid := CheckBoundaryMetabolites(m, "e", "c"); numValid != 1 {
		t.Fatalf("unexpected boundary check result: %d", numValid)
	}
}

func TestReconstructSubunitRule(t *testing.T) {
	tpl := loadTestTemplate(t)
	features := []*genome.Feature{
		genome.NewFeature("fig|83333.1.peg.1", "Glucokinase (EC 2.7.1.2)"),
		genome.NewFeature("fig|83333.1.peg.2", "Glucokinase (EC 2.7.1.2)"),
		genome.NewFeature("fig|83333.1.peg.3", "Glucokinase regulatory subunit"),
	}

	m, err := tpl.Reconstruct("83333.1", "Escherichia coli", features, "bio1", 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two features match the same subunit and are joined with OR inside
	// the AND over subunits.
	rxn, _ := m.GetReaction("rxn00002_c")
	want := "((83333.1.peg.1 or 83333.1.peg.2) and 83333.1.peg.3)"
	if rxn.GeneReactionRule != want {
		t.Fatalf("unexpected gene rule: %q", rxn.GeneReactionRule)
	}
}

func TestReconstructNoMatches(t *testing.T) {
	tpl := loadTestTemplate(t)
	features := []*genome.Feature{
		genome.NewFeature("fig|83333.1.peg.1", "hypothetical protein"),
	}

	_, err := tpl.Reconstruct("83333.1", "Escherichia coli", features, "bio1", 0.5)
	if err == nil {
		t.Fatal("expected an error when no features match")
	}
	if !strings.Contains(err.Error(), "no matches") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReconstructUnknownBiomass(t *testing.T) {
	tpl := loadTestTemplate(t)
	_, err := tpl.Reconstruct("83333.1", "Escherichia coli", nil, "bio9", 0.5)
	if err == nil {
		t.Fatal("expected an error for an unknown biomass")
	}
}

func TestReconstructFromLikelihoods(t *testing.T) {
	tpl := loadTestTemplate(t)
	likelihoods := map[string]float64{
		"rxn00001": 0.05,
		"rxn00002": 0.8,
	}

	m, err := tpl.ReconstructFromLikelihoods("83333.1", "Escherichia coli", likelihoods, 0.1, "bio1", 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.HasReaction("rxn00001_c") {
		t.Fatal("expected the reaction below the cutoff to be left out")
	}
	rxn, ok := m.GetReaction("rxn00002_c")
	if !ok {
		t.Fatal("expected the reaction above the cutoff in the model")
	}
	if rxn.Notes["likelihood"] != "0.800000" {
		t.Fatalf("unexpected likelihood note: %q", rxn.Notes["likelihood"])
	}
	if !m.HasReaction("SK_cpd11416_c") || !m.HasReaction("bio1") {
		t.Fatal("expected the sink and biomass reactions in the model")
	}
}

func TestReconstructFromStoredLikelihoods(t *testing.T) {
	tpl := loadTestTemplate(t)
	ctx := context.Background()

	ws, err := store.Open(path.Join(t.TempDir(), "mackinac.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	values := map[string]likelihood.ReactionValue{
		"rxn00001": {Likelihood: 0.05, Type: "HASCOMPLEXES"},
		"rxn00002": {Likelihood: 0.8, Type: "HASCOMPLEXES", GPR: "f1"},
	}
	if err := ws.SaveLikelihoods(ctx, "83333.1", values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, err := ws.GetLikelihoods(ctx, "83333.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	likelihoods := make(map[string]float64, len(restored))
	for id, value := range restored {
		likelihoods[id] = value.Likelihood
	}
	m, err := tpl.ReconstructFromLikelihoods("83333.1", "Escherichia coli", likelihoods, 0.1, "bio1", 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.HasReaction("rxn00001_c") {
		t.Fatal("expected the reaction below the cutoff to be left out")
	}
	rxn, ok := m.GetReaction("rxn00002_c")
	if !ok {
		t.Fatal("expected the reaction above the cutoff in the model")
	}
	if rxn.Notes["likelihood"] != "0.800000" {
		t.Fatalf("unexpected likelihood note: %q", rxn.Notes["likelihood"])
	}
}

func TestReconstructFromLikelihoodsAllBelowCutoff(t *testing.T) {
	tpl := loadTestTemplate(t)
	likelihoods := map[string]float64{"rxn00002": 0.05}

	_, err := tpl.ReconstructFromLikelihoods("83333.1", "Escherichia coli", likelihoods, 0.1, "bio1", 0.5)
	if err == nil {
		t.Fatal("expected an error when every reaction is below the cutoff")
	}
}
