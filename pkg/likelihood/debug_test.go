package likelihood

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Saving the intermediate tables twice must produce identical files so
// runs can be compared with diff.
func TestSaveDataDeterministic(t *testing.T) {
	workFolder := t.TempDir()
	a := NewAnnotation(nil, "", "", workFolder)
	a.RolesetValues = make(map[string][]RolesetValue)
	a.TotalRoleValues = make(map[string]TotalRoleValue)
	a.ComplexValues = make(map[string]ComplexValue)
	a.ReactionValues = make(map[string]ReactionValue)

	hits := []Hit{
		{QSeqID: "f2", SSeqID: "t2", EValue: 1e-15, BitScore: 60.0},
		{QSeqID: "f1", SSeqID: "t1", EValue: 1e-10, BitScore: 50.0},
		{QSeqID: "f1", SSeqID: "t2", EValue: 1e-5, BitScore: 30.0},
	}
	targetRolesets := map[string]string{"t1": "R1///R2", "t2": "R2"}
	complexesToRoles := map[string][]string{"cpx1": {"R1", "R2"}, "cpx2": {"R2"}}
	reactionsToComplexes := map[string][]string{"rxn1": {"cpx1", "cpx2"}}

	if err := a.rolesetLikelihoodsFromHits(hits, targetRolesets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.calculateRoleLikelihoods(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.calculateTotalRoleLikelihoods(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.calculateComplexLikelihoods(complexesToRoles, targetRolesets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.calculateReactionLikelihoods(reactionsToComplexes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := a.saveData("83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	suffixes := []string{".roleset.tsv", ".role.tsv", ".totalrole.tsv", ".complex.tsv", ".reaction.tsv"}
	first := make(map[string][]byte)
	for _, suffix := range suffixes {
		data, err := os.ReadFile(filepath.Join(workFolder, "83333.1"+suffix))
		if err != nil {
			t.Fatalf("failed to read table: %v", err)
		}
		if len(data) == 0 {
			t.Fatalf("table %s is empty", suffix)
		}
		first[suffix] = data
	}

	if err := a.saveData("83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, suffix := range suffixes {
		data, err := os.ReadFile(filepath.Join(workFolder, "83333.1"+suffix))
		if err != nil {
			t.Fatalf("failed to read table: %v", err)
		}
		if !bytes.Equal(first[suffix], data) {
			t.Fatalf("table %s changed between saves", suffix)
		}
	}
}
