package store

import (
	"context"
	"errors"
	"path"
	"testing"

	"github.com/mmundy42/mackinac/pkg/likelihood"
	"github.com/mmundy42/mackinac/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(path.Join(t.TempDir(), "mackinac.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testStoreModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New("83333.1", "Escherichia coli")
	m.Compartments["c"] = "Cytosol"
	met := &model.Metabolite{ID: "cpd00001_c", Name: "H2O", Compartment: "c"}
	rxn := &model.Reaction{
		ID:          "rxn00001_c",
		Name:        "test reaction",
		LowerBound:  -1000.0,
		UpperBound:  1000.0,
		Metabolites: map[string]float64{"cpd00001_c": -1.0},
	}
	if err := m.AddReaction(rxn, met); err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	return m
}

func TestSaveAndGetModel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveModel(ctx, testStoreModel(t), "83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := s.GetModel(ctx, "83333.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.ID != "83333.1" || restored.Name != "Escherichia coli" {
		t.Fatalf("unexpected model: %+v", restored)
	}
	if !restored.HasReaction("rxn00001_c") {
		t.Fatal("expected rxn00001_c in the restored model")
	}
}

func TestSaveModelReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := testStoreModel(t)
	if err := s.SaveModel(ctx, m, "83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Name = "Escherichia coli K-12"
	if err := s.SaveModel(ctx, m, "83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	infos, err := s.ListModels(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one model, got %d", len(infos))
	}
	if infos[0].Name != "Escherichia coli K-12" || infos[0].GenomeID != "83333.1" {
		t.Fatalf("unexpected model info: %+v", infos[0])
	}
}

func TestGetModelNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetModel(context.Background(), "nope")
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestDeleteModel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveModel(ctx, testStoreModel(t), "83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := map[string]likelihood.ReactionValue{
		"rxn00001_c": {Likelihood: 0.5, Type: "HASCOMPLEXES"},
	}
	if err := s.SaveLikelihoods(ctx, "83333.1", values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.DeleteModel(ctx, "83333.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetModel(ctx, "83333.1"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound after delete, got %v", err)
	}
	restored, err := s.GetLikelihoods(ctx, "83333.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(restored) != 0 {
		t.Fatalf("expected likelihoods to be deleted, got %+v", restored)
	}
}

func TestSaveAndGetLikelihoods(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	values := map[string]likelihood.ReactionValue{
		"rxn00001_c": {
			Likelihood:    0.5,
			Type:          "HASCOMPLEXES",
			GPR:           "f1",
			ComplexString: "cpx1 (0.5000; CPLX_FULL)",
		},
		"rxn00002_c": {Likelihood: 0.0, Type: "NOCOMPLEXES"},
	}
	if err := s.SaveLikelihoods(ctx, "83333.1", values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := s.GetLikelihoods(ctx, "83333.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("expected two likelihoods, got %d", len(restored))
	}

	// The community index suffix is stripped on load so the keys match
	// the IDs the caller saved.
	value, ok := restored["rxn00001_c"]
	if !ok {
		t.Fatalf("expected rxn00001_c in the restored table, got %+v", restored)
	}
	if value.Likelihood != 0.5 || value.Type != "HASCOMPLEXES" || value.GPR != "f1" {
		t.Fatalf("unexpected value: %+v", value)
	}
	if value.ComplexString != "cpx1 (0.5000; CPLX_FULL)" {
		t.Fatalf("unexpected complex string: %q", value.ComplexString)
	}

	// The rows themselves carry the community index suffix.
	var storedID string
	err = s.db.QueryRow(
		`SELECT reaction_id FROM reaction_likelihoods WHERE model_id = ? ORDER BY reaction_id LIMIT 1`,
		"83333.1").Scan(&storedID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storedID != "rxn00001_c0" {
		t.Fatalf("expected stored ID rxn00001_c0, got %q", storedID)
	}
}

func TestGetLikelihoodsEmpty(t *testing.T) {
	s := openTestStore(t)
	values, err := s.GetLikelihoods(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values == nil || len(values) != 0 {
		t.Fatalf("expected an empty map, got %+v", values)
	}
}
