package likelihood

import (
	"errors"
	"os"
	"path"
	"testing"
)

func TestNewSearcherBadProgram(t *testing.T) {
	_, err := NewSearcher("diamond", "/usr/bin/diamond", "1E-5", "0.33", "4")
	if err == nil {
		t.Fatal("expected an error for an unsupported program name")
	}
}

func TestSearchErrorOnMissingProgram(t *testing.T) {
	searcher, err := NewSearcher(ProgramUsearch, "/no/such/usearch", "1E-5", "0.33", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = searcher.Run("query.faa", "protein.udb", "result.blastout")
	if err == nil {
		t.Fatal("expected an error for a missing program")
	}
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected a SearchError, got %T", err)
	}
}

func TestReadHits(t *testing.T) {
	tmpDir := t.TempDir()
	resultFile := path.Join(tmpDir, "result.blastout")
	data := "f1\tt1\t98.50\t100\t1\t0\t1\t100\t1\t100\t1e-10\t200.5\n" +
		"f2\tt2\t75.00\t80\t20\t2\t5\t84\t1\t80\t0.001\t90.0\n"
	if err := os.WriteFile(resultFile, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write result file: %v", err)
	}

	hits, err := ReadHits(resultFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected two hits, got %d", len(hits))
	}

	first := hits[0]
	if first.QSeqID != "f1" || first.SSeqID != "t1" {
		t.Fatalf("unexpected IDs: %+v", first)
	}
	if first.PIdent != 98.5 || first.Length != 100 || first.EValue != 1e-10 || first.BitScore != 200.5 {
		t.Fatalf("unexpected fields: %+v", first)
	}
}

func TestReadHitsBadFieldCount(t *testing.T) {
	tmpDir := t.TempDir()
	resultFile := path.Join(tmpDir, "result.blastout")
	if err := os.WriteFile(resultFile, []byte("f1\tt1\t98.50\n"), 0644); err != nil {
		t.Fatalf("failed to write result file: %v", err)
	}

	if _, err := ReadHits(resultFile); err == nil {
		t.Fatal("expected an error for a row with too few fields")
	}
}

func TestReadFidRoleFile(t *testing.T) {
	tmpDir := t.TempDir()
	fidRoleFile := path.Join(tmpDir, "otu_fid_role.tsv")
	data := "t1\tR1///R2\nt2\tR3\nbadline\n"
	if err := os.WriteFile(fidRoleFile, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write fid role file: %v", err)
	}

	targetRolesets, err := ReadFidRoleFile(fidRoleFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targetRolesets) != 2 {
		t.Fatalf("expected two rolesets, got %+v", targetRolesets)
	}
	if targetRolesets["t1"] != "R1///R2" {
		t.Fatalf("unexpected roleset for t1: %q", targetRolesets["t1"])
	}
	if targetRolesets["t2"] != "R3" {
		t.Fatalf("unexpected roleset for t2: %q", targetRolesets["t2"])
	}
}
