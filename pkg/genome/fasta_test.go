package genome

import (
	"math"
	"path"
	"testing"
)

func TestWriteProteinFasta(t *testing.T) {
	features := []FeatureRecord{
		{PatricID: "fig|83333.1.peg.1", Annotation: AnnotationPATRIC, AASequence: "MKT"},
		{PatricID: "fig|83333.1.peg.2", Annotation: AnnotationPATRIC},
		{PatricID: "fig|83333.1.peg.3", Annotation: AnnotationPATRIC, AASequence: "MAD"},
	}

	fastaFile := path.Join(t.TempDir(), "protein.fasta")
	numAdded, err := WriteProteinFasta(features, fastaFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if numAdded != 2 {
		t.Fatalf("expected two sequences written, got %d", numAdded)
	}

	count, err := CountFasta(fastaFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two sequences in file, got %d", count)
	}
}

func TestGCContent(t *testing.T) {
	features := []FeatureRecord{
		{NASequence: "ATGC"},
		{NASequence: "GGCC"},
	}

	gc, err := GCContent(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(gc-0.75) > 1e-9 {
		t.Fatalf("unexpected GC content: %f", gc)
	}
}

func TestGCContentNoSequences(t *testing.T) {
	if _, err := GCContent([]FeatureRecord{{PatricID: "fig|83333.1.peg.1"}}); err == nil {
		t.Fatal("expected an error for features without DNA sequences")
	}
}
