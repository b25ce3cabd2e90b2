package genome

import (
	"bufio"
	"fmt"
	"os"

	"github.com/bebop/poly/checks"
	"github.com/bebop/poly/io/fasta"
)

// WriteProteinFasta writes the amino acid sequences of the features to
// a fasta file and returns the number of sequences written. Features
// without an amino acid sequence are skipped.
func WriteProteinFasta(features []FeatureRecord, path string) (int, error) {
	return writeFasta(features, path, func(f FeatureRecord) (string, string, error) {
		if f.AASequence == "" {
			return "", "", nil
		}
		switch f.Annotation {
		case AnnotationPATRIC:
			return f.PatricID, f.AASequence, nil
		case AnnotationRefSeq:
			return f.ProteinID, f.AASequence, nil
		}
		return "", "", fmt.Errorf("annotation type %s is not supported", f.Annotation)
	})
}

// WriteDNAFasta writes the DNA sequences of the features to a fasta
// file and returns the number of sequences written. Features without a
// DNA sequence are skipped.
func WriteDNAFasta(features []FeatureRecord, path string) (int, error) {
	return writeFasta(features, path, func(f FeatureRecord) (string, string, error) {
		if f.NASequence == "" {
			return "", "", nil
		}
		switch f.Annotation {
		case AnnotationPATRIC:
			return f.PatricID, f.NASequence, nil
		case AnnotationRefSeq:
			return f.RefseqLocusTag, f.NASequence, nil
		}
		return "", "", fmt.Errorf("annotation type %s is not supported", f.Annotation)
	})
}

func writeFasta(features []FeatureRecord, path string, entry func(FeatureRecord) (string, string, error)) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	numAdded := 0
	for _, feature := range features {
		id, sequence, err := entry(feature)
		if err != nil {
			return numAdded, err
		}
		if sequence == "" {
			continue
		}
		fmt.Fprintf(writer, ">%s\n%s\n", id, sequence)
		numAdded++
	}
	if err := writer.Flush(); err != nil {
		return numAdded, err
	}
	return numAdded, nil
}

// CountFasta returns the number of sequences in a fasta file.
func CountFasta(path string) (int, error) {
	entries, err := fasta.Read(path)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// GCContent computes the fraction of G and C bases across the DNA
// sequences of the features.
func GCContent(features []FeatureRecord) (float64, error) {
	var dna []byte
	for _, feature := range features {
		dna = append(dna, feature.NASequence...)
	}
	if len(dna) == 0 {
		return 0, fmt.Errorf("no DNA sequences in features")
	}
	return checks.GcContent(string(dna)), nil
}
