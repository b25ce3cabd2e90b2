package genome

import (
	"testing"
)

func TestNewFeatureID(t *testing.T) {
	feature := NewFeature("fig|83333.1.peg.4", "Thymidylate synthase (EC 2.1.1.45)")
	if feature.ID != "83333.1.peg.4" {
		t.Fatalf("unexpected ID: %q", feature.ID)
	}
}

func TestNewFeatureRoles(t *testing.T) {
	function := "Chorismate mutase (EC 5.4.99.5) / Prephenate dehydratase (EC 4.2.1.51)"
	feature := NewFeature("fig|83333.1.peg.1", function)

	if len(feature.Roles) != 2 {
		t.Fatalf("expected two roles, got %+v", feature.Roles)
	}
	if feature.Roles[0] != "Chorismate mutase (EC 5.4.99.5)" {
		t.Fatalf("unexpected first role: %q", feature.Roles[0])
	}
	if feature.Roles[1] != "Prephenate dehydratase (EC 4.2.1.51)" {
		t.Fatalf("unexpected second role: %q", feature.Roles[1])
	}
	if len(feature.ECNumbers) != 2 || feature.ECNumbers[0] != "5.4.99.5" || feature.ECNumbers[1] != "4.2.1.51" {
		t.Fatalf("unexpected EC numbers: %+v", feature.ECNumbers)
	}
}

func TestNewFeatureSemicolonRoles(t *testing.T) {
	feature := NewFeature("fig|83333.1.peg.2", "Aspartokinase (EC 2.7.2.4); Homoserine dehydrogenase (EC 1.1.1.3)")
	if len(feature.Roles) != 2 {
		t.Fatalf("expected two roles, got %+v", feature.Roles)
	}
}

func TestNewFeatureCompartments(t *testing.T) {
	feature := NewFeature("fig|83333.1.peg.3", "Citrate synthase (EC 2.3.3.1) # mitochondrial and cytosolic")
	if feature.Function != "Citrate synthase (EC 2.3.3.1)" {
		t.Fatalf("unexpected function: %q", feature.Function)
	}
	if feature.Comment != "mitochondrial and cytosolic" {
		t.Fatalf("unexpected comment: %q", feature.Comment)
	}
	if len(feature.Compartments) != 2 || feature.Compartments[0] != "c" || feature.Compartments[1] != "m" {
		t.Fatalf("unexpected compartments: %+v", feature.Compartments)
	}
}

func TestNewFeatureDefaultCompartment(t *testing.T) {
	feature := NewFeature("fig|83333.1.peg.4", "Thymidylate synthase (EC 2.1.1.45)")
	if len(feature.Compartments) != 1 || feature.Compartments[0] != "u" {
		t.Fatalf("unexpected compartments: %+v", feature.Compartments)
	}
	if feature.Comment != "none" {
		t.Fatalf("unexpected comment: %q", feature.Comment)
	}
}

func TestMakeSearchName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Thymidylate synthase (EC 2.1.1.45)", "thymidylatesynthase"},
		{"Alcohol dehydrogenase [NAD(P)] (EC 1.1.1.71)", "alcoholdehydrogenasenad{p}"},
		{"ABC transporter (TC 3.A.1.1.1)", "abctransporter"},
		{"2-dehydro-3-deoxyphosphooctonate aldolase", "2dehydro3deoxyphosphooctonatealdolase"},
	}
	for _, test := range tests {
		if got := MakeSearchName(test.name); got != test.want {
			t.Fatalf("MakeSearchName(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestTCNumbers(t *testing.T) {
	numbers := TCNumbers("ABC transporter (TC 3.A.1.1.1)")
	if len(numbers) != 1 || numbers[0] != "3.A.1.1.1" {
		t.Fatalf("unexpected TC numbers: %+v", numbers)
	}
}

func TestFeatureRecordID(t *testing.T) {
	record := FeatureRecord{
		PatricID:       "fig|83333.1.peg.1",
		RefseqLocusTag: "b0001",
		Annotation:     AnnotationPATRIC,
	}
	id, err := record.FeatureID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "fig|83333.1.peg.1" {
		t.Fatalf("unexpected ID: %q", id)
	}

	record.Annotation = AnnotationRefSeq
	id, err = record.FeatureID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "b0001" {
		t.Fatalf("unexpected ID: %q", id)
	}

	record.Annotation = "RAST"
	if _, err := record.FeatureID(); err == nil {
		t.Fatal("expected an error for an unsupported annotation")
	}
}
