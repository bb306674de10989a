package pipeline

import (
	"testing"

	"obesityweb/ml"
)

func vector(age, height, weight float64) []float64 {
	v := make([]float64, ml.FeatureCount)
	v[1], v[2], v[3] = age, height, weight
	return v
}

func TestNewDataCleaner(t *testing.T) {
	cleaner := NewDataCleaner(nil)
	if cleaner == nil {
		t.Fatal("NewDataCleaner returned nil")
	}

	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestRangeValidationRule(t *testing.T) {
	rule := NewRangeValidationRule()

	tests := []struct {
		name    string
		row     *Row
		wantErr bool
	}{
		{name: "valid row", row: &Row{Vector: vector(25, 175, 70)}, wantErr: false},
		{name: "age too high", row: &Row{Vector: vector(130, 175, 70)}, wantErr: true},
		{name: "height too low", row: &Row{Vector: vector(25, 20, 70)}, wantErr: true},
		{name: "weight too high", row: &Row{Vector: vector(25, 175, 900)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rule.Apply(tt.row)
			if (err != nil) != tt.wantErr {
				t.Errorf("Apply() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeightUnitRule(t *testing.T) {
	rule := NewHeightUnitRule()

	row := &Row{Vector: vector(25, 1.75, 70)}
	corrected, err := rule.Apply(row)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if corrected.Vector[2] != 175 {
		t.Errorf("Expected height 175, got %v", corrected.Vector[2])
	}
	if row.Vector[2] != 1.75 {
		t.Error("Apply must not modify the input row")
	}

	row = &Row{Vector: vector(25, 175, 70)}
	unchanged, _ := rule.Apply(row)
	if unchanged != row {
		t.Error("Heights in centimetres should pass through")
	}
}

func TestDuplicateDetectionRule(t *testing.T) {
	rule := NewDuplicateDetectionRule()

	t.Run("first row", func(t *testing.T) {
		_, err := rule.Apply(&Row{Line: 2, Vector: vector(25, 175, 70), Label: "normal_weight"})
		if err != nil {
			t.Errorf("First row should not be duplicate, got error: %v", err)
		}
	})

	t.Run("same features, other label", func(t *testing.T) {
		_, err := rule.Apply(&Row{Line: 3, Vector: vector(25, 175, 70), Label: "overweight"})
		if err != nil {
			t.Errorf("Different label should not be duplicate, got error: %v", err)
		}
	})

	t.Run("duplicate row", func(t *testing.T) {
		_, err := rule.Apply(&Row{Line: 4, Vector: vector(25, 175, 70), Label: "normal_weight"})
		if err == nil {
			t.Error("Duplicate row should return error")
		}
	})
}

func TestDataCleaner_Clean(t *testing.T) {
	cleaner := NewDataCleaner(nil)
	set := &ml.TrainingSet{
		Vectors: [][]float64{
			vector(25, 175, 70),
			vector(30, 1.62, 80),
			vector(25, 175, 70),
			vector(40, 170, 1000),
		},
		Labels: []string{"normal_weight", "overweight", "normal_weight", "obesity_type_III"},
	}

	cleaned, issues := cleaner.Clean(set)

	if len(cleaned.Vectors) != 2 {
		t.Fatalf("Expected 2 cleaned rows, got %d", len(cleaned.Vectors))
	}
	if cleaned.Vectors[1][2] != 162 {
		t.Errorf("Expected corrected height 162, got %v", cleaned.Vectors[1][2])
	}
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d", len(issues))
	}
	if issues[0].Type != "duplicate_detection" || issues[0].Line != 4 {
		t.Errorf("Unexpected first issue: %+v", issues[0])
	}
	if issues[1].Type != "range_validation" || issues[1].Line != 5 {
		t.Errorf("Unexpected second issue: %+v", issues[1])
	}

	stats := cleaner.GetStats()
	if stats.TotalProcessed != 4 || stats.Passed != 2 || stats.Rejected != 2 || stats.Corrected != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(cleaner.GetIssues(1)) != 1 {
		t.Error("GetIssues(1) should return one issue")
	}
}
