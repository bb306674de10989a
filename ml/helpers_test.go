package ml

import (
	"testing"
)

var testLabels = []string{
	"insufficient_weight",
	"normal_weight",
	"obesity_type_I",
	"obesity_type_II",
	"obesity_type_III",
	"overweight",
}

// sampleInput is the reference request: a 25 year old, 175cm, 70kg man.
func sampleInput() map[string]string {
	return map[string]string{
		AttrGender:          "Male",
		AttrAge:             "25",
		AttrHeight:          "175",
		AttrWeight:          "70",
		AttrFamilyHistory:   "yes",
		AttrHighCaloricFood: "no",
		AttrVegetables:      "sometimes",
		AttrMainMeals:       "3",
		AttrSnacks:          "sometimes",
		AttrSmoking:         "no",
		AttrAlcohol:         "no",
		AttrWater:           "1-2L",
		AttrMonitor:         "no",
		AttrExercise:        "1-2 days",
		AttrDevices:         "0-2 hours",
		AttrTransport:       "public",
	}
}

func testScaler() *StandardScaler {
	mean := make([]float64, FeatureCount)
	scale := make([]float64, FeatureCount)
	for i := range scale {
		scale[i] = 1
	}
	mean[1], scale[1] = 24, 6
	mean[2], scale[2] = 170, 10
	mean[3], scale[3] = 86, 26
	return &StandardScaler{FeatureNames: FeatureNames(), Mean: mean, Scale: scale}
}

// testLogistic scores each class by how far the scaled weight sits from the class centre.
func testLogistic() *LogisticRegression {
	centres := []float64{-1.5, -0.5, 1, 1.5, 2, 0.25}
	coef := make([][]float64, len(centres))
	intercept := make([]float64, len(centres))
	classes := make([]int, len(centres))
	for i, c := range centres {
		row := make([]float64, FeatureCount)
		row[3] = 2 * c
		row[2] = -0.1 * c
		coef[i] = row
		intercept[i] = -c * c
		classes[i] = i
	}
	return &LogisticRegression{Version: "test-1", ClassLabels: classes, Coef: coef, Intercept: intercept}
}

func testArtifacts(t *testing.T) *Artifacts {
	t.Helper()
	model := testLogistic()
	artifacts := &Artifacts{
		Model:    model,
		Info:     ModelInfo{Type: ModelTypeLogisticRegression, Version: model.Version},
		Scaler:   testScaler(),
		Encoders: NewEncoders(testLabels),
	}
	if err := artifacts.Validate(); err != nil {
		t.Fatalf("invalid test artifacts: %v", err)
	}
	return artifacts
}
