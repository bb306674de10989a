package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
)

// LabelColumn is the CSV column holding the target category.
const LabelColumn = "label"

// TrainingSet is an encoded dataset: one unscaled vector and one label per row.
type TrainingSet struct {
	Vectors [][]float64
	Labels  []string
}

// ReadTrainingCSV reads a dataset whose header names every attribute plus LabelColumn.
// Values use the same vocabulary as the web form.
func ReadTrainingCSV(r io.Reader) (*TrainingSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	labelIdx, ok := columns[LabelColumn]
	if !ok {
		return nil, fmt.Errorf("header has no %q column", LabelColumn)
	}
	for _, name := range FeatureNames() {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("header has no %q column", name)
		}
	}

	set := &TrainingSet{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		input := make(map[string]string, len(columns))
		for name, idx := range columns {
			input[name] = record[idx]
		}
		vector, err := Encode(input)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		label := strings.TrimSpace(record[labelIdx])
		if label == "" {
			return nil, fmt.Errorf("line %d: empty label", line)
		}
		set.Vectors = append(set.Vectors, vector)
		set.Labels = append(set.Labels, label)
	}
	if len(set.Vectors) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return set, nil
}

// TrainArtifacts fits the label encoder and scaler on set and trains a decision tree on the
// scaled vectors.
func TrainArtifacts(set *TrainingSet, maxDepth int, version string) (*Artifacts, error) {
	if set == nil || len(set.Vectors) == 0 {
		return nil, errors.New("training set is empty")
	}
	encoders := NewEncoders(FitLabelEncoder(set.Labels))

	classes := make([]int, len(set.Labels))
	for i, label := range set.Labels {
		code, _ := encoders.LabelCode(label)
		classes[i] = code
	}

	scaler, err := FitStandardScaler(FeatureNames(), set.Vectors)
	if err != nil {
		return nil, err
	}
	scaled := make([][]float64, len(set.Vectors))
	for i, vector := range set.Vectors {
		if scaled[i], err = scaler.Transform(vector); err != nil {
			return nil, err
		}
	}

	model := &DecisionTree{Version: version}
	if err := model.Train(scaled, classes, maxDepth); err != nil {
		return nil, err
	}

	artifacts := &Artifacts{
		Model:    model,
		Info:     ModelInfo{Type: ModelTypeDecisionTree, Version: version},
		Scaler:   scaler,
		Encoders: encoders,
	}
	if err := artifacts.Validate(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// Split shuffles the rows with seed and holds out testRatio of them. A ratio outside (0, 1)
// falls back to 0.2.
func (s *TrainingSet) Split(testRatio float64, seed int64) (train, test *TrainingSet) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(s.Vectors))

	split := int(math.Round(float64(len(s.Vectors)) * (1 - testRatio)))
	train, test = &TrainingSet{}, &TrainingSet{}
	for i, idx := range indices {
		target := test
		if i < split {
			target = train
		}
		target.Vectors = append(target.Vectors, s.Vectors[idx])
		target.Labels = append(target.Labels, s.Labels[idx])
	}
	return train, test
}

// Accuracy is the share of rows in set whose predicted label matches.
func Accuracy(artifacts *Artifacts, set *TrainingSet) (float64, error) {
	if set == nil || len(set.Vectors) == 0 {
		return 0, errors.New("evaluation set is empty")
	}
	correct := 0
	for i, vector := range set.Vectors {
		prediction, err := Infer(artifacts, vector)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if prediction.Label == set.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(set.Vectors)), nil
}
