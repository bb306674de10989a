package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LogisticRegression is a fitted linear classifier. A binary model carries a single
// coefficient row; a multinomial model carries one row per class.
type LogisticRegression struct {
	Version     string      `json:"-"`
	ClassLabels []int       `json:"classes"`
	Coef        [][]float64 `json:"coef"`
	Intercept   []float64   `json:"intercept"`
}

type logisticFile struct {
	ModelInfo
	*LogisticRegression
}

func (m *LogisticRegression) Predict(features []float64) (int, float64, error) {
	if len(m.Coef) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	scores := make([]float64, len(m.Coef))
	for i, row := range m.Coef {
		if len(row) != len(features) {
			return 0, 0, fmt.Errorf("model expects %d features, got %d", len(row), len(features))
		}
		z := m.Intercept[i]
		for j, w := range row {
			z += w * features[j]
		}
		scores[i] = z
	}

	if len(scores) == 1 {
		p := 1 / (1 + math.Exp(-scores[0]))
		if p > 0.5 {
			return m.ClassLabels[1], p, nil
		}
		return m.ClassLabels[0], 1 - p, nil
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	// softmax relative to the max keeps exp from overflowing
	sum := 0.0
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return m.ClassLabels[best], 1 / sum, nil
}

func (m *LogisticRegression) Classes() []int {
	return append([]int(nil), m.ClassLabels...)
}

func (m *LogisticRegression) Validate(numFeatures int) error {
	if len(m.Coef) == 0 {
		return errors.New("model has no coefficients")
	}
	if len(m.Intercept) != len(m.Coef) {
		return fmt.Errorf("model has %d intercepts for %d coefficient rows", len(m.Intercept), len(m.Coef))
	}
	switch {
	case len(m.Coef) == 1 && len(m.ClassLabels) != 2:
		return fmt.Errorf("binary model needs 2 classes, has %d", len(m.ClassLabels))
	case len(m.Coef) > 1 && len(m.ClassLabels) != len(m.Coef):
		return fmt.Errorf("model has %d classes for %d coefficient rows", len(m.ClassLabels), len(m.Coef))
	}
	for i, row := range m.Coef {
		if len(row) != numFeatures {
			return fmt.Errorf("coefficient row %d has %d weights, expected %d", i, len(row), numFeatures)
		}
	}
	return nil
}

func (m *LogisticRegression) Save(path string) error {
	payload, err := json.MarshalIndent(logisticFile{
		ModelInfo:          ModelInfo{Type: ModelTypeLogisticRegression, Version: m.Version},
		LogisticRegression: m,
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload)
}

func (m *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file := logisticFile{LogisticRegression: m}
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	m.Version = file.ModelInfo.Version
	return nil
}
