package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// StandardScaler is a fitted z-score transform: (x - mean) / scale per feature.
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// FitStandardScaler computes the population mean and deviation of every column.
// Constant columns get a scale of 1.
func FitStandardScaler(names []string, rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("rows is empty")
	}
	width := len(names)
	mean := make([]float64, width)
	scale := make([]float64, width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), width)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			diff := v - mean[j]
			scale[j] += diff * diff
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return &StandardScaler{
		FeatureNames: append([]string(nil), names...),
		Mean:         mean,
		Scale:        scale,
	}, nil
}

// Transform returns a scaled copy of vector.
func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if len(vector) != len(s.Mean) {
		return nil, fmt.Errorf("vector has %d values, scaler expects %d", len(vector), len(s.Mean))
	}
	result := make([]float64, len(vector))
	for i, v := range vector {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		result[i] = (v - s.Mean[i]) / scale
	}
	return result, nil
}

// Validate checks the scaler was fitted on the feature definition, in order.
func (s *StandardScaler) Validate() error {
	names := FeatureNames()
	if len(s.Mean) != len(names) || len(s.Scale) != len(names) {
		return fmt.Errorf("scaler has %d means and %d scales, expected %d", len(s.Mean), len(s.Scale), len(names))
	}
	if len(s.FeatureNames) != len(names) {
		return fmt.Errorf("scaler has %d feature names, expected %d", len(s.FeatureNames), len(names))
	}
	for i, name := range names {
		if s.FeatureNames[i] != name {
			return fmt.Errorf("scaler feature %d is %s, expected %s", i, s.FeatureNames[i], name)
		}
	}
	return nil
}

func LoadStandardScaler(path string) (*StandardScaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scaler StandardScaler
	if err := json.Unmarshal(payload, &scaler); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	return &scaler, nil
}

func (s *StandardScaler) Save(path string) error {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload)
}
