package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	ModelTypeDecisionTree       = "decision_tree"
	ModelTypeLogisticRegression = "logistic_regression"
)

// LoadModel reads a model artifact and dispatches on its "type" field.
func LoadModel(path string) (Classifier, ModelInfo, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, ModelInfo{}, err
	}
	var info ModelInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, ModelInfo{}, fmt.Errorf("decode model: %w", err)
	}

	switch info.Type {
	case ModelTypeDecisionTree:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, info, err
		}
		return model, info, nil
	case ModelTypeLogisticRegression:
		model := &LogisticRegression{}
		if err := model.Load(path); err != nil {
			return nil, info, err
		}
		return model, info, nil
	default:
		return nil, info, fmt.Errorf("unsupported model type %q", info.Type)
	}
}
