package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/multierr"
)

// Encoders holds the fitted categorical encoders. Each list is the encoder's classes:
// the code of a value is its index.
type Encoders struct {
	Features map[string][]string `json:"features,omitempty"`
	Label    []string            `json:"label"`
}

// FitLabelEncoder returns the sorted distinct labels, the class list of a fitted label encoder.
func FitLabelEncoder(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		classes = append(classes, label)
	}
	sort.Strings(classes)
	return classes
}

// NewEncoders builds encoders for the built-in tables plus the given label classes.
func NewEncoders(labelClasses []string) *Encoders {
	features := make(map[string][]string)
	for _, attr := range schema {
		if attr.Kind == Categorical {
			features[attr.Name] = attr.Table.Values()
		}
	}
	return &Encoders{Features: features, Label: append([]string(nil), labelClasses...)}
}

// LabelFor maps a predicted class back to its label.
func (e *Encoders) LabelFor(class int) (string, error) {
	if class < 0 || class >= len(e.Label) {
		return "", fmt.Errorf("%w: %d", ErrUnknownPredictedClass, class)
	}
	return e.Label[class], nil
}

// LabelCode maps a label to its class.
func (e *Encoders) LabelCode(label string) (int, bool) {
	for i, l := range e.Label {
		if l == label {
			return i, true
		}
	}
	return 0, false
}

// Validate checks every feature encoder against the built-in encoding tables.
func (e *Encoders) Validate() error {
	var err error
	if len(e.Label) == 0 {
		err = multierr.Append(err, errors.New("label encoder has no classes"))
	}
	for name, classes := range e.Features {
		attr, ok := LookupAttribute(name)
		if !ok {
			err = multierr.Append(err, fmt.Errorf("encoder for unknown attribute %s", name))
			continue
		}
		if attr.Kind != Categorical {
			err = multierr.Append(err, fmt.Errorf("encoder for numeric attribute %s", name))
			continue
		}
		err = multierr.Append(err, compareVocabulary(attr, classes))
	}
	return err
}

func compareVocabulary(attr Attribute, classes []string) error {
	expected := attr.Table.Values()
	if len(classes) != len(expected) {
		return fmt.Errorf("encoder %s has %d classes, expected %d", attr.Name, len(classes), len(expected))
	}
	for code, value := range expected {
		if classes[code] != value {
			return fmt.Errorf("encoder %s maps %q to %d, expected %q", attr.Name, classes[code], code, value)
		}
	}
	return nil
}

func LoadEncoders(path string) (*Encoders, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var encoders Encoders
	if err := json.Unmarshal(payload, &encoders); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}
	return &encoders, nil
}

func (e *Encoders) Save(path string) error {
	payload, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload)
}
