package ml

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoised predictions.
const DefaultCacheSize = 1024

// Prediction is the outcome of one pipeline run.
type Prediction struct {
	Label      string
	Class      int
	Confidence float64
	// Vector is the encoded, unscaled feature vector.
	Vector  []float64
	Version string
}

// Pipeline turns raw attribute values into a label using the registry's current artifacts.
type Pipeline struct {
	registry *Registry
	cache    *lru.Cache[string, Prediction]
}

// NewPipeline creates a pipeline. A cacheSize of zero or less disables memoisation.
func NewPipeline(registry *Registry, cacheSize int) (*Pipeline, error) {
	p := &Pipeline{registry: registry}
	if cacheSize > 0 {
		cache, err := lru.New[string, Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
		registry.OnSwap(func(*Artifacts) { cache.Purge() })
	}
	return p, nil
}

func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Predict runs the pipeline for input, keyed by attribute name.
func (p *Pipeline) Predict(ctx context.Context, input map[string]string) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	artifacts := p.registry.Current()
	if artifacts == nil {
		return nil, errors.New("no artifacts loaded")
	}

	vector, err := Encode(input)
	if err != nil {
		return nil, err
	}

	var key string
	if p.cache != nil {
		key = cacheKey(artifacts.generation, vector)
		if cached, ok := p.cache.Get(key); ok {
			return clonePrediction(cached), nil
		}
	}

	prediction, err := Infer(artifacts, vector)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Add(key, *clonePrediction(*prediction))
	}
	return prediction, nil
}

// Encode builds the feature vector for input in feature definition order.
func Encode(input map[string]string) ([]float64, error) {
	vector := make([]float64, 0, len(schema))
	for _, attr := range schema {
		raw, ok := input[attr.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return nil, &InputError{Err: ErrMissingAttribute, Attribute: attr.Name}
		}

		switch attr.Kind {
		case Categorical:
			code, ok := attr.Table.Code(raw)
			if !ok {
				return nil, &InputError{Err: ErrUnknownCategoryValue, Attribute: attr.Name, Value: raw}
			}
			vector = append(vector, float64(code))
		default:
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, &InputError{Err: ErrInvalidNumericValue, Attribute: attr.Name, Value: raw}
			}
			vector = append(vector, value)
		}
	}
	return vector, nil
}

// Infer scales vector, classifies it and resolves the label.
func Infer(artifacts *Artifacts, vector []float64) (*Prediction, error) {
	scaled, err := artifacts.Scaler.Transform(vector)
	if err != nil {
		return nil, err
	}
	class, confidence, err := artifacts.Model.Predict(scaled)
	if err != nil {
		return nil, err
	}
	label, err := artifacts.Encoders.LabelFor(class)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Label:      label,
		Class:      class,
		Confidence: confidence,
		Vector:     append([]float64(nil), vector...),
		Version:    artifacts.Info.Version,
	}, nil
}

func cacheKey(generation uint64, vector []float64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(generation, 10))
	for _, v := range vector {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

func clonePrediction(p Prediction) *Prediction {
	p.Vector = append([]float64(nil), p.Vector...)
	return &p
}
