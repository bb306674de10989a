package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
)

// Artifact file names inside the artifact directory.
const (
	ModelFile    = "model.json"
	ScalerFile   = "scaler.json"
	EncodersFile = "encoders.json"
)

// Artifacts is one consistent, immutable set of model, scaler and encoders.
type Artifacts struct {
	Model    Classifier
	Info     ModelInfo
	Scaler   *StandardScaler
	Encoders *Encoders
	LoadedAt time.Time

	generation uint64
}

// Generation counts swaps in the registry that published this set.
func (a *Artifacts) Generation() uint64 {
	return a.generation
}

// LoadArtifacts reads and validates the three artifacts in dir. Any failure is an ArtifactError.
func LoadArtifacts(dir string) (*Artifacts, error) {
	modelPath := filepath.Join(dir, ModelFile)
	scalerPath := filepath.Join(dir, ScalerFile)
	encodersPath := filepath.Join(dir, EncodersFile)

	model, info, modelErr := LoadModel(modelPath)
	scaler, scalerErr := LoadStandardScaler(scalerPath)
	encoders, encodersErr := LoadEncoders(encodersPath)
	if err := multierr.Combine(
		artifactError(modelPath, modelErr),
		artifactError(scalerPath, scalerErr),
		artifactError(encodersPath, encodersErr),
	); err != nil {
		return nil, err
	}

	artifacts := &Artifacts{
		Model:    model,
		Info:     info,
		Scaler:   scaler,
		Encoders: encoders,
		LoadedAt: time.Now(),
	}
	if err := artifacts.Validate(); err != nil {
		return nil, artifactError(dir, err)
	}
	return artifacts, nil
}

// Validate checks the artifacts fit the feature definition and each other.
func (a *Artifacts) Validate() error {
	var err error
	err = multierr.Append(err, wrapInvalid("model", a.Model.Validate(FeatureCount)))
	err = multierr.Append(err, wrapInvalid("scaler", a.Scaler.Validate()))
	err = multierr.Append(err, wrapInvalid("encoders", a.Encoders.Validate()))
	for _, class := range a.Model.Classes() {
		if _, labelErr := a.Encoders.LabelFor(class); labelErr != nil {
			err = multierr.Append(err, fmt.Errorf("model class %d has no label", class))
		}
	}
	return err
}

func wrapInvalid(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", what, err)
}

type savableModel interface {
	Save(path string) error
}

// Save writes the artifacts into dir, creating it if needed.
func (a *Artifacts) Save(dir string) error {
	model, ok := a.Model.(savableModel)
	if !ok {
		return fmt.Errorf("model %T cannot be saved", a.Model)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := a.Scaler.Save(filepath.Join(dir, ScalerFile)); err != nil {
		return err
	}
	if err := a.Encoders.Save(filepath.Join(dir, EncodersFile)); err != nil {
		return err
	}
	// the watcher reloads on model.json only, so it goes last
	return model.Save(filepath.Join(dir, ModelFile))
}

// writeFileAtomic replaces path through a rename so readers never see a partial file.
func writeFileAtomic(path string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
