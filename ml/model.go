package ml

// Classifier predicts an integer class from a scaled feature vector.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
	// Classes lists every class the model can emit.
	Classes() []int
	// Validate checks the model accepts vectors of the given width.
	Validate(numFeatures int) error
}

// ModelInfo is the envelope shared by every model artifact.
type ModelInfo struct {
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
}
