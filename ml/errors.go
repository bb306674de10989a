package ml

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAttribute      = errors.New("missing attribute")
	ErrUnknownCategoryValue  = errors.New("unknown category value")
	ErrInvalidNumericValue   = errors.New("invalid numeric value")
	ErrUnknownPredictedClass = errors.New("unknown predicted class")
	ErrArtifactLoad          = errors.New("artifact load failure")
)

// InputError reports a request value the pipeline could not encode.
type InputError struct {
	Err       error
	Attribute string
	Value     string
}

func (e *InputError) Error() string {
	if errors.Is(e.Err, ErrMissingAttribute) {
		return fmt.Sprintf("%v: %s", e.Err, e.Attribute)
	}
	return fmt.Sprintf("%v for %s: %q", e.Err, e.Attribute, e.Value)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the request rather than by the service.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

// ArtifactError reports a model, scaler or encoder file that could not be used.
// It matches both ErrArtifactLoad and the underlying cause.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrArtifactLoad, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() []error {
	return []error{ErrArtifactLoad, e.Err}
}

func artifactError(path string, err error) error {
	if err == nil {
		return nil
	}
	return &ArtifactError{Path: path, Err: err}
}
