package nn

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrMissingHParam = errors.New("missing hyperparameter")
	ErrInvalidHParam = errors.New("invalid hyperparameter")
	ErrParamCount    = errors.New("parameter count mismatch")
	ErrShapeMismatch = errors.New("input shape mismatch")
	ErrNotLoaded     = errors.New("parameters not loaded")
	ErrUnknownLayer  = errors.New("unknown layer type")
	ErrNonFinite     = errors.New("non-finite input value")
)

// HParamError describes a hyperparameter that is absent or unusable.
type HParamError struct {
	Key   string // Hyperparameter key
	Value string // Offending value, empty when the key is missing
	Err   error  // ErrMissingHParam or ErrInvalidHParam, possibly wrapping a parse error
}

// Error implements the error interface.
func (e *HParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("hyperparameter %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("hyperparameter %q=%q: %v", e.Key, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *HParamError) Unwrap() error {
	return e.Err
}

// LayerError attributes a failure to a position in a pipeline.
type LayerError struct {
	Index int    // Position of the layer in the pipeline
	Type  string // Layer type name
	Err   error
}

// Error implements the error interface.
func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %d (%s): %v", e.Index, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *LayerError) Unwrap() error {
	return e.Err
}

func invalidHParam(key, value string, cause error) *HParamError {
	if cause == nil {
		return &HParamError{Key: key, Value: value, Err: ErrInvalidHParam}
	}
	return &HParamError{Key: key, Value: value, Err: fmt.Errorf("%w: %w", ErrInvalidHParam, cause)}
}
