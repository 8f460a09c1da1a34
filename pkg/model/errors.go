package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoWeights is returned when a Source names no weights artifact.
	ErrNoWeights = errors.New("model: weights artifact required")

	// ErrAlreadyLoaded is returned when Load is called on a Ready provider.
	ErrAlreadyLoaded = errors.New("model: already loaded")

	// ErrLoadInProgress is returned when Load is called while loading.
	ErrLoadInProgress = errors.New("model: load in progress")

	// ErrLoadFailed is returned when Load is called after a failed load.
	ErrLoadFailed = errors.New("model: previous load failed")

	// ErrNotReady is returned by Wait when the model never became ready.
	ErrNotReady = errors.New("model: not ready")

	// ErrNoLabels is returned when label metadata holds no labels.
	ErrNoLabels = errors.New("model: no labels")
)

// LoadError wraps a failure to load a Source.
type LoadError struct {
	Source Source
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("model: load %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ShapeError reports an output vector that does not match the label set.
type ShapeError struct {
	Want int
	Got  int
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("model: output has %d values, label set has %d", e.Got, e.Want)
}
