// Package model loads the drowsiness classifier and tracks whether it is
// ready to serve predictions.
//
// Loading is an explicit state machine:
//
//	Unloaded -> Loading -> Ready
//	                    -> Failed
//
// A failed load is terminal; the provider never retries on its own.
//
// Example usage:
//
//	p := model.NewProvider(dnn.NewLoader())
//	p.LoadAsync(ctx, model.Local("models/drowsy.onnx", ""))
//
//	if m, ok := p.Model(); ok {
//	    scores, err := m.Predict(ctx, input)
//	}
package model

import (
	"context"
	"fmt"

	"gorgonia.org/tensor"
)

// Model is a loaded classifier.
type Model interface {
	// Predict runs one batch-of-one input (1 x H x W x 3) and returns the
	// raw output vector, one value per label.
	Predict(ctx context.Context, input *tensor.Dense) ([]float32, error)

	// Close releases runtime resources.
	Close() error
}

// Loader turns a Source into a Model.
type Loader interface {
	Load(ctx context.Context, src Source) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, src Source) (Model, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, src Source) (Model, error) {
	return f(ctx, src)
}

// Location says where model artifacts live.
type Location int

const (
	// LocationLocal reads artifacts from the filesystem.
	LocationLocal Location = iota
	// LocationRemote downloads artifacts over HTTP(S).
	LocationRemote
)

// String returns the location name.
func (l Location) String() string {
	if l == LocationRemote {
		return "remote"
	}
	return "local"
}

// Source names a model artifact pair: the network weights and an optional
// topology/config descriptor, either bundled locally or behind two URLs.
type Source struct {
	Location Location

	// Weights is the path or URL of the binary weights (e.g. model.onnx).
	Weights string

	// Topology is the path or URL of the descriptor; empty for
	// single-file formats such as ONNX.
	Topology string

	// Framework hints the runtime ("onnx", "tensorflow", "caffe", ...).
	// Empty means infer from the weights file extension.
	Framework string
}

// Local returns a Source for bundled artifacts.
func Local(weights, topology string) Source {
	return Source{Location: LocationLocal, Weights: weights, Topology: topology}
}

// Remote returns a Source for artifacts behind URLs.
func Remote(weightsURL, topologyURL string) Source {
	return Source{Location: LocationRemote, Weights: weightsURL, Topology: topologyURL}
}

// Validate checks that the source names at least the weights.
func (s Source) Validate() error {
	if s.Weights == "" {
		return ErrNoWeights
	}
	return nil
}

// String describes the source for logs.
func (s Source) String() string {
	if s.Topology == "" {
		return fmt.Sprintf("%s:%s", s.Location, s.Weights)
	}
	return fmt.Sprintf("%s:%s+%s", s.Location, s.Weights, s.Topology)
}

// State is the provider load state.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
