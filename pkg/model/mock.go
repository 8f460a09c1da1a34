package model

import (
	"context"
	"sync"
	"sync/atomic"

	"gorgonia.org/tensor"
)

// Mock implements Model for testing.
type Mock struct {
	// PredictFunc is called when Predict is invoked.
	PredictFunc func(ctx context.Context, input *tensor.Dense) ([]float32, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	predicts atomic.Int64
	closed   atomic.Bool

	mu        sync.Mutex
	lastShape []int
}

// NewMock creates a mock that always returns scores.
func NewMock(scores ...float32) *Mock {
	return &Mock{
		PredictFunc: func(ctx context.Context, input *tensor.Dense) ([]float32, error) {
			out := make([]float32, len(scores))
			copy(out, scores)
			return out, nil
		},
	}
}

// WithError returns a mock whose Predict always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		PredictFunc: func(ctx context.Context, input *tensor.Dense) ([]float32, error) {
			return nil, err
		},
	}
}

// Predict calls PredictFunc and records the call.
func (m *Mock) Predict(ctx context.Context, input *tensor.Dense) ([]float32, error) {
	m.predicts.Add(1)
	if input != nil {
		m.mu.Lock()
		m.lastShape = append(m.lastShape[:0], input.Shape()...)
		m.mu.Unlock()
	}
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, input)
	}
	return nil, ErrNotReady
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.closed.Store(true)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Predicts returns the number of Predict calls.
func (m *Mock) Predicts() int {
	return int(m.predicts.Load())
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	return m.closed.Load()
}

// LastShape returns the shape of the most recent input.
func (m *Mock) LastShape() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.lastShape...)
}

// MockLoader returns model (or err) from every Load and records the sources.
// Block, when set, is waited on before returning, to hold a load in progress.
type MockLoader struct {
	Model Model
	Err   error
	Block chan struct{}

	mu      sync.Mutex
	sources []Source
}

// Load implements Loader.
func (l *MockLoader) Load(ctx context.Context, src Source) (Model, error) {
	l.mu.Lock()
	l.sources = append(l.sources, src)
	l.mu.Unlock()

	if l.Block != nil {
		select {
		case <-l.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Model, nil
}

// Sources returns the sources passed to Load.
func (l *MockLoader) Sources() []Source {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Source(nil), l.sources...)
}

// Verify mocks implement the interfaces at compile time.
var (
	_ Model  = (*Mock)(nil)
	_ Loader = (*MockLoader)(nil)
)
