package loop

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start while the loop is active.
	ErrAlreadyRunning = errors.New("loop: already running")

	// ErrNoSource is returned by New without a frame source.
	ErrNoSource = errors.New("loop: frame source is required")

	// ErrNoModelSource is returned by New without a model source.
	ErrNoModelSource = errors.New("loop: model source is required")

	// ErrNoPublisher is returned by New without a publisher.
	ErrNoPublisher = errors.New("loop: publisher is required")
)

// InferenceError is a failed classification in one cycle. The loop logs it,
// keeps the previous label and carries on.
type InferenceError struct {
	Cycle uint64
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("loop: cycle %d: inference failed: %v", e.Cycle, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
