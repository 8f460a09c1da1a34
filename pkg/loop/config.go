package loop

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/model"
)

// DefaultIdleBackoff is one display frame at 60 Hz.
const DefaultIdleBackoff = 16 * time.Millisecond

// Config holds inference loop configuration.
type Config struct {
	// Labels names each model output, in order.
	Labels model.Labels

	// Width and Height are the model input size.
	Width  int
	Height int

	// Normalization maps pixel bytes to model input values. It has no
	// default and must be set.
	Normalization frame.Normalization

	// Interval is the pause after a classified cycle. Zero runs as fast as
	// the source yields frames.
	Interval time.Duration

	// IdleBackoff is the pause after a cycle that did nothing (model not
	// ready, no frame, no face, failed predict) when Interval is shorter.
	IdleBackoff time.Duration

	// PredictTimeout bounds one Predict call. Zero means no bound.
	PredictTimeout time.Duration
}

// DefaultConfig returns the configuration for the bundled 224x224
// classifier. Normalization is left unset on purpose; callers pick one.
func DefaultConfig() Config {
	return Config{
		Labels:      model.DefaultLabels,
		Width:       224,
		Height:      224,
		IdleBackoff: DefaultIdleBackoff,
	}
}

// ThrottledConfig is DefaultConfig with one classification per second.
func ThrottledConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = time.Second
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Labels) == 0 {
		return model.ErrNoLabels
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("loop: invalid input size %dx%d", c.Width, c.Height)
	}
	if c.Normalization == frame.NormalizeUnset {
		return frame.ErrNormalizationUnset
	}
	if c.Interval < 0 || c.IdleBackoff < 0 || c.PredictTimeout < 0 {
		return errors.New("loop: durations must not be negative")
	}
	return nil
}
