// Package loop runs the capture -> classify -> publish cycle.
//
// Each cycle takes the next camera frame, crops it to the latest face region
// (when a face cell is configured), resizes and normalizes it into a
// 1 x H x W x 3 tensor, runs the classifier and publishes the top label.
// Only one inference is ever in flight: the next cycle is scheduled after
// the previous one has returned.
//
// Example usage:
//
//	cfg := loop.DefaultConfig()
//	cfg.Normalization = frame.NormalizeSigned
//	l, err := loop.New(cfg, cam, provider, faces, store)
//	if err != nil {
//	    return err
//	}
//	l.Start(ctx)
//	defer l.Stop()
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/debug"
	"github.com/teslashibe/go-drowsy/pkg/face"
	"github.com/teslashibe/go-drowsy/pkg/frame"
)

// Outcome is what one cycle did.
type Outcome int

const (
	// OutcomePublished means a prediction was published.
	OutcomePublished Outcome = iota
	// OutcomeNotReady means the model was not loaded yet.
	OutcomeNotReady
	// OutcomeNoFrame means the source had no frame.
	OutcomeNoFrame
	// OutcomeNoFace means no usable face region was known.
	OutcomeNoFace
	// OutcomeFailed means preprocessing or Predict failed.
	OutcomeFailed
	// OutcomeCanceled means the loop was stopped mid-cycle.
	OutcomeCanceled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeNoFrame:
		return "no_frame"
	case OutcomeNoFace:
		return "no_face"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// Loop is the frame inference loop.
type Loop struct {
	cfg    Config
	src    frame.Source
	models ModelSource
	faces  *face.Cell
	pub    Publisher
	pre    *frame.Preprocessor
	logger *slog.Logger

	// step serializes cycles; the preprocessor buffer is reused across them
	step  sync.Mutex
	cycle atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	session string
	stats   Stats
}

// New creates a loop. faces may be nil to classify whole frames.
func New(cfg Config, src frame.Source, models ModelSource, faces *face.Cell, pub Publisher, opts ...Option) (*Loop, error) {
	if cfg.IdleBackoff == 0 {
		cfg.IdleBackoff = DefaultIdleBackoff
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case src == nil:
		return nil, ErrNoSource
	case models == nil:
		return nil, ErrNoModelSource
	case pub == nil:
		return nil, ErrNoPublisher
	}

	pre, err := frame.NewPreprocessor(cfg.Width, cfg.Height, cfg.Normalization)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		cfg:    cfg,
		src:    src,
		models: models,
		faces:  faces,
		pub:    pub,
		pre:    pre,
		logger: log.Component("loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the loop configuration.
func (l *Loop) Config() Config {
	return l.cfg
}

// Start runs cycles on a new goroutine until Stop is called or ctx ends.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.session = uuid.NewString()
	l.stats.Session = l.session
	l.stats.StartedAt = time.Now()

	l.logger.Info("inference loop started",
		"session", l.session,
		"input", []int{l.cfg.Height, l.cfg.Width},
		"normalization", l.cfg.Normalization.String(),
		"interval", l.cfg.Interval,
		"face_crop", l.faces != nil,
	)

	go l.run(ctx, done)
	return nil
}

// Stop cancels the pending cycle and waits for the loop goroutine to exit.
// No Predict call starts after Stop returns. Stop is safe to call more than
// once and before Start.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done, session := l.cancel, l.done, l.session
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Info("inference loop stopped", "session", session)
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Wait blocks until the loop goroutine exits or ctx ends.
func (l *Loop) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		out := l.Step(ctx)
		if out == OutcomeCanceled || ctx.Err() != nil {
			l.clearIfCurrent(done)
			return
		}

		wait := l.cfg.Interval
		if out != OutcomePublished && wait < l.cfg.IdleBackoff {
			wait = l.cfg.IdleBackoff
		}
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			l.clearIfCurrent(done)
			return
		case <-timer.C:
		}
	}
}

// clearIfCurrent marks the loop stopped when it ended on its own (parent
// context canceled) rather than through Stop.
func (l *Loop) clearIfCurrent(done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == done {
		l.cancel()
		l.cancel = nil
		l.done = nil
	}
}

// Step runs exactly one cycle. Start calls it repeatedly; tests and
// single-shot tools call it directly.
func (l *Loop) Step(ctx context.Context) Outcome {
	l.step.Lock()
	defer l.step.Unlock()

	cycle := l.cycle.Add(1)
	start := time.Now()
	p, out, err := l.classify(ctx, cycle)

	if err != nil {
		l.logger.Warn("inference failed", "cycle", cycle, "error", err)
	}
	if out == OutcomePublished {
		l.pub.Publish(p)
	}
	l.record(out, p, err)

	debug.CycleLog("cycle",
		"cycle", cycle,
		"outcome", out.String(),
		"label", p.Label,
		"took", time.Since(start),
	)
	return out
}

func (l *Loop) classify(ctx context.Context, cycle uint64) (Prediction, Outcome, error) {
	if ctx.Err() != nil {
		return Prediction{}, OutcomeCanceled, nil
	}

	m, ok := l.models.Model()
	if !ok {
		return Prediction{}, OutcomeNotReady, nil
	}

	f, err := l.src.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Prediction{}, OutcomeCanceled, nil
		}
		if !errors.Is(err, frame.ErrNoFrame) {
			l.logger.Warn("frame source error", "cycle", cycle, "error", err)
		}
		return Prediction{}, OutcomeNoFrame, nil
	}
	defer f.Release()
	if f == nil || f.Image == nil {
		return Prediction{}, OutcomeNoFrame, nil
	}

	img := f.Image
	var (
		region    face.Region
		hasRegion bool
	)
	if l.faces != nil {
		region, hasRegion = l.faces.Load()
		if !hasRegion {
			return Prediction{}, OutcomeNoFace, nil
		}
		cropped, clamped, ok := frame.Crop(img, region.Box)
		if !ok {
			return Prediction{}, OutcomeNoFace, nil
		}
		img = cropped
		region.Box = clamped
	}

	input, err := l.pre.Tensor(img)
	if err != nil {
		return Prediction{}, OutcomeFailed, &InferenceError{Cycle: cycle, Err: err}
	}

	// last chance to honor Stop before the model is invoked
	if ctx.Err() != nil {
		return Prediction{}, OutcomeCanceled, nil
	}

	pctx := ctx
	if l.cfg.PredictTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, l.cfg.PredictTimeout)
		defer cancel()
	}

	scores, err := m.Predict(pctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return Prediction{}, OutcomeCanceled, nil
		}
		return Prediction{}, OutcomeFailed, &InferenceError{Cycle: cycle, Err: err}
	}
	if err := l.cfg.Labels.Check(len(scores)); err != nil {
		return Prediction{}, OutcomeFailed, &InferenceError{Cycle: cycle, Err: err}
	}

	p := newPrediction(l.cfg.Labels, scores)
	p.Region = region
	p.HasRegion = hasRegion
	p.Cycle = cycle
	p.FrameSeq = f.Seq
	p.At = time.Now()
	return p, OutcomePublished, nil
}
