package model

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithLoadTimeout bounds a single load. Zero means no bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(p *Provider) { p.loadTimeout = d }
}

// Provider loads one Model and reports its readiness.
// It is safe for concurrent use.
type Provider struct {
	loader      Loader
	logger      *slog.Logger
	loadTimeout time.Duration

	mu        sync.RWMutex
	state     State
	model     Model
	source    Source
	err       error
	closed    bool
	done      chan struct{}
	listeners []func(State)
}

// NewProvider creates an Unloaded provider.
func NewProvider(loader Loader, opts ...Option) *Provider {
	p := &Provider{
		loader: loader,
		logger: log.Component("model"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnStateChange registers fn to be called after every state transition.
// fn runs on the goroutine performing the transition.
func (p *Provider) OnStateChange(fn func(State)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Load loads src. Only an Unloaded provider accepts a load; a failure
// leaves the provider Failed for good.
func (p *Provider) Load(ctx context.Context, src Source) error {
	p.mu.Lock()
	switch p.state {
	case StateLoading:
		p.mu.Unlock()
		return ErrLoadInProgress
	case StateReady:
		p.mu.Unlock()
		return ErrAlreadyLoaded
	case StateFailed:
		p.mu.Unlock()
		return ErrLoadFailed
	}
	p.state = StateLoading
	p.source = src
	p.mu.Unlock()
	p.notify(StateLoading)

	p.logger.Info("loading model", "source", src.String())
	start := time.Now()

	m, err := p.load(ctx, src)

	p.mu.Lock()
	if err != nil {
		p.state = StateFailed
		p.err = &LoadError{Source: src, Err: err}
		err = p.err
	} else if p.closed {
		// Closed while loading; do not hand out the model
		p.state = StateFailed
		p.err = &LoadError{Source: src, Err: errors.New("provider closed")}
		err = p.err
		m.Close()
	} else {
		p.state = StateReady
		p.model = m
	}
	state := p.state
	close(p.done)
	p.mu.Unlock()
	p.notify(state)

	if err != nil {
		p.logger.Error("model load failed", "source", src.String(), "error", err)
		return err
	}
	p.logger.Info("model ready", "source", src.String(), "elapsed", time.Since(start))
	return nil
}

func (p *Provider) load(ctx context.Context, src Source) (Model, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if p.loader == nil {
		return nil, errors.New("no loader configured")
	}
	if p.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.loadTimeout)
		defer cancel()
	}
	m, err := p.loader.Load(ctx, src)
	if err == nil && m == nil {
		err = errors.New("loader returned no model")
	}
	return m, err
}

// LoadAsync runs Load on a new goroutine. Errors are recorded in the
// provider state and available from Err.
func (p *Provider) LoadAsync(ctx context.Context, src Source) {
	go func() {
		_ = p.Load(ctx, src)
	}()
}

// State returns the current load state.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Ready reports whether a model is available.
func (p *Provider) Ready() bool {
	_, ok := p.Model()
	return ok
}

// Model returns the loaded model, or false unless the provider is Ready.
func (p *Provider) Model() (Model, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != StateReady || p.closed {
		return nil, false
	}
	return p.model, true
}

// Err returns the load error once the provider is Failed.
func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Wait blocks until the provider is Ready or Failed, or ctx is done.
// It must not be called before Load or LoadAsync.
func (p *Provider) Wait(ctx context.Context) (Model, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
	}
	if m, ok := p.Model(); ok {
		return m, nil
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotReady
}

// Close releases the model. Further Model calls report not ready.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	m := p.model
	p.model = nil
	p.mu.Unlock()

	if m != nil {
		return m.Close()
	}
	return nil
}

func (p *Provider) notify(s State) {
	p.mu.RLock()
	listeners := append([]func(State){}, p.listeners...)
	p.mu.RUnlock()
	for _, fn := range listeners {
		fn(s)
	}
}
