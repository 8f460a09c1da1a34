package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestProvider_LoadReady(t *testing.T) {
	m := NewMock(0.1, 0.9)
	loader := &MockLoader{Model: m}
	p := NewProvider(loader)

	if p.State() != StateUnloaded {
		t.Fatalf("initial state: got %v", p.State())
	}
	if _, ok := p.Model(); ok {
		t.Fatal("model should not be available before load")
	}

	var mu sync.Mutex
	var seen []State
	p.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	src := Local("models/drowsy.onnx", "")
	if err := p.Load(context.Background(), src); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := p.Model()
	if !ok || got != m {
		t.Fatal("expected loaded model")
	}
	if !p.Ready() {
		t.Error("Ready should be true")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != StateLoading || seen[1] != StateReady {
		t.Errorf("transitions: got %v, want [loading ready]", seen)
	}

	if srcs := loader.Sources(); len(srcs) != 1 || srcs[0] != src {
		t.Errorf("loader sources: got %v", srcs)
	}
}

func TestProvider_LoadFailedIsTerminal(t *testing.T) {
	boom := errors.New("network down")
	loader := &MockLoader{Err: boom}
	p := NewProvider(loader)

	err := p.Load(context.Background(), Remote("https://example.com/model.onnx", ""))
	var le *LoadError
	if !errors.As(err, &le) || !errors.Is(err, boom) {
		t.Fatalf("expected LoadError wrapping cause, got %v", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state: got %v, want failed", p.State())
	}

	// No retry
	loader.Err = nil
	loader.Model = NewMock(1)
	if err := p.Load(context.Background(), Local("x.onnx", "")); !errors.Is(err, ErrLoadFailed) {
		t.Errorf("second load: got %v, want ErrLoadFailed", err)
	}
	if _, ok := p.Model(); ok {
		t.Error("failed provider must never report a model")
	}
	if len(loader.Sources()) != 1 {
		t.Errorf("loader called %d times, want 1", len(loader.Sources()))
	}
}

func TestProvider_InvalidSource(t *testing.T) {
	p := NewProvider(&MockLoader{Model: NewMock()})
	err := p.Load(context.Background(), Source{})
	if !errors.Is(err, ErrNoWeights) {
		t.Errorf("got %v, want ErrNoWeights", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state: got %v, want failed", p.State())
	}
}

func TestProvider_LoadInProgress(t *testing.T) {
	block := make(chan struct{})
	loader := &MockLoader{Model: NewMock(1), Block: block}
	p := NewProvider(loader)

	ctx := context.Background()
	p.LoadAsync(ctx, Local("m.onnx", ""))

	deadline := time.Now().Add(2 * time.Second)
	for p.State() != StateLoading {
		if time.Now().After(deadline) {
			t.Fatal("provider never entered loading")
		}
		time.Sleep(time.Millisecond)
	}

	if _, ok := p.Model(); ok {
		t.Error("model must not be available while loading")
	}
	if err := p.Load(ctx, Local("m.onnx", "")); !errors.Is(err, ErrLoadInProgress) {
		t.Errorf("concurrent load: got %v, want ErrLoadInProgress", err)
	}

	close(block)

	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := p.Wait(wctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := p.Load(ctx, Local("m.onnx", "")); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("reload: got %v, want ErrAlreadyLoaded", err)
	}
}

func TestProvider_WaitFailed(t *testing.T) {
	p := NewProvider(&MockLoader{Err: errors.New("parse error")})
	p.LoadAsync(context.Background(), Local("m.onnx", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := p.Wait(ctx); err == nil {
		t.Error("expected load error from Wait")
	}
	if p.Err() == nil {
		t.Error("Err should report the load failure")
	}
}

func TestProvider_LoadTimeout(t *testing.T) {
	loader := &MockLoader{Model: NewMock(1), Block: make(chan struct{})}
	p := NewProvider(loader, WithLoadTimeout(20*time.Millisecond))

	err := p.Load(context.Background(), Remote("https://example.com/m.onnx", ""))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state: got %v, want failed", p.State())
	}
}

func TestProvider_Close(t *testing.T) {
	m := NewMock(1)
	p := NewProvider(&MockLoader{Model: m})
	if err := p.Load(context.Background(), Local("m.onnx", "")); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.Closed() {
		t.Error("model should be closed")
	}
	if _, ok := p.Model(); ok {
		t.Error("closed provider must not hand out the model")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestProvider_CloseWhileLoading(t *testing.T) {
	block := make(chan struct{})
	m := NewMock(1)
	p := NewProvider(&MockLoader{Model: m, Block: block})

	errc := make(chan error, 1)
	go func() { errc <- p.Load(context.Background(), Local("m.onnx", "")) }()

	for p.State() != StateLoading {
		time.Sleep(time.Millisecond)
	}
	p.Close()
	close(block)

	if err := <-errc; err == nil {
		t.Error("expected load to fail after Close")
	}
	if !m.Closed() {
		t.Error("model loaded after Close should be closed")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateUnloaded: "unloaded",
		StateLoading:  "loading",
		StateReady:    "ready",
		StateFailed:   "failed",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("got %q, want %q", s.String(), want)
		}
	}
}
