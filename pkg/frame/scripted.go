package frame

import (
	"context"
	"image"
	"sync"
)

// Scripted is a Source that replays a fixed script of frames, for tests and
// demos. A nil entry means "no frame this cycle". Once the script is
// exhausted it keeps returning ErrNoFrame, or repeats when Loop is set.
type Scripted struct {
	mu       sync.Mutex
	script   []image.Image
	pos      int
	loop     bool
	calls    int
	released int
}

// NewScripted creates a scripted source.
func NewScripted(loop bool, script ...image.Image) *Scripted {
	return &Scripted{script: script, loop: loop}
}

// Next returns the next scripted frame.
func (s *Scripted) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if s.pos >= len(s.script) {
		if !s.loop || len(s.script) == 0 {
			return nil, ErrNoFrame
		}
		s.pos = 0
	}
	img := s.script[s.pos]
	s.pos++
	if img == nil {
		return nil, ErrNoFrame
	}

	f := New(img, s.onRelease)
	f.Seq = uint64(s.calls)
	return f, nil
}

func (s *Scripted) onRelease() {
	s.mu.Lock()
	s.released++
	s.mu.Unlock()
}

// Calls returns how many times Next was called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Released returns how many served frames were released.
func (s *Scripted) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
