// Package frame provides camera frames, crop boxes and the preprocessing
// that turns a frame into a classifier input tensor.
package frame

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

// ErrNoFrame is returned by a Source that is running but has nothing buffered yet.
var ErrNoFrame = errors.New("frame: no frame available")

// Frame is one camera image.
// Release must be called once the consumer is done with it.
type Frame struct {
	Image      image.Image
	Seq        uint64
	CapturedAt time.Time

	release func()
	once    sync.Once
}

// New wraps img as a Frame. release may be nil.
func New(img image.Image, release func()) *Frame {
	return &Frame{
		Image:      img,
		CapturedAt: time.Now(),
		release:    release,
	}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Release frees the underlying buffer. Safe to call more than once and on nil.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// Source yields successive camera frames on demand.
type Source interface {
	// Next returns the next frame. A source that is running but empty
	// returns (nil, ErrNoFrame) or (nil, nil).
	Next(ctx context.Context) (*Frame, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Frame, error)

// Next calls f.
func (f SourceFunc) Next(ctx context.Context) (*Frame, error) {
	return f(ctx)
}

// Box is a pixel rectangle relative to the frame origin.
type Box struct {
	X, Y int // Top-left corner
	W, H int // Width and height
}

// Clamp returns b clipped to a width x height frame.
// The result never has negative offsets and never extends past the frame;
// a box lying fully outside collapses to zero size on the nearest edge.
func (b Box) Clamp(width, height int) Box {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	x0 := clampInt(b.X, 0, width)
	y0 := clampInt(b.Y, 0, height)
	x1 := clampInt(b.X+max(b.W, 0), x0, width)
	y1 := clampInt(b.Y+max(b.H, 0), y0, height)

	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
