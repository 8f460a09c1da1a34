// Package face tracks the most recent face region reported by a detector
// so the inference loop can crop frames to it.
package face

import (
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/frame"
)

// Region is one detected face: a pixel box plus eye-openness scores.
type Region struct {
	Box        frame.Box
	Confidence float64

	// Eye-open probabilities in [0,1]; only meaningful when HasEyes is set.
	LeftEyeOpen  float64
	RightEyeOpen float64
	HasEyes      bool

	DetectedAt time.Time
}

// Cell holds the latest Region. One goroutine writes, another reads;
// every read sees a whole Region from a single write (last write wins).
type Cell struct {
	v atomic.Pointer[Region]
}

// NewCell creates an empty cell.
func NewCell() *Cell {
	return &Cell{}
}

// Store replaces the current region.
func (c *Cell) Store(r Region) {
	c.v.Store(&r)
}

// Clear marks the region as unknown.
func (c *Cell) Clear() {
	c.v.Store(nil)
}

// Load returns a snapshot of the current region, or false if none is known.
func (c *Cell) Load() (Region, bool) {
	p := c.v.Load()
	if p == nil {
		return Region{}, false
	}
	return *p, true
}

// Locator receives face detection events and keeps the first face of the
// latest event in its Cell.
type Locator struct {
	cell *Cell
}

// NewLocator creates a locator writing into cell.
func NewLocator(cell *Cell) *Locator {
	return &Locator{cell: cell}
}

// Cell returns the cell the locator writes to.
func (l *Locator) Cell() *Cell {
	return l.cell
}

// OnFaces handles one detection event. Faces beyond the first are ignored;
// an empty event clears the region.
func (l *Locator) OnFaces(regions []Region) {
	if len(regions) == 0 {
		l.cell.Clear()
		return
	}
	r := regions[0]
	if r.DetectedAt.IsZero() {
		r.DetectedAt = time.Now()
	}
	l.cell.Store(r)
}
