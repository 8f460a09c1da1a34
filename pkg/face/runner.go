package face

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
)

// Snapshotter exposes the latest camera image without consuming it.
type Snapshotter interface {
	Snapshot() (image.Image, bool)
}

// DefaultDetectionInterval is how often the Runner detects faces.
const DefaultDetectionInterval = 200 * time.Millisecond

// Runner detects faces on its own cadence and reports each result to a Locator.
// It runs independently of the inference loop.
type Runner struct {
	detector Detector
	frames   Snapshotter
	locator  *Locator
	interval time.Duration
	logger   *slog.Logger

	consecutiveMisses int
}

// NewRunner creates a detection runner. interval <= 0 uses DefaultDetectionInterval.
func NewRunner(detector Detector, frames Snapshotter, locator *Locator, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultDetectionInterval
	}
	return &Runner{
		detector: detector,
		frames:   frames,
		locator:  locator,
		interval: interval,
		logger:   log.Component("face"),
	}
}

// Run detects until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("face detection started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.DetectOnce()
		}
	}
}

// DetectOnce runs one detection on the current snapshot.
// It returns false when nothing was reported (no snapshot or detector error).
func (r *Runner) DetectOnce() bool {
	img, ok := r.frames.Snapshot()
	if !ok || img == nil {
		return false
	}

	dets, err := r.detector.Detect(img)
	if err != nil {
		// Keep the last region; one bad frame is not a lost face
		r.logger.Warn("face detection failed", "error", err)
		return false
	}

	if len(dets) == 0 {
		r.consecutiveMisses++
		if r.consecutiveMisses == 5 {
			r.logger.Info("face lost", "misses", r.consecutiveMisses)
		}
	} else {
		r.consecutiveMisses = 0
	}

	b := img.Bounds()
	regions := make([]Region, 0, len(dets))
	now := time.Now()
	for _, d := range dets {
		reg := d.ToRegion(b.Dx(), b.Dy())
		reg.DetectedAt = now
		regions = append(regions, reg)
	}
	r.locator.OnFaces(regions)
	return true
}

// ConsecutiveMisses returns how many detections in a row found no face.
func (r *Runner) ConsecutiveMisses() int {
	return r.consecutiveMisses
}
