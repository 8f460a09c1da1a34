package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/frame"
	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when the camera cannot be opened, usually
// because access was denied or no device exists at the index.
var ErrUnavailable = errors.New("camera: unavailable")

// Webcam is a frame.Source backed by an OpenCV VideoCapture device.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	cfg    Config
	logger *slog.Logger

	seq    atomic.Uint64
	latest atomic.Pointer[image.RGBA]
}

// OpenWebcam opens the device selected by cfg.
func OpenWebcam(cfg Config) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", errs)
	}

	w := &Webcam{
		mat:    gocv.NewMat(),
		logger: log.Component("camera"),
	}
	if err := w.open(cfg); err != nil {
		w.mat.Close()
		return nil, err
	}
	return w, nil
}

func (w *Webcam) open(cfg Config) error {
	device := cfg.Device()
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrUnavailable, device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: device %d not opened", ErrUnavailable, device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness != 0 {
		vc.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}
	if cfg.ZoomLevel > 1 {
		vc.Set(gocv.VideoCaptureZoom, cfg.ZoomLevel)
	}

	w.cap = vc
	w.cfg = cfg
	w.logger.Info("camera opened",
		"facing", string(cfg.Facing),
		"device", device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
	)
	return nil
}

// Apply switches to cfg, reopening the device when the facing or device
// changed. It is meant for Manager.OnConfigChange.
func (w *Webcam) Apply(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap != nil && cfg.Device() == w.cfg.Device() {
		w.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		w.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		w.cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
		if cfg.Brightness != 0 {
			w.cap.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
		}
		w.cap.Set(gocv.VideoCaptureZoom, cfg.ZoomLevel)
		w.cfg = cfg
		return nil
	}

	old := w.cap
	prev := w.cfg
	w.cap = nil
	if old != nil {
		old.Close()
	}
	// frames from the old camera must not be cropped with new regions
	w.latest.Store(nil)

	if err := w.open(cfg); err != nil {
		w.logger.Warn("camera switch failed, reopening previous device", "error", err)
		if rerr := w.open(prev); rerr != nil {
			w.logger.Error("previous camera unavailable", "error", rerr)
		}
		return err
	}
	return nil
}

// Next reads one frame. A device that yields nothing returns frame.ErrNoFrame.
func (w *Webcam) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, frame.ErrNoFrame
	}
	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, frame.ErrNoFrame
	}
	if w.cfg.Mirror {
		gocv.Flip(w.mat, &w.mat, 1)
	}

	img, err := matToRGBA(w.mat)
	if err != nil {
		return nil, err
	}
	w.latest.Store(img)

	f := frame.New(img, nil)
	f.Seq = w.seq.Add(1)
	return f, nil
}

// Snapshot returns the most recent frame read by Next.
func (w *Webcam) Snapshot() (image.Image, bool) {
	img := w.latest.Load()
	if img == nil {
		return nil, false
	}
	return img, true
}

// Config returns the applied configuration.
func (w *Webcam) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.cap != nil {
		err = w.cap.Close()
		w.cap = nil
	}
	if cerr := w.mat.Close(); err == nil {
		err = cerr
	}
	return err
}

// matToRGBA converts a BGR Mat to a new RGBA image.
func matToRGBA(m gocv.Mat) (*image.RGBA, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("camera: convert frame: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba, nil
}

var _ frame.Source = (*Webcam)(nil)
