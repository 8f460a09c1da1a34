package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/debug"
	"github.com/teslashibe/go-drowsy/pkg/display"
	"github.com/teslashibe/go-drowsy/pkg/face"
	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/loop"
	"github.com/teslashibe/go-drowsy/pkg/model"
	"github.com/teslashibe/go-drowsy/pkg/model/dnn"
	"github.com/teslashibe/go-drowsy/pkg/web"
)

// ErrNoFrameSource is returned when the loop is started without a camera
// or image source.
var ErrNoFrameSource = errors.New("app: no frame source available")

// Option configures an App.
type Option func(*App)

// WithLoader replaces the gocv model loader.
func WithLoader(l model.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithDetector replaces the YuNet face detector.
func WithDetector(d face.Detector) Option {
	return func(a *App) { a.detector = d }
}

// App is the monitor orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	norm   frame.Normalization
	labels model.Labels
	logger *slog.Logger

	// Model
	loader   model.Loader
	provider *model.Provider

	// Frames
	source        frame.Source
	snapshots     face.Snapshotter
	webcam        *camera.Webcam
	cameraManager *camera.Manager

	// Faces
	detector face.Detector
	faces    *face.Cell
	runner   *face.Runner

	// Loop and outputs
	loop      *loop.Loop
	store     *display.Store
	webServer *web.Server

	mu     sync.Mutex
	runCtx context.Context
	wg     sync.WaitGroup
}

// New creates a monitor with the given configuration.
func New(cfg Config, opts ...Option) (*App, error) {
	// Apply environment overrides
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	norm, _ := frame.ParseNormalization(cfg.Normalize)

	debug.Enabled = cfg.Debug
	log.Init(cfg.LogLevel)

	a := &App{
		config: cfg,
		norm:   norm,
		logger: log.Component("app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loader == nil {
		a.loader = dnn.NewLoader()
	}
	return a, nil
}

// Init initializes all components.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("driver drowsiness monitor starting", "debug", debug.Enabled)

	if err := a.initLabels(ctx); err != nil {
		return fmt.Errorf("labels: %w", err)
	}

	a.store = display.NewStore(display.Config{
		DrowsyLabels:       a.config.DrowsyLabels,
		EyeClosedThreshold: a.config.EyeClosedThreshold,
	})

	a.provider = model.NewProvider(a.loader,
		model.WithLoadTimeout(a.config.LoadTimeout),
		model.WithLogger(log.Component("model")),
	)
	a.provider.OnStateChange(func(s model.State) {
		a.store.SetReady(s == model.StateReady)
	})

	if err := a.initFrames(); err != nil {
		return fmt.Errorf("frames: %w", err)
	}

	if a.config.FaceCrop {
		if err := a.initFaces(); err != nil {
			return fmt.Errorf("face detection: %w", err)
		}
	}

	if err := a.initLoop(); err != nil {
		return fmt.Errorf("loop: %w", err)
	}

	if !a.config.NoWeb {
		a.initWeb()
	}
	return nil
}

// initLabels resolves the label set: metadata first, then config, then
// the bundled defaults.
func (a *App) initLabels(ctx context.Context) error {
	switch {
	case a.config.MetadataRef != "":
		md, err := model.LoadMetadata(ctx, a.config.MetadataRef)
		if err != nil {
			return err
		}
		a.labels = md.Labels
		if md.ImageSize > 0 {
			a.config.InputSize = md.ImageSize
		}
	case len(a.config.Labels) > 0:
		a.labels = model.Labels(a.config.Labels)
	default:
		a.labels = model.DefaultLabels
	}
	a.logger.Info("labels", "labels", []string(a.labels), "input_size", a.config.InputSize)
	return nil
}

// initFrames opens the image source or the webcam. A camera that cannot be
// opened is not fatal: the dashboard still runs, without a label.
func (a *App) initFrames() error {
	if len(a.config.Images) > 0 {
		src, err := frame.NewFileSource(a.config.Images...)
		if err != nil {
			return err
		}
		a.source = src
		a.snapshots = src
		return nil
	}

	a.cameraManager = camera.NewManagerWith(a.config.Camera)
	wc, err := camera.OpenWebcam(a.config.Camera)
	if err != nil {
		if errors.Is(err, camera.ErrUnavailable) {
			a.logger.Warn("camera unavailable, running without capture", "error", err)
			a.cameraManager = nil
			return nil
		}
		return err
	}
	a.cameraManager.OnConfigChange = wc.Apply
	a.webcam = wc
	a.source = wc
	a.snapshots = wc
	return nil
}

func (a *App) initFaces() error {
	if a.detector == nil {
		cfg := face.DefaultConfig()
		cfg.ModelPath = a.config.FaceModel
		det, err := face.NewYuNet(cfg)
		if err != nil {
			return err
		}
		a.detector = det
	}

	a.faces = face.NewCell()
	if a.snapshots != nil {
		a.runner = face.NewRunner(a.detector, a.snapshots, face.NewLocator(a.faces), a.config.DetectionInterval)
	}
	return nil
}

func (a *App) initLoop() error {
	if a.source == nil {
		return nil
	}

	cfg := loop.DefaultConfig()
	cfg.Labels = a.labels
	cfg.Width = a.config.InputSize
	cfg.Height = a.config.InputSize
	cfg.Normalization = a.norm
	cfg.Interval = a.config.Interval
	cfg.PredictTimeout = a.config.PredictTimeout

	l, err := loop.New(cfg, a.source, a.provider, a.faces, a.store)
	if err != nil {
		return err
	}
	a.loop = l
	return nil
}

func (a *App) initWeb() {
	a.webServer = web.NewServer(a.config.WebPort, a.store, a.config.StaticDir)
	a.webServer.OnLoopStart = a.StartLoop
	a.webServer.OnLoopStop = a.StopLoop
	a.webServer.OnStats = a.Stats
	if a.cameraManager != nil {
		a.webServer.Camera = a.cameraManager
	}
}

// Run starts model loading, face detection, the loop and the dashboard.
// Blocks until context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	a.provider.LoadAsync(ctx, a.config.ModelSource())

	unsub := a.store.Subscribe(a.logTransitions())
	defer unsub()

	if a.runner != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runner.Run(ctx)
		}()
	}
	if a.loop != nil {
		if err := a.loop.Start(ctx); err != nil {
			return err
		}
	} else {
		a.logger.Warn("no frame source, loop not started")
	}
	if a.webServer != nil {
		a.webServer.StartAsync()
	}

	a.logger.Info("monitor running (Ctrl+C to exit)")

	// Block until context cancelled
	<-ctx.Done()
	return nil
}

// logTransitions logs label changes and drowsy onsets.
func (a *App) logTransitions() func(display.State) {
	var (
		mu   sync.Mutex
		last display.State
	)
	return func(st display.State) {
		mu.Lock()
		defer mu.Unlock()
		if st.Ready != last.Ready {
			a.logger.Info("model ready", "ready", st.Ready)
		}
		if st.Label != last.Label {
			debug.Log("label changed", "label", st.Label, "probability", st.Probability)
		}
		if st.Drowsy && !last.Drowsy {
			a.logger.Warn("driver drowsy", "label", st.Label, "probability", st.Probability)
		}
		last = st
	}
}

// StartLoop mounts the inference loop.
func (a *App) StartLoop() error {
	if a.loop == nil {
		return ErrNoFrameSource
	}
	a.mu.Lock()
	ctx := a.runCtx
	a.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return a.loop.Start(ctx)
}

// StopLoop unmounts the inference loop.
func (a *App) StopLoop() error {
	if a.loop == nil {
		return ErrNoFrameSource
	}
	a.loop.Stop()
	return nil
}

// Stats returns loop counters; zero when no loop exists.
func (a *App) Stats() loop.Stats {
	if a.loop == nil {
		return loop.Stats{}
	}
	return a.loop.Stats()
}

// Store returns the display state store.
func (a *App) Store() *display.Store {
	return a.store
}

// Provider returns the model provider.
func (a *App) Provider() *model.Provider {
	return a.provider
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.logger.Info("shutting down")

	if a.loop != nil {
		a.loop.Stop()
	}
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web shutdown", "error", err)
		}
	}
	if a.provider != nil {
		a.provider.Close()
	}
	// the runner must be done with the detector and snapshots
	a.wg.Wait()
	if a.detector != nil {
		a.detector.Close()
	}
	if a.webcam != nil {
		a.webcam.Close()
	}
}
