// Package app wires the drowsiness monitor together: model provider, frame
// source, face detection, inference loop, display state and dashboard.
package app

import (
	"time"

	"github.com/teslashibe/go-drowsy/internal/config"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/display"
	"github.com/teslashibe/go-drowsy/pkg/face"
	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/model"
)

// Default configuration values.
const (
	DefaultModelPath = "models/drowsy.onnx"
	DefaultInputSize = 224
	DefaultStaticDir = "./web"
)

// Config holds all configuration for the monitor.
// Flag parsing is done in cmd/drowsy/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug    bool
	LogLevel string

	// Classifier artifacts: a local pair or a remote pair.
	ModelPath      string
	ModelConfig    string
	ModelURL       string
	ModelConfigURL string
	Framework      string // empty infers from the weights extension

	// MetadataRef is a path or URL of a metadata.json carrying the labels.
	MetadataRef string
	Labels      []string

	InputSize   int
	Normalize   string // none, unit or signed; required
	LoadTimeout time.Duration

	// Loop cadence.
	Interval       time.Duration
	PredictTimeout time.Duration

	// Face cropping.
	FaceCrop          bool
	FaceModel         string
	DetectionInterval time.Duration

	// Images replaces the webcam with still images, cycled in order.
	Images []string
	Camera camera.Config

	// Display.
	DrowsyLabels       []string
	EyeClosedThreshold float64

	// Dashboard.
	NoWeb     bool
	WebPort   string
	StaticDir string
}

// DefaultConfig returns sensible defaults. Normalize is left empty and must
// be set by flag or DROWSY_NORMALIZE.
func DefaultConfig() Config {
	return Config{
		InputSize:          DefaultInputSize,
		FaceModel:          face.DefaultConfig().ModelPath,
		DetectionInterval:  face.DefaultDetectionInterval,
		Camera:             camera.DefaultConfig(),
		DrowsyLabels:       display.DefaultConfig().DrowsyLabels,
		EyeClosedThreshold: display.DefaultEyeClosedThreshold,
		WebPort:            config.DefaultWebPort,
		StaticDir:          DefaultStaticDir,
	}
}

// LoadEnvConfig fills unset fields from DROWSY_* environment variables.
// Call this after flag parsing so flags take precedence.
func (c *Config) LoadEnvConfig() {
	if c.ModelPath == "" && c.ModelURL == "" {
		c.ModelPath = config.String(config.EnvModelPath, "")
		c.ModelURL = config.String(config.EnvModelURL, "")
	}
	if c.ModelConfig == "" {
		c.ModelConfig = config.String(config.EnvModelConfig, "")
	}
	if c.MetadataRef == "" {
		c.MetadataRef = config.String(config.EnvMetadataURL, "")
	}
	if len(c.Labels) == 0 {
		c.Labels = config.List(config.EnvLabels, nil)
	}
	if c.Normalize == "" {
		c.Normalize = config.String(config.EnvNormalize, "")
	}
	if c.LogLevel == "" {
		c.LogLevel = config.String(config.EnvLogLevel, "info")
	}
	if c.Interval == 0 {
		c.Interval = config.Duration(config.EnvInterval, 0)
	}
	if c.PredictTimeout == 0 {
		c.PredictTimeout = config.Duration(config.EnvPredictLimit, 0)
	}
	if c.FaceModel == "" || c.FaceModel == face.DefaultConfig().ModelPath {
		c.FaceModel = config.String(config.EnvFaceModel, face.DefaultConfig().ModelPath)
	}
	c.Camera.FrontDevice = config.Int(config.EnvCameraFront, c.Camera.FrontDevice)
	c.Camera.BackDevice = config.Int(config.EnvCameraBack, c.Camera.BackDevice)
	if c.WebPort == "" || c.WebPort == config.DefaultWebPort {
		c.WebPort = config.WebPort()
	}

	if c.ModelPath == "" && c.ModelURL == "" {
		c.ModelPath = DefaultModelPath
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if _, err := frame.ParseNormalization(c.Normalize); err != nil {
		return &ConfigError{Field: "Normalize", Message: "normalization is required: set -normalize or DROWSY_NORMALIZE to none, unit or signed"}
	}
	if c.ModelPath == "" && c.ModelURL == "" {
		return &ConfigError{Field: "ModelPath", Message: "a model path or URL is required"}
	}
	if c.InputSize <= 0 {
		return &ConfigError{Field: "InputSize", Message: "input size must be positive"}
	}
	if c.Interval < 0 || c.PredictTimeout < 0 {
		return &ConfigError{Field: "Interval", Message: "durations must not be negative"}
	}
	if len(c.Images) == 0 {
		if errs := c.Camera.Validate(); len(errs) > 0 {
			return &ConfigError{Field: "Camera", Message: "invalid camera config: " + errs[0]}
		}
	}
	return nil
}

// ModelSource returns the classifier artifact location.
func (c *Config) ModelSource() model.Source {
	var src model.Source
	if c.ModelURL != "" {
		src = model.Remote(c.ModelURL, c.ModelConfigURL)
	} else {
		src = model.Local(c.ModelPath, c.ModelConfig)
	}
	src.Framework = c.Framework
	return src
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
