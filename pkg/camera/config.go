// Package camera provides runtime-configurable webcam settings and the
// gocv frame source the inference loop reads from.
package camera

import "fmt"

// Facing selects which physical camera feeds the loop.
type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Opposite returns the other facing.
func (f Facing) Opposite() Facing {
	if f == FacingBack {
		return FacingFront
	}
	return FacingBack
}

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Device ===
	Facing      Facing `json:"facing"`
	FrontDevice int    `json:"front_device"` // OpenCV device index of the driver-facing camera
	BackDevice  int    `json:"back_device"`

	// Mirror flips frames horizontally (selfie view).
	Mirror bool `json:"mirror"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// === Image controls ===
	// Brightness is passed to the driver as-is; 0 keeps the device default.
	Brightness float64 `json:"brightness"`

	// ZoomLevel is the driver zoom factor (1.0 to 4.0).
	ZoomLevel float64 `json:"zoom_level"`
}

// Device limits for typical USB and laptop webcams
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
	MaxZoom      = 4.0
)

// DefaultConfig returns the driver-facing 640x480 configuration.
// The classifier input is 224x224, so higher resolutions only cost CPU.
func DefaultConfig() Config {
	return Config{
		Facing:      FacingFront,
		FrontDevice: 0,
		BackDevice:  1,
		Mirror:      true,

		Width:     640,
		Height:    480,
		Framerate: 30,

		ZoomLevel: 1.0,
	}
}

// Device returns the device index for the configured facing.
func (c Config) Device() int {
	if c.Facing == FacingBack {
		return c.BackDevice
	}
	return c.FrontDevice
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Facing != FacingFront && c.Facing != FacingBack {
		errors = append(errors, "facing must be front or back")
	}
	if c.FrontDevice < 0 || c.BackDevice < 0 {
		errors = append(errors, "device indexes must not be negative")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}

	// Zoom
	if c.ZoomLevel < 1.0 || c.ZoomLevel > MaxZoom {
		errors = append(errors, "zoom_level must be between 1.0 and 4.0")
	}

	return errors
}

// Capabilities returns the limits the camera API accepts.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"max_zoom":      MaxZoom,
		"facings":       []Facing{FacingFront, FacingBack},
		"presets":       PresetNames(),
	}
}
