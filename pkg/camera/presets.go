package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetNight   = "night"
	PresetBack    = "back"
	PresetZoom2x  = "zoom2x"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetNight:   NightModeConfig(),
		PresetBack:    BackConfig(),
		PresetZoom2x:  Zoom2xConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		Preset720p,
		Preset1080p,
		PresetNight,
		PresetBack,
		PresetZoom2x,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Useful when the face sits far from the lens.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Framerate = 15
	return cfg
}

// NightModeConfig returns configuration for a dark cabin.
func NightModeConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15 // longer exposure per frame
	cfg.Brightness = 0.7
	return cfg
}

// BackConfig uses the rear camera, unmirrored.
func BackConfig() Config {
	cfg := DefaultConfig()
	cfg.Facing = FacingBack
	cfg.Mirror = false
	return cfg
}

// Zoom2xConfig returns 2x zoom configuration.
func Zoom2xConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoomLevel = 2.0
	return cfg
}
