package camera

import (
	"errors"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
	if cfg.Device() != cfg.FrontDevice {
		t.Errorf("default should use the front device")
	}
}

func TestPresetsValid(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg == nil {
				t.Fatal("preset missing")
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				t.Errorf("invalid preset: %v", errs)
			}
		})
	}
	if GetPreset("fisheye") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad facing", func(c *Config) { c.Facing = "side" }},
		{"negative device", func(c *Config) { c.BackDevice = -1 }},
		{"tiny width", func(c *Config) { c.Width = 10 }},
		{"huge height", func(c *Config) { c.Height = 10000 }},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }},
		{"zoom out of range", func(c *Config) { c.ZoomLevel = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if errs := cfg.Validate(); len(errs) == 0 {
				t.Error("expected validation errors")
			}
		})
	}
}

func TestManager_Flip(t *testing.T) {
	m := NewManager()

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	cfg, err := m.Flip()
	if err != nil {
		t.Fatalf("Flip: %v", err)
	}
	if cfg.Facing != FacingBack || cfg.Mirror {
		t.Errorf("after flip: %+v", cfg)
	}
	if cfg.Device() != 1 {
		t.Errorf("device: got %d, want 1", cfg.Device())
	}

	cfg, _ = m.Flip()
	if cfg.Facing != FacingFront || !cfg.Mirror {
		t.Errorf("after second flip: %+v", cfg)
	}
	if len(applied) != 2 {
		t.Errorf("OnConfigChange called %d times, want 2", len(applied))
	}
}

func TestManager_FlipRejected(t *testing.T) {
	m := NewManager()
	denied := errors.New("permission denied")
	m.OnConfigChange = func(cfg Config) error { return denied }

	cfg, err := m.Flip()
	if !errors.Is(err, denied) {
		t.Fatalf("got %v, want wrapped permission error", err)
	}
	if cfg.Facing != FacingFront || m.GetConfig().Facing != FacingFront {
		t.Error("rejected flip must keep the current camera")
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager()

	err := m.UpdateConfig(map[string]interface{}{
		"preset":    Preset720p,
		"framerate": float64(24),
		"mirror":    false,
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.Framerate != 24 || cfg.Mirror {
		t.Errorf("got %+v", cfg)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("expected unknown preset error")
	}
	if err := m.UpdateConfig(map[string]interface{}{"width": 5}); err == nil {
		t.Error("expected validation error")
	}
	if m.GetConfig().Width != 1280 {
		t.Error("invalid update must not change the config")
	}
}

func TestFacingOpposite(t *testing.T) {
	if FacingFront.Opposite() != FacingBack || FacingBack.Opposite() != FacingFront {
		t.Error("Opposite should toggle")
	}
}
