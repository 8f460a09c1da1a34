package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/face"
	"github.com/teslashibe/go-drowsy/pkg/model"
)

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < 64*48; i++ {
		img.Set(i%64, i/64, color.NRGBA{R: 200, G: 150, B: 100, A: 255})
	}
	path := filepath.Join(dir, "driver.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Images = []string{writePNG(t, t.TempDir())}
	cfg.ModelPath = "drowsy.onnx"
	cfg.Normalize = "signed"
	cfg.InputSize = 16
	cfg.NoWeb = true
	return cfg
}

type staticDetector struct {
	dets []face.Detection
}

func (d staticDetector) Detect(img image.Image) ([]face.Detection, error) { return d.dets, nil }
func (d staticDetector) Close() error                                     { return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing normalization", func(c *Config) { c.Normalize = "" }, "Normalize"},
		{"bad normalization", func(c *Config) { c.Normalize = "zscore" }, "Normalize"},
		{"zero input size", func(c *Config) { c.InputSize = 0 }, "InputSize"},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, "Interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("got %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
}

func TestConfigModelSource(t *testing.T) {
	cfg := Config{ModelPath: "m.onnx"}
	if src := cfg.ModelSource(); src.Location != model.LocationLocal || src.Weights != "m.onnx" {
		t.Errorf("local: %+v", src)
	}

	cfg = Config{ModelURL: "https://host/m.onnx", Framework: "onnx"}
	if src := cfg.ModelSource(); src.Location != model.LocationRemote || src.Framework != "onnx" {
		t.Errorf("remote: %+v", src)
	}
}

func TestNew_RequiresNormalization(t *testing.T) {
	t.Setenv("DROWSY_NORMALIZE", "")
	cfg := testConfig(t)
	cfg.Normalize = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected configuration error")
	}

	t.Setenv("DROWSY_NORMALIZE", "unit")
	if _, err := New(cfg); err != nil {
		t.Errorf("env normalization: %v", err)
	}
}

func TestApp_PublishesFromImages(t *testing.T) {
	loader := &model.MockLoader{Model: model.NewMock(0.1, 0.2, 0.05, 0.65)}
	a, err := New(testConfig(t), WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitFor(t, "Open label", func() bool {
		st := a.Store().State()
		return st.Ready && st.Label == "Open"
	})
	if a.Stats().Published == 0 {
		t.Error("stats should count published cycles")
	}

	if err := a.StartLoop(); err == nil {
		t.Error("StartLoop while running should fail")
	}
	if err := a.StopLoop(); err != nil {
		t.Fatal(err)
	}
	if a.Stats().Running {
		t.Error("loop should be stopped")
	}
	if err := a.StartLoop(); err != nil {
		t.Errorf("restart: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestApp_FailedLoadStaysNotReady(t *testing.T) {
	m := model.NewMock(1, 0, 0, 0)
	loader := &model.MockLoader{Model: m, Err: errors.New("404 not found")}
	a, err := New(testConfig(t), WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	waitFor(t, "failed load", func() bool { return a.Provider().State() == model.StateFailed })
	waitFor(t, "idle cycles", func() bool { return a.Stats().NotReady > 3 })

	if a.Store().State().Ready {
		t.Error("display should not be ready")
	}
	if m.Predicts() != 0 {
		t.Error("model must never run after a failed load")
	}
}

func TestApp_FaceCrop(t *testing.T) {
	cfg := testConfig(t)
	cfg.FaceCrop = true
	cfg.DetectionInterval = 5 * time.Millisecond

	det := staticDetector{dets: []face.Detection{{X: 0.25, Y: 0.25, W: 0.5, H: 0.5, Confidence: 0.9}}}
	loader := &model.MockLoader{Model: model.NewMock(0.7, 0.1, 0.1, 0.1)}
	a, err := New(cfg, WithLoader(loader), WithDetector(det))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	waitFor(t, "yawn label", func() bool { return a.Store().State().Label == "yawn" })
	if !a.Store().State().Drowsy {
		t.Error("yawn should be drowsy")
	}
}

func TestApp_MetadataLabels(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(meta, []byte(`{"labels":["alert","sleepy"],"imageSize":32}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.MetadataRef = meta
	cfg.DrowsyLabels = []string{"sleepy"}
	loader := &model.MockLoader{Model: model.NewMock(0.2, 0.8)}
	a, err := New(cfg, WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	waitFor(t, "sleepy label", func() bool { return a.Store().State().Label == "sleepy" })
	if !a.Store().State().Drowsy {
		t.Error("sleepy should be drowsy")
	}
}
