package face

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
)

// findModelPath looks for the YuNet model relative to the package directory
func findModelPath() string {
	candidates := []string{
		"models/face_detection_yunet.onnx",
		"../../models/face_detection_yunet.onnx",
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}

func TestYuNetNewInvalidPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	if _, err := NewYuNet(cfg); err == nil {
		t.Error("Expected error for invalid model path")
	}
}

func TestYuNetDetect_EmptyImage(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.ModelPath = modelPath
	detector, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer detector.Close()

	if _, err := detector.Detect(image.NewNRGBA(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
}

func TestYuNetDetect_BlankImage(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.ModelPath = modelPath
	detector, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer detector.Close()

	dets, err := detector.Detect(image.NewNRGBA(image.Rect(0, 0, 320, 240)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("Expected no faces in a blank image, got %d", len(dets))
	}
}
