package face

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-drowsy/pkg/debug"
	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when the detector is given an image with no pixels.
var ErrEmptyImage = errors.New("face: empty image")

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("face: model file not found: %s", cfg.ModelPath)
	}

	// Input size is updated per image in Detect
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in img
func (d *YuNetDetector) Detect(img image.Image) ([]Detection, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("face: convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, ErrEmptyImage
	}

	imgW := float64(mat.Cols())
	imgH := float64(mat.Rows())

	d.detector.SetInputSize(image.Pt(mat.Cols(), mat.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(mat, &faces)

	var detections []Detection
	for r := 0; r < faces.Rows(); r++ {
		// YuNet rows: 0-3 box (px), 4-13 five landmarks, 14 score
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		detections = append(detections, Detection{
			X:          x / imgW,
			Y:          y / imgH,
			W:          w / imgW,
			H:          h / imgH,
			Confidence: score,
		})
	}

	if len(detections) > 0 {
		debug.FaceLog("yunet detections", "count", len(detections))
	}

	return detections, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

var _ Detector = (*YuNetDetector)(nil)
