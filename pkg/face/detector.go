package face

import (
	"image"
	"math"

	"github.com/teslashibe/go-drowsy/pkg/frame"
)

// Detection represents a detected face
type Detection struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)

	// Eye-open scores, set only by detectors that classify eyes
	LeftEyeOpen  float64
	RightEyeOpen float64
	HasEyes      bool
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// ToRegion converts the normalized detection to a pixel Region for a
// width x height frame. The box is not clamped; consumers clamp against
// the frame they crop.
func (d Detection) ToRegion(width, height int) Region {
	fw, fh := float64(width), float64(height)
	return Region{
		Box: frame.Box{
			X: int(math.Round(d.X * fw)),
			Y: int(math.Round(d.Y * fh)),
			W: int(math.Round(d.W * fw)),
			H: int(math.Round(d.H * fh)),
		},
		Confidence:   d.Confidence,
		LeftEyeOpen:  d.LeftEyeOpen,
		RightEyeOpen: d.RightEyeOpen,
		HasEyes:      d.HasEyes,
	}
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in the image, in detector order
	Detect(img image.Image) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.6)
	NMSThresh        float64 // Non-maximum suppression threshold
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.6,
		NMSThresh:        0.3,
		InputWidth:       320,
		InputHeight:      320,
	}
}
