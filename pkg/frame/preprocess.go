package frame

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"gorgonia.org/tensor"
)

// Channels is the colour depth of a classifier input.
const Channels = 3

// Normalization selects how 8-bit pixel values map into the model input.
// It must match how the model was trained; there is no safe default.
type Normalization int

const (
	// NormalizeUnset is the zero value and is rejected by NewPreprocessor.
	NormalizeUnset Normalization = iota
	// NormalizeNone feeds raw 0-255 values.
	NormalizeNone
	// NormalizeUnit divides by 255 into [0,1].
	NormalizeUnit
	// NormalizeSigned maps into [-1,1] (v/127.5 - 1).
	NormalizeSigned
)

// ErrNormalizationUnset is returned when no normalization was configured.
var ErrNormalizationUnset = errors.New("frame: normalization must be configured explicitly")

// String returns the config name of n.
func (n Normalization) String() string {
	switch n {
	case NormalizeNone:
		return "none"
	case NormalizeUnit:
		return "unit"
	case NormalizeSigned:
		return "signed"
	default:
		return "unset"
	}
}

// ParseNormalization parses "none", "unit" (alias "255") or "signed".
func ParseNormalization(s string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "raw":
		return NormalizeNone, nil
	case "unit", "255":
		return NormalizeUnit, nil
	case "signed", "tm":
		return NormalizeSigned, nil
	case "":
		return NormalizeUnset, ErrNormalizationUnset
	default:
		return NormalizeUnset, fmt.Errorf("frame: unknown normalization %q", s)
	}
}

// Apply maps one 8-bit channel value.
func (n Normalization) Apply(v uint8) float32 {
	switch n {
	case NormalizeUnit:
		return float32(v) / 255
	case NormalizeSigned:
		return float32(v)/127.5 - 1
	default:
		return float32(v)
	}
}

// Crop returns the part of img inside box, after clamping box to the image.
// ok is false when the clamped box is empty.
func Crop(img image.Image, box Box) (cropped image.Image, clamped Box, ok bool) {
	b := img.Bounds()
	clamped = box.Clamp(b.Dx(), b.Dy())
	if clamped.Empty() {
		return nil, clamped, false
	}
	// imaging works in absolute image coordinates
	return imaging.Crop(img, clamped.Rect().Add(b.Min)), clamped, true
}

// Preprocessor resizes images to the classifier input size and packs them
// into a 1 x H x W x 3 float32 tensor.
//
// The tensor returned by Tensor shares one backing buffer across calls and is
// only valid until the next call. A Preprocessor is not safe for concurrent use.
type Preprocessor struct {
	width  int
	height int
	norm   Normalization
	buf    []float32
}

// NewPreprocessor creates a preprocessor for a height x width model input.
func NewPreprocessor(width, height int, norm Normalization) (*Preprocessor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid target size %dx%d", width, height)
	}
	if norm == NormalizeUnset {
		return nil, ErrNormalizationUnset
	}
	return &Preprocessor{
		width:  width,
		height: height,
		norm:   norm,
		buf:    make([]float32, height*width*Channels),
	}, nil
}

// Size returns the target width and height.
func (p *Preprocessor) Size() (width, height int) {
	return p.width, p.height
}

// Normalization returns the configured normalization.
func (p *Preprocessor) Normalization() Normalization {
	return p.norm
}

// Resize scales img to the target size with bilinear interpolation.
func (p *Preprocessor) Resize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == p.width && b.Dy() == p.height {
		return img
	}
	return resize.Resize(uint(p.width), uint(p.height), img, resize.Bilinear)
}

// Tensor resizes img, normalizes it and adds the leading batch dimension.
func (p *Preprocessor) Tensor(img image.Image) (*tensor.Dense, error) {
	if img == nil {
		return nil, errors.New("frame: nil image")
	}
	resized := p.Resize(img)
	p.fill(resized)

	t := tensor.New(tensor.WithShape(p.height, p.width, Channels), tensor.WithBacking(p.buf))
	if err := t.Reshape(1, p.height, p.width, Channels); err != nil {
		return nil, fmt.Errorf("frame: add batch dimension: %w", err)
	}
	return t, nil
}

// fill writes img into buf in HWC order.
func (p *Preprocessor) fill(img image.Image) {
	b := img.Bounds()
	i := 0

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < p.height; y++ {
			row := nrgba.Pix[y*nrgba.Stride:]
			for x := 0; x < p.width; x++ {
				px := row[x*4 : x*4+3]
				p.buf[i] = p.norm.Apply(px[0])
				p.buf[i+1] = p.norm.Apply(px[1])
				p.buf[i+2] = p.norm.Apply(px[2])
				i += Channels
			}
		}
		return
	}

	for y := b.Min.Y; y < b.Min.Y+p.height; y++ {
		for x := b.Min.X; x < b.Min.X+p.width; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			p.buf[i] = p.norm.Apply(uint8(r >> 8))
			p.buf[i+1] = p.norm.Apply(uint8(g >> 8))
			p.buf[i+2] = p.norm.Apply(uint8(bl >> 8))
			i += Channels
		}
	}
}
