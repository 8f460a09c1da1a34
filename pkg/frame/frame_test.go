package frame

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestBox_ClampAlwaysContained(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {4, 3}, {640, 480}}
	coords := []int{-1000, -50, -1, 0, 1, 2, 3, 100, 479, 480, 639, 640, 2000}
	extents := []int{-10, 0, 1, 2, 50, 640, 5000}

	for _, sz := range sizes {
		for _, x := range coords {
			for _, y := range coords {
				for _, w := range extents {
					for _, h := range extents {
						b := Box{X: x, Y: y, W: w, H: h}.Clamp(sz.w, sz.h)
						if b.X < 0 || b.Y < 0 || b.W < 0 || b.H < 0 {
							t.Fatalf("negative clamp %+v for box (%d,%d,%d,%d) in %dx%d", b, x, y, w, h, sz.w, sz.h)
						}
						if b.X+b.W > sz.w || b.Y+b.H > sz.h {
							t.Fatalf("clamp %+v exceeds %dx%d for box (%d,%d,%d,%d)", b, sz.w, sz.h, x, y, w, h)
						}
					}
				}
			}
		}
	}
}

func TestBox_Clamp(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want Box
	}{
		{"inside", Box{10, 20, 30, 40}, Box{10, 20, 30, 40}},
		{"negative origin", Box{-10, -5, 30, 20}, Box{0, 0, 20, 15}},
		{"past right edge", Box{90, 10, 30, 10}, Box{90, 10, 10, 10}},
		{"past bottom edge", Box{0, 45, 10, 30}, Box{0, 45, 10, 5}},
		{"larger than frame", Box{-10, -10, 500, 500}, Box{0, 0, 100, 50}},
		{"fully outside", Box{200, 200, 10, 10}, Box{100, 50, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.box.Clamp(100, 50)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCrop(t *testing.T) {
	img := solid(100, 50, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	cropped, clamped, ok := Crop(img, Box{X: 80, Y: -10, W: 40, H: 30})
	if !ok {
		t.Fatal("expected non-empty crop")
	}
	if clamped != (Box{X: 80, Y: 0, W: 20, H: 20}) {
		t.Errorf("clamped box: got %+v", clamped)
	}
	if b := cropped.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("crop size: got %dx%d, want 20x20", b.Dx(), b.Dy())
	}

	if _, _, ok := Crop(img, Box{X: 500, Y: 500, W: 10, H: 10}); ok {
		t.Error("expected empty crop for box outside frame")
	}
}

func TestCrop_OffsetBounds(t *testing.T) {
	base := solid(100, 100, color.NRGBA{G: 255, A: 255})
	sub := base.SubImage(image.Rect(50, 50, 100, 100))

	cropped, _, ok := Crop(sub, Box{X: 0, Y: 0, W: 10, H: 10})
	if !ok {
		t.Fatal("expected crop")
	}
	if b := cropped.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("crop size: got %dx%d, want 10x10", b.Dx(), b.Dy())
	}
}

func TestParseNormalization(t *testing.T) {
	tests := []struct {
		in      string
		want    Normalization
		wantErr bool
	}{
		{"none", NormalizeNone, false},
		{"unit", NormalizeUnit, false},
		{"255", NormalizeUnit, false},
		{"Signed", NormalizeSigned, false},
		{"", NormalizeUnset, true},
		{"imagenet", NormalizeUnset, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNormalization(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseNormalization(""); !errors.Is(err, ErrNormalizationUnset) {
		t.Errorf("empty value: got %v, want ErrNormalizationUnset", err)
	}
}

func TestNormalization_Apply(t *testing.T) {
	tests := []struct {
		norm Normalization
		in   uint8
		want float32
	}{
		{NormalizeNone, 255, 255},
		{NormalizeUnit, 0, 0},
		{NormalizeUnit, 255, 1},
		{NormalizeSigned, 0, -1},
		{NormalizeSigned, 255, 1},
	}

	for _, tt := range tests {
		got := tt.norm.Apply(tt.in)
		if diff := got - tt.want; diff < -1e-6 || diff > 1e-6 {
			t.Errorf("%v.Apply(%d) = %v, want %v", tt.norm, tt.in, got, tt.want)
		}
	}
}

func TestNewPreprocessor_Validation(t *testing.T) {
	if _, err := NewPreprocessor(224, 224, NormalizeUnset); !errors.Is(err, ErrNormalizationUnset) {
		t.Errorf("unset normalization: got %v", err)
	}
	if _, err := NewPreprocessor(0, 224, NormalizeUnit); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestPreprocessor_Tensor(t *testing.T) {
	p, err := NewPreprocessor(8, 6, NormalizeUnit)
	if err != nil {
		t.Fatalf("NewPreprocessor: %v", err)
	}

	img := solid(40, 30, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	tt, err := p.Tensor(img)
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}

	shape := tt.Shape()
	want := []int{1, 6, 8, 3}
	if len(shape) != len(want) {
		t.Fatalf("shape: got %v, want %v", shape, want)
	}
	for i := range want {
		if shape[i] != want[i] {
			t.Fatalf("shape: got %v, want %v", shape, want)
		}
	}

	data, ok := tt.Data().([]float32)
	if !ok {
		t.Fatalf("data type %T, want []float32", tt.Data())
	}
	if len(data) != 6*8*3 {
		t.Fatalf("data length %d", len(data))
	}
	for i := 0; i < len(data); i += 3 {
		if data[i] < 0.99 || data[i+1] > 0.01 || data[i+2] < 0.19 || data[i+2] > 0.21 {
			t.Fatalf("pixel %d: got (%v,%v,%v), want (1,0,0.2)", i/3, data[i], data[i+1], data[i+2])
		}
	}
}

func TestPreprocessor_TensorGenericImage(t *testing.T) {
	p, err := NewPreprocessor(4, 4, NormalizeNone)
	if err != nil {
		t.Fatalf("NewPreprocessor: %v", err)
	}

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 100
	}

	tt, err := p.Tensor(gray)
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}
	data := tt.Data().([]float32)
	for i, v := range data {
		if v != 100 {
			t.Fatalf("value %d: got %v, want 100", i, v)
		}
	}
}

func TestFrame_ReleaseOnce(t *testing.T) {
	n := 0
	f := New(solid(2, 2, color.Black), func() { n++ })
	f.Release()
	f.Release()
	if n != 1 {
		t.Errorf("release called %d times, want 1", n)
	}

	var nilFrame *Frame
	nilFrame.Release()
	if nilFrame.Width() != 0 || nilFrame.Height() != 0 {
		t.Error("nil frame should report zero size")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}
	for i, p := range paths {
		f, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, solid(10+i, 10, color.White)); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	src, err := NewFileSource(paths...)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}

	ctx := context.Background()
	widths := []int{10, 11, 10}
	for i, want := range widths {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if f.Width() != want {
			t.Errorf("frame %d width: got %d, want %d", i, f.Width(), want)
		}
		if f.Seq != uint64(i+1) {
			t.Errorf("frame %d seq: got %d", i, f.Seq)
		}
		f.Release()
	}

	snap, ok := src.Snapshot()
	if !ok || snap.Bounds().Dx() != 10 {
		t.Errorf("snapshot: ok=%v", ok)
	}

	if _, err := NewFileSource(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScripted(t *testing.T) {
	img := solid(2, 2, color.White)
	src := NewScripted(false, img, nil, img)
	ctx := context.Background()

	f, err := src.Next(ctx)
	if err != nil || f == nil {
		t.Fatalf("first frame: %v", err)
	}
	f.Release()

	if _, err := src.Next(ctx); !errors.Is(err, ErrNoFrame) {
		t.Errorf("nil entry: got %v, want ErrNoFrame", err)
	}

	f, _ = src.Next(ctx)
	f.Release()

	if _, err := src.Next(ctx); !errors.Is(err, ErrNoFrame) {
		t.Errorf("exhausted: got %v, want ErrNoFrame", err)
	}
	if src.Calls() != 4 || src.Released() != 2 {
		t.Errorf("calls=%d released=%d, want 4 and 2", src.Calls(), src.Released())
	}
}
