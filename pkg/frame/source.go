package frame

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"sync"
	"sync/atomic"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// FileSource replays still images as a camera feed, cycling through them.
// It also keeps the last served image for snapshot readers.
type FileSource struct {
	images []image.Image
	next   int
	seq    atomic.Uint64

	mu     sync.Mutex
	latest image.Image
}

// NewFileSource decodes the given image files.
func NewFileSource(paths ...string) (*FileSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("frame: no image files given")
	}
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := DecodeFile(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return NewImageSource(images...), nil
}

// NewImageSource serves already decoded images.
func NewImageSource(images ...image.Image) *FileSource {
	return &FileSource{images: images}
}

// DecodeFile reads and decodes one JPEG or PNG file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frame: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("frame: decode %s: %w", path, err)
	}
	return img, nil
}

// Next returns the next image in the sequence.
func (s *FileSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.images) == 0 {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	img := s.images[s.next%len(s.images)]
	s.next++
	s.latest = img
	s.mu.Unlock()

	f := New(img, nil)
	f.Seq = s.seq.Add(1)
	return f, nil
}

// Snapshot returns the most recently served image.
func (s *FileSource) Snapshot() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		if len(s.images) == 0 {
			return nil, false
		}
		return s.images[0], true
	}
	return s.latest, true
}
