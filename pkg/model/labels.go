package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/teslashibe/go-drowsy/internal/httpc"
)

// DefaultLabels is the class order of the bundled drowsiness classifier.
var DefaultLabels = Labels{"yawn", "no_yawn", "Closed", "Open"}

// Labels is the ordered class list; index i names output value i.
type Labels []string

// Label returns the label at index i, or false if i is out of range.
func (l Labels) Label(i int) (string, bool) {
	if i < 0 || i >= len(l) {
		return "", false
	}
	return l[i], true
}

// Check verifies that an output vector of length n lines up with the labels.
func (l Labels) Check(n int) error {
	if n != len(l) {
		return &ShapeError{Want: len(l), Got: n}
	}
	return nil
}

// Metadata is the subset of a Teachable Machine style metadata.json the
// classifier needs.
type Metadata struct {
	Labels      Labels `json:"labels"`
	ImageSize   int    `json:"imageSize,omitempty"`
	ModelName   string `json:"modelName,omitempty"`
	PackageName string `json:"packageName,omitempty"`
}

// ParseMetadata decodes metadata JSON and requires at least one label.
func ParseMetadata(r io.Reader) (*Metadata, error) {
	var md Metadata
	if err := json.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("model: decode metadata: %w", err)
	}
	if len(md.Labels) == 0 {
		return nil, ErrNoLabels
	}
	return &md, nil
}

// LoadMetadata reads metadata from a local path or an http(s) URL.
func LoadMetadata(ctx context.Context, ref string) (*Metadata, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err := httpc.Download(ctx, ref, 1<<20)
		if err != nil {
			return nil, err
		}
		return ParseMetadata(bytes.NewReader(data))
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("model: open metadata: %w", err)
	}
	defer f.Close()
	return ParseMetadata(f)
}
