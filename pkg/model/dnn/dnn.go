// Package dnn loads classifiers with OpenCV's dnn module through gocv.
// Any format OpenCV reads (ONNX, TensorFlow, Caffe, Darknet, TFLite) works
// as long as the network takes a single NHWC float32 input.
package dnn

import (
	"context"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/teslashibe/go-drowsy/internal/httpc"
	"github.com/teslashibe/go-drowsy/pkg/model"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// ErrUnknownFramework is returned when the framework cannot be inferred.
var ErrUnknownFramework = errors.New("dnn: cannot infer framework from weights name")

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for remote artifacts.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithBackend selects the OpenCV backend and target.
func WithBackend(backend gocv.NetBackendType, target gocv.NetTargetType) Option {
	return func(l *Loader) {
		l.backend = backend
		l.target = target
	}
}

// WithOutputLayer selects the output layer; empty means the last layer.
func WithOutputLayer(name string) Option {
	return func(l *Loader) { l.outputLayer = name }
}

// Loader implements model.Loader with gocv.
type Loader struct {
	client      *http.Client
	backend     gocv.NetBackendType
	target      gocv.NetTargetType
	outputLayer string
}

// NewLoader creates a loader using the CPU target by default.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:  httpc.Client,
		backend: gocv.NetBackendDefault,
		target:  gocv.NetTargetCPU,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Framework returns src.Framework or infers it from the weights extension.
func Framework(src model.Source) (string, error) {
	if src.Framework != "" {
		return src.Framework, nil
	}
	name := src.Weights
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".onnx":
		return "onnx", nil
	case ".pb":
		return "tensorflow", nil
	case ".caffemodel":
		return "caffe", nil
	case ".weights":
		return "darknet", nil
	case ".tflite":
		return "tflite", nil
	case ".t7", ".net":
		return "torch", nil
	default:
		return "", ErrUnknownFramework
	}
}

// Load reads the network from disk or downloads it.
func (l *Loader) Load(ctx context.Context, src model.Source) (model.Model, error) {
	var (
		net gocv.Net
		err error
	)

	switch src.Location {
	case model.LocationRemote:
		net, err = l.readRemote(ctx, src)
	default:
		net, err = readLocal(src)
	}
	if err != nil {
		return nil, err
	}
	if net.Empty() {
		net.Close()
		return nil, errors.Errorf("dnn: could not read network from %s", src)
	}

	if err := net.SetPreferableBackend(l.backend); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "dnn: set backend")
	}
	if err := net.SetPreferableTarget(l.target); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "dnn: set target")
	}

	return &Net{net: net, output: l.outputLayer}, nil
}

func readLocal(src model.Source) (gocv.Net, error) {
	for _, p := range []string{src.Weights, src.Topology} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return gocv.Net{}, errors.Wrapf(err, "dnn: file not found at %s", p)
		}
	}
	return gocv.ReadNet(src.Weights, src.Topology), nil
}

func (l *Loader) readRemote(ctx context.Context, src model.Source) (gocv.Net, error) {
	framework, err := Framework(src)
	if err != nil {
		return gocv.Net{}, err
	}

	weights, err := httpc.DownloadWith(ctx, l.client, src.Weights, 0)
	if err != nil {
		return gocv.Net{}, errors.Wrap(err, "dnn: download weights")
	}

	var topology []byte
	if src.Topology != "" {
		topology, err = httpc.DownloadWith(ctx, l.client, src.Topology, 0)
		if err != nil {
			return gocv.Net{}, errors.Wrap(err, "dnn: download topology")
		}
	}

	net, err := gocv.ReadNetBytes(framework, weights, topology)
	if err != nil {
		return gocv.Net{}, errors.Wrapf(err, "dnn: read %s network", framework)
	}
	return net, nil
}

// Net is a loaded OpenCV network.
type Net struct {
	mu     sync.Mutex // gocv.Net is not safe for concurrent Forward
	net    gocv.Net
	output string
	closed bool
}

// Predict copies input into an N-dimensional blob, runs a forward pass and
// returns the flattened output.
func (n *Net) Predict(ctx context.Context, input *tensor.Dense) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("dnn: input must be float32, got %T", input.Data())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, errors.New("dnn: network closed")
	}

	blob := gocv.NewMatWithSizes([]int(input.Shape()), gocv.MatTypeCV32F)
	defer blob.Close()

	dst, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "dnn: input blob")
	}
	if len(dst) != len(data) {
		return nil, errors.Errorf("dnn: input blob has %d values, tensor has %d", len(dst), len(data))
	}
	copy(dst, data)

	n.net.SetInput(blob, "")
	out := n.net.Forward(n.output)
	defer out.Close()

	vals, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "dnn: read output")
	}
	// vals aliases out's memory, which is freed on return
	scores := make([]float32, len(vals))
	copy(scores, vals)
	return scores, nil
}

// Close releases the network.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.net.Close()
}

var (
	_ model.Loader = (*Loader)(nil)
	_ model.Model  = (*Net)(nil)
)
