// classify - run the drowsiness classifier once over still images
//
// Usage:
//
//	classify -model models/drowsy.onnx -normalize signed driver1.jpg driver2.png
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/frame"
	"github.com/teslashibe/go-drowsy/pkg/loop"
	"github.com/teslashibe/go-drowsy/pkg/model"
	"github.com/teslashibe/go-drowsy/pkg/model/dnn"
)

func main() {
	modelPath := flag.String("model", "models/drowsy.onnx", "Classifier weights path")
	modelConfig := flag.String("model-config", "", "Classifier topology path")
	metadata := flag.String("metadata", "", "metadata.json with labels")
	normalize := flag.String("normalize", "", "Pixel normalization: none, unit or signed (required)")
	size := flag.Int("input-size", 224, "Model input width and height")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: classify [flags] image...")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *modelPath, *modelConfig, *metadata, *normalize, *size, flag.Args()); err != nil {
		log.Error("classify failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, modelPath, modelConfig, metadata, normalize string, size int, images []string) error {
	norm, err := frame.ParseNormalization(normalize)
	if err != nil {
		return err
	}

	labels := model.DefaultLabels
	if metadata != "" {
		md, err := model.LoadMetadata(ctx, metadata)
		if err != nil {
			return err
		}
		labels = md.Labels
	}

	provider := model.NewProvider(dnn.NewLoader())
	defer provider.Close()
	if err := provider.Load(ctx, model.Local(modelPath, modelConfig)); err != nil {
		return err
	}

	src, err := frame.NewFileSource(images...)
	if err != nil {
		return err
	}

	var last loop.Prediction
	cfg := loop.DefaultConfig()
	cfg.Labels = labels
	cfg.Width, cfg.Height = size, size
	cfg.Normalization = norm
	l, err := loop.New(cfg, src, provider, nil, loop.PublisherFunc(func(p loop.Prediction) { last = p }))
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Classifying"),
		progressbar.OptionSetWriter(os.Stderr), // results go to stdout
		progressbar.OptionShowCount(),
	)

	results := make([]string, 0, len(images))
	for _, path := range images {
		if out := l.Step(ctx); out != loop.OutcomePublished {
			results = append(results, fmt.Sprintf("%s\t%s\t%s", path, out, l.Stats().LastError))
		} else {
			results = append(results, fmt.Sprintf("%s\t%s\t%.3f", path, last.Label, last.Probability))
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}
