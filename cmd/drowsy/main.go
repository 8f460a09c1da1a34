// drowsy - driver drowsiness monitor
// Streams webcam frames through an image classifier and shows the top label
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-drowsy/internal/config"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/app"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/debug"
)

func main() {
	cfg := parseFlags()

	a, err := app.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	debugCycles := flag.Bool("debug-cycles", false, "Log every inference cycle (very verbose)")
	debugFaces := flag.Bool("debug-faces", false, "Log face detector results")
	flag.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides DROWSY_LOG_LEVEL)")

	flag.StringVar(&cfg.ModelPath, "model", "", "Classifier weights path (overrides DROWSY_MODEL_PATH)")
	flag.StringVar(&cfg.ModelConfig, "model-config", "", "Classifier topology/config path, if the format needs one")
	flag.StringVar(&cfg.ModelURL, "model-url", "", "Download classifier weights from URL instead of a path")
	flag.StringVar(&cfg.ModelConfigURL, "model-config-url", "", "Download classifier topology from URL")
	flag.StringVar(&cfg.Framework, "framework", "", "Model framework (onnx, tensorflow, caffe, tflite); inferred when empty")
	flag.StringVar(&cfg.MetadataRef, "metadata", "", "metadata.json path or URL with the label list")
	labels := flag.String("labels", "", "Comma separated labels in model output order")
	flag.IntVar(&cfg.InputSize, "input-size", cfg.InputSize, "Model input width and height")
	flag.StringVar(&cfg.Normalize, "normalize", "", "Pixel normalization: none, unit or signed (required)")
	flag.DurationVar(&cfg.LoadTimeout, "load-timeout", 0, "Abort model loading after this long (0 = no limit)")

	flag.DurationVar(&cfg.Interval, "interval", 0, "Pause between classifications (0 = every frame, 1s for throttled mode)")
	flag.DurationVar(&cfg.PredictTimeout, "predict-timeout", 0, "Abort a single prediction after this long (0 = no limit)")

	flag.BoolVar(&cfg.FaceCrop, "face-crop", false, "Classify the detected face region instead of the whole frame")
	flag.StringVar(&cfg.FaceModel, "face-model", cfg.FaceModel, "YuNet ONNX model path")
	flag.DurationVar(&cfg.DetectionInterval, "detect-interval", cfg.DetectionInterval, "Face detection interval")

	facing := flag.String("facing", string(cfg.Camera.Facing), "Camera facing: front or back")
	flag.IntVar(&cfg.Camera.FrontDevice, "front-device", cfg.Camera.FrontDevice, "Front camera device index")
	flag.IntVar(&cfg.Camera.BackDevice, "back-device", cfg.Camera.BackDevice, "Back camera device index")
	preset := flag.String("camera-preset", "", "Camera preset: "+strings.Join(camera.PresetNames(), ", "))

	flag.BoolVar(&cfg.NoWeb, "no-web", false, "Disable the web dashboard")
	flag.StringVar(&cfg.WebPort, "port", cfg.WebPort, "Web dashboard port (overrides DROWSY_WEB_PORT)")
	flag.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Dashboard static files directory")

	flag.Parse()

	debug.Cycles = *debugCycles
	debug.Faces = *debugFaces
	if cfg.Debug && cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = config.String(config.EnvLogLevel, "info")
	}
	log.Init(cfg.LogLevel)

	if *preset != "" {
		if p := camera.GetPreset(*preset); p != nil {
			p.FrontDevice, p.BackDevice = cfg.Camera.FrontDevice, cfg.Camera.BackDevice
			cfg.Camera = *p
		} else {
			log.Warn("unknown camera preset, using default", "preset", *preset)
		}
	}
	if f := camera.Facing(*facing); f != cfg.Camera.Facing {
		cfg.Camera.Facing = f
		cfg.Camera.Mirror = f == camera.FacingFront
	}
	if *labels != "" {
		for _, l := range strings.Split(*labels, ",") {
			if l = strings.TrimSpace(l); l != "" {
				cfg.Labels = append(cfg.Labels, l)
			}
		}
	}

	// Remaining arguments are still images to classify instead of the webcam
	cfg.Images = flag.Args()
	return cfg
}
