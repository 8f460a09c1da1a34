// Package config provides environment configuration helpers for go-drowsy commands.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvModelPath    = "DROWSY_MODEL_PATH"
	EnvModelConfig  = "DROWSY_MODEL_CONFIG"
	EnvModelURL     = "DROWSY_MODEL_URL"
	EnvMetadataURL  = "DROWSY_METADATA_URL"
	EnvLabels       = "DROWSY_LABELS"
	EnvFaceModel    = "DROWSY_FACE_MODEL"
	EnvCameraFront  = "DROWSY_CAMERA_FRONT"
	EnvCameraBack   = "DROWSY_CAMERA_BACK"
	EnvWebPort      = "DROWSY_WEB_PORT"
	EnvInterval     = "DROWSY_INTERVAL"
	EnvLogLevel     = "DROWSY_LOG_LEVEL"
	EnvNormalize    = "DROWSY_NORMALIZE"
	EnvPredictLimit = "DROWSY_PREDICT_TIMEOUT"
)

// DefaultWebPort is the dashboard port when DROWSY_WEB_PORT is unset.
const DefaultWebPort = "8080"

// String returns the value of key, or def if it is unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an int, or def if unset or malformed.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Duration returns key parsed with time.ParseDuration, or def if unset or malformed.
func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// List splits a comma separated value into trimmed, non-empty items.
// Returns def when key is unset.
func List(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// WebPort returns the dashboard port from DROWSY_WEB_PORT or the default.
func WebPort() string {
	return String(EnvWebPort, DefaultWebPort)
}
