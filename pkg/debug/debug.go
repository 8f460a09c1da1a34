// Package debug provides global verbose tracing flags
package debug

import "github.com/teslashibe/go-drowsy/internal/log"

// Enabled controls whether general debug tracing is active
var Enabled bool

// Cycles controls per-cycle inference tracing (one line per frame, very verbose)
// Use --debug-cycles to enable
var Cycles bool

// Faces controls face detector tracing
// Use --debug-faces to enable
var Faces bool

// Log emits msg at debug level only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.L().Debug(msg, args...)
	}
}

// CycleLog emits msg only if cycle tracing is enabled
func CycleLog(msg string, args ...any) {
	if Cycles {
		log.L().Info(msg, append([]any{"trace", "cycle"}, args...)...)
	}
}

// FaceLog emits msg only if face tracing is enabled
func FaceLog(msg string, args ...any) {
	if Faces {
		log.L().Info(msg, append([]any{"trace", "face"}, args...)...)
	}
}
