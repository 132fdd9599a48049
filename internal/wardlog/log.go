// Package wardlog provides warden's diagnostic-only structured logger
// (spec.md §7 "SweepRemoval: ... logged to debug stream only"). It never
// receives delegate output — that goes exclusively to the per-run log file
// — and is gated by DEBUG_ENABLE.
//
// JSON over stderr at a configurable level, the same
// slog.NewJSONHandler shape used elsewhere in this codebase.
package wardlog

import (
	"log/slog"
	"os"
)

// New builds a JSON logger writing to stderr. When debug is false, only
// records at Error level or above are emitted; records below
// slog.LevelError are suppressed when DEBUG_ENABLE is unset.
func New(debug bool) *slog.Logger {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
