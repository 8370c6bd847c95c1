// Package logging provides the thin structured-logging wrapper used
// throughout the CLI binaries. No example in the retrieval pack imports a
// third-party structured-logging library (the teacher logs via bare
// fmt.Println/log.Fatal); this is the one ambient concern left on the
// standard library, via log/slog, rather than invented dependencies - see
// DESIGN.md.
package logging

import (
	"log/slog"
	"os"
)

// New builds a text-handler logger writing to stderr, at Debug level when
// verbose is set (mirrors the teacher's -v/--verbose flag convention in
// actions/stories/stories.go).
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
