// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Level maps the verbosity flags to a slog level. quiet wins over verbose.
func Level(verbose, quiet bool) slog.Level {
	switch {
	case quiet:
		return slog.LevelWarn
	case verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Setup installs a text logger on stderr. Used by the one-shot CLI
// commands, whose stdout carries the report or the export.
func Setup(verbose, quiet bool) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, false, Level(verbose, quiet))))
}

// SetupServer installs a JSON logger on stdout for the long-running server.
func SetupServer(verbose, quiet bool) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, true, Level(verbose, quiet))))
}

// NewHandler returns a JSON or text handler writing to w at level.
func NewHandler(w io.Writer, json bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
