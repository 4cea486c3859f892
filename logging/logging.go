// Package logging wires up the harness's structured logger. A logger is
// built once at startup and threaded explicitly through constructors; no
// package in this tree reaches for a global logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger from a level name ("debug", "info", "warn",
// "error") and a pretty flag. When pretty is true, output goes through
// zerolog's ConsoleWriter for human-readable, colourised lines; otherwise
// it's newline-delimited JSON suited to log aggregation.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, for tests that don't want
// log noise but still need to satisfy a zerolog.Logger parameter.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
