// Package logger configures the zerolog logger shared by the CLI commands.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options select the output and verbosity of New.
type Options struct {
	Level  string    // "debug", "info", ...; falls back to LOG_LEVEL, then info
	Output io.Writer // defaults to os.Stderr
	JSON   bool      // plain JSON lines instead of the console format
}

// New builds a logger for the CLI. Unknown levels fall back to info.
func New(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := opts.Level
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// Nop discards everything; tests use it.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
