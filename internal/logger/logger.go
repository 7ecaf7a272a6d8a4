// Package logger builds the process-wide zerolog loggers. Components receive
// a logger through their constructor; nothing reads global logging state.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger tagged with the component name. Level is one
// of zerolog's textual levels; unknown values fall back to info.
func New(component, level string) zerolog.Logger {
	return NewWithWriter(component, level, os.Stderr)
}

// NewWithWriter is New with an explicit sink, used by tests.
func NewWithWriter(component, level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("component", component).
		Logger()
}
