// Package logger builds the zerolog loggers used by the CLI and handed to the
// consensus engine.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger
type Options struct {
	Level     string
	Format    string
	Component string
	Writer    io.Writer
}

// FromEnv reads LOG_LEVEL and LOG_FORMAT.
func FromEnv() Options {
	return Options{
		Level:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getenv("LOG_FORMAT", "console")),
	}
}

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// New builds a logger from opt.
func New(opt Options) Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opt.Writer != nil}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	return ctx.Logger()
}

// Named returns a child of parent tagged with component. Children should be
// derived from a logger built without Options.Component so the key is not repeated.
func Named(parent Logger, component string) Logger {
	if component == "" {
		return parent
	}
	return parent.With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
