// Package observability builds the process-wide logger from environment
// configuration.
package observability

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	// Level is the numeric verbosity from LOG_LEVEL: 0=error, 1=warn,
	// 2=info, 3=debug. Values outside the range clamp.
	Level int

	// Structured emits JSON lines instead of console output
	// (STRUCTURED_LOGGING=true).
	Structured bool

	// NoEmoji disables emoji decorations in console output (NO_EMOJI set).
	NoEmoji bool

	// Output overrides the destination; defaults to stderr so command
	// output on stdout stays machine-parseable.
	Output io.Writer
}

// FromEnv reads LOG_LEVEL, STRUCTURED_LOGGING, and NO_EMOJI into a config.
// These are read once at startup; the core consumes no other process-wide
// mutable state.
func FromEnv() LoggerConfig {
	cfg := LoggerConfig{Level: 2}

	switch os.Getenv("LOG_LEVEL") {
	case "0":
		cfg.Level = 0
	case "1":
		cfg.Level = 1
	case "2":
		cfg.Level = 2
	case "3":
		cfg.Level = 3
	}

	cfg.Structured = strings.EqualFold(os.Getenv("STRUCTURED_LOGGING"), "true")
	_, cfg.NoEmoji = os.LookupEnv("NO_EMOJI")

	return cfg
}

// NewLogger creates a zerolog logger from the config.
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if !cfg.Structured {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	return logger.Level(zerologLevel(cfg.Level))
}

// zerologLevel maps the numeric LOG_LEVEL to a zerolog level.
func zerologLevel(level int) zerolog.Level {
	switch {
	case level <= 0:
		return zerolog.ErrorLevel
	case level == 1:
		return zerolog.WarnLevel
	case level == 2:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Emoji returns s when emoji output is enabled, empty string otherwise.
// Console log decorations go through this so NO_EMOJI strips them all.
func (c LoggerConfig) Emoji(s string) string {
	if c.NoEmoji || c.Structured {
		return ""
	}
	return s
}
