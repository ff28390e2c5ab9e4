// Package logging provides structured logging configuration using zerolog
// and the record/hook types the request engine reports through.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// LogLevel names a minimum severity, e.g. "debug" or "warn".
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config selects the severity, encoding and destination of the process
// logger. A nil Output writes to stderr; Pretty switches from JSON lines to
// zerolog's console encoding.
type Config struct {
	Level  LogLevel
	Pretty bool
	Output io.Writer
}

// Setup installs the process logger described by cfg as zerolog's global
// logger and returns it. Errors wrapped with pkg/errors log their stack.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// ParseLevel maps a configured level onto zerolog. "warning" is accepted for
// warn; empty or unknown names fall back to info.
func ParseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = string(LevelWarn)
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewLogger derives a logger from the global one, tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow (url, approach), cache hit/miss, retry sleeps
// Info:  recovered requests, search completion
// Warn:  rate limit waits, cache errors
// Error: failed attempts, exhausted retries
//
// Context Fields:
//   - component: emitting package
//   - url: request URL including query
//   - approach: transport strategy (streams, client)
//   - attempt: retry attempt number (1-based)
//   - operation: retry operation label
//   - status: HTTP status code
