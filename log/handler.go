// Package log provides the structured logging (slog) setup of the bridge and the
// wire format the hosted package uses to forward its own log records.
package log

import (
	"io"
	"log/slog"
	"os"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

// HandlerOption configures NewHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	writer    io.Writer
	level     slog.Leveler
	addSource bool
	json      bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		writer: os.Stderr,
	}
}

// WithWriter sets the output stream (default: stderr).
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		c.writer = w
	}
}

// WithLevel overrides the level derived from the debug setting.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithJSON switches the output to slog's JSON encoding.
func WithJSON(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.json = enabled
	}
}

// LevelFor maps a debug setting to the minimum slog level of the bridge.
// With debugging off only warnings and errors reach the output.
func LevelFor(debug entities.DebugLevel) slog.Level {
	if debug.Host() {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewHandler builds the bridge's slog handler for the given debug setting.
func NewHandler(debug entities.DebugLevel, opts ...HandlerOption) slog.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.level == nil {
		cfg.level = LevelFor(debug)
	}

	hopts := &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.addSource}
	if cfg.json {
		return slog.NewJSONHandler(cfg.writer, hopts)
	}
	return slog.NewTextHandler(cfg.writer, hopts)
}

// NewLogger is a shorthand for slog.New(NewHandler(debug, opts...)).
func NewLogger(debug entities.DebugLevel, opts ...HandlerOption) *slog.Logger {
	return slog.New(NewHandler(debug, opts...))
}
