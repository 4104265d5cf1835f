package host

import (
	"io"
	"log/slog"

	"github.com/trixi-framework/libtrixi-go/application/fatal"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/infrastructure/wazero"
)

// Option defines a functional option for configuring a Library.
type Option func(*Library)

// WithRuntime replaces the wazero-backed embedded runtime.
func WithRuntime(rt ports.EmbeddedRuntime) Option {
	return func(l *Library) {
		l.runtime = rt
	}
}

// WithRuntimeOptions configures the default wazero runtime. Ignored when
// WithRuntime is given.
func WithRuntimeOptions(opts ...wazero.RuntimeOption) Option {
	return func(l *Library) {
		l.runtimeOpts = append(l.runtimeOpts, opts...)
	}
}

// WithEnvironment replaces the process environment, for tests and embedders
// that manage their own.
func WithEnvironment(env ports.Environment) Option {
	return func(l *Library) {
		l.env = env
	}
}

// WithLogger sets the logger. By default a logger writing to stderr at the
// level selected by LIBTRIXI_DEBUG is created on Initialize.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithLogOutput keeps the default logger but writes it to w.
func WithLogOutput(w io.Writer) Option {
	return func(l *Library) {
		l.logOutput = w
	}
}

// WithFatalErrors makes every failing operation report through t and
// terminate the process instead of returning the error.
func WithFatalErrors(t *fatal.Translator) Option {
	return func(l *Library) {
		l.fatal = t
	}
}

// WithLoaderOptions configures the project manifest loader.
func WithLoaderOptions(opts ...LoaderOption) Option {
	return func(l *Library) {
		l.loaderOpts = append(l.loaderOpts, opts...)
	}
}
