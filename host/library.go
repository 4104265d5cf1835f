package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/trixi-framework/libtrixi-go/application/config"
	"github.com/trixi-framework/libtrixi-go/application/depot"
	"github.com/trixi-framework/libtrixi-go/application/fatal"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/hostfuncs"
	"github.com/trixi-framework/libtrixi-go/infrastructure/environment"
	"github.com/trixi-framework/libtrixi-go/infrastructure/wazero"
	"github.com/trixi-framework/libtrixi-go/log"
)

// runtimeClaimed is set while a Library holds the embedded runtime.
var runtimeClaimed atomic.Bool

// Library is the bridge to one embedded solver module.
type Library struct {
	runtime     ports.EmbeddedRuntime
	module      ports.HostedModule
	env         ports.Environment
	logger      *slog.Logger
	logOutput   io.Writer
	fatal       *fatal.Translator
	borrows     map[entities.Handle]int
	project     *entities.Project
	runtimeOpts []wazero.RuntimeOption
	loaderOpts  []LoaderOption
	depot       entities.DepotConfig
	table       FunctionTable
	settings    config.Settings
	state       entities.RuntimeState
	claimed     bool
}

// New creates an uninitialized Library.
func New(opts ...Option) *Library {
	l := &Library{
		env:       environment.NewOS(),
		logOutput: os.Stderr,
		borrows:   make(map[entities.Handle]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the lifecycle state.
func (l *Library) State() entities.RuntimeState {
	return l.state
}

// Depot returns the depot configuration chosen by Initialize.
func (l *Library) Depot() entities.DepotConfig {
	return l.depot
}

// Project returns the activated project, or nil before Initialize.
func (l *Library) Project() *entities.Project {
	return l.project
}

// Table exposes the function table, mainly for diagnostics.
func (l *Library) Table() *FunctionTable {
	return &l.table
}

// fail routes err through the fatal translator when one is configured.
// It must be called directly from an exported method.
func (l *Library) fail(err error) error {
	if err != nil && l.fatal != nil {
		l.fatal.DieAt(err, 2)
	}
	return err
}

// Initialize boots the embedded runtime and activates the hosted module of the
// project in projectDir. depotPath, when non-empty, overrides the package depot.
//
// Errors before the runtime boots leave the Library uninitialized; any later
// failure finalizes it.
func (l *Library) Initialize(ctx context.Context, projectDir, depotPath string) error {
	return l.fail(l.initialize(ctx, projectDir, depotPath))
}

func (l *Library) initialize(ctx context.Context, projectDir, depotPath string) error {
	const op = "initialize"
	if l.state != entities.StateUninitialized {
		return &errors.LifecycleError{Operation: op, State: l.state, Err: errors.ErrInitializedTwice}
	}

	settings, err := config.Load(l.env)
	if err != nil {
		return &errors.ActivationError{Stage: "config", Project: projectDir, Err: err}
	}
	l.settings = settings
	if l.logger == nil {
		l.logger = log.NewLogger(settings.Debug, log.WithWriter(l.logOutput))
	}

	if !runtimeClaimed.CompareAndSwap(false, true) {
		return &errors.LifecycleError{Operation: op, State: l.state, Err: errors.ErrRuntimeClaimed}
	}
	l.claimed = true

	resolved, err := depot.NewResolver(l.env, depot.WithLogger(l.logger)).Resolve(projectDir, depotPath)
	if err != nil {
		l.release()
		return err
	}
	l.depot = resolved

	if l.runtime == nil {
		opts := append([]wazero.RuntimeOption{wazero.WithLogger(l.logger)}, l.runtimeOpts...)
		l.runtime = wazero.NewRuntime(opts...)
	}

	if err := l.runtime.Boot(ctx, ports.BootConfig{Env: l.env, Debug: settings.Debug}); err != nil {
		return l.abort(ctx, &errors.ActivationError{Stage: "boot", Project: projectDir, Err: err})
	}

	loaderOpts := append([]LoaderOption{
		WithLoaderEnvironment(l.env),
		WithLoaderLogger(l.logger),
	}, l.loaderOpts...)
	project, err := NewLoader(loaderOpts...).LoadProject(projectDir, resolved)
	if err != nil {
		return l.abort(ctx, err)
	}
	l.project = project

	mod, err := l.runtime.Activate(ctx, project)
	if err != nil {
		return l.abort(ctx, &errors.ActivationError{Stage: "activate", Project: project.Dir, Err: err})
	}
	l.module = mod

	if err := l.table.Resolve(mod); err != nil {
		return l.abort(ctx, err)
	}

	l.state = entities.StateInitialized
	l.logger.DebugContext(ctx, "library initialized",
		"project", project.Dir,
		"module", mod.Name(),
		"depot", resolved.DepotPath,
		"depot_source", string(resolved.Source),
		"debug", settings.Debug.String())
	l.banner(ctx)
	return nil
}

// banner logs the hosted library's versions when debug output is on.
func (l *Library) banner(ctx context.Context) {
	if !l.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	version, err := l.versionString(ctx, entities.EntryVersionLibrary, l.table.fns.versionLibrary)
	if err != nil {
		l.logger.WarnContext(ctx, "could not query library version", "error", err)
		return
	}
	packages, err := l.versionString(ctx, entities.EntryVersionPackages, l.table.fns.versionPackages)
	if err != nil {
		l.logger.WarnContext(ctx, "could not query package versions", "error", err)
		return
	}
	l.logger.DebugContext(ctx, "hosted library loaded",
		"bridge_version", Version,
		"library_version", version,
		"packages", packages)
}

// Finalize tears down the hosted module and the embedded runtime.
func (l *Library) Finalize(ctx context.Context) error {
	return l.fail(l.finalize(ctx))
}

func (l *Library) finalize(ctx context.Context) error {
	const op = "finalize"
	switch l.state {
	case entities.StateUninitialized:
		return &errors.LifecycleError{Operation: op, State: l.state, Err: errors.ErrNotInitialized}
	case entities.StateFinalized:
		return &errors.LifecycleError{Operation: op, State: l.state, Err: errors.ErrFinalizedTwice}
	}

	if err := l.teardown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	l.logger.DebugContext(ctx, "library finalized")
	return nil
}

// abort tears down a partially initialized Library and returns cause.
func (l *Library) abort(ctx context.Context, cause error) error {
	if err := l.teardown(ctx); err != nil {
		l.logger.WarnContext(ctx, "teardown after failed initialize", "error", err)
	}
	return cause
}

func (l *Library) teardown(ctx context.Context) error {
	l.table.Reset()
	clear(l.borrows)

	var errs []error
	if l.module != nil {
		errs = append(errs, l.module.Close(ctx))
		l.module = nil
	}
	if l.runtime != nil {
		errs = append(errs, l.runtime.Close(ctx))
	}
	l.state = entities.StateFinalized
	l.release()
	return stderrors.Join(errs...)
}

func (l *Library) release() {
	if l.claimed {
		l.claimed = false
		runtimeClaimed.Store(false)
	}
}

// ready returns the bound entry points, or a lifecycle error outside the
// Initialized state.
func (l *Library) ready(op string) (*boundFuncs, error) {
	if l.state != entities.StateInitialized || !l.table.Populated() {
		return nil, &errors.LifecycleError{Operation: op, State: l.state, Err: errors.ErrNotReady}
	}
	return l.table.fns, nil
}

// invoke runs fn with a fresh guest error sink and converts a failure into a
// RuntimeError carrying the guest's own message, if it raised one.
func (l *Library) invoke(ctx context.Context, entry entities.EntryPoint, code string, fn func(ctx context.Context) error) error {
	ctx, sink := hostfuncs.WithErrorSink(ctx)
	ctx = wazero.WithEntryPoint(ctx, entry)

	err := fn(ctx)
	if err == nil {
		return nil
	}

	re := &errors.RuntimeError{Operation: entry.String(), Code: code, Err: err}
	if guest := sink.First(); guest != nil {
		re.Guest, re.Message = guest, guest.Message
	}
	return re
}
