package wazero

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/hostfuncs"
)

const guestExportMemory = "memory"

// Mount exposes a host directory to the guest file system.
type Mount struct {
	HostDir  string
	GuestDir string
	ReadOnly bool
}

type runtimeConfig struct {
	logger           *slog.Logger
	registry         *hostfuncs.HandlerRegistry
	stdout           io.Writer
	stderr           io.Writer
	mounts           []Mount
	memoryLimitPages uint32
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

// WithLogger sets the logger for the runtime and the host functions it exports.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithRegistry replaces the default host function registry.
func WithRegistry(registry *hostfuncs.HandlerRegistry) RuntimeOption {
	return func(c *runtimeConfig) {
		c.registry = registry
	}
}

// WithOutput sets the guest's stdout and stderr (default: the process streams).
func WithOutput(stdout, stderr io.Writer) RuntimeOption {
	return func(c *runtimeConfig) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithMounts replaces the guest file system mounts. The default mounts the host
// root at "/" so absolute paths (elixir files, meshes) resolve as on the host.
func WithMounts(mounts ...Mount) RuntimeOption {
	return func(c *runtimeConfig) {
		c.mounts = mounts
	}
}

// WithMemoryLimitPages caps guest memory in 64 KiB pages (0 keeps the wazero default).
func WithMemoryLimitPages(pages uint32) RuntimeOption {
	return func(c *runtimeConfig) {
		c.memoryLimitPages = pages
	}
}

// Runtime implements ports.EmbeddedRuntime with wazero.
type Runtime struct {
	cfg     runtimeConfig
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	module  *HostedModule
}

var _ ports.EmbeddedRuntime = (*Runtime)(nil)

// NewRuntime creates an unbooted runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	cfg := runtimeConfig{
		logger: slog.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		mounts: []Mount{{HostDir: "/", GuestDir: "/"}},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Runtime{cfg: cfg}
}

// Boot starts wazero. The compilation cache is placed in the directory named by
// LIBTRIXI_DEPOT_PATH when set; otherwise compilation is not cached.
func (r *Runtime) Boot(ctx context.Context, cfg ports.BootConfig) error {
	if r.runtime != nil {
		return errors.New("runtime already booted")
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if r.cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(r.cfg.memoryLimitPages)
	}

	if cfg.Env != nil {
		if depot, ok := cfg.Env.LookupEnv(entities.EnvDepotPath); ok && depot != "" {
			if err := os.MkdirAll(depot, 0o755); err != nil {
				return fmt.Errorf("create depot: %w", err)
			}
			cache, err := wazero.NewCompilationCacheWithDir(depot)
			if err != nil {
				return fmt.Errorf("open compilation cache: %w", err)
			}
			r.cache = cache
			rc = rc.WithCompilationCache(cache)
		}
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		r.closeAll(ctx, rt)
		return fmt.Errorf("instantiate wasi: %w", err)
	}

	registry := r.cfg.registry
	if registry == nil {
		var err error
		registry, err = hostfuncs.NewRegistry(
			hostfuncs.WithMiddleware(
				hostfuncs.PanicRecoveryMiddleware(),
				hostfuncs.LoggingMiddleware(r.cfg.logger),
			),
			hostfuncs.WithBridgeHandlers(r.cfg.logger, cfg.Debug),
		)
		if err != nil {
			r.closeAll(ctx, rt)
			return fmt.Errorf("create host function registry: %w", err)
		}
	}

	err := RegisterWithRuntime(ctx, rt, registry,
		WithAdapterLogger(r.cfg.logger),
		WithCustomHandler(DebugLevelHandler(cfg.Debug)),
	)
	if err != nil {
		r.closeAll(ctx, rt)
		return fmt.Errorf("register host functions: %w", err)
	}

	r.runtime = rt
	r.cfg.logger.DebugContext(ctx, "embedded runtime booted", "cached", r.cache != nil)
	return nil
}

// Activate compiles and instantiates the project's module. Only one module may
// be active at a time.
func (r *Runtime) Activate(ctx context.Context, project *entities.Project) (ports.HostedModule, error) {
	if r.runtime == nil {
		return nil, errors.New("runtime not booted")
	}
	if r.module != nil {
		return nil, fmt.Errorf("module %q already active", r.module.Name())
	}

	binary, err := os.ReadFile(project.ModulePath)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}

	compiled, err := r.runtime.CompileModule(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("wazero compile error: %w", err)
	}
	if _, ok := compiled.ExportedMemories()[guestExportMemory]; !ok {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("guest doesn't export memory[%s]", guestExportMemory)
	}

	mod, err := r.runtime.InstantiateModule(ctx, compiled, r.moduleConfig(project))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("guest module instantiation failed: %w", err)
	}

	r.module = &HostedModule{name: mod.Name(), module: mod, compiled: compiled}
	r.cfg.logger.DebugContext(ctx, "hosted module instantiated",
		"module", mod.Name(),
		"path", project.ModulePath)
	return r.module, nil
}

func (r *Runtime) moduleConfig(project *entities.Project) wazero.ModuleConfig {
	name := filepathBase(project.ModulePath)
	if project.Manifest != nil && project.Manifest.Name != "" {
		name = project.Manifest.Name
	}

	fsConfig := wazero.NewFSConfig()
	for _, m := range r.cfg.mounts {
		if m.ReadOnly {
			fsConfig = fsConfig.WithReadOnlyDirMount(m.HostDir, m.GuestDir)
		} else {
			fsConfig = fsConfig.WithDirMount(m.HostDir, m.GuestDir)
		}
	}

	mc := wazero.NewModuleConfig().
		WithName(name).
		WithArgs(name).
		WithStartFunctions("_initialize"). // reactor module
		WithStdout(r.cfg.stdout).
		WithStderr(r.cfg.stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader).
		WithFSConfig(fsConfig)

	if project.Manifest != nil {
		for k, v := range project.Manifest.Env {
			mc = mc.WithEnv(k, v)
		}
	}
	return mc
}

// Close releases the active module, the runtime and the compilation cache.
// Closing an unbooted runtime is a no-op.
func (r *Runtime) Close(ctx context.Context) error {
	if r.runtime == nil {
		return nil
	}
	var errs []error
	if r.module != nil {
		errs = append(errs, r.module.Close(ctx))
		r.module = nil
	}
	errs = append(errs, r.runtime.Close(ctx))
	if r.cache != nil {
		errs = append(errs, r.cache.Close(ctx))
		r.cache = nil
	}
	r.runtime = nil
	return errors.Join(errs...)
}

func (r *Runtime) closeAll(ctx context.Context, rt wazero.Runtime) {
	if err := rt.Close(ctx); err != nil {
		r.cfg.logger.WarnContext(ctx, "failed to close runtime", "error", err)
	}
	if r.cache != nil {
		_ = r.cache.Close(ctx)
		r.cache = nil
	}
}
