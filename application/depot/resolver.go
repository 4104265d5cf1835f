// Package depot resolves where the embedded runtime keeps its package cache.
package depot

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
	domainerrors "github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

// MaxPathLength is the capacity of the constructed default depot path,
// including the separator and a terminator.
const MaxPathLength = 1024

// Resolver decides the depot location and publishes it through the environment.
type Resolver struct {
	env     ports.Environment
	logger  *slog.Logger
	subpath string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithSubpath overrides the default depot location relative to the project.
func WithSubpath(subpath string) Option {
	return func(r *Resolver) {
		r.subpath = subpath
	}
}

// NewResolver creates a Resolver over env.
func NewResolver(env ports.Environment, opts ...Option) *Resolver {
	r := &Resolver{
		env:     env,
		logger:  slog.Default(),
		subpath: entities.DefaultDepotSubpath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies the depot rules for one initialization:
//   - an explicit depotPath is used verbatim and always overrides the environment;
//   - otherwise an already set environment variable is left untouched;
//   - otherwise the canonical form of projectDir joined with the default subpath is set.
func (r *Resolver) Resolve(projectDir, depotPath string) (entities.DepotConfig, error) {
	cfg := entities.DepotConfig{ProjectDir: projectDir}

	if depotPath != "" {
		if err := r.env.Setenv(entities.EnvDepotPath, depotPath); err != nil {
			return cfg, &domainerrors.DepotError{Kind: domainerrors.DepotEnvironment, Path: depotPath, Err: err}
		}
		cfg.DepotPath = depotPath
		cfg.Source = entities.DepotFromArgument
		r.logger.Debug(entities.EnvDepotPath+" set", "path", depotPath)
		return cfg, nil
	}

	if existing, ok := r.env.LookupEnv(entities.EnvDepotPath); ok {
		cfg.DepotPath = existing
		cfg.Source = entities.DepotFromEnvironment
		return cfg, nil
	}

	if len(projectDir)+len(r.subpath)+2 > MaxPathLength {
		return cfg, &domainerrors.DepotError{
			Kind: domainerrors.DepotBufferOverflow,
			Path: projectDir + string(filepath.Separator) + r.subpath,
		}
	}

	path, err := canonicalize(projectDir, r.subpath)
	if err != nil {
		return cfg, &domainerrors.DepotError{
			Kind: domainerrors.DepotUnresolvable,
			Path: filepath.Join(projectDir, r.subpath),
			Err:  err,
		}
	}

	if err := r.env.Setenv(entities.EnvDepotPath, path); err != nil {
		return cfg, &domainerrors.DepotError{Kind: domainerrors.DepotEnvironment, Path: path, Err: err}
	}
	cfg.DepotPath = path
	cfg.Source = entities.DepotFromDefault
	r.logger.Debug(entities.EnvDepotPath+" set", "path", path)
	return cfg, nil
}

// canonicalize returns the absolute, symlink-free form of projectDir/subpath.
// The project directory must exist; the depot itself may not exist yet.
func canonicalize(projectDir, subpath string) (string, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", err
	}
	dir, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, subpath)
	resolved, err := filepath.EvalSymlinks(path)
	switch {
	case err == nil:
		return resolved, nil
	case errors.Is(err, fs.ErrNotExist):
		if _, statErr := os.Lstat(path); statErr == nil {
			// dangling symlink
			return "", err
		}
		return path, nil
	default:
		return "", err
	}
}
