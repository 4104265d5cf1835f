package host

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apptemplate "github.com/trixi-framework/libtrixi-go/application/template"
	"github.com/trixi-framework/libtrixi-go/application/validation"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ManifestParser
	validator       ports.ManifestValidator
	env             ports.Environment
	logger          *slog.Logger
	strictTemplates bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlManifestParser(),
		validator:       validation.NewManifestValidator(),
		logger:          slog.Default(),
		strictTemplates: true,
	}
}

// Loader turns a project directory into an activatable entities.Project.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom manifest parser.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithValidator sets a custom manifest validator.
func WithValidator(v ports.ManifestValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithLoaderEnvironment exposes env to manifest templates.
func WithLoaderEnvironment(env ports.Environment) LoaderOption {
	return func(c *loaderConfig) {
		c.env = env
	}
}

// WithLoaderLogger sets the logger used for debug output.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		tplOpts := []apptemplate.TemplateOption{apptemplate.WithStrict(cfg.strictTemplates)}
		if cfg.env != nil {
			tplOpts = append(tplOpts, apptemplate.WithEnvironment(cfg.env))
		}
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(tplOpts...)
	}

	return &Loader{config: cfg}
}

// LoadManifest renders, parses, and validates raw manifest bytes.
func (l *Loader) LoadManifest(raw []byte, data map[string]any) (*entities.ProjectManifest, error) {
	rendered, err := l.config.templateEngine.Render(raw, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}

	manifest, err := l.config.parser.Parse(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	res, err := l.config.validator.Validate(manifest)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !res.Valid {
		errs := make([]error, 0, len(res.Errors))
		for _, e := range res.Errors {
			errs = append(errs, &errors.ConfigError{Field: e.Field, Err: stderrors.New(e.Message)})
		}
		return nil, stderrors.Join(errs...)
	}

	return manifest, nil
}

// LoadProject reads libtrixi.yaml from projectDir. The manifest template sees
// project_dir (canonical) and depot_path.
func (l *Loader) LoadProject(projectDir string, depot entities.DepotConfig) (*entities.Project, error) {
	dir, err := filepath.Abs(projectDir)
	if err == nil {
		dir, err = filepath.EvalSymlinks(dir)
	}
	if err != nil {
		return nil, &errors.ActivationError{Stage: "project", Project: projectDir, Err: err}
	}

	raw, err := os.ReadFile(filepath.Join(dir, entities.ProjectManifestFile))
	if err != nil {
		return nil, &errors.ActivationError{Stage: "manifest", Project: dir, Err: err}
	}

	manifest, err := l.LoadManifest(raw, map[string]any{
		"project_dir": dir,
		"depot_path":  depot.DepotPath,
	})
	if err != nil {
		return nil, &errors.ActivationError{Stage: "manifest", Project: dir, Err: err}
	}

	project := &entities.Project{
		Manifest:   manifest,
		Dir:        dir,
		ModulePath: filepath.Join(dir, manifest.Module),
	}
	l.config.logger.Debug("project manifest loaded",
		"name", manifest.Name,
		"version", manifest.Version,
		"module", project.ModulePath,
		"abi_version", manifest.ABIVersion,
		"env", len(manifest.Env))
	return project, nil
}
