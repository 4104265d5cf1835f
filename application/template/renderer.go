// Package template expands project manifests before they are parsed, so a
// manifest can refer to the project directory or the caller's environment.
package template

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

type templateConfig struct {
	env    ports.Environment
	strict bool
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{strict: true}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithEnvironment makes the env and envOr template functions read from env.
// Without it both functions always see an unset variable.
func WithEnvironment(env ports.Environment) TemplateOption {
	return func(c *templateConfig) {
		c.env = env
	}
}

// GoTemplateEngine implements TemplateEngine using text/template.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

func (e *GoTemplateEngine) lookup(key string) (string, bool) {
	if e.config.env == nil {
		return "", false
	}
	return e.config.env.LookupEnv(key)
}

func (e *GoTemplateEngine) funcs() template.FuncMap {
	return template.FuncMap{
		"env": func(key string) (string, error) {
			v, ok := e.lookup(key)
			if !ok && e.config.strict {
				return "", fmt.Errorf("environment variable %s is not set", key)
			}
			return v, nil
		},
		"envOr": func(key, fallback string) string {
			if v, ok := e.lookup(key); ok && v != "" {
				return v
			}
			return fallback
		},
	}
}

// Render expands raw with data available as the template dot.
// Manifests without actions are returned unchanged.
func (e *GoTemplateEngine) Render(raw []byte, data map[string]any) ([]byte, error) {
	if !bytes.Contains(raw, []byte("{{")) {
		return raw, nil
	}

	tmpl := template.New("manifest").Funcs(e.funcs())
	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}

	return buf.Bytes(), nil
}
