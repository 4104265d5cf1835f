// Package config loads the bridge settings that come from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

// Settings are the environment-controlled knobs of the bridge.
//
// LIBTRIXI_DEPOT_PATH is not part of it: the depot resolver has to tell an
// empty value from an unset one, and it writes the variable back.
type Settings struct {
	Debug entities.DebugLevel `env:"LIBTRIXI_DEBUG"`
}

// Load reads Settings from source.
func Load(source ports.Environment) (Settings, error) {
	vars := make(map[string]string, 1)
	if v, ok := source.LookupEnv(entities.EnvDebug); ok {
		vars[entities.EnvDebug] = v
	}

	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: vars}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
