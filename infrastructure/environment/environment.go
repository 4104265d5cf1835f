// Package environment adapts process environment variables to ports.Environment.
package environment

import (
	"maps"
	"os"
	"sync"

	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

// OS reads and writes the real process environment.
type OS struct{}

// NewOS returns the process environment adapter.
func NewOS() ports.Environment {
	return OS{}
}

func (OS) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (OS) Setenv(key, value string) error {
	return os.Setenv(key, value)
}

// Map is an in-memory environment. It is safe for concurrent use.
type Map struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMap returns a Map seeded with a copy of vars.
func NewMap(vars map[string]string) *Map {
	m := &Map{vars: make(map[string]string, len(vars))}
	maps.Copy(m.vars, vars)
	return m
}

func (m *Map) LookupEnv(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[key]
	return v, ok
}

func (m *Map) Setenv(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[key] = value
	return nil
}

// Snapshot returns a copy of the current variables.
func (m *Map) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.vars)
}
