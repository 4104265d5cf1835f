// Package ports defines interfaces for infrastructure operations.
// These ports enable dependency inversion - the bridge depends on abstractions,
// and infrastructure adapters (wazero, the OS environment, YAML) implement them.
package ports
