package ports

import (
	"context"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

// BootConfig carries what the embedded runtime needs before it starts.
type BootConfig struct {
	// Env is the environment the runtime reads its own settings from
	// (the depot path variable in particular).
	Env Environment

	// Debug is reported to the guest through trixi_host.debug_level.
	Debug entities.DebugLevel
}

// EmbeddedRuntime boots, hosts and tears down the managed runtime.
// An implementation hosts at most one activated module.
type EmbeddedRuntime interface {
	// Boot starts the runtime. It must be called once, before Activate.
	Boot(ctx context.Context, cfg BootConfig) error

	// Activate loads and instantiates the hosted package described by project.
	Activate(ctx context.Context, project *entities.Project) (HostedModule, error)

	// Close shuts the runtime down and releases every module it created.
	Close(ctx context.Context) error
}

// HostedModule is an instantiated hosted package.
type HostedModule interface {
	// Name returns the module name inside the runtime.
	Name() string

	// Function returns the export with the given name, or nil when absent.
	Function(name string) Function

	// Memory returns the guest linear memory, or nil when the module exports none.
	Memory() Memory

	// Close releases the module instance.
	Close(ctx context.Context) error
}

// Function is a resolved guest export.
type Function interface {
	// Signature returns the wasm types of the export.
	Signature() entities.Signature

	// Call invokes the export. Parameters and results use the wasm stack encoding
	// (api.EncodeI32, api.EncodeF64 and friends).
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Memory is the subset of guest linear memory access the bridge needs.
// Slices returned by Read alias guest memory and are invalidated by growth.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadFloat64Le(offset uint32) (float64, bool)
	WriteFloat64Le(offset uint32, v float64) bool
}
