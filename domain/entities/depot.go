package entities

// DepotSource tells where the resolved depot path came from.
type DepotSource string

const (
	DepotFromArgument    DepotSource = "argument"
	DepotFromEnvironment DepotSource = "environment"
	DepotFromDefault     DepotSource = "default"
)

// DepotConfig is the result of depot path resolution for one Initialize call.
type DepotConfig struct {
	// ProjectDir is the project directory as given by the caller.
	ProjectDir string

	// DepotPath is the package cache location handed to the runtime.
	DepotPath string

	Source DepotSource
}

// Environment variables read by the bridge.
const (
	// EnvDepotPath names the package cache directory.
	EnvDepotPath = "LIBTRIXI_DEPOT_PATH"

	// EnvDebug selects the debug verbosity (see ParseDebugLevel).
	EnvDebug = "LIBTRIXI_DEBUG"
)

// DefaultDepotSubpath is the depot location relative to the project directory.
const DefaultDepotSubpath = "wasm-depot"
