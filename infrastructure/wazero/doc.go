// Package wazero implements the embedded runtime on top of the wazero
// WebAssembly runtime.
//
// Booting creates a wazero.Runtime whose compilation cache lives in the depot
// directory, instantiates WASI preview1 and exports the trixi_host module built
// from a hostfuncs.HandlerRegistry. Activation compiles the project's wasm
// module and instantiates it as a reactor (its _initialize export runs once).
//
//	rt := wazero.NewRuntime(wazero.WithLogger(logger))
//	if err := rt.Boot(ctx, ports.BootConfig{Env: env}); err != nil {
//	    return err
//	}
//	mod, err := rt.Activate(ctx, project)
//
// Host functions with the packed i64 convention are registered with
// RegisterWithRuntime; functions with scalar signatures (debug_level) use
// CustomHandler.
package wazero
