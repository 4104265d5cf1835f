// Package host embeds a compiled solver module and exposes its simulation
// entry points as Go methods.
//
// A Library owns the embedded runtime for its whole life: Initialize resolves
// the package depot, boots the runtime, activates the project's module and binds
// every entry point once; Finalize tears it all down again. Between the two,
// each facade method is a direct call through the bound function table.
//
// A Library is not safe for concurrent use. Only one Library per process may
// hold the embedded runtime at a time.
package host
