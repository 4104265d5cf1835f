// Package hostfuncs implements the host functions the bridge exports to the hosted
// package (the trixi_host import module). The logic here has no WASM runtime
// dependency; infrastructure/wazero adapts the registry to wazero.
package hostfuncs
