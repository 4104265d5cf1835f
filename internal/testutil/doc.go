// Package testutil provides fakes and builders shared by the bridge's tests:
// an in-Go fake solver module and runtime implementing the domain ports, and a
// tiny encoder for hand-written wasm modules.
package testutil
