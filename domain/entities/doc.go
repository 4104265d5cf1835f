// Package entities provides core domain entities for the bridge.
// These are plain value types shared by the host facade, the runtime adapters
// and the guest wire protocol. They carry no runtime dependencies.
package entities
