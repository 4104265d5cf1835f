package hostfuncs

import (
	"context"
	"fmt"
	"slices"
)

// HandlerRegistry is an immutable set of named host functions. It is built once
// per runtime boot and only read afterwards.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
	names    []string
}

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	err        error
}

// NewRegistry creates a HandlerRegistry with the given options.
// Returns the first registration error (empty or duplicate name).
//
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
//	    hostfuncs.WithBridgeHandlers(logger, entities.DebugHost),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if b.err != nil {
		return nil, b.err
	}

	reg := &HandlerRegistry{
		handlers: make(map[string]ByteHandler, len(b.handlers)),
		names:    make([]string, 0, len(b.handlers)),
	}
	for name, handler := range b.handlers {
		// first middleware ends up outermost
		for i := len(b.middleware) - 1; i >= 0; i-- {
			handler = b.middleware[i](handler)
		}
		reg.handlers[name] = handler
		reg.names = append(reg.names, name)
	}
	slices.Sort(reg.names)
	return reg, nil
}

// Invoke dispatches a host function call by name. An unknown name yields a
// NOT_FOUND ErrorResponse payload, not a Go error.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	return handler(HostContextFrom(ctx, name), payload)
}

// Has returns true if a handler with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered handler names in sorted order.
func (r *HandlerRegistry) Names() []string {
	return slices.Clone(r.names)
}

func (b *registryBuilder) addHandler(name string, handler ByteHandler) {
	if b.err != nil {
		return
	}
	switch {
	case name == "":
		b.err = fmt.Errorf("handler name cannot be empty")
	case handler == nil:
		b.err = fmt.Errorf("handler %q is nil", name)
	default:
		if _, exists := b.handlers[name]; exists {
			b.err = fmt.Errorf("duplicate handler name: %q", name)
			return
		}
		b.handlers[name] = handler
	}
}

// WithByteHandler registers a raw ByteHandler with the given name.
func WithByteHandler(name string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		b.addHandler(name, handler)
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
