package hostfuncs

import (
	"context"
	"sync"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

// HostContext wraps a standard context.Context with host function-specific helpers.
// It provides access to the invoked function name and allows middleware to store
// request-scoped values without polluting the standard context.
type HostContext interface {
	context.Context

	// FunctionName returns the name of the host function being invoked.
	FunctionName() string

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values   map[any]any
	funcName string
}

// NewHostContext creates a new HostContext wrapping the given context.
func NewHostContext(ctx context.Context, funcName string) HostContext {
	return &hostContext{
		Context:  ctx,
		funcName: funcName,
		values:   make(map[any]any),
	}
}

func (c *hostContext) FunctionName() string {
	return c.funcName
}

func (c *hostContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext, it is returned directly.
// Otherwise, a new HostContext is created wrapping the given context.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName)
}

// ErrorSink collects the errors the guest raises through raise_error during
// one call into the hosted package.
type ErrorSink struct {
	mu     sync.Mutex
	errors []*entities.ErrorDetail
}

type errorSinkKey struct{}

// WithErrorSink returns a child context carrying a fresh ErrorSink.
func WithErrorSink(ctx context.Context) (context.Context, *ErrorSink) {
	sink := &ErrorSink{}
	return context.WithValue(ctx, errorSinkKey{}, sink), sink
}

// ErrorSinkFrom returns the sink stored in ctx, or nil.
func ErrorSinkFrom(ctx context.Context) *ErrorSink {
	sink, _ := ctx.Value(errorSinkKey{}).(*ErrorSink)
	return sink
}

// Record appends a raised error.
func (s *ErrorSink) Record(d *entities.ErrorDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, d)
}

// First returns the first raised error, or nil. Errors raised after it come
// from the guest's cleanup of the failed call.
func (s *ErrorSink) First() *entities.ErrorDetail {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errors) == 0 {
		return nil
	}
	return s.errors[0]
}

// Errors returns a copy of all raised errors in order.
func (s *ErrorSink) Errors() []*entities.ErrorDetail {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entities.ErrorDetail, len(s.errors))
	copy(out, s.errors)
	return out
}
