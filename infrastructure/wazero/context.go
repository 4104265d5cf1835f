package wazero

import (
	"context"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

type contextKey struct {
	name string
}

var entryPointKey = &contextKey{name: "entry_point"}

// WithEntryPoint records which guest entry point a call is running, so host
// functions invoked during the call can report it.
func WithEntryPoint(ctx context.Context, entry entities.EntryPoint) context.Context {
	return context.WithValue(ctx, entryPointKey, entry)
}

// EntryPointFromContext retrieves the entry point stored by WithEntryPoint.
func EntryPointFromContext(ctx context.Context) (entities.EntryPoint, bool) {
	entry, ok := ctx.Value(entryPointKey).(entities.EntryPoint)
	return entry, ok
}
