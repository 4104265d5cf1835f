package wazero

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

// HostedModule implements ports.HostedModule for an instantiated wazero module.
type HostedModule struct {
	name     string
	module   api.Module
	compiled wazero.CompiledModule
}

var _ ports.HostedModule = (*HostedModule)(nil)

func (m *HostedModule) Name() string {
	return m.name
}

// Function returns a handle to an exported function, or nil.
func (m *HostedModule) Function(name string) ports.Function {
	if m.module == nil {
		return nil
	}
	fn := m.module.ExportedFunction(name)
	if fn == nil {
		return nil
	}
	return &function{fn: fn}
}

// Memory returns the memory instance of the module, or nil.
func (m *HostedModule) Memory() ports.Memory {
	if m.module == nil {
		return nil
	}
	mem := m.module.Memory()
	if mem == nil {
		return nil
	}
	return mem
}

// Close closes the instance and its compiled module. Calling it twice is safe.
func (m *HostedModule) Close(ctx context.Context) error {
	if m.module == nil {
		return nil
	}
	err := errors.Join(m.module.Close(ctx), m.compiled.Close(ctx))
	m.module = nil
	return err
}

type function struct {
	fn api.Function
}

func (f *function) Signature() entities.Signature {
	def := f.fn.Definition()
	return entities.Signature{
		Params:  valueTypes(def.ParamTypes()),
		Results: valueTypes(def.ResultTypes()),
	}
}

func (f *function) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f.fn.Call(ctx, params...)
}

func valueTypes(in []api.ValueType) []entities.ValueType {
	out := make([]entities.ValueType, len(in))
	for i, t := range in {
		out[i] = entities.ValueType(t)
	}
	return out
}

func filepathBase(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
