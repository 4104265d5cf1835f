package host

import (
	"context"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/internal/abi"
)

// The Load methods fill dst, which the caller sizes from the count queries.
// The bridge does not check len(dst) against those counts; a short dst gets a
// truncated copy and the guest may write past the scratch buffer it was given.

// LoadCellAverages loads element averages of all conservative variables,
// nelements*nvariables values in element-major order.
func (l *Library) LoadCellAverages(ctx context.Context, h entities.Handle, dst []float64) error {
	return l.fail(l.loadBuf(ctx, entities.EntryLoadCellAverages, h, dst, func(f *boundFuncs) handleBuf { return f.loadCellAverages }))
}

// LoadNodeReferenceCoordinates loads the nnodes reference coordinates in [-1, 1].
func (l *Library) LoadNodeReferenceCoordinates(ctx context.Context, h entities.Handle, dst []float64) error {
	return l.fail(l.loadBuf(ctx, entities.EntryLoadNodeReferenceCoordinates, h, dst, func(f *boundFuncs) handleBuf { return f.loadNodeReferenceCoordinates }))
}

// LoadNodeWeights loads the nnodes quadrature weights.
func (l *Library) LoadNodeWeights(ctx context.Context, h entities.Handle, dst []float64) error {
	return l.fail(l.loadBuf(ctx, entities.EntryLoadNodeWeights, h, dst, func(f *boundFuncs) handleBuf { return f.loadNodeWeights }))
}

// LoadPrimitiveVars loads primitive variable varID (1-based) at every dof.
func (l *Library) LoadPrimitiveVars(ctx context.Context, h entities.Handle, varID int, dst []float64) error {
	return l.fail(l.loadVar(ctx, entities.EntryLoadPrimitiveVars, h, varID, dst, func(f *boundFuncs) handleVar { return f.loadPrimitiveVars }))
}

// LoadElementAveragedPrimitiveVars loads element averages of primitive variable
// varID (1-based).
func (l *Library) LoadElementAveragedPrimitiveVars(ctx context.Context, h entities.Handle, varID int, dst []float64) error {
	return l.fail(l.loadVar(ctx, entities.EntryLoadElementAveragedPrimitiveVars, h, varID, dst, func(f *boundFuncs) handleVar { return f.loadElementAveragedPrimitiveVars }))
}

// RegisterData hands data to the simulation under index. The guest keeps its
// own copy.
func (l *Library) RegisterData(ctx context.Context, h entities.Handle, index int, data []float64) error {
	fns, err := l.ready("register_data")
	if err != nil {
		return l.fail(err)
	}
	return l.fail(l.invoke(ctx, entities.EntryRegisterData, "", func(ctx context.Context) error {
		return l.withBytes(ctx, fns, abi.EncodeFloat64s(data), func(ptr, _ uint32) error {
			return fns.registerData(ctx, h, int32(index), int32(len(data)), ptr) //nolint:gosec // sizes fit the guest's i32
		})
	}))
}

func (l *Library) loadBuf(ctx context.Context, entry entities.EntryPoint, h entities.Handle, dst []float64, pick func(*boundFuncs) handleBuf) error {
	fns, err := l.ready(entry.String())
	if err != nil {
		return err
	}
	return l.invoke(ctx, entry, "", func(ctx context.Context) error {
		return l.loadFloats(ctx, fns, dst, func(ctx context.Context, ptr uint32) error {
			return pick(fns)(ctx, h, ptr)
		})
	})
}

func (l *Library) loadVar(ctx context.Context, entry entities.EntryPoint, h entities.Handle, varID int, dst []float64, pick func(*boundFuncs) handleVar) error {
	fns, err := l.ready(entry.String())
	if err != nil {
		return err
	}
	return l.invoke(ctx, entry, "", func(ctx context.Context) error {
		return l.loadFloats(ctx, fns, dst, func(ctx context.Context, ptr uint32) error {
			return pick(fns)(ctx, h, int32(varID), ptr) //nolint:gosec // variable ids are small
		})
	})
}
