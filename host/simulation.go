package host

import (
	"context"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/errors"
)

// InitializeSimulation sets up a simulation from the libelixir file at path and
// returns its handle. The path is interpreted by the hosted module.
func (l *Library) InitializeSimulation(ctx context.Context, libelixir string) (entities.Handle, error) {
	fns, err := l.ready("initialize_simulation")
	if err != nil {
		return 0, l.fail(err)
	}

	var h int32
	err = l.invoke(ctx, entities.EntryInitializeSimulation, libelixir, func(ctx context.Context) error {
		return l.withBytes(ctx, fns, []byte(libelixir), func(ptr, n uint32) error {
			var err error
			h, err = fns.initializeSimulation(ctx, ptr, n)
			return err
		})
	})
	if err != nil {
		return 0, l.fail(err)
	}
	l.logger.DebugContext(ctx, "simulation initialized", "handle", h, "libelixir", libelixir)
	return entities.Handle(h), nil
}

// IsFinished reports whether the simulation reached its final time.
func (l *Library) IsFinished(ctx context.Context, h entities.Handle) (bool, error) {
	v, err := l.handleI32(ctx, entities.EntryIsFinished, h, func(f *boundFuncs) handleI32 { return f.isFinished })
	return v != 0, l.fail(err)
}

// Step advances the simulation by one time step. It fails while the
// simulation's data is borrowed.
func (l *Library) Step(ctx context.Context, h entities.Handle) error {
	return l.fail(l.handleVoid(ctx, entities.EntryStep, h, func(f *boundFuncs) handleVoid { return f.step }))
}

// FinalizeSimulation releases the simulation behind h inside the hosted module.
func (l *Library) FinalizeSimulation(ctx context.Context, h entities.Handle) error {
	return l.fail(l.handleVoid(ctx, entities.EntryFinalizeSimulation, h, func(f *boundFuncs) handleVoid { return f.finalizeSimulation }))
}

// CalculateDT returns the time step the next Step would take.
func (l *Library) CalculateDT(ctx context.Context, h entities.Handle) (float64, error) {
	v, err := l.handleF64(ctx, entities.EntryCalculateDT, h, func(f *boundFuncs) handleF64 { return f.calculateDT })
	return v, l.fail(err)
}

// SimulationTime returns the current simulation time.
func (l *Library) SimulationTime(ctx context.Context, h entities.Handle) (float64, error) {
	v, err := l.handleF64(ctx, entities.EntryGetSimulationTime, h, func(f *boundFuncs) handleF64 { return f.getSimulationTime })
	return v, l.fail(err)
}

// NDims returns the number of spatial dimensions.
func (l *Library) NDims(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNDims, h, func(f *boundFuncs) handleI32 { return f.ndims })
	return int(v), l.fail(err)
}

// NElements returns the number of elements local to this process.
func (l *Library) NElements(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNElements, h, func(f *boundFuncs) handleI32 { return f.nelements })
	return int(v), l.fail(err)
}

// NElementsGlobal returns the number of elements across all processes.
func (l *Library) NElementsGlobal(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNElementsGlobal, h, func(f *boundFuncs) handleI32 { return f.nelementsGlobal })
	return int(v), l.fail(err)
}

// NDofs returns the number of local degrees of freedom.
func (l *Library) NDofs(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNDofs, h, func(f *boundFuncs) handleI32 { return f.ndofs })
	return int(v), l.fail(err)
}

// NDofsGlobal returns the number of degrees of freedom across all processes.
func (l *Library) NDofsGlobal(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNDofsGlobal, h, func(f *boundFuncs) handleI32 { return f.ndofsGlobal })
	return int(v), l.fail(err)
}

// NDofsElement returns the number of degrees of freedom per element.
func (l *Library) NDofsElement(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNDofsElement, h, func(f *boundFuncs) handleI32 { return f.ndofsElement })
	return int(v), l.fail(err)
}

// NVariables returns the number of conservative variables.
func (l *Library) NVariables(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNVariables, h, func(f *boundFuncs) handleI32 { return f.nvariables })
	return int(v), l.fail(err)
}

// NNodes returns the number of quadrature nodes per direction.
func (l *Library) NNodes(ctx context.Context, h entities.Handle) (int, error) {
	v, err := l.handleI32(ctx, entities.EntryNNodes, h, func(f *boundFuncs) handleI32 { return f.nnodes })
	return int(v), l.fail(err)
}

// T8codeForest returns the guest's mesh forest reference. It is nil unless the
// simulation runs on a t8code mesh.
func (l *Library) T8codeForest(ctx context.Context, h entities.Handle) (entities.ForestRef, error) {
	v, err := l.handleI32(ctx, entities.EntryGetT8codeForest, h, func(f *boundFuncs) handleI32 { return f.getT8codeForest })
	return entities.ForestRef(uint32(v)), l.fail(err) //nolint:gosec // opaque guest pointer
}

// EvalCode has the hosted module evaluate code. Development only.
func (l *Library) EvalCode(ctx context.Context, code string) error {
	fns, err := l.ready("eval")
	if err != nil {
		return l.fail(err)
	}
	return l.fail(l.invoke(ctx, entities.EntryEval, code, func(ctx context.Context) error {
		return l.withBytes(ctx, fns, []byte(code), func(ptr, n uint32) error {
			return fns.eval(ctx, ptr, n)
		})
	}))
}

func (l *Library) handleI32(ctx context.Context, entry entities.EntryPoint, h entities.Handle, pick func(*boundFuncs) handleI32) (int32, error) {
	fns, err := l.ready(entry.String())
	if err != nil {
		return 0, err
	}
	var v int32
	err = l.invoke(ctx, entry, "", func(ctx context.Context) error {
		var err error
		v, err = pick(fns)(ctx, h)
		return err
	})
	return v, err
}

func (l *Library) handleF64(ctx context.Context, entry entities.EntryPoint, h entities.Handle, pick func(*boundFuncs) handleF64) (float64, error) {
	fns, err := l.ready(entry.String())
	if err != nil {
		return 0, err
	}
	var v float64
	err = l.invoke(ctx, entry, "", func(ctx context.Context) error {
		var err error
		v, err = pick(fns)(ctx, h)
		return err
	})
	return v, err
}

func (l *Library) handleVoid(ctx context.Context, entry entities.EntryPoint, h entities.Handle, pick func(*boundFuncs) handleVoid) error {
	fns, err := l.ready(entry.String())
	if err != nil {
		return err
	}
	if l.borrows[h] > 0 {
		return &errors.BorrowError{Operation: entry.String(), Handle: h, Err: errors.ErrDataBorrowed}
	}
	return l.invoke(ctx, entry, "", func(ctx context.Context) error {
		return pick(fns)(ctx, h)
	})
}
