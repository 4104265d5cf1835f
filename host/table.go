package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
)

type (
	handleI32  func(ctx context.Context, h entities.Handle) (int32, error)
	handleF64  func(ctx context.Context, h entities.Handle) (float64, error)
	handleVoid func(ctx context.Context, h entities.Handle) error
	handleBuf  func(ctx context.Context, h entities.Handle, ptr uint32) error
	handleVar  func(ctx context.Context, h entities.Handle, varID int32, ptr uint32) error
	constI32   func(ctx context.Context) (int32, error)
	packedStr  func(ctx context.Context) (uint64, error)
	ptrLenI32  func(ctx context.Context, ptr, n uint32) (int32, error)
	ptrLenVoid func(ctx context.Context, ptr, n uint32) error
)

// boundFuncs is the typed view of a fully resolved table.
type boundFuncs struct {
	allocate                         func(ctx context.Context, size uint32) (uint32, error)
	deallocate                       func(ctx context.Context, ptr, size uint32) error
	initializeSimulation             ptrLenI32
	calculateDT                      handleF64
	isFinished                       handleI32
	step                             handleVoid
	finalizeSimulation               handleVoid
	ndims                            handleI32
	nelements                        handleI32
	nelementsGlobal                  handleI32
	ndofs                            handleI32
	ndofsGlobal                      handleI32
	ndofsElement                     handleI32
	nvariables                       handleI32
	nnodes                           handleI32
	loadCellAverages                 handleBuf
	loadNodeReferenceCoordinates     handleBuf
	loadNodeWeights                  handleBuf
	loadPrimitiveVars                handleVar
	loadElementAveragedPrimitiveVars handleVar
	registerData                     func(ctx context.Context, h entities.Handle, index, n int32, ptr uint32) error
	getDataPointer                   handleI32
	getSimulationTime                handleF64
	getT8codeForest                  handleI32
	versionLibrary                   packedStr
	versionLibraryMajor              constI32
	versionLibraryMinor              constI32
	versionLibraryPatch              constI32
	versionPackages                  packedStr
	versionPackagesExtended          packedStr
	eval                             ptrLenVoid
}

// FunctionTable caches the resolved entry points of the hosted module.
// It is either fully populated or empty.
type FunctionTable struct {
	slots [entities.NumEntryPoints]ports.Function
	fns   *boundFuncs
}

// Resolve binds every entry point of mod. It checks the ABI marker first and
// then walks the entry points in order; on any failure the table is left
// unchanged.
func (t *FunctionTable) Resolve(mod ports.HostedModule) error {
	if mod.Function(entities.ABIVersionMarker) == nil {
		return &errors.ResolutionError{
			Entry:  -1,
			Export: entities.ABIVersionMarker,
			Err:    errors.ErrABIVersionMarkerNotExported,
		}
	}

	var slots [entities.NumEntryPoints]ports.Function
	for _, e := range entities.EntryPoints() {
		fn := mod.Function(e.Export())
		if fn == nil {
			return &errors.ResolutionError{Entry: e, Export: e.Export(), Err: errors.ErrEntryPointNotExported}
		}
		if got, want := fn.Signature(), e.Signature(); !got.Equal(want) {
			return &errors.ResolutionError{
				Entry:  e,
				Export: e.Export(),
				Err:    fmt.Errorf("%w: got %s, want %s", errors.ErrEntryPointSignature, got, want),
			}
		}
		slots[e] = fn
	}

	t.slots, t.fns = slots, bind(&slots)
	return nil
}

// Reset clears every slot.
func (t *FunctionTable) Reset() {
	t.slots = [entities.NumEntryPoints]ports.Function{}
	t.fns = nil
}

// Populated reports whether the table holds a complete resolution.
func (t *FunctionTable) Populated() bool {
	return t.fns != nil
}

// Resolved reports whether the slot for e is filled.
func (t *FunctionTable) Resolved(e entities.EntryPoint) bool {
	return e.Valid() && t.slots[e] != nil
}

func enc(v int32) uint64 { return api.EncodeI32(v) }

func encU(v uint32) uint64 { return uint64(v) }

func encH(h entities.Handle) uint64 { return api.EncodeI32(int32(h)) }

func bind(s *[entities.NumEntryPoints]ports.Function) *boundFuncs {
	return &boundFuncs{
		allocate: func(ctx context.Context, size uint32) (uint32, error) {
			r, err := s[entities.EntryAllocate].Call(ctx, encU(size))
			if err != nil {
				return 0, err
			}
			return uint32(r[0]), nil //nolint:gosec // i32 result
		},
		deallocate: func(ctx context.Context, ptr, size uint32) error {
			_, err := s[entities.EntryDeallocate].Call(ctx, encU(ptr), encU(size))
			return err
		},
		initializeSimulation: bindPtrLenI32(s[entities.EntryInitializeSimulation]),
		calculateDT:          bindHandleF64(s[entities.EntryCalculateDT]),
		isFinished:           bindHandleI32(s[entities.EntryIsFinished]),
		step:                 bindHandleVoid(s[entities.EntryStep]),
		finalizeSimulation:   bindHandleVoid(s[entities.EntryFinalizeSimulation]),
		ndims:                bindHandleI32(s[entities.EntryNDims]),
		nelements:            bindHandleI32(s[entities.EntryNElements]),
		nelementsGlobal:      bindHandleI32(s[entities.EntryNElementsGlobal]),
		ndofs:                bindHandleI32(s[entities.EntryNDofs]),
		ndofsGlobal:          bindHandleI32(s[entities.EntryNDofsGlobal]),
		ndofsElement:         bindHandleI32(s[entities.EntryNDofsElement]),
		nvariables:           bindHandleI32(s[entities.EntryNVariables]),
		nnodes:               bindHandleI32(s[entities.EntryNNodes]),

		loadCellAverages:                 bindHandleBuf(s[entities.EntryLoadCellAverages]),
		loadNodeReferenceCoordinates:     bindHandleBuf(s[entities.EntryLoadNodeReferenceCoordinates]),
		loadNodeWeights:                  bindHandleBuf(s[entities.EntryLoadNodeWeights]),
		loadPrimitiveVars:                bindHandleVar(s[entities.EntryLoadPrimitiveVars]),
		loadElementAveragedPrimitiveVars: bindHandleVar(s[entities.EntryLoadElementAveragedPrimitiveVars]),

		registerData: func(ctx context.Context, h entities.Handle, index, n int32, ptr uint32) error {
			_, err := s[entities.EntryRegisterData].Call(ctx, encH(h), enc(index), enc(n), encU(ptr))
			return err
		},
		getDataPointer:    bindHandleI32(s[entities.EntryGetDataPointer]),
		getSimulationTime: bindHandleF64(s[entities.EntryGetSimulationTime]),
		getT8codeForest:   bindHandleI32(s[entities.EntryGetT8codeForest]),

		versionLibrary:          bindPacked(s[entities.EntryVersionLibrary]),
		versionLibraryMajor:     bindConst(s[entities.EntryVersionLibraryMajor]),
		versionLibraryMinor:     bindConst(s[entities.EntryVersionLibraryMinor]),
		versionLibraryPatch:     bindConst(s[entities.EntryVersionLibraryPatch]),
		versionPackages:         bindPacked(s[entities.EntryVersionPackages]),
		versionPackagesExtended: bindPacked(s[entities.EntryVersionPackagesExtended]),
		eval:                    bindPtrLenVoid(s[entities.EntryEval]),
	}
}

func bindHandleI32(fn ports.Function) handleI32 {
	return func(ctx context.Context, h entities.Handle) (int32, error) {
		r, err := fn.Call(ctx, encH(h))
		if err != nil {
			return 0, err
		}
		return api.DecodeI32(r[0]), nil
	}
}

func bindHandleF64(fn ports.Function) handleF64 {
	return func(ctx context.Context, h entities.Handle) (float64, error) {
		r, err := fn.Call(ctx, encH(h))
		if err != nil {
			return 0, err
		}
		return api.DecodeF64(r[0]), nil
	}
}

func bindHandleVoid(fn ports.Function) handleVoid {
	return func(ctx context.Context, h entities.Handle) error {
		_, err := fn.Call(ctx, encH(h))
		return err
	}
}

func bindHandleBuf(fn ports.Function) handleBuf {
	return func(ctx context.Context, h entities.Handle, ptr uint32) error {
		_, err := fn.Call(ctx, encH(h), encU(ptr))
		return err
	}
}

func bindHandleVar(fn ports.Function) handleVar {
	return func(ctx context.Context, h entities.Handle, varID int32, ptr uint32) error {
		_, err := fn.Call(ctx, encH(h), enc(varID), encU(ptr))
		return err
	}
}

func bindConst(fn ports.Function) constI32 {
	return func(ctx context.Context) (int32, error) {
		r, err := fn.Call(ctx)
		if err != nil {
			return 0, err
		}
		return api.DecodeI32(r[0]), nil
	}
}

func bindPacked(fn ports.Function) packedStr {
	return func(ctx context.Context) (uint64, error) {
		r, err := fn.Call(ctx)
		if err != nil {
			return 0, err
		}
		return r[0], nil
	}
}

func bindPtrLenI32(fn ports.Function) ptrLenI32 {
	return func(ctx context.Context, ptr, n uint32) (int32, error) {
		r, err := fn.Call(ctx, encU(ptr), encU(n))
		if err != nil {
			return 0, err
		}
		return api.DecodeI32(r[0]), nil
	}
}

func bindPtrLenVoid(fn ports.Function) ptrLenVoid {
	return func(ctx context.Context, ptr, n uint32) error {
		_, err := fn.Call(ctx, encU(ptr), encU(n))
		return err
	}
}
