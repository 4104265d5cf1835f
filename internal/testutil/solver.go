package testutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/hostfuncs"
)

// ErrTrap is what fake entry points return after raising an error, mirroring a
// guest trap.
var ErrTrap = errors.New("wasm error: unreachable")

// Versions reported by the fake solver.
const (
	FakeVersion          = "0.7.1"
	FakePackages         = "Trixi 0.7.1\nOrdinaryDiffEq 6.53.4\n"
	FakePackagesExtended = "Trixi 0.7.1\nOrdinaryDiffEq 6.53.4\nStaticArrays 1.6.5\nT8code 0.4.1\n"
)

// Shape of every fake simulation: a 2D Euler problem on 16 elements with 4
// nodes per direction.
const (
	FakeNDims      = 2
	FakeNElements  = 16
	FakeNNodes     = 4
	FakeNVariables = 4
	FakeNDofsElem  = FakeNNodes * FakeNNodes
	FakeNDofs      = FakeNElements * FakeNDofsElem
	FakeDT         = 0.1
	FakeFinalTime  = 0.3
	FakeForest     = 0xF0
)

// FakeSimulation is the state behind one handle.
type FakeSimulation struct {
	Registered map[int32][]float64
	Elixir     string
	Time       float64
	Steps      int
	DataPtr    uint32
	Forest     uint32
}

// FakeFunction is a Go implementation of a guest export.
type FakeFunction struct {
	fn    func(ctx context.Context, params []uint64) ([]uint64, error)
	sig   entities.Signature
	calls int
}

func (f *FakeFunction) Signature() entities.Signature { return f.sig }

func (f *FakeFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	f.calls++
	if len(params) != len(f.sig.Params) {
		return nil, fmt.Errorf("expected %d params, got %d", len(f.sig.Params), len(params))
	}
	return f.fn(ctx, params)
}

// Calls returns how often the function was invoked.
func (f *FakeFunction) Calls() int { return f.calls }

// FakeSolverOption configures a FakeSolver.
type FakeSolverOption func(*FakeSolver)

// WithoutExport removes an export, as if the module did not define it.
func WithoutExport(name string) FakeSolverOption {
	return func(s *FakeSolver) {
		delete(s.funcs, name)
	}
}

// WithExportSignature overrides the declared signature of an export.
func WithExportSignature(name string, sig entities.Signature) FakeSolverOption {
	return func(s *FakeSolver) {
		if f, ok := s.funcs[name]; ok {
			f.sig = sig
		}
	}
}

// WithMemorySize sets the guest memory size in bytes.
func WithMemorySize(size uint32) FakeSolverOption {
	return func(s *FakeSolver) {
		s.mem = NewFakeMemory(size)
	}
}

// WithDataPointer makes trixi_get_data_pointer report ptr instead of the
// simulation's real data buffer.
func WithDataPointer(ptr uint32) FakeSolverOption {
	return func(s *FakeSolver) {
		s.dataPtr = &ptr
	}
}

// FakeSolver is an in-Go stand-in for a compiled solver module. It implements
// ports.HostedModule and the full entry point set with deterministic data.
type FakeSolver struct {
	mem        *FakeMemory
	dataPtr    *uint32
	funcs      map[string]*FakeFunction
	sims       map[int32]*FakeSimulation
	allocs     map[uint32]uint32
	name       string
	Evaluated  []string
	mu         sync.Mutex
	next       uint32
	nextHandle int32
	Freed      int
	Closed     bool
}

var _ ports.HostedModule = (*FakeSolver)(nil)

// NewFakeSolver builds a solver with all entry points and the ABI marker exported.
func NewFakeSolver(opts ...FakeSolverOption) *FakeSolver {
	s := &FakeSolver{
		name:       "fake-solver",
		mem:        NewFakeMemory(1 << 20),
		sims:       make(map[int32]*FakeSimulation),
		allocs:     make(map[uint32]uint32),
		next:       64,
		nextHandle: 1,
	}
	s.funcs = map[string]*FakeFunction{
		entities.ABIVersionMarker: {sig: entities.Signature{}, fn: func(context.Context, []uint64) ([]uint64, error) { return nil, nil }},
	}
	for _, e := range entities.EntryPoints() {
		s.funcs[e.Export()] = &FakeFunction{sig: e.Signature(), fn: s.entry(e)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FakeSolver) Name() string { return s.name }

func (s *FakeSolver) Function(name string) ports.Function {
	f, ok := s.funcs[name]
	if !ok {
		return nil
	}
	return f
}

// Export returns the concrete fake behind an export, for call counting.
func (s *FakeSolver) Export(name string) *FakeFunction {
	return s.funcs[name]
}

func (s *FakeSolver) Memory() ports.Memory { return s.mem }

func (s *FakeSolver) Close(context.Context) error {
	s.Closed = true
	return nil
}

// Simulation returns the state of handle h, or nil.
func (s *FakeSolver) Simulation(h entities.Handle) *FakeSimulation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sims[int32(h)]
}

// LiveAllocations returns the number of allocations not yet freed.
func (s *FakeSolver) LiveAllocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.allocs)
}

// raise mimics a guest calling trixi_host.raise_error and trapping.
func raise(ctx context.Context, format string, args ...any) error {
	return raiseDetail(ctx, entities.NewErrorDetail(entities.GuestErrorType, fmt.Sprintf(format, args...)))
}

// raiseTyped raises a structured error, as a guest reporting its exception
// type does.
func raiseTyped(ctx context.Context, errorType, code, format string, args ...any) error {
	d := entities.NewErrorDetail(errorType, fmt.Sprintf(format, args...))
	d.Code = code
	return raiseDetail(ctx, d)
}

func raiseDetail(ctx context.Context, d *entities.ErrorDetail) error {
	if sink := hostfuncs.ErrorSinkFrom(ctx); sink != nil {
		sink.Record(d)
	}
	return ErrTrap
}

func i32(v int) []uint64 { return []uint64{api.EncodeI32(int32(v))} } //nolint:gosec // fake values are small
func f64(v float64) []uint64 { return []uint64{api.EncodeF64(v)} }
func arg(params []uint64, i int) int32 { return api.DecodeI32(params[i]) }

func (s *FakeSolver) sim(ctx context.Context, h int32) (*FakeSimulation, error) {
	sim, ok := s.sims[h]
	if !ok {
		return nil, raise(ctx, "the provided handle was not found in the stored simulation states: %d", h)
	}
	return sim, nil
}

func (s *FakeSolver) allocate(size uint32) (uint32, bool) {
	ptr := (s.next + 7) &^ 7
	if uint64(ptr)+uint64(size) > uint64(s.mem.Size()) {
		return 0, false
	}
	s.next = ptr + size
	s.allocs[ptr] = size
	return ptr, true
}

func (s *FakeSolver) writeFloats(ctx context.Context, ptr uint32, values []float64) error {
	for i, v := range values {
		if !s.mem.WriteFloat64Le(ptr+uint32(i)*8, v) { //nolint:gosec // fake values are small
			return raise(ctx, "BoundsError: attempt to write %d values at %d", len(values), ptr)
		}
	}
	return nil
}

func (s *FakeSolver) writeString(ctx context.Context, str string) ([]uint64, error) {
	ptr, ok := s.allocate(uint32(len(str))) //nolint:gosec // fake values are small
	if !ok {
		return nil, raise(ctx, "OutOfMemoryError()")
	}
	s.mem.Write(ptr, []byte(str))
	return []uint64{uint64(ptr)<<32 | uint64(len(str))}, nil
}

// value is the initial conservative value of dof d, variable v.
func value(d, v int) float64 {
	return float64(d*FakeNVariables + v)
}

func (s *FakeSolver) data(sim *FakeSimulation, d, v int) float64 {
	x, _ := s.mem.ReadFloat64Le(sim.DataPtr + uint32((d*FakeNVariables+v)*8)) //nolint:gosec // fake values are small
	return x
}

func (s *FakeSolver) entry(e entities.EntryPoint) func(context.Context, []uint64) ([]uint64, error) {
	scalar := func(v int) func(context.Context, []uint64) ([]uint64, error) {
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			if _, err := s.sim(ctx, arg(p, 0)); err != nil {
				return nil, err
			}
			return i32(v), nil
		}
	}
	constant := func(v int) func(context.Context, []uint64) ([]uint64, error) {
		return func(context.Context, []uint64) ([]uint64, error) { return i32(v), nil }
	}

	switch e {
	case entities.EntryAllocate:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			ptr, ok := s.allocate(uint32(arg(p, 0))) //nolint:gosec // sizes are non-negative
			if !ok {
				return nil, raise(ctx, "OutOfMemoryError()")
			}
			return []uint64{uint64(ptr)}, nil
		}
	case entities.EntryDeallocate:
		return func(_ context.Context, p []uint64) ([]uint64, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			ptr := uint32(arg(p, 0)) //nolint:gosec // pointers are 32-bit
			if _, ok := s.allocs[ptr]; ok {
				delete(s.allocs, ptr)
				s.Freed++
			}
			return nil, nil
		}
	case entities.EntryInitializeSimulation:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			raw, ok := s.mem.Read(uint32(arg(p, 0)), uint32(arg(p, 1))) //nolint:gosec // pointers are 32-bit
			if !ok {
				return nil, raise(ctx, "BoundsError: libelixir path")
			}
			elixir := string(raw)
			if strings.Contains(elixir, "missing") {
				return nil, raise(ctx, "SystemError: opening file %q: No such file or directory", elixir)
			}
			dataPtr, ok := s.allocate(FakeNDofs * FakeNVariables * 8)
			if !ok {
				return nil, raise(ctx, "OutOfMemoryError()")
			}
			sim := &FakeSimulation{Elixir: elixir, DataPtr: dataPtr, Registered: map[int32][]float64{}}
			if strings.Contains(elixir, "t8code") {
				sim.Forest = FakeForest
			}
			for d := range FakeNDofs {
				for v := range FakeNVariables {
					s.mem.WriteFloat64Le(dataPtr+uint32((d*FakeNVariables+v)*8), value(d, v)) //nolint:gosec // fake values are small
				}
			}
			h := s.nextHandle
			s.nextHandle++
			s.sims[h] = sim
			return i32(int(h)), nil
		}
	case entities.EntryCalculateDT:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			if _, err := s.sim(ctx, arg(p, 0)); err != nil {
				return nil, err
			}
			return f64(FakeDT), nil
		}
	case entities.EntryIsFinished:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			if sim.Time >= FakeFinalTime-1e-12 {
				return i32(1), nil
			}
			return i32(0), nil
		}
	case entities.EntryStep:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			sim.Time += FakeDT
			sim.Steps++
			return nil, nil
		}
	case entities.EntryFinalizeSimulation:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			if _, err := s.sim(ctx, arg(p, 0)); err != nil {
				return nil, err
			}
			delete(s.sims, arg(p, 0))
			return nil, nil
		}
	case entities.EntryNDims:
		return scalar(FakeNDims)
	case entities.EntryNElements, entities.EntryNElementsGlobal:
		return scalar(FakeNElements)
	case entities.EntryNDofs, entities.EntryNDofsGlobal:
		return scalar(FakeNDofs)
	case entities.EntryNDofsElement:
		return scalar(FakeNDofsElem)
	case entities.EntryNVariables:
		return scalar(FakeNVariables)
	case entities.EntryNNodes:
		return scalar(FakeNNodes)
	case entities.EntryLoadCellAverages:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			out := make([]float64, 0, FakeNElements*FakeNVariables)
			for el := range FakeNElements {
				for v := range FakeNVariables {
					out = append(out, s.elementAverage(sim, el, v))
				}
			}
			return nil, s.writeFloats(ctx, uint32(arg(p, 1)), out) //nolint:gosec // pointers are 32-bit
		}
	case entities.EntryLoadNodeReferenceCoordinates:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			if _, err := s.sim(ctx, arg(p, 0)); err != nil {
				return nil, err
			}
			x := 1 / math.Sqrt(5)
			return nil, s.writeFloats(ctx, uint32(arg(p, 1)), []float64{-1, -x, x, 1}) //nolint:gosec // pointers are 32-bit
		}
	case entities.EntryLoadNodeWeights:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			if _, err := s.sim(ctx, arg(p, 0)); err != nil {
				return nil, err
			}
			return nil, s.writeFloats(ctx, uint32(arg(p, 1)), []float64{1.0 / 6, 5.0 / 6, 5.0 / 6, 1.0 / 6}) //nolint:gosec // pointers are 32-bit
		}
	case entities.EntryLoadPrimitiveVars:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, v, err := s.simVar(ctx, p)
			if err != nil {
				return nil, err
			}
			out := make([]float64, FakeNDofs)
			for d := range out {
				out[d] = s.data(sim, d, v)
			}
			return nil, s.writeFloats(ctx, uint32(arg(p, 2)), out) //nolint:gosec // pointers are 32-bit
		}
	case entities.EntryLoadElementAveragedPrimitiveVars:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, v, err := s.simVar(ctx, p)
			if err != nil {
				return nil, err
			}
			out := make([]float64, FakeNElements)
			for el := range out {
				out[el] = s.elementAverage(sim, el, v)
			}
			return nil, s.writeFloats(ctx, uint32(arg(p, 2)), out) //nolint:gosec // pointers are 32-bit
		}
	case entities.EntryRegisterData:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			n, ptr := int(arg(p, 2)), uint32(arg(p, 3)) //nolint:gosec // pointers are 32-bit
			values := make([]float64, n)
			for i := range values {
				values[i], _ = s.mem.ReadFloat64Le(ptr + uint32(i*8)) //nolint:gosec // fake values are small
			}
			sim.Registered[arg(p, 1)] = values
			return nil, nil
		}
	case entities.EntryGetDataPointer:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			if s.dataPtr != nil {
				return []uint64{uint64(*s.dataPtr)}, nil
			}
			return []uint64{uint64(sim.DataPtr)}, nil
		}
	case entities.EntryGetSimulationTime:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			return f64(sim.Time), nil
		}
	case entities.EntryGetT8codeForest:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			sim, err := s.sim(ctx, arg(p, 0))
			if err != nil {
				return nil, err
			}
			return []uint64{uint64(sim.Forest)}, nil
		}
	case entities.EntryVersionLibrary:
		return func(ctx context.Context, _ []uint64) ([]uint64, error) { return s.writeString(ctx, FakeVersion) }
	case entities.EntryVersionLibraryMajor:
		return constant(0)
	case entities.EntryVersionLibraryMinor:
		return constant(7)
	case entities.EntryVersionLibraryPatch:
		return constant(1)
	case entities.EntryVersionPackages:
		return func(ctx context.Context, _ []uint64) ([]uint64, error) { return s.writeString(ctx, FakePackages) }
	case entities.EntryVersionPackagesExtended:
		return func(ctx context.Context, _ []uint64) ([]uint64, error) { return s.writeString(ctx, FakePackagesExtended) }
	case entities.EntryEval:
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			raw, ok := s.mem.Read(uint32(arg(p, 0)), uint32(arg(p, 1))) //nolint:gosec // pointers are 32-bit
			if !ok {
				return nil, raise(ctx, "BoundsError: eval source")
			}
			code := string(raw)
			s.Evaluated = append(s.Evaluated, code)
			if strings.HasPrefix(code, "error(") {
				return nil, raise(ctx, "ErrorException(%s)", strings.TrimSuffix(strings.TrimPrefix(code, "error("), ")"))
			}
			return nil, nil
		}
	}
	panic(fmt.Sprintf("fake solver: no implementation for %s", e))
}

func (s *FakeSolver) simVar(ctx context.Context, p []uint64) (*FakeSimulation, int, error) {
	sim, err := s.sim(ctx, arg(p, 0))
	if err != nil {
		return nil, 0, err
	}
	v := int(arg(p, 1))
	if v < 1 || v > FakeNVariables {
		return nil, 0, raiseTyped(ctx, "BoundsError", "variable_id", "variable_id %d not in 1:%d", v, FakeNVariables)
	}
	return sim, v - 1, nil
}

func (s *FakeSolver) elementAverage(sim *FakeSimulation, el, v int) float64 {
	sum := 0.0
	for d := el * FakeNDofsElem; d < (el+1)*FakeNDofsElem; d++ {
		sum += s.data(sim, d, v)
	}
	return sum / FakeNDofsElem
}
