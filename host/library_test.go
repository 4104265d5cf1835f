package host_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/trixi-framework/libtrixi-go/application/fatal"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/host"
	"github.com/trixi-framework/libtrixi-go/infrastructure/environment"
	"github.com/trixi-framework/libtrixi-go/internal/testutil"
)

type fixture struct {
	lib     *host.Library
	solver  *testutil.FakeSolver
	runtime *testutil.FakeRuntime
	env     *environment.Map
	project string
}

func newFixture(t *testing.T, vars map[string]string, solverOpts []testutil.FakeSolverOption, opts ...host.Option) *fixture {
	t.Helper()

	f := &fixture{
		solver:  testutil.NewFakeSolver(solverOpts...),
		env:     environment.NewMap(vars),
		project: testutil.WriteProject(t, testutil.DefaultManifest, nil),
	}
	f.runtime = testutil.NewFakeRuntime(f.solver)

	base := []host.Option{
		host.WithRuntime(f.runtime),
		host.WithEnvironment(f.env),
		host.WithLogOutput(io.Discard),
	}
	f.lib = host.New(append(base, opts...)...)

	t.Cleanup(func() {
		if f.lib.State() == entities.StateInitialized {
			_ = f.lib.Finalize(context.Background())
		}
	})
	return f
}

func assertLifecycle(t *testing.T, err error, want error) {
	t.Helper()
	var le *errors.LifecycleError
	require.True(t, stderrors.As(err, &le), "expected LifecycleError, got %v", err)
	assert.ErrorIs(t, err, want)
	assert.True(t, errors.IsUsage(err))
}

func TestLifecycle_InitializeFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	assert.Equal(t, entities.StateUninitialized, f.lib.State())

	require.NoError(t, f.lib.Initialize(ctx, f.project, ""))
	assert.Equal(t, entities.StateInitialized, f.lib.State())
	assert.True(t, f.runtime.Booted)
	assert.True(t, f.lib.Table().Populated())
	for _, e := range entities.EntryPoints() {
		assert.True(t, f.lib.Table().Resolved(e), e.String())
	}

	require.NoError(t, f.lib.Finalize(ctx))
	assert.Equal(t, entities.StateFinalized, f.lib.State())
	assert.True(t, f.runtime.Closed)
	assert.True(t, f.solver.Closed)
	assert.False(t, f.lib.Table().Populated())
	for _, e := range entities.EntryPoints() {
		assert.False(t, f.lib.Table().Resolved(e), e.String())
	}
}

func TestLifecycle_ContractViolations(t *testing.T) {
	ctx := context.Background()

	t.Run("finalize before initialize", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		assertLifecycle(t, f.lib.Finalize(ctx), errors.ErrNotInitialized)
		assert.Equal(t, entities.StateUninitialized, f.lib.State())
	})

	t.Run("initialize twice", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		require.NoError(t, f.lib.Initialize(ctx, f.project, ""))

		err := f.lib.Initialize(ctx, f.project, "")
		assertLifecycle(t, err, errors.ErrInitializedTwice)
		assert.Contains(t, err.Error(), "trixi_initialize invoked multiple times")
		assert.Equal(t, entities.StateInitialized, f.lib.State())
	})

	t.Run("finalize twice", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		require.NoError(t, f.lib.Initialize(ctx, f.project, ""))
		require.NoError(t, f.lib.Finalize(ctx))

		assertLifecycle(t, f.lib.Finalize(ctx), errors.ErrFinalizedTwice)
		assert.Equal(t, 1, f.runtime.CloseCalls)
	})

	t.Run("initialize after finalize", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		require.NoError(t, f.lib.Initialize(ctx, f.project, ""))
		require.NoError(t, f.lib.Finalize(ctx))

		assertLifecycle(t, f.lib.Initialize(ctx, f.project, ""), errors.ErrInitializedTwice)
		assert.Equal(t, entities.StateFinalized, f.lib.State())
	})
}

func TestLifecycle_OperationsOutsideInitialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	_, err := f.lib.NDims(ctx, 1)
	assertLifecycle(t, err, errors.ErrNotReady)

	require.NoError(t, f.lib.Initialize(ctx, f.project, ""))
	h, err := f.lib.InitializeSimulation(ctx, "elixir.jl")
	require.NoError(t, err)
	require.NoError(t, f.lib.Finalize(ctx))

	assertLifecycle(t, f.lib.Step(ctx, h), errors.ErrNotReady)
	_, err = f.lib.VersionLibrary(ctx)
	assertLifecycle(t, err, errors.ErrNotReady)
	assertLifecycle(t, f.lib.EvalCode(ctx, "1+1"), errors.ErrNotReady)
}

func TestDepot_DefaultPublished(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.lib.Initialize(context.Background(), f.project, ""))

	realProject, err := filepath.EvalSymlinks(f.project)
	require.NoError(t, err)
	want := filepath.Join(realProject, entities.DefaultDepotSubpath)

	v, ok := f.env.LookupEnv(entities.EnvDepotPath)
	require.True(t, ok)
	assert.Equal(t, want, v)
	assert.Equal(t, entities.DepotFromDefault, f.lib.Depot().Source)
	assert.Same(t, f.env, f.runtime.BootConfig.Env, "the runtime reads the same environment")
}

func TestDepot_ArgumentOverridesEnvironment(t *testing.T) {
	f := newFixture(t, map[string]string{entities.EnvDepotPath: "/from/env"}, nil)
	require.NoError(t, f.lib.Initialize(context.Background(), f.project, "/from/arg"))

	v, _ := f.env.LookupEnv(entities.EnvDepotPath)
	assert.Equal(t, "/from/arg", v)
	assert.Equal(t, entities.DepotFromArgument, f.lib.Depot().Source)
}

func TestDepot_FailureLeavesUninitialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	err := f.lib.Initialize(ctx, filepath.Join(t.TempDir(), "missing"), "")
	var de *errors.DepotError
	require.True(t, stderrors.As(err, &de))
	assert.Equal(t, errors.DepotUnresolvable, de.Kind)
	assert.Equal(t, entities.StateUninitialized, f.lib.State())
	assert.False(t, f.runtime.Booted, "runtime must not boot before the depot is set")

	require.NoError(t, f.lib.Initialize(ctx, f.project, ""), "a failed depot resolution may be retried")
}

func TestResolution_Failures(t *testing.T) {
	tests := []struct {
		name   string
		opts   []testutil.FakeSolverOption
		export string
		err    error
	}{
		{
			name:   "missing abi marker",
			opts:   []testutil.FakeSolverOption{testutil.WithoutExport(entities.ABIVersionMarker)},
			export: entities.ABIVersionMarker,
			err:    errors.ErrABIVersionMarkerNotExported,
		},
		{
			name:   "missing entry point",
			opts:   []testutil.FakeSolverOption{testutil.WithoutExport("trixi_nnodes")},
			export: "trixi_nnodes",
			err:    errors.ErrEntryPointNotExported,
		},
		{
			name: "wrong signature",
			opts: []testutil.FakeSolverOption{testutil.WithExportSignature("trixi_calculate_dt", entities.Signature{
				Params:  []entities.ValueType{entities.ValueTypeI32},
				Results: []entities.ValueType{entities.ValueTypeF32},
			})},
			export: "trixi_calculate_dt",
			err:    errors.ErrEntryPointSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, tt.opts)

			err := f.lib.Initialize(context.Background(), f.project, "")
			var re *errors.ResolutionError
			require.True(t, stderrors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.export, re.Export)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, errors.IsRuntime(err))

			assert.Equal(t, entities.StateFinalized, f.lib.State())
			assert.False(t, f.lib.Table().Populated())
			for _, e := range entities.EntryPoints() {
				assert.False(t, f.lib.Table().Resolved(e), "no partial table after %s", tt.name)
			}
			assert.True(t, f.runtime.Closed)
			assert.True(t, f.solver.Closed)
		})
	}
}

func TestBootFailureFinalizes(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.runtime.BootErr = stderrors.New("out of memory")

	err := f.lib.Initialize(context.Background(), f.project, "")
	var ae *errors.ActivationError
	require.True(t, stderrors.As(err, &ae))
	assert.Equal(t, "boot", ae.Stage)
	assert.Equal(t, entities.StateFinalized, f.lib.State())
	assert.True(t, f.runtime.Closed)
}

func TestActivationFailureFinalizes(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.runtime.ActivateErr = stderrors.New("guest doesn't export memory[memory]")

	err := f.lib.Initialize(context.Background(), f.project, "")
	var ae *errors.ActivationError
	require.True(t, stderrors.As(err, &ae))
	assert.Equal(t, "activate", ae.Stage)
	assert.Equal(t, entities.StateFinalized, f.lib.State())
}

func TestRuntimeClaim(t *testing.T) {
	ctx := context.Background()
	first := newFixture(t, nil, nil)
	second := newFixture(t, nil, nil)

	require.NoError(t, first.lib.Initialize(ctx, first.project, ""))

	err := second.lib.Initialize(ctx, second.project, "")
	assertLifecycle(t, err, errors.ErrRuntimeClaimed)
	assert.Equal(t, entities.StateUninitialized, second.lib.State())
	assert.False(t, second.runtime.Booted)

	require.NoError(t, first.lib.Finalize(ctx))
	require.NoError(t, second.lib.Initialize(ctx, second.project, ""))
}

func TestClaimReleasedAfterFailedInitialize(t *testing.T) {
	ctx := context.Background()
	broken := newFixture(t, nil, []testutil.FakeSolverOption{testutil.WithoutExport("trixi_step")})
	require.Error(t, broken.lib.Initialize(ctx, broken.project, ""))

	next := newFixture(t, nil, nil)
	require.NoError(t, next.lib.Initialize(ctx, next.project, ""))
}

func TestFatalErrors(t *testing.T) {
	var out bytes.Buffer
	var codes []int
	tr := fatal.NewTranslator(fatal.WithWriter(&out), fatal.WithExit(func(code int) { codes = append(codes, code) }))
	f := newFixture(t, nil, nil, host.WithFatalErrors(tr))

	err := f.lib.Finalize(context.Background())

	require.Error(t, err)
	assert.Equal(t, []int{fatal.ExitCode}, codes)
	assert.Contains(t, out.String(), "ERROR in library_test.go:")
	assert.Contains(t, out.String(), "(host_test.TestFatalErrors)")
	assert.Contains(t, out.String(), "trixi_initialize must be called before trixi_finalize")
}

func TestFatalErrors_EvalEchoesCode(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	tr := fatal.NewTranslator(fatal.WithWriter(&out), fatal.WithExit(func(int) {}))
	f := newFixture(t, nil, nil, host.WithFatalErrors(tr))
	require.NoError(t, f.lib.Initialize(ctx, f.project, ""))

	require.Error(t, f.lib.EvalCode(ctx, `error("nope")`))
	assert.Contains(t, out.String(), `The following code could not be evaluated: error("nope")`)
}

func TestDebugBanner(t *testing.T) {
	var logs bytes.Buffer
	f := newFixture(t, map[string]string{entities.EnvDebug: "host"}, nil, host.WithLogOutput(&logs))

	require.NoError(t, f.lib.Initialize(context.Background(), f.project, ""))

	assert.Contains(t, logs.String(), "hosted library loaded")
	assert.Contains(t, logs.String(), "library_version="+testutil.FakeVersion)
	assert.Equal(t, entities.DebugHost, f.runtime.BootConfig.Debug)
	assert.Zero(t, f.solver.LiveAllocations(), "banner strings are freed")
}

func TestNoBannerWithoutDebug(t *testing.T) {
	var logs bytes.Buffer
	f := newFixture(t, nil, nil, host.WithLogOutput(&logs))

	require.NoError(t, f.lib.Initialize(context.Background(), f.project, ""))

	assert.Empty(t, logs.String())
	assert.Zero(t, f.solver.Export("trixi_version_library").Calls())
}

func TestBorrowData_RegionOutsideGuestMemory(t *testing.T) {
	const memSize = 1 << 20
	tests := []struct {
		name string
		ptr  uint32
	}{
		{name: "wraps past 4 GiB", ptr: 0xFFFFFFF8},
		{name: "runs past the end", ptr: memSize - 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, nil, []testutil.FakeSolverOption{
				testutil.WithMemorySize(memSize),
				testutil.WithDataPointer(tt.ptr),
			})
			require.NoError(t, f.lib.Initialize(ctx, f.project, ""))
			h, err := f.lib.InitializeSimulation(ctx, "/work/libelixir_tree2d.jl")
			require.NoError(t, err)

			b, err := f.lib.BorrowData(ctx, h)
			assert.Nil(t, b)
			var me *errors.MemoryError
			require.True(t, stderrors.As(err, &me), "got %v", err)
			assert.Equal(t, "borrow", me.Operation)
			assert.Equal(t, tt.ptr, me.Offset)

			require.NoError(t, f.lib.Step(ctx, h), "a failed borrow does not block the handle")
		})
	}
}

// SimulationSuite drives the facade against an initialized Library.
type SimulationSuite struct {
	suite.Suite
	ctx context.Context
	f   *fixture
	h   entities.Handle
}

func (s *SimulationSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newFixture(s.T(), nil, nil)
	s.Require().NoError(s.f.lib.Initialize(s.ctx, s.f.project, ""))

	h, err := s.f.lib.InitializeSimulation(s.ctx, "/work/libelixir_tree2d.jl")
	s.Require().NoError(err)
	s.h = h
}

func (s *SimulationSuite) TearDownTest() {
	if s.f.lib.State() == entities.StateInitialized {
		s.Require().NoError(s.f.lib.Finalize(s.ctx))
	}
}

func (s *SimulationSuite) TestEndToEnd() {
	s.Equal(entities.Handle(1), s.h)
	s.Equal("/work/libelixir_tree2d.jl", s.f.solver.Simulation(s.h).Elixir)

	s.Require().NoError(s.f.lib.Step(s.ctx, s.h))

	dt, err := s.f.lib.CalculateDT(s.ctx, s.h)
	s.Require().NoError(err)
	s.Positive(dt)

	finished, err := s.f.lib.IsFinished(s.ctx, s.h)
	s.Require().NoError(err)
	s.False(finished)

	s.Require().NoError(s.f.lib.FinalizeSimulation(s.ctx, s.h))

	_, err = s.f.lib.IsFinished(s.ctx, s.h)
	s.Require().Error(err)
	var re *errors.RuntimeError
	s.Require().True(stderrors.As(err, &re))
	s.Equal("is_finished", re.Operation)
	s.Contains(re.Message, "stored simulation states: 1")
	s.ErrorIs(err, testutil.ErrTrap)
}

func (s *SimulationSuite) TestRunToCompletion() {
	steps := 0
	for {
		finished, err := s.f.lib.IsFinished(s.ctx, s.h)
		s.Require().NoError(err)
		if finished {
			break
		}
		s.Require().NoError(s.f.lib.Step(s.ctx, s.h))
		steps++
		s.Require().Less(steps, 10)
	}
	s.Equal(3, steps)

	t, err := s.f.lib.SimulationTime(s.ctx, s.h)
	s.Require().NoError(err)
	s.InDelta(testutil.FakeFinalTime, t, 1e-12)
}

func (s *SimulationSuite) TestHandlesAreForwarded() {
	h2, err := s.f.lib.InitializeSimulation(s.ctx, "second.jl")
	s.Require().NoError(err)
	s.Equal(entities.Handle(2), h2)

	_, err = s.f.lib.NDims(s.ctx, 42)
	var re *errors.RuntimeError
	s.Require().True(stderrors.As(err, &re))
	s.Equal("the provided handle was not found in the stored simulation states: 42", re.Message)
	s.Equal("ndims failed: the provided handle was not found in the stored simulation states: 42", err.Error())
}

func (s *SimulationSuite) TestInitializeSimulationFailure() {
	_, err := s.f.lib.InitializeSimulation(s.ctx, "/missing/elixir.jl")

	var re *errors.RuntimeError
	s.Require().True(stderrors.As(err, &re))
	s.Equal("/missing/elixir.jl", re.Code)
	s.Contains(re.Message, "No such file or directory")
	s.Equal(entities.StateInitialized, s.f.lib.State(), "guest errors do not end the lifecycle")
}

func (s *SimulationSuite) TestCounts() {
	tests := []struct {
		name string
		fn   func(context.Context, entities.Handle) (int, error)
		want int
	}{
		{"ndims", s.f.lib.NDims, testutil.FakeNDims},
		{"nelements", s.f.lib.NElements, testutil.FakeNElements},
		{"nelementsglobal", s.f.lib.NElementsGlobal, testutil.FakeNElements},
		{"ndofs", s.f.lib.NDofs, testutil.FakeNDofs},
		{"ndofsglobal", s.f.lib.NDofsGlobal, testutil.FakeNDofs},
		{"ndofselement", s.f.lib.NDofsElement, testutil.FakeNDofsElem},
		{"nvariables", s.f.lib.NVariables, testutil.FakeNVariables},
		{"nnodes", s.f.lib.NNodes, testutil.FakeNNodes},
	}
	for _, tt := range tests {
		got, err := tt.fn(s.ctx, s.h)
		s.Require().NoError(err, tt.name)
		s.Equal(tt.want, got, tt.name)
	}
}

func (s *SimulationSuite) TestLoadCellAverages() {
	dst := make([]float64, testutil.FakeNElements*testutil.FakeNVariables)
	s.Require().NoError(s.f.lib.LoadCellAverages(s.ctx, s.h, dst))

	// element 0 averages dofs 0..15: mean of d*4+v is 7.5*4+v
	s.InDelta(30.0, dst[0], 1e-12)
	s.InDelta(31.0, dst[1], 1e-12)
	// element 1, variable 0: mean over dofs 16..31
	s.InDelta(23.5*4, dst[testutil.FakeNVariables], 1e-12)
}

func (s *SimulationSuite) TestLoadNodes() {
	coords := make([]float64, testutil.FakeNNodes)
	s.Require().NoError(s.f.lib.LoadNodeReferenceCoordinates(s.ctx, s.h, coords))
	s.Equal(-1.0, coords[0])
	s.Equal(1.0, coords[3])

	weights := make([]float64, testutil.FakeNNodes)
	s.Require().NoError(s.f.lib.LoadNodeWeights(s.ctx, s.h, weights))
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	s.InDelta(2.0, sum, 1e-12)
}

func (s *SimulationSuite) TestLoadPrimitiveVars() {
	dst := make([]float64, testutil.FakeNDofs)
	s.Require().NoError(s.f.lib.LoadPrimitiveVars(s.ctx, s.h, 2, dst))
	s.Equal(1.0, dst[0])
	s.Equal(float64(10*testutil.FakeNVariables+1), dst[10])

	avg := make([]float64, testutil.FakeNElements)
	s.Require().NoError(s.f.lib.LoadElementAveragedPrimitiveVars(s.ctx, s.h, 1, avg))
	s.InDelta(30.0, avg[0], 1e-12)
}

func (s *SimulationSuite) TestLoadPrimitiveVarsBadVariable() {
	err := s.f.lib.LoadPrimitiveVars(s.ctx, s.h, 0, make([]float64, testutil.FakeNDofs))

	var re *errors.RuntimeError
	s.Require().True(stderrors.As(err, &re))
	s.Equal("load_primitive_vars", re.Operation)
	s.Contains(re.Message, "variable_id 0")
	s.Require().NotNil(re.Guest)
	s.Equal("BoundsError", re.Guest.Type)
	s.Equal("variable_id", re.Guest.Code)
	s.Contains(err.Error(), "BoundsError: variable_id 0 not in 1:4 [variable_id]")
}

func (s *SimulationSuite) TestScratchMemoryIsFreed() {
	live := s.f.solver.LiveAllocations()

	s.Require().NoError(s.f.lib.LoadCellAverages(s.ctx, s.h, make([]float64, 64)))
	s.Require().NoError(s.f.lib.RegisterData(s.ctx, s.h, 1, []float64{1, 2}))
	_, err := s.f.lib.VersionPackagesExtended(s.ctx)
	s.Require().NoError(err)
	s.Require().Error(s.f.lib.LoadPrimitiveVars(s.ctx, s.h, 9, make([]float64, 4)))

	s.Equal(live, s.f.solver.LiveAllocations())
}

func (s *SimulationSuite) TestShortBufferIsTruncatedCopy() {
	dst := make([]float64, 2)
	s.Require().NoError(s.f.lib.LoadCellAverages(s.ctx, s.h, dst))
	s.InDelta(30.0, dst[0], 1e-12)
}

func (s *SimulationSuite) TestRegisterData() {
	data := []float64{0.5, -1.25, 3}
	s.Require().NoError(s.f.lib.RegisterData(s.ctx, s.h, 7, data))
	s.Equal(data, s.f.solver.Simulation(s.h).Registered[7])
}

func (s *SimulationSuite) TestBorrowData() {
	b, err := s.f.lib.BorrowData(s.ctx, s.h)
	s.Require().NoError(err)
	s.Equal(testutil.FakeNDofs*testutil.FakeNVariables, b.Len())

	v, err := s.f.lib.NDims(s.ctx, s.h)
	s.Require().NoError(err, "queries are allowed during a borrow")
	s.Equal(testutil.FakeNDims, v)

	x, err := b.At(5)
	s.Require().NoError(err)
	s.Equal(5.0, x)

	s.Require().NoError(b.Set(5, 42))
	dst := make([]float64, 8)
	n, err := b.CopyTo(dst)
	s.Require().NoError(err)
	s.Equal(8, n)
	s.Equal(42.0, dst[5])

	err = s.f.lib.Step(s.ctx, s.h)
	var be *errors.BorrowError
	s.Require().True(stderrors.As(err, &be))
	s.ErrorIs(err, errors.ErrDataBorrowed)
	s.Equal(0, s.f.solver.Simulation(s.h).Steps)
	s.ErrorIs(s.f.lib.FinalizeSimulation(s.ctx, s.h), errors.ErrDataBorrowed)

	_, err = b.At(b.Len())
	s.ErrorIs(err, errors.ErrOutOfBounds)

	s.Require().NoError(b.Release())
	s.ErrorIs(b.Release(), errors.ErrBorrowReleased)
	_, err = b.At(0)
	s.ErrorIs(err, errors.ErrBorrowReleased)

	s.Require().NoError(s.f.lib.Step(s.ctx, s.h))

	// writes through the borrow are visible to the solver
	avg := make([]float64, testutil.FakeNElements)
	s.Require().NoError(s.f.lib.LoadElementAveragedPrimitiveVars(s.ctx, s.h, 2, avg))
	s.InDelta(31.0+(42.0-5.0)/testutil.FakeNDofsElem, avg[0], 1e-12)
}

func (s *SimulationSuite) TestBorrowsAreCountedPerHandle() {
	h2, err := s.f.lib.InitializeSimulation(s.ctx, "other.jl")
	s.Require().NoError(err)

	b1, err := s.f.lib.BorrowData(s.ctx, s.h)
	s.Require().NoError(err)
	b2, err := s.f.lib.BorrowData(s.ctx, s.h)
	s.Require().NoError(err)

	s.Require().NoError(s.f.lib.Step(s.ctx, h2), "other handles are unaffected")

	s.Require().NoError(b1.Release())
	s.ErrorIs(s.f.lib.Step(s.ctx, s.h), errors.ErrDataBorrowed)
	s.Require().NoError(b2.Release())
	s.NoError(s.f.lib.Step(s.ctx, s.h))
}

func (s *SimulationSuite) TestBorrowInvalidAfterFinalize() {
	b, err := s.f.lib.BorrowData(s.ctx, s.h)
	s.Require().NoError(err)
	s.Require().NoError(s.f.lib.Finalize(s.ctx))

	_, err = b.At(0)
	s.ErrorIs(err, errors.ErrNotReady)
}

func (s *SimulationSuite) TestT8codeForest() {
	ref, err := s.f.lib.T8codeForest(s.ctx, s.h)
	s.Require().NoError(err)
	s.True(ref.IsNil())

	h, err := s.f.lib.InitializeSimulation(s.ctx, "libelixir_t8code_2d.jl")
	s.Require().NoError(err)
	ref, err = s.f.lib.T8codeForest(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(entities.ForestRef(testutil.FakeForest), ref)
}

func (s *SimulationSuite) TestEvalCode() {
	s.Require().NoError(s.f.lib.EvalCode(s.ctx, "println(42)"))
	s.Equal([]string{"println(42)"}, s.f.solver.Evaluated)

	err := s.f.lib.EvalCode(s.ctx, `error("nope")`)
	var re *errors.RuntimeError
	s.Require().True(stderrors.As(err, &re))
	s.Equal(`error("nope")`, re.Code)
	s.Equal(`ErrorException("nope")`, re.Message)
	s.Equal("runtime", errors.ToErrorDetail(err).Type)
}

func (s *SimulationSuite) TestVersions() {
	full, err := s.f.lib.VersionLibrary(s.ctx)
	s.Require().NoError(err)
	s.Equal(testutil.FakeVersion, full)

	major, err := s.f.lib.VersionLibraryMajor(s.ctx)
	s.Require().NoError(err)
	minor, err := s.f.lib.VersionLibraryMinor(s.ctx)
	s.Require().NoError(err)
	patch, err := s.f.lib.VersionLibraryPatch(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int{0, 7, 1}, []int{major, minor, patch})

	info, err := s.f.lib.VersionInfo(s.ctx)
	s.Require().NoError(err)
	s.Equal(full, info.Full)
	s.Equal(full, info.Short())

	pkgs, err := s.f.lib.VersionPackages(s.ctx)
	s.Require().NoError(err)
	s.Equal(testutil.FakePackages, pkgs)

	ext, err := s.f.lib.VersionPackagesExtended(s.ctx)
	s.Require().NoError(err)
	s.Equal(testutil.FakePackagesExtended, ext)

	s.NotEmpty(host.Version)
}

func TestSimulationSuite(t *testing.T) {
	suite.Run(t, new(SimulationSuite))
}
