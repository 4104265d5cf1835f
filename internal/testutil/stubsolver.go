package testutil

import (
	"github.com/tetratelabs/wazero/api"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/hostfuncs"
)

// Layout and answers of the stub solver module.
const (
	StubHandle       = 1
	StubDT           = 0.25
	StubLoadValue    = 1.5
	StubDataPointer  = 8192
	StubScratch      = 4096
	StubMissingError = "the provided handle was not found in the stored simulation states"

	stubErrorOffset    = 512
	stubVersionOffset  = 1024
	stubPackagesOffset = 1088
)

func packed(offset uint32, s string) int64 {
	return int64(uint64(offset)<<32 | uint64(len(s))) //nolint:gosec // test layout is tiny
}

// StubSolverModule encodes a wasm module exporting every entry point with
// canned answers. Only handle StubHandle exists: is_finished raises
// StubMissingError and traps for any other handle. The allocator always
// returns StubScratch, so only one scratch buffer may be live at a time.
func StubSolverModule() WasmModule {
	i64v := []api.ValueType{api.ValueTypeI64}

	def := func(e entities.EntryPoint, body ...[]byte) WasmFunc {
		sig := e.Signature()
		f := WasmFunc{Name: e.Export(), Body: Seq(body...)}
		for _, p := range sig.Params {
			f.Params = append(f.Params, api.ValueType(p))
		}
		for _, r := range sig.Results {
			f.Results = append(f.Results, api.ValueType(r))
		}
		return f
	}
	storeAt := func(local uint32) []byte {
		return Seq(LocalGet(local), F64Const(StubLoadValue), F64Store())
	}

	return WasmModule{
		Imports: []WasmImport{
			{Module: hostfuncs.HostModuleName, Name: hostfuncs.FuncRaiseError, Params: i64v, Results: i64v},
		},
		MemoryPages:  1,
		ExportMemory: true,
		Data: []WasmData{
			{Offset: stubErrorOffset, Bytes: []byte(StubMissingError)},
			{Offset: stubVersionOffset, Bytes: []byte(FakeVersion)},
			{Offset: stubPackagesOffset, Bytes: []byte(FakePackages)},
		},
		Funcs: []WasmFunc{
			{Name: entities.ABIVersionMarker},
			def(entities.EntryAllocate, I32Const(StubScratch)),
			def(entities.EntryDeallocate),
			def(entities.EntryInitializeSimulation, I32Const(StubHandle)),
			def(entities.EntryCalculateDT, F64Const(StubDT)),
			def(entities.EntryIsFinished,
				LocalGet(0), I32Const(StubHandle), []byte{OpI32Ne},
				If(I64Const(packed(stubErrorOffset, StubMissingError)), Call(0), []byte{OpDrop, OpUnreachable}),
				I32Const(0)),
			def(entities.EntryStep),
			def(entities.EntryFinalizeSimulation),
			def(entities.EntryNDims, I32Const(FakeNDims)),
			def(entities.EntryNElements, I32Const(FakeNElements)),
			def(entities.EntryNElementsGlobal, I32Const(FakeNElements)),
			def(entities.EntryNDofs, I32Const(FakeNDofs)),
			def(entities.EntryNDofsGlobal, I32Const(FakeNDofs)),
			def(entities.EntryNDofsElement, I32Const(FakeNDofsElem)),
			def(entities.EntryNVariables, I32Const(FakeNVariables)),
			def(entities.EntryNNodes, I32Const(FakeNNodes)),
			def(entities.EntryLoadCellAverages, storeAt(1)),
			def(entities.EntryLoadNodeReferenceCoordinates, storeAt(1)),
			def(entities.EntryLoadNodeWeights, storeAt(1)),
			def(entities.EntryLoadPrimitiveVars, storeAt(2)),
			def(entities.EntryLoadElementAveragedPrimitiveVars, storeAt(2)),
			def(entities.EntryRegisterData),
			def(entities.EntryGetDataPointer, I32Const(StubDataPointer)),
			def(entities.EntryGetSimulationTime, F64Const(0)),
			def(entities.EntryGetT8codeForest, I32Const(0)),
			def(entities.EntryVersionLibrary, I64Const(packed(stubVersionOffset, FakeVersion))),
			def(entities.EntryVersionLibraryMajor, I32Const(0)),
			def(entities.EntryVersionLibraryMinor, I32Const(7)),
			def(entities.EntryVersionLibraryPatch, I32Const(1)),
			def(entities.EntryVersionPackages, I64Const(packed(stubPackagesOffset, FakePackages))),
			def(entities.EntryVersionPackagesExtended, I64Const(packed(stubPackagesOffset, FakePackages))),
			def(entities.EntryEval),
		},
	}
}
