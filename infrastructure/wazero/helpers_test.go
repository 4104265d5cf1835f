package wazero

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/hostfuncs"
	"github.com/trixi-framework/libtrixi-go/internal/abi"
	tu "github.com/trixi-framework/libtrixi-go/internal/testutil"
)

const (
	raisedMessage  = "boom: handle 42"
	raisedOffset   = 16
	logOffset      = 64
	allocatorBase  = 4096
	guestLogRecord = `{"level":"INFO","message":"hello from guest"}`
)

var (
	i64 = []api.ValueType{api.ValueTypeI64}
	i32 = []api.ValueType{api.ValueTypeI32}
)

// testModule exercises every host function of trixi_host plus plain exports.
func testModule(exportMemory bool) tu.WasmModule {
	return tu.WasmModule{
		Imports: []tu.WasmImport{
			{Module: hostfuncs.HostModuleName, Name: hostfuncs.FuncRaiseError, Params: i64, Results: i64},
			{Module: hostfuncs.HostModuleName, Name: hostfuncs.FuncDebugLevel, Results: i32},
			{Module: hostfuncs.HostModuleName, Name: hostfuncs.FuncLogMessage, Params: i64, Results: i64},
		},
		MemoryPages:  1,
		ExportMemory: exportMemory,
		Data: []tu.WasmData{
			{Offset: raisedOffset, Bytes: []byte(raisedMessage)},
			{Offset: logOffset, Bytes: []byte(guestLogRecord)},
		},
		Funcs: []tu.WasmFunc{
			{Name: "_initialize", Body: tu.Seq(tu.I32Const(0), tu.I32Const(7), tu.I32Store())},
			{Name: "get_debug", Results: i32, Body: tu.Call(1)},
			{Name: "fail", Body: tu.Seq(
				tu.I64Const(int64(abi.PackPtrLen(raisedOffset, uint32(len(raisedMessage))))),
				tu.Call(0),
				[]byte{tu.OpDrop, tu.OpUnreachable},
			)},
			{Name: entities.EntryAllocate.Export(), Params: i32, Results: i32, Body: tu.I32Const(allocatorBase)},
			{
				Name:    "add",
				Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
				Results: i32,
				Body:    tu.Seq(tu.LocalGet(0), tu.LocalGet(1), []byte{tu.OpI32Add}),
			},
			{Name: "half", Results: []api.ValueType{api.ValueTypeF64}, Body: tu.F64Const(0.5)},
			{Name: "say", Body: tu.Seq(
				tu.I64Const(int64(abi.PackPtrLen(logOffset, uint32(len(guestLogRecord))))),
				tu.Call(2),
				[]byte{tu.OpDrop},
			)},
			{Name: entities.ABIVersionMarker},
		},
	}
}

func writeModule(t *testing.T, module []byte) *entities.Project {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "solver.wasm")
	if err := os.WriteFile(path, module, 0o600); err != nil {
		t.Fatalf("failed to write test module: %v", err)
	}
	return &entities.Project{
		Manifest:   &entities.ProjectManifest{Name: "test-module", Module: "solver.wasm", Env: map[string]string{"TRIXI_THREADS": "1"}},
		Dir:        dir,
		ModulePath: path,
	}
}
