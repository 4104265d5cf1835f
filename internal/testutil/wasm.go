package testutil

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// WasmImport is an imported function of a WasmModule.
type WasmImport struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// WasmFunc is a function defined in a WasmModule. Body holds the instructions
// without the closing end opcode. Function indexes count imports first.
type WasmFunc struct {
	Name    string // export name; empty keeps the function private
	Params  []api.ValueType
	Results []api.ValueType
	Locals  []api.ValueType
	Body    []byte
}

// WasmData is an active data segment in memory 0.
type WasmData struct {
	Offset uint32
	Bytes  []byte
}

// WasmModule describes a small core module to be encoded in binary form.
type WasmModule struct {
	Imports      []WasmImport
	Funcs        []WasmFunc
	Data         []WasmData
	MemoryPages  uint32
	ExportMemory bool
}

// FuncIndex returns the function index of the i-th defined function.
func (m WasmModule) FuncIndex(i int) uint32 {
	return uint32(len(m.Imports) + i) //nolint:gosec // test modules are tiny
}

// Encode produces the binary module.
func (m WasmModule) Encode() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	section := func(id byte, payload []byte) {
		out = append(out, id)
		out = append(out, uleb(uint64(len(payload)))...)
		out = append(out, payload...)
	}

	var types [][]byte
	typeIndex := func(params, results []api.ValueType) uint32 {
		enc := []byte{0x60}
		enc = append(enc, vec(params)...)
		enc = append(enc, vec(results)...)
		for i, t := range types {
			if string(t) == string(enc) {
				return uint32(i) //nolint:gosec // test modules are tiny
			}
		}
		types = append(types, enc)
		return uint32(len(types) - 1) //nolint:gosec // test modules are tiny
	}

	imports := uleb(uint64(len(m.Imports)))
	for _, imp := range m.Imports {
		imports = append(imports, name(imp.Module)...)
		imports = append(imports, name(imp.Name)...)
		imports = append(imports, 0x00)
		imports = append(imports, uleb(uint64(typeIndex(imp.Params, imp.Results)))...)
	}

	funcs := uleb(uint64(len(m.Funcs)))
	for _, f := range m.Funcs {
		funcs = append(funcs, uleb(uint64(typeIndex(f.Params, f.Results)))...)
	}

	typeSection := uleb(uint64(len(types)))
	for _, t := range types {
		typeSection = append(typeSection, t...)
	}
	section(0x01, typeSection)
	if len(m.Imports) > 0 {
		section(0x02, imports)
	}
	section(0x03, funcs)

	if m.MemoryPages > 0 {
		mem := []byte{0x01, 0x00}
		section(0x05, append(mem, uleb(uint64(m.MemoryPages))...))
	}

	var exports []byte
	count := 0
	if m.MemoryPages > 0 && m.ExportMemory {
		exports = append(exports, name("memory")...)
		exports = append(exports, 0x02, 0x00)
		count++
	}
	for i, f := range m.Funcs {
		if f.Name == "" {
			continue
		}
		exports = append(exports, name(f.Name)...)
		exports = append(exports, 0x00)
		exports = append(exports, uleb(uint64(m.FuncIndex(i)))...)
		count++
	}
	section(0x07, append(uleb(uint64(count)), exports...))

	code := uleb(uint64(len(m.Funcs)))
	for _, f := range m.Funcs {
		body := uleb(uint64(len(f.Locals)))
		for _, l := range f.Locals {
			body = append(body, 0x01, l)
		}
		body = append(body, f.Body...)
		body = append(body, 0x0b)
		code = append(code, uleb(uint64(len(body)))...)
		code = append(code, body...)
	}
	section(0x0a, code)

	if len(m.Data) > 0 {
		data := uleb(uint64(len(m.Data)))
		for _, d := range m.Data {
			data = append(data, 0x00)
			data = append(data, I32Const(int32(d.Offset))...) //nolint:gosec // test offsets are small
			data = append(data, 0x0b)
			data = append(data, uleb(uint64(len(d.Bytes)))...)
			data = append(data, d.Bytes...)
		}
		section(0x0b, data)
	}
	return out
}

// Instruction helpers for WasmFunc bodies.

func I32Const(v int32) []byte { return append([]byte{0x41}, sleb(int64(v))...) }
func I64Const(v int64) []byte { return append([]byte{0x42}, sleb(v)...) }

func F64Const(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{0x44}, math.Float64bits(v))
}

func LocalGet(i uint32) []byte { return append([]byte{0x20}, uleb(uint64(i))...) }
func Call(fn uint32) []byte { return append([]byte{0x10}, uleb(uint64(fn))...) }

// I32Store stores an i32 with natural alignment and zero offset.
func I32Store() []byte { return []byte{0x36, 0x02, 0x00} }

// F64Store stores an f64 with natural alignment and zero offset.
func F64Store() []byte { return []byte{0x39, 0x03, 0x00} }

// F64Load loads an f64 with natural alignment and zero offset.
func F64Load() []byte { return []byte{0x2b, 0x03, 0x00} }

const (
	OpDrop        byte = 0x1a
	OpUnreachable byte = 0x00
	OpI32Add      byte = 0x6a
	OpF64Add      byte = 0xa0
	OpI32Ne       byte = 0x47
)

// If wraps body in an if block without results; it consumes an i32 condition.
func If(body ...[]byte) []byte {
	out := []byte{0x04, 0x40}
	out = append(out, Seq(body...)...)
	return append(out, 0x0b)
}

// Seq concatenates instruction fragments.
func Seq(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(types []api.ValueType) []byte {
	return append(uleb(uint64(len(types))), types...)
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
