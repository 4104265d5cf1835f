package entities

import (
	"fmt"
	"strings"
)

// ABIVersionMarker is the export a hosted module must provide to declare that it
// implements the entry point set below.
const ABIVersionMarker = "libtrixi_abi_version_1"

// ValueType is a WebAssembly core value type as seen at the bridge boundary.
type ValueType byte

// Value types use the WebAssembly binary encoding.
const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("unknown(0x%x)", byte(v))
	}
}

// Signature describes the parameter and result types of a guest function.
type Signature struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports whether both signatures have identical parameter and result lists.
func (s Signature) Equal(other Signature) bool {
	return equalTypes(s.Params, other.Params) && equalTypes(s.Results, other.Results)
}

func (s Signature) String() string {
	return fmt.Sprintf("(%s) -> (%s)", joinTypes(s.Params), joinTypes(s.Results))
}

func equalTypes(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinTypes(types []ValueType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// EntryPoint enumerates the closed set of guest functions the bridge resolves once
// during initialization. The order is the resolution order.
type EntryPoint int

const (
	EntryAllocate EntryPoint = iota
	EntryDeallocate
	EntryInitializeSimulation
	EntryCalculateDT
	EntryIsFinished
	EntryStep
	EntryFinalizeSimulation
	EntryNDims
	EntryNElements
	EntryNElementsGlobal
	EntryNDofs
	EntryNDofsGlobal
	EntryNDofsElement
	EntryNVariables
	EntryNNodes
	EntryLoadCellAverages
	EntryLoadNodeReferenceCoordinates
	EntryLoadNodeWeights
	EntryLoadPrimitiveVars
	EntryLoadElementAveragedPrimitiveVars
	EntryRegisterData
	EntryGetDataPointer
	EntryGetSimulationTime
	EntryGetT8codeForest
	EntryVersionLibrary
	EntryVersionLibraryMajor
	EntryVersionLibraryMinor
	EntryVersionLibraryPatch
	EntryVersionPackages
	EntryVersionPackagesExtended
	EntryEval

	// NumEntryPoints is the size of the entry point table.
	NumEntryPoints
)

type entryPointSpec struct {
	export string
	sig    Signature
}

var (
	i32   = ValueTypeI32
	i64   = ValueTypeI64
	f64   = ValueTypeF64
	none  = []ValueType{}
	onlyH = []ValueType{i32}
)

// OBS! Keep in sync with the EntryPoint constants; every slot must be filled.
var entryPointSpecs = [NumEntryPoints]entryPointSpec{
	EntryAllocate:                         {"trixi_allocate", Signature{onlyH, []ValueType{i32}}},
	EntryDeallocate:                       {"trixi_deallocate", Signature{[]ValueType{i32, i32}, none}},
	EntryInitializeSimulation:             {"trixi_initialize_simulation", Signature{[]ValueType{i32, i32}, []ValueType{i32}}},
	EntryCalculateDT:                      {"trixi_calculate_dt", Signature{onlyH, []ValueType{f64}}},
	EntryIsFinished:                       {"trixi_is_finished", Signature{onlyH, []ValueType{i32}}},
	EntryStep:                             {"trixi_step", Signature{onlyH, none}},
	EntryFinalizeSimulation:               {"trixi_finalize_simulation", Signature{onlyH, none}},
	EntryNDims:                            {"trixi_ndims", Signature{onlyH, []ValueType{i32}}},
	EntryNElements:                        {"trixi_nelements", Signature{onlyH, []ValueType{i32}}},
	EntryNElementsGlobal:                  {"trixi_nelementsglobal", Signature{onlyH, []ValueType{i32}}},
	EntryNDofs:                            {"trixi_ndofs", Signature{onlyH, []ValueType{i32}}},
	EntryNDofsGlobal:                      {"trixi_ndofsglobal", Signature{onlyH, []ValueType{i32}}},
	EntryNDofsElement:                     {"trixi_ndofselement", Signature{onlyH, []ValueType{i32}}},
	EntryNVariables:                       {"trixi_nvariables", Signature{onlyH, []ValueType{i32}}},
	EntryNNodes:                           {"trixi_nnodes", Signature{onlyH, []ValueType{i32}}},
	EntryLoadCellAverages:                 {"trixi_load_cell_averages", Signature{[]ValueType{i32, i32}, none}},
	EntryLoadNodeReferenceCoordinates:     {"trixi_load_node_reference_coordinates", Signature{[]ValueType{i32, i32}, none}},
	EntryLoadNodeWeights:                  {"trixi_load_node_weights", Signature{[]ValueType{i32, i32}, none}},
	EntryLoadPrimitiveVars:                {"trixi_load_primitive_vars", Signature{[]ValueType{i32, i32, i32}, none}},
	EntryLoadElementAveragedPrimitiveVars: {"trixi_load_element_averaged_primitive_vars", Signature{[]ValueType{i32, i32, i32}, none}},
	EntryRegisterData:                     {"trixi_register_data", Signature{[]ValueType{i32, i32, i32, i32}, none}},
	EntryGetDataPointer:                   {"trixi_get_data_pointer", Signature{onlyH, []ValueType{i32}}},
	EntryGetSimulationTime:                {"trixi_get_simulation_time", Signature{onlyH, []ValueType{f64}}},
	EntryGetT8codeForest:                  {"trixi_get_t8code_forest", Signature{onlyH, []ValueType{i32}}},
	EntryVersionLibrary:                   {"trixi_version_library", Signature{none, []ValueType{i64}}},
	EntryVersionLibraryMajor:              {"trixi_version_library_major", Signature{none, []ValueType{i32}}},
	EntryVersionLibraryMinor:              {"trixi_version_library_minor", Signature{none, []ValueType{i32}}},
	EntryVersionLibraryPatch:              {"trixi_version_library_patch", Signature{none, []ValueType{i32}}},
	EntryVersionPackages:                  {"trixi_version_packages", Signature{none, []ValueType{i64}}},
	EntryVersionPackagesExtended:          {"trixi_version_packages_extended", Signature{none, []ValueType{i64}}},
	EntryEval:                             {"trixi_eval", Signature{[]ValueType{i32, i32}, none}},
}

// Export returns the stable export name of the entry point in the hosted module.
func (e EntryPoint) Export() string {
	if !e.Valid() {
		return ""
	}
	return entryPointSpecs[e].export
}

// Signature returns the expected wasm signature of the entry point.
func (e EntryPoint) Signature() Signature {
	if !e.Valid() {
		return Signature{}
	}
	return entryPointSpecs[e].sig
}

// Valid reports whether e is a member of the enumeration.
func (e EntryPoint) Valid() bool {
	return e >= 0 && e < NumEntryPoints
}

func (e EntryPoint) String() string {
	if !e.Valid() {
		return fmt.Sprintf("EntryPoint(%d)", int(e))
	}
	return strings.TrimPrefix(e.Export(), "trixi_")
}

// EntryPoints returns every entry point in resolution order.
func EntryPoints() []EntryPoint {
	out := make([]EntryPoint, NumEntryPoints)
	for i := range out {
		out[i] = EntryPoint(i)
	}
	return out
}
