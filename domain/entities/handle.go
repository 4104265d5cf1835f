package entities

import "strconv"

// Handle identifies one simulation inside the hosted module.
// Handles are allocated and validated by the guest; the bridge only forwards them.
type Handle int32

func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}

// ForestRef is an opaque reference to a mesh forest owned by the guest.
// It is only meaningful to code that understands the guest's memory layout.
type ForestRef uint32

// IsNil reports whether the guest returned a null forest.
func (f ForestRef) IsNil() bool {
	return f == 0
}
