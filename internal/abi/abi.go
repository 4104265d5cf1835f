// Package abi holds the host side of the guest memory conventions: packed
// pointer/length values and little-endian float64 buffers.
package abi

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PtrHighBits is the shift of the pointer half in a packed value.
const PtrHighBits = 32

// Float64Size is the byte width of one float64 in guest memory.
const Float64Size = 8

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Unlike PackPtrLen it never panics: the value comes from the guest, and callers
// report a null pointer with a length as a memory error.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}

// Float64Bytes returns the byte length of n float64 values.
// ok is false when the result does not fit the 32-bit guest address space.
func Float64Bytes(n int) (size uint32, ok bool) {
	if n < 0 || uint64(n)*Float64Size > math.MaxUint32 {
		return 0, false
	}
	return uint32(n) * Float64Size, true //nolint:gosec // G115: bounded above
}

// EncodeFloat64s writes values as little-endian IEEE 754 into a new byte slice.
func EncodeFloat64s(values []float64) []byte {
	buf := make([]byte, len(values)*Float64Size)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*Float64Size:], math.Float64bits(v))
	}
	return buf
}

// DecodeFloat64s fills dst from little-endian IEEE 754 bytes and returns the
// number of values decoded. Trailing bytes that do not form a whole value are ignored.
func DecodeFloat64s(dst []float64, src []byte) int {
	n := min(len(dst), len(src)/Float64Size)
	for i := range n {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*Float64Size:]))
	}
	return n
}
