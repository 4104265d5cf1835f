package testutil

import (
	"encoding/binary"
	"math"
)

// FakeMemory is a flat byte slice implementing ports.Memory.
type FakeMemory struct {
	buf []byte
}

// NewFakeMemory returns a zeroed memory of size bytes.
func NewFakeMemory(size uint32) *FakeMemory {
	return &FakeMemory{buf: make([]byte, size)}
}

func (m *FakeMemory) Size() uint32 {
	return uint32(len(m.buf)) //nolint:gosec // fake memories are small
}

func (m *FakeMemory) inRange(offset, n uint32) bool {
	return uint64(offset)+uint64(n) <= uint64(len(m.buf))
}

func (m *FakeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if !m.inRange(offset, byteCount) {
		return nil, false
	}
	return m.buf[offset : offset+byteCount : offset+byteCount], true
}

func (m *FakeMemory) Write(offset uint32, v []byte) bool {
	if !m.inRange(offset, uint32(len(v))) { //nolint:gosec // fake memories are small
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

func (m *FakeMemory) ReadFloat64Le(offset uint32) (float64, bool) {
	if !m.inRange(offset, 8) {
		return 0, false
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(m.buf[offset:])), true
}

func (m *FakeMemory) WriteFloat64Le(offset uint32, v float64) bool {
	if !m.inRange(offset, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(m.buf[offset:], math.Float64bits(v))
	return true
}
