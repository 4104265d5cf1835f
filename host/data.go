package host

import (
	"context"
	"math"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/internal/abi"
)

// DataBorrow is scoped access to a simulation's conservative variables, which
// live in guest memory. While a borrow is open, Step and FinalizeSimulation on
// the same handle fail. Values are laid out dof-major: variable v of dof d is
// at d*nvariables + v.
type DataBorrow struct {
	lib      *Library
	mem      ports.Memory
	handle   entities.Handle
	ptr      uint32
	n        int
	released bool
}

// BorrowData opens a DataBorrow on h.
func (l *Library) BorrowData(ctx context.Context, h entities.Handle) (*DataBorrow, error) {
	b, err := l.borrowData(ctx, h)
	return b, l.fail(err)
}

func (l *Library) borrowData(ctx context.Context, h entities.Handle) (*DataBorrow, error) {
	fns, err := l.ready("get_data_pointer")
	if err != nil {
		return nil, err
	}
	mem, err := l.memory()
	if err != nil {
		return nil, err
	}

	var ptr, ndofs, nvars int32
	err = l.invoke(ctx, entities.EntryGetDataPointer, "", func(ctx context.Context) error {
		var err error
		if ndofs, err = fns.ndofs(ctx, h); err != nil {
			return err
		}
		if nvars, err = fns.nvariables(ctx, h); err != nil {
			return err
		}
		ptr, err = fns.getDataPointer(ctx, h)
		return err
	})
	if err != nil {
		return nil, err
	}

	base := uint32(ptr) //nolint:gosec // guest pointer
	n := int64(ndofs) * int64(nvars)
	size := uint64(max(n, 0)) * abi.Float64Size
	if n < 0 || uint64(base)+size > uint64(mem.Size()) {
		return nil, &errors.MemoryError{Operation: "borrow", Offset: base, Length: uint32(min(size, math.MaxUint32))}
	}

	b := &DataBorrow{
		lib:    l,
		mem:    mem,
		handle: h,
		ptr:    base,
		n:      int(n),
	}
	l.borrows[h]++
	return b, nil
}

// Handle returns the borrowed simulation.
func (b *DataBorrow) Handle() entities.Handle {
	return b.handle
}

// Len returns the number of values, ndofs*nvariables.
func (b *DataBorrow) Len() int {
	return b.n
}

func (b *DataBorrow) check(op string, i int) error {
	if b.released {
		return &errors.BorrowError{Operation: op, Handle: b.handle, Err: errors.ErrBorrowReleased}
	}
	if b.lib.state != entities.StateInitialized {
		return &errors.LifecycleError{Operation: op, State: b.lib.state, Err: errors.ErrNotReady}
	}
	if i < 0 || i >= b.n {
		return &errors.BorrowError{Operation: op, Handle: b.handle, Err: errors.ErrOutOfBounds}
	}
	return nil
}

func (b *DataBorrow) offset(i int) uint32 {
	return b.ptr + uint32(i)*abi.Float64Size //nolint:gosec // i < n, which fits guest memory
}

// At returns value i.
func (b *DataBorrow) At(i int) (float64, error) {
	if err := b.check("data_at", i); err != nil {
		return 0, err
	}
	v, ok := b.mem.ReadFloat64Le(b.offset(i))
	if !ok {
		return 0, &errors.MemoryError{Operation: "read", Offset: b.offset(i), Length: abi.Float64Size}
	}
	return v, nil
}

// Set overwrites value i in guest memory.
func (b *DataBorrow) Set(i int, v float64) error {
	if err := b.check("data_set", i); err != nil {
		return err
	}
	if !b.mem.WriteFloat64Le(b.offset(i), v) {
		return &errors.MemoryError{Operation: "write", Offset: b.offset(i), Length: abi.Float64Size}
	}
	return nil
}

// CopyTo copies up to len(dst) values into dst and returns how many were copied.
func (b *DataBorrow) CopyTo(dst []float64) (int, error) {
	n := min(len(dst), b.n)
	if n == 0 {
		if b.released {
			return 0, b.check("data_copy", 0)
		}
		return 0, nil
	}
	if err := b.check("data_copy", n-1); err != nil {
		return 0, err
	}
	size := uint32(n) * abi.Float64Size //nolint:gosec // n <= b.n
	raw, ok := b.mem.Read(b.ptr, size)
	if !ok {
		return 0, &errors.MemoryError{Operation: "read", Offset: b.ptr, Length: size}
	}
	return abi.DecodeFloat64s(dst[:n], raw), nil
}

// Release ends the borrow. Releasing twice fails with ErrBorrowReleased.
func (b *DataBorrow) Release() error {
	if b.released {
		return &errors.BorrowError{Operation: "release", Handle: b.handle, Err: errors.ErrBorrowReleased}
	}
	b.released = true
	if b.lib.borrows[b.handle] > 0 {
		b.lib.borrows[b.handle]--
		if b.lib.borrows[b.handle] == 0 {
			delete(b.lib.borrows, b.handle)
		}
	}
	return nil
}
