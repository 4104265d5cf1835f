package host

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/trixi-framework/libtrixi-go/domain/errors"
	"github.com/trixi-framework/libtrixi-go/domain/ports"
	"github.com/trixi-framework/libtrixi-go/internal/abi"
)

var errNoMemory = stderrors.New("hosted module exports no memory")

func (l *Library) memory() (ports.Memory, error) {
	if l.module == nil {
		return nil, errNoMemory
	}
	mem := l.module.Memory()
	if mem == nil {
		return nil, errNoMemory
	}
	return mem, nil
}

// withScratch lends fn size bytes of guest memory and frees them afterwards.
func (l *Library) withScratch(ctx context.Context, fns *boundFuncs, size uint32, fn func(ptr uint32) error) (err error) {
	ptr, err := fns.allocate(ctx, size)
	if err != nil {
		return fmt.Errorf("allocate %d bytes: %w", size, err)
	}
	defer func() {
		if derr := fns.deallocate(ctx, ptr, size); derr != nil && err == nil {
			err = fmt.Errorf("deallocate: %w", derr)
		}
	}()
	return fn(ptr)
}

// withBytes copies data into guest scratch memory for the duration of fn.
func (l *Library) withBytes(ctx context.Context, fns *boundFuncs, data []byte, fn func(ptr, n uint32) error) error {
	mem, err := l.memory()
	if err != nil {
		return err
	}
	n := uint32(len(data)) //nolint:gosec // guest inputs are far below 4 GiB
	return l.withScratch(ctx, fns, n, func(ptr uint32) error {
		if !mem.Write(ptr, data) {
			return &errors.MemoryError{Operation: "write", Offset: ptr, Length: n}
		}
		return fn(ptr, n)
	})
}

// loadFloats has load fill a guest buffer the size of dst and copies it back.
func (l *Library) loadFloats(ctx context.Context, fns *boundFuncs, dst []float64, load func(ctx context.Context, ptr uint32) error) error {
	mem, err := l.memory()
	if err != nil {
		return err
	}
	size, ok := abi.Float64Bytes(len(dst))
	if !ok {
		return &errors.MemoryError{Operation: "allocate", Length: ^uint32(0)}
	}
	return l.withScratch(ctx, fns, size, func(ptr uint32) error {
		if err := load(ctx, ptr); err != nil {
			return err
		}
		raw, ok := mem.Read(ptr, size)
		if !ok {
			return &errors.MemoryError{Operation: "read", Offset: ptr, Length: size}
		}
		abi.DecodeFloat64s(dst, raw)
		return nil
	})
}

// readOwned reads a guest-allocated packed ptr/len buffer and frees it.
func (l *Library) readOwned(ctx context.Context, fns *boundFuncs, packed uint64) (string, error) {
	if packed == 0 {
		return "", nil
	}
	ptr, n := abi.UnpackPtrLen(packed)
	if ptr == 0 {
		return "", &errors.MemoryError{Operation: "read", Offset: ptr, Length: n}
	}
	mem, err := l.memory()
	if err != nil {
		return "", err
	}
	raw, ok := mem.Read(ptr, n)
	if !ok {
		return "", &errors.MemoryError{Operation: "read", Offset: ptr, Length: n}
	}
	s := string(raw)
	if err := fns.deallocate(ctx, ptr, n); err != nil {
		return "", fmt.Errorf("deallocate: %w", err)
	}
	return s, nil
}
