// Package errors provides domain-specific error types for the bridge.
// All error types support error unwrapping via errors.As() and errors.Is().
//
// Errors fall in two families. Usage errors (LifecycleError, BorrowError) mean the
// caller broke the bridge contract; the runtime is still healthy. Runtime errors
// (RuntimeError, ResolutionError, ActivationError, DepotError) mean booting or
// running the hosted module failed and the runtime must be considered unusable.
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Lifecycle sentinels. Their messages match the diagnostics of the C library so
// logs stay greppable across both implementations.
var (
	ErrInitializedTwice = stdErrors.New("trixi_initialize invoked multiple times")
	ErrNotInitialized   = stdErrors.New("trixi_initialize must be called before trixi_finalize")
	ErrFinalizedTwice   = stdErrors.New("trixi_finalize invoked multiple times")
	ErrNotReady         = stdErrors.New("runtime is not initialized")
	ErrRuntimeClaimed   = stdErrors.New("embedded runtime already owned by another library instance")
)

// Resolution sentinels.
var (
	ErrEntryPointNotExported       = stdErrors.New("entry point not exported")
	ErrEntryPointSignature         = stdErrors.New("entry point has unexpected signature")
	ErrABIVersionMarkerNotExported = stdErrors.New("required ABI version marker not exported")
)

// Borrow sentinels.
var (
	ErrDataBorrowed   = stdErrors.New("simulation data is borrowed")
	ErrBorrowReleased = stdErrors.New("data borrow already released")
	ErrOutOfBounds    = stdErrors.New("index out of bounds")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// IsUsage reports whether err is a violation of the bridge contract by the caller.
func IsUsage(err error) bool {
	var le *LifecycleError
	var be *BorrowError
	return stdErrors.As(err, &le) || stdErrors.As(err, &be)
}

// IsRuntime reports whether err originates from booting or running the hosted module.
func IsRuntime(err error) bool {
	var re *RuntimeError
	var res *ResolutionError
	var ae *ActivationError
	var de *DepotError
	return stdErrors.As(err, &re) || stdErrors.As(err, &res) ||
		stdErrors.As(err, &ae) || stdErrors.As(err, &de)
}

// LifecycleError represents a call made in the wrong RuntimeState.
type LifecycleError struct {
	Err       error
	Operation string
	State     entities.RuntimeState
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: %v (state %s)", e.Operation, e.Err, e.State)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LifecycleError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "lifecycle", Code: e.Operation, IsUsage: true}
}

// ResolutionError represents a failure to bind one entry point of the hosted module.
type ResolutionError struct {
	Err    error
	Entry  entities.EntryPoint
	Export string
}

func (e *ResolutionError) Error() string {
	if !e.Entry.Valid() {
		return fmt.Sprintf("could not resolve export %q: %v", e.Export, e.Err)
	}
	return fmt.Sprintf("could not resolve entry point %s (export %q): %v", e.Entry, e.Export, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ResolutionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "resolution", Code: e.Export}
}

// RuntimeError represents a trap or guest-raised error while running hosted code.
type RuntimeError struct {
	Err error

	// Guest is the error the guest raised before trapping, if any.
	Guest *entities.ErrorDetail

	// Operation is the bridge operation or entry point that was running.
	Operation string

	// Code is the guest input that was being evaluated, when there is one
	// (libelixir path, eval source).
	Code string

	// Message is the guest's own description, if it raised one before trapping.
	Message string
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if g := e.Guest; g != nil {
		if g.Type != "" && g.Type != entities.GuestErrorType {
			msg = g.Type + ": " + msg
		}
		if g.Code != "" {
			msg += " [" + g.Code + "]"
		}
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, msg)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError. The guest's error, if any, is
// attached as Wrapped.
func (e *RuntimeError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "runtime", Code: e.Operation, Wrapped: e.Guest}
	if e.Code != "" {
		d.Details = map[string]any{"code": e.Code}
	}
	return d
}

// DepotErrorKind distinguishes depot resolution failures.
type DepotErrorKind string

const (
	// DepotBufferOverflow means the constructed path exceeds the fixed capacity.
	DepotBufferOverflow DepotErrorKind = "buffer_overflow"
	// DepotUnresolvable means the path could not be canonicalized.
	DepotUnresolvable DepotErrorKind = "unresolvable"
	// DepotEnvironment means the environment variable could not be written.
	DepotEnvironment DepotErrorKind = "environment"
)

// DepotError represents a failure to resolve the package cache location.
type DepotError struct {
	Err  error
	Kind DepotErrorKind
	Path string
}

func (e *DepotError) Error() string {
	switch e.Kind {
	case DepotBufferOverflow:
		return fmt.Sprintf("buffer size not sufficient for depot path construction (%d bytes)", len(e.Path))
	case DepotUnresolvable:
		return fmt.Sprintf("could not resolve depot path %q: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("depot path %q: %v", e.Path, e.Err)
	}
}

func (e *DepotError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *DepotError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "depot", Code: string(e.Kind)}
}

// ActivationError represents a failure to boot the runtime or load the hosted package.
type ActivationError struct {
	Err     error
	Stage   string
	Project string
}

func (e *ActivationError) Error() string {
	if e.Project != "" {
		return fmt.Sprintf("activation of %s failed during %s: %v", e.Project, e.Stage, e.Err)
	}
	return fmt.Sprintf("activation failed during %s: %v", e.Stage, e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ActivationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "activation", Code: e.Stage}
}

// BorrowError represents misuse of scoped access to guest-owned simulation data.
type BorrowError struct {
	Err       error
	Operation string
	Handle    entities.Handle
}

func (e *BorrowError) Error() string {
	return fmt.Sprintf("%s on simulation %s: %v", e.Operation, e.Handle, e.Err)
}

func (e *BorrowError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *BorrowError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "borrow", Code: e.Operation, IsUsage: true}
}

// ConfigError represents a project manifest or settings validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// MemoryError represents a failed access to guest linear memory.
type MemoryError struct {
	Operation string
	Offset    uint32
	Length    uint32
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("guest memory %s out of range: offset %d, length %d", e.Operation, e.Offset, e.Length)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "memory_" + e.Operation}
}
