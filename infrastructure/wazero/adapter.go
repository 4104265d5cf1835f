package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/hostfuncs"
	"github.com/trixi-framework/libtrixi-go/internal/abi"
)

// AdapterConfig holds configuration for the host module adapter.
type AdapterConfig struct {
	Logger *slog.Logger

	// ModuleName is the host module name (default: "trixi_host").
	ModuleName string

	// AllocateExport is the guest export used to allocate response memory
	// (default: "trixi_allocate").
	AllocateExport string

	// CustomHandlers are exported next to the registry handlers. They cover host
	// functions that do not follow the packed i64 request/response pattern.
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of incoming requests from guest memory.
	MaxRequestSize uint32
}

// CustomHandler represents a wazero handler with its own signature.
type CustomHandler struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithAllocateExport sets the guest allocator used for responses.
func WithAllocateExport(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.AllocateExport = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// WithAdapterLogger sets the logger used for adapter failures.
func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = logger
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     hostfuncs.HostModuleName,
		AllocateExport: entities.EntryAllocate.Export(),
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
		Logger:         slog.Default(),
	}
}

// DebugLevelHandler exports the fixed debug level as an i32 result.
func DebugLevelHandler(level entities.DebugLevel) CustomHandler {
	return CustomHandler{
		Name: hostfuncs.FuncDebugLevel,
		Handler: func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(int32(level))
		},
		ResultTypes: []api.ValueType{api.ValueTypeI32},
	}
}

// RegisterWithRuntime exports every handler of registry, plus the custom
// handlers, in one host module of runtime.
//
// Registry handlers take and return a packed i64 (pointer in the high 32 bits,
// length in the low 32 bits). A handler returning no payload yields 0. Payloads
// are copied into memory obtained from the guest allocator.
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	for _, name := range registry.Names() {
		funcName := name
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = handleRegistryCall(ctx, mod, stack[0], registry, funcName, &cfg)
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(funcName)
	}

	for _, ch := range cfg.CustomHandlers {
		if registry.Has(ch.Name) {
			return fmt.Errorf("custom handler %q clashes with a registry handler", ch.Name)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

func handleRegistryCall(ctx context.Context, mod api.Module, packed uint64, registry *hostfuncs.HandlerRegistry, name string, cfg *AdapterConfig) uint64 {
	logger := cfg.Logger.With("function", name)
	if entry, ok := EntryPointFromContext(ctx); ok {
		logger = logger.With("entry_point", entry.String())
	}

	ptr, length := abi.UnpackPtrLen(packed)
	if length > cfg.MaxRequestSize {
		errMsg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, cfg.MaxRequestSize)
		logger.ErrorContext(ctx, "wazero: "+errMsg)
		return writeResponse(ctx, mod, hostfuncs.NewValidationError(errMsg).ToJSON(), cfg)
	}

	var request []byte
	if length > 0 {
		data, ok := mod.Memory().Read(ptr, length)
		if !ok {
			errMsg := "failed to read request from guest memory"
			logger.ErrorContext(ctx, "wazero: "+errMsg, "ptr", ptr, "length", length)
			return writeResponse(ctx, mod, hostfuncs.NewInternalError(errMsg).ToJSON(), cfg)
		}
		// guest memory may move while the handler runs
		request = append([]byte(nil), data...)
	}

	response, err := registry.Invoke(ctx, name, request)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: handler invocation failed", "error", err)
		return writeResponse(ctx, mod, hostfuncs.NewInternalError(err.Error()).ToJSON(), cfg)
	}
	return writeResponse(ctx, mod, response, cfg)
}

// writeResponse copies data into guest memory and returns the packed location,
// or 0 for an empty payload or on failure.
func writeResponse(ctx context.Context, mod api.Module, data []byte, cfg *AdapterConfig) uint64 {
	if len(data) == 0 {
		return 0
	}

	allocateFn := mod.ExportedFunction(cfg.AllocateExport)
	if allocateFn == nil {
		cfg.Logger.ErrorContext(ctx, "wazero: guest module missing allocator export", "export", cfg.AllocateExport)
		return 0
	}

	results, err := allocateFn.Call(ctx, api.EncodeI32(int32(len(data)))) //nolint:gosec // G115: bounded by MaxRequestSize-sized payloads
	if err != nil || len(results) == 0 {
		cfg.Logger.ErrorContext(ctx, "wazero: failed to call guest allocator", "error", err)
		return 0
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 || !mod.Memory().Write(ptr, data) {
		cfg.Logger.ErrorContext(ctx, "wazero: failed to write response to guest memory", "ptr", ptr)
		return 0
	}

	return abi.PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: see above
}
