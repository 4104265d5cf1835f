package hostfuncs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
	"github.com/trixi-framework/libtrixi-go/log"
)

// Names of the functions exported in the trixi_host import module.
const (
	// HostModuleName is the import module the hosted package links against.
	HostModuleName = "trixi_host"

	// FuncLogMessage forwards a JSON log.LogMessageWire record (packed i64 in, i64 out).
	FuncLogMessage = "log_message"

	// FuncRaiseError records the guest's description of an error it is about to
	// trap on (packed i64 in, i64 out). The payload is a JSON entities.ErrorDetail
	// or a plain UTF-8 message.
	FuncRaiseError = "raise_error"

	// FuncDebugLevel returns the entities.DebugLevel as i32 (no params).
	FuncDebugLevel = "debug_level"
)

// RaiseErrorHandler stores the guest error in the call's ErrorSink. Errors
// raised outside a bridge call have no sink and are logged instead.
func RaiseErrorHandler(logger *slog.Logger) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		detail := entities.ParseGuestError(payload)
		if sink := ErrorSinkFrom(ctx); sink != nil {
			sink.Record(detail)
			return nil, nil
		}
		logger.WarnContext(ctx, "guest raised an error outside of a bridge call",
			"type", detail.Type,
			"code", detail.Code,
			"message", detail.Message)
		return nil, nil
	}
}

// LogMessageHandler replays guest log records through logger. Guest records
// below info are dropped unless debug enables guest output.
func LogMessageHandler(logger *slog.Logger, debug entities.DebugLevel) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg log.LogMessageWire
		if err := json.Unmarshal(payload, &msg); err != nil {
			return NewValidationError("malformed log message: " + err.Error()).ToJSON(), nil
		}
		if !debug.Guest() && log.ParseLevel(msg.Level) < slog.LevelInfo {
			return nil, nil
		}
		if err := log.Replay(ctx, logger, msg); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// WithBridgeHandlers registers log_message and raise_error. debug_level has a
// scalar signature and is exported by the runtime adapter directly.
func WithBridgeHandlers(logger *slog.Logger, debug entities.DebugLevel) RegistryOption {
	return func(b *registryBuilder) {
		b.addHandler(FuncLogMessage, LogMessageHandler(logger, debug))
		b.addHandler(FuncRaiseError, RaiseErrorHandler(logger))
	}
}

// DefaultMaxRequestSize bounds a single request read from guest memory (1 MiB).
const DefaultMaxRequestSize uint32 = 1 << 20
