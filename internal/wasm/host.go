package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// HostModuleName is the import module engines link their host calls against.
const HostModuleName = "host"

// Log levels accepted by log_message.
const (
	LogLevelDebug uint32 = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// HostFunctionsImpl implements host functions for Wasm modules.
type HostFunctionsImpl struct {
	logger *zap.Logger
	debug  bool
}

// NewHostFunctions creates a new host functions implementation. With debug
// unset, guest debug messages are dropped.
func NewHostFunctions(logger *zap.Logger, debug bool) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
		debug:  debug,
	}
}

// logMessage is called by engine modules to log messages.
// Signature: log_message(level, ptr, length)
func (h *HostFunctionsImpl) logMessage(_ context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	module := zap.String("module", mod.Name())
	switch level {
	case LogLevelDebug:
		if h.debug {
			h.logger.Debug(string(msg), module)
		}
	case LogLevelWarn:
		h.logger.Warn(string(msg), module)
	case LogLevelError:
		h.logger.Error(string(msg), module)
	default:
		h.logger.Info(string(msg), module)
	}
}

// instantiate links the host module into the runtime.
func (h *HostFunctionsImpl) instantiate(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export("log_message").
		Instantiate(ctx)
	if err != nil {
		return &HostFunctionError{Function: "log_message", Err: err}
	}
	return nil
}
