package engine

import (
	"context"
	"sync"

	"github.com/woxQAQ/prisma-schema-lsp/internal/wasm"
)

// WasmEngine runs a native engine bundle. Operations the bundle does not
// declare are answered by the builtin engine.
type WasmEngine struct {
	// mu serializes calls; an instance is not safe for concurrent use.
	mu       sync.Mutex
	bundle   *Bundle
	instance *wasm.Instance
	fallback *Builtin
}

// NewWasmEngine wraps an instance of the bundle's module.
func NewWasmEngine(bundle *Bundle, instance *wasm.Instance) *WasmEngine {
	return &WasmEngine{bundle: bundle, instance: instance, fallback: NewBuiltin()}
}

func (e *WasmEngine) Name() string { return e.bundle.Name() }

// Bundle returns the bundle the engine runs.
func (e *WasmEngine) Bundle() *Bundle { return e.bundle }

func (e *WasmEngine) Lint(ctx context.Context, schema string) (string, error) {
	if !e.bundle.Supports(OpLint) {
		return e.fallback.Lint(ctx, schema)
	}
	return e.call(ctx, OpLint, schema)
}

func (e *WasmEngine) Format(ctx context.Context, schema, params string) (string, error) {
	if !e.bundle.Supports(OpFormat) {
		return e.fallback.Format(ctx, schema, params)
	}
	return e.call(ctx, OpFormat, schema, params)
}

func (e *WasmEngine) Complete(ctx context.Context, schema, params string) (string, error) {
	if !e.bundle.Supports(OpComplete) {
		return e.fallback.Complete(ctx, schema, params)
	}
	return e.call(ctx, OpComplete, schema, params)
}

func (e *WasmEngine) PreviewFeatures(ctx context.Context) (string, error) {
	if !e.bundle.Supports(OpPreviewFeatures) {
		return e.fallback.PreviewFeatures(ctx)
	}
	return e.call(ctx, OpPreviewFeatures)
}

func (e *WasmEngine) NativeTypes(ctx context.Context, schema string) (string, error) {
	if !e.bundle.Supports(OpNativeTypes) {
		return e.fallback.NativeTypes(ctx, schema)
	}
	return e.call(ctx, OpNativeTypes, schema)
}

func (e *WasmEngine) CodeActions(ctx context.Context, schema, params string) (string, error) {
	if !e.bundle.Supports(OpCodeActions) {
		return e.fallback.CodeActions(ctx, schema, params)
	}
	return e.call(ctx, OpCodeActions, schema, params)
}

// DebugPanic calls the module's debug_panic export, which traps.
func (e *WasmEngine) DebugPanic(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.instance.Call(ctx, debugPanicExport)
	return err
}

func (e *WasmEngine) call(ctx context.Context, op Op, args ...string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instance.Call(ctx, op.export(), args...)
}

func (e *WasmEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instance.Close(ctx)
}
