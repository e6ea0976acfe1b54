// Package engine wraps the native schema engine: the opaque library that
// validates, formats and completes schema text. Engines run as Wasm modules
// loaded from engine bundles, or fall back to the builtin engine.
package engine

import (
	"context"
	"fmt"
	"slices"
)

// Op names one engine operation. Ops double as manifest capabilities and as
// the names of the functions a Wasm engine exports.
type Op string

const (
	OpLint            Op = "lint"
	OpFormat          Op = "format"
	OpComplete        Op = "complete"
	OpPreviewFeatures Op = "preview_features"
	OpNativeTypes     Op = "native_types"
	OpCodeActions     Op = "code_actions"
)

// Ops lists every operation in a stable order.
var Ops = []Op{OpLint, OpFormat, OpComplete, OpPreviewFeatures, OpNativeTypes, OpCodeActions}

// Valid reports whether op is a known operation.
func (op Op) Valid() bool {
	return slices.Contains(Ops, op)
}

// export returns the Wasm export implementing op.
func (op Op) export() string {
	if op == OpComplete {
		return "text_document_completion"
	}
	return string(op)
}

// debugPanicExport makes a Wasm engine trap on purpose.
const debugPanicExport = "debug_panic"

// Engine is the raw string interface of a native engine. Every method may
// fail; callers go through Client, which decodes results and contains faults.
type Engine interface {
	Name() string
	Lint(ctx context.Context, schema string) (string, error)
	Format(ctx context.Context, schema, params string) (string, error)
	Complete(ctx context.Context, schema, params string) (string, error)
	PreviewFeatures(ctx context.Context) (string, error)
	NativeTypes(ctx context.Context, schema string) (string, error)
	CodeActions(ctx context.Context, schema, params string) (string, error)
	// DebugPanic triggers a fault inside the engine.
	DebugPanic(ctx context.Context) error
	Close(ctx context.Context) error
}

// LinterError is one lint result. Start and End are byte offsets into the
// linted text.
type LinterError struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Text      string `json:"text"`
	IsWarning bool   `json:"is_warning"`
}

// NativeTypeConstructor describes a database specific type attribute such
// as @db.VarChar(n).
type NativeTypeConstructor struct {
	Name                 string   `json:"name"`
	NumberOfArgs         int      `json:"_number_of_args"`
	NumberOfOptionalArgs int      `json:"_number_of_optional_args"`
	PrismaTypes          []string `json:"prisma_types"`
}

// HasArgs reports whether the constructor takes any arguments.
func (n NativeTypeConstructor) HasArgs() bool {
	return n.NumberOfArgs+n.NumberOfOptionalArgs != 0
}

// Supports reports whether the constructor applies to a scalar type.
func (n NativeTypeConstructor) Supports(prismaType string) bool {
	return slices.Contains(n.PrismaTypes, prismaType)
}

// FaultError reports an engine call that panicked, trapped, failed or
// returned undecodable output.
type FaultError struct {
	Op  Op
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}
