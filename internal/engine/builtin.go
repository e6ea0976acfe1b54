package engine

import (
	"context"
	"encoding/json"
	"errors"
)

// builtinPreviewFeatures are the preview features known without a native
// engine.
var builtinPreviewFeatures = []string{
	"clientExtensions",
	"deno",
	"extendedWhereUnique",
	"fieldReference",
	"filteredRelationCount",
	"fullTextIndex",
	"fullTextSearch",
	"metrics",
	"multiSchema",
	"orderByNulls",
	"postgresqlExtensions",
	"tracing",
	"views",
}

// ErrDebugPanic is raised by the builtin engine's DebugPanic.
var ErrDebugPanic = errors.New("debug panic triggered")

// Builtin is the engine used when no native engine bundle is available. It
// validates nothing, formats nothing and completes nothing; local analysis
// still runs on top of it.
type Builtin struct{}

// NewBuiltin returns the builtin engine.
func NewBuiltin() *Builtin { return &Builtin{} }

func (*Builtin) Name() string { return "builtin" }

func (*Builtin) Lint(context.Context, string) (string, error) { return "[]", nil }

func (*Builtin) Format(_ context.Context, schema, _ string) (string, error) { return schema, nil }

func (*Builtin) Complete(context.Context, string, string) (string, error) {
	return `{"isIncomplete":false,"items":[]}`, nil
}

func (*Builtin) PreviewFeatures(context.Context) (string, error) {
	data, err := json.Marshal(builtinPreviewFeatures)
	return string(data), err
}

func (*Builtin) NativeTypes(context.Context, string) (string, error) { return "[]", nil }

func (*Builtin) CodeActions(context.Context, string, string) (string, error) { return "[]", nil }

func (*Builtin) DebugPanic(context.Context) error {
	panic(ErrDebugPanic)
}

func (*Builtin) Close(context.Context) error { return nil }
