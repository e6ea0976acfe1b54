package engine

import (
	"slices"
	"time"

	"github.com/woxQAQ/prisma-schema-lsp/internal/wasm"
)

// Bundle is a loaded engine bundle: its manifest and compiled module.
type Bundle struct {
	Manifest *Manifest
	Compiled *wasm.CompiledModule
	LoadedAt time.Time
}

// Name returns the bundle name.
func (b *Bundle) Name() string {
	return b.Manifest.Name
}

// Version returns the bundle version.
func (b *Bundle) Version() string {
	return b.Manifest.Version
}

// Capabilities returns the operations the bundle's module implements.
func (b *Bundle) Capabilities() []Op {
	return b.Manifest.Capabilities
}

// Supports reports whether the bundle implements op.
func (b *Bundle) Supports(op Op) bool {
	return slices.Contains(b.Manifest.Capabilities, op)
}

// exports lists the module exports backing the bundle's capabilities.
func (b *Bundle) exports() []string {
	names := []string{debugPanicExport}
	for _, op := range b.Manifest.Capabilities {
		names = append(names, op.export())
	}
	return names
}
