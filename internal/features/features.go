// Package features implements the editor features that sit next to
// completion and rename: diagnostics, go to definition, hover, document
// symbols, code actions and formatting.
//
// Every feature reads a registry snapshot taken for the request and never
// modifies it. Native engine faults are reported through the request's
// error handler by the engine client; the features then degrade to what can
// be computed locally.
package features

import (
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/internal/virtual"
	"go.uber.org/zap"
)

// Service answers feature requests for schema documents.
type Service struct {
	client *engine.Client
	logger *zap.Logger
}

// New creates a feature service backed by client.
func New(client *engine.Client, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		logger: logger.With(zap.String("component", "features")),
	}
}

// importedBlock resolves name through the import statements of doc.
func importedBlock(doc *schema.Document, snap *registry.Snapshot, name string) (*registry.SchemaWithBlocks, schema.Block, bool) {
	for _, imp := range schema.ScanImports(doc.Lines()) {
		if !imp.Imports(name) || imp.RelativeImportPath == "" {
			continue
		}
		target, ok := snap.Lookup(virtual.ImportTarget(doc.Path(), imp.RelativeImportPath))
		if !ok {
			continue
		}
		if b, ok := target.Block(name); ok {
			return target, b, true
		}
	}
	return nil, schema.Block{}, false
}
