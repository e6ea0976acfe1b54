package lsp

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"go.uber.org/zap"
)

// MethodSchemas is the client notification listing every schema file of
// the workspace.
const MethodSchemas = "prisma/schemas"

// SchemasParams carries the workspace schema file URIs.
type SchemasParams struct {
	URIs []string `json:"uris"`
}

// schemas rebuilds the registry from the given file set and revalidates
// every open document against it.
func (s *Server) schemas(ctx *glsp.Context, params *SchemasParams) error {
	snap, err := s.registry.Rebuild(s.ctx, params.URIs, s.documents)
	if err != nil {
		return err
	}
	for _, doc := range s.documents.All() {
		if _, ok := snap.Lookup(doc.Path()); !ok {
			s.registry.UpdateDocument(doc)
		}
	}
	s.logger.Info("Workspace schemas updated", zap.Int("schemas", len(params.URIs)))

	s.publishAll(ctx.Notify)
	return nil
}

// publishAll revalidates every open document. Any edit can change how the
// imports of another document resolve.
func (s *Server) publishAll(notify glsp.NotifyFunc) {
	for _, doc := range s.documents.All() {
		s.publish(notify, doc)
	}
}

// publish sends the diagnostics of doc.
func (s *Server) publish(notify glsp.NotifyFunc, doc *schema.Document) {
	diagnostics := s.features.Diagnostics(s.ctx, doc, s.registry.Snapshot(), s.onError(notify))
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: toDiagnostics(diagnostics),
	})
}

// skipped directories are never scanned for schema files.
var skipped = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// discover lists the URIs of every file under root with the given
// extension. Hidden directories are skipped.
func discover(root, extension string) ([]string, error) {
	var uris []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || skipped[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == extension {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			uris = append(uris, schema.URIFromPath(abs))
		}
		return nil
	})
	return uris, err
}
