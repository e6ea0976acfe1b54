package features

import (
	"context"
	"strings"
	"time"

	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/imports"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/internal/virtual"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

// importMask hides import statements from the engine's formatter.
const importMask = "//_"

// Formatted is the result of formatting one document.
type Formatted struct {
	// Edits replace the whole document.
	Edits []protocol.TextEdit
	// Imported reformats the imported blocks in their own files. It is nil
	// when they are already formatted.
	Imported *protocol.WorkspaceEdit
}

// Format formats doc together with the blocks it imports, so that field
// alignment accounts for imported types. The imported blocks come back
// formatted as well and are offered as edits of their own files.
func (s *Service) Format(
	ctx context.Context,
	doc *schema.Document,
	snap *registry.Snapshot,
	opts engine.FormattingOptions,
	onError engine.ErrorHandler,
) (Formatted, error) {
	started := time.Now()

	text, _ := imports.Mask(doc.Text(), importMask)
	if section, ok := virtual.Compose(doc, snap); ok {
		text += "\n" + section
	}
	out, err := s.client.Format(ctx, text, opts, onError)
	if err != nil {
		return Formatted{}, err
	}
	formatted := schema.NewDocument(doc.URI, strings.ReplaceAll(out, importMask+"import", "import"))

	lines := formatted.Lines()
	marker := -1
	for i, line := range lines {
		if strings.Contains(line, virtual.Marker) {
			marker = i
			break
		}
	}

	kept := formatted.Text()
	switch {
	case marker == 0:
		kept = ""
	case marker > 0:
		kept = formatted.GetText(protocol.NewRange(0, 0, marker-1, protocol.EndOfLine))
	}

	result := Formatted{
		Edits: []protocol.TextEdit{{Range: doc.FullRange(), NewText: kept}},
	}
	if marker >= 0 {
		result.Imported = s.formatImported(ctx, doc, snap, formatted, marker, opts, onError)
	}
	s.logger.Debug("Formatted document",
		zap.String("uri", doc.URI),
		zap.Duration("took", time.Since(started)),
	)
	return result, nil
}

// formatImported compares every imported block with its formatted copy in
// the virtual section and returns edits for those that changed.
func (s *Service) formatImported(
	ctx context.Context,
	doc *schema.Document,
	snap *registry.Snapshot,
	formatted *schema.Document,
	marker int,
	opts engine.FormattingOptions,
	onError engine.ErrorHandler,
) *protocol.WorkspaceEdit {
	var copies []schema.Block
	for _, b := range schema.AllBlocks(formatted.Lines()) {
		if b.Range.Start.Line > marker {
			copies = append(copies, b)
		}
	}

	changes := make(map[string][]protocol.TextEdit)
	for _, imp := range schema.ScanImports(doc.Lines()) {
		if imp.RelativeImportPath == "" || len(imp.ImportedBlocks) == 0 {
			continue
		}
		target, ok := snap.Lookup(virtual.ImportTarget(doc.Path(), imp.RelativeImportPath))
		if !ok {
			s.logger.Debug("Skipping unknown import", zap.String("path", imp.RelativeImportPath))
			continue
		}
		for _, c := range copies {
			if !imp.Imports(c.Name) {
				continue
			}
			original, ok := target.Block(c.Name)
			if !ok {
				continue
			}
			block := strings.ReplaceAll(formatted.GetText(c.Range), virtual.Suffix, "")
			replacement, err := s.client.Format(ctx, block, opts, onError)
			if err != nil {
				continue
			}
			replacement = strings.TrimRight(replacement, "\n")
			if replacement == target.Document.GetText(original.Range) {
				continue
			}
			uri := target.Document.URI
			changes[uri] = append(changes[uri], protocol.TextEdit{Range: original.Range, NewText: replacement})
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return &protocol.WorkspaceEdit{Changes: changes}
}
