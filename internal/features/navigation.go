package features

import (
	"cmp"
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

var symbolKinds = map[schema.BlockType]protocol.SymbolKind{
	schema.ModelBlock:      protocol.SymbolKindClass,
	schema.EnumBlock:       protocol.SymbolKindEnum,
	schema.TypeBlock:       protocol.SymbolKindInterface,
	schema.DatasourceBlock: protocol.SymbolKindStruct,
	schema.GeneratorBlock:  protocol.SymbolKindFunction,
	schema.ImportBlock:     protocol.SymbolKindNamespace,
}

// wordAt returns the word under pos, or "" past the end of the document.
func wordAt(doc *schema.Document, pos protocol.Position) string {
	if pos.Line < 0 || pos.Line >= doc.LineCount() {
		return ""
	}
	return strings.Trim(schema.WordAtPosition(doc.Line(pos.Line), pos), "?[]{},")
}

// Definition locates the declaration of the model, type or enum named at
// pos, in doc itself or in the schema an import statement points to.
func Definition(doc *schema.Document, snap *registry.Snapshot, pos protocol.Position) []protocol.LocationLink {
	word := wordAt(doc, pos)
	if word == "" {
		return nil
	}
	if b, ok := schema.FindNamedBlock(word, doc.Lines()); ok {
		return []protocol.LocationLink{{
			TargetURI:            doc.URI,
			TargetRange:          b.Range,
			TargetSelectionRange: b.NameRange,
		}}
	}
	if target, b, ok := importedBlock(doc, snap, word); ok {
		return []protocol.LocationLink{{
			TargetURI:            target.Document.URI,
			TargetRange:          b.Range,
			TargetSelectionRange: b.NameRange,
		}}
	}
	return nil
}

// Hover shows the `///` documentation of the block named at pos.
func Hover(doc *schema.Document, snap *registry.Snapshot, pos protocol.Position) *protocol.Hover {
	word := wordAt(doc, pos)
	if word == "" {
		return nil
	}
	declaring, block := doc, schema.Block{}
	if b, ok := schema.FindNamedBlock(word, doc.Lines()); ok {
		block = b
	} else if target, b, ok := importedBlock(doc, snap, word); ok {
		declaring, block = target.Document, b
	} else {
		return nil
	}

	var comments []string
	for line := block.Range.Start.Line - 1; line >= 0; line-- {
		text := strings.TrimSpace(declaring.Line(line))
		if !strings.HasPrefix(text, "///") {
			break
		}
		comments = append(comments, strings.TrimSpace(strings.TrimPrefix(text, "///")))
	}
	if len(comments) == 0 {
		return nil
	}
	slices.Reverse(comments)
	return &protocol.Hover{Contents: strings.Join(comments, "\n")}
}

// Symbols lists the blocks of doc in source order. Every symbol an import
// statement brings in is listed on its own.
func Symbols(doc *schema.Document) []protocol.DocumentSymbol {
	lines := doc.Lines()
	var symbols []protocol.DocumentSymbol
	for _, b := range schema.AllBlocks(lines) {
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           b.Name,
			Kind:           symbolKinds[b.Type],
			Range:          b.Range,
			SelectionRange: b.NameRange,
		})
	}
	for _, imp := range schema.ScanImports(lines) {
		for _, ib := range imp.ImportedBlocks {
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           ib.Name,
				Kind:           symbolKinds[schema.ImportBlock],
				Range:          imp.Range,
				SelectionRange: ib.Range,
			})
		}
	}
	slices.SortStableFunc(symbols, func(a, b protocol.DocumentSymbol) int {
		return cmp.Compare(a.Range.Start.Line, b.Range.Start.Line)
	})
	return symbols
}
