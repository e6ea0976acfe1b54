package completion

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

const nativeTypeAttributeDoc = "Defines a native database type that should be used for this field. " +
	"See https://www.prisma.io/docs/concepts/components/prisma-schema/data-model#native-types-mapping"

var importBraces = regexp.MustCompile(`\{([^}]*)\}`)

// blockKind maps a block type to the completion kind of its name.
func blockKind(t schema.BlockType) protocol.CompletionItemKind {
	switch t {
	case schema.ModelBlock:
		return protocol.CompletionItemKindClass
	case schema.EnumBlock:
		return protocol.CompletionItemKindEnum
	case schema.TypeBlock:
		return protocol.CompletionItemKindInterface
	case schema.GeneratorBlock:
		return protocol.CompletionItemKindFunction
	case schema.DatasourceBlock, schema.ImportBlock:
		return protocol.CompletionItemKindStruct
	default:
		return protocol.CompletionItemKindText
	}
}

func fenced(text string) string {
	return strings.Join([]string{"```prisma", text, "```"}, "\n")
}

// stripModifiers removes the optional and list markers of a field type.
func stripModifiers(typ string) string {
	return strings.Replace(strings.Replace(typ, "?", "", 1), "[]", "", 1)
}

// fieldTypes suggests the types a field can be declared with: primitives,
// the document's models and enums, and the named blocks of other schemas
// together with the import needed to use them.
func (k *cursor) fieldTypes(block schema.Block) *protocol.CompletionList {
	var items []protocol.CompletionItem
	if k.provider() == "mongodb" {
		items = append(items, without(static.primitiveTypes, labelIs("Decimal"))...)
	} else {
		items = append(items, static.primitiveTypes...)
	}
	items = append(items, toItems(schema.RelationNames(k.lines), protocol.CompletionItemKindReference)...)
	items = append(items, k.autoImports()...)

	words := strings.Split(schema.Prefix(k.line, k.pos.Character), " ")
	word := words[len(words)-1]
	var variants []protocol.CompletionItem
	for _, item := range items {
		if len(item.Label) != len(word) {
			continue
		}
		optional, many := item, item
		optional.Label += "?"
		many.Label += "[]"
		variants = append(variants, optional, many)
	}
	return list(append(items, variants...), true)
}

// autoImports offers the named blocks of every other known schema. Picking
// one adds or extends the import statement that brings it into scope.
func (k *cursor) autoImports() []protocol.CompletionItem {
	snap := k.req.Snapshot
	if snap == nil {
		return nil
	}
	current, _ := snap.Lookup(k.doc.Path())

	var items []protocol.CompletionItem
	for _, other := range snap.Schemas() {
		if other.Path == k.doc.Path() {
			continue
		}
		rel := relativeImportPath(k.doc.Path(), other.Path)
		for _, b := range other.Blocks {
			if !b.Type.IsNamedType() {
				continue
			}
			items = append(items, protocol.CompletionItem{
				Label:               b.Name,
				Kind:                blockKind(b.Type),
				Detail:              "Auto-import from " + other.Path,
				Documentation:       fenced(other.Document.GetText(b.Range)),
				AdditionalTextEdits: []protocol.TextEdit{importEdit(current, rel, b.Name)},
			})
		}
	}
	return items
}

// importEdit inserts `import { name } from "rel"` after the last import of
// current, or merges name into that import when it already targets rel.
func importEdit(current *registry.SchemaWithBlocks, rel, name string) protocol.TextEdit {
	text := fmt.Sprintf("import { %s } from %q\n", name, rel)
	var imports []schema.Block
	if current != nil {
		imports = current.Imports()
	}
	if len(imports) == 0 {
		return protocol.TextEdit{Range: protocol.NewRange(0, 0, 0, 0), NewText: text + "\n"}
	}

	last := imports[len(imports)-1]
	if last.RelativeImportPath != rel {
		line := last.Range.Start.Line + 1
		return protocol.TextEdit{Range: protocol.NewRange(line, 0, line, 0), NewText: text}
	}

	statement := current.Document.GetText(last.Range)
	merged := importBraces.ReplaceAllStringFunc(statement, func(braces string) string {
		var names []string
		for _, n := range strings.Split(braces[1:len(braces)-1], ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		names = append(names, name)
		slices.Sort(names)
		return "{ " + strings.Join(names, ", ") + " }"
	})
	return protocol.TextEdit{Range: last.Range, NewText: merged}
}

// relativeImportPath renders target relative to the directory of from, as
// written in an import statement.
func relativeImportPath(from, target string) string {
	rel, err := filepath.Rel(filepath.Dir(from), target)
	if err != nil {
		rel = target
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, ".prisma"))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// nativeTypeItems lists the native type constructors applicable to
// prismaType.
func nativeTypeItems(natives []engine.NativeTypeConstructor, prismaType string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for _, n := range natives {
		if !n.Supports(prismaType) {
			continue
		}
		if !n.HasArgs() {
			items = append(items, protocol.CompletionItem{Label: n.Name, Kind: protocol.CompletionItemKindTypeParameter})
			continue
		}
		var doc strings.Builder
		if n.NumberOfOptionalArgs != 0 {
			fmt.Fprintf(&doc, "Number of optional arguments: %d.\n", n.NumberOfOptionalArgs)
		}
		if n.NumberOfArgs != 0 {
			fmt.Fprintf(&doc, "Number of required arguments: %d.\n", n.NumberOfArgs)
		}
		items = append(items, protocol.CompletionItem{
			Label:            n.Name + "()",
			Kind:             protocol.CompletionItemKindTypeParameter,
			InsertText:       n.Name + "($0)",
			InsertTextFormat: protocol.InsertTextFormatSnippet,
			Documentation:    doc.String(),
		})
	}
	return items
}

// nativeTypes answers `@db.|` after a field type.
func (k *cursor) nativeTypes(block schema.Block) (*protocol.CompletionList, error) {
	if block.Type != schema.ModelBlock || len(k.wordsBefore) < 2 {
		return nil, nil
	}
	natives, err := k.c.client.NativeTypes(k.ctx, k.doc.Text(), k.req.OnError)
	if err != nil {
		return nil, err
	}
	if len(natives) == 0 {
		return nil, nil
	}
	ds := schema.FirstDatasourceName(k.lines)
	if ds == "" || k.wordsBefore[len(k.wordsBefore)-1] != "@"+ds {
		return nil, nil
	}
	return list(nativeTypeItems(natives, stripModifiers(k.wordsBefore[1])), true), nil
}

// fieldAttribute suggests the attributes valid after a field's type.
func (k *cursor) fieldAttribute(block schema.Block) (*protocol.CompletionList, error) {
	if block.Type != schema.ModelBlock {
		return nil, nil
	}
	fieldType, ok := schema.FieldType(k.current)
	if !ok {
		return nil, nil
	}

	var items []protocol.CompletionItem
	if len(k.wordsBefore) >= 2 {
		if ds := schema.FirstDatasourceName(k.lines); ds != "" {
			if !strings.Contains(k.current, "@"+ds) {
				items = append(items, protocol.CompletionItem{
					Label:            "@" + ds,
					Kind:             protocol.CompletionItemKindProperty,
					Documentation:    nativeTypeAttributeDoc,
					InsertText:       "@" + ds + "$0",
					InsertTextFormat: protocol.InsertTextFormatSnippet,
				})
			}
			natives, err := k.c.client.NativeTypes(k.ctx, k.doc.Text(), k.req.OnError)
			if err != nil {
				return nil, err
			}
			nativeItems := nativeTypeItems(natives, k.wordsBefore[1])
			if len(nativeItems) > 0 && k.wordsBefore[len(k.wordsBefore)-1] == "@"+ds {
				return list(append(items, nativeItems...), false), nil
			}
		}
	}

	items = append(items, static.fieldAttributes...)
	items = k.filterForLine(items, fieldType)
	items = k.filterForBlock(items, block)
	return list(items, false), nil
}

// filterForLine drops the field attributes that cannot apply to the field
// on the current line.
func (k *cursor) filterForLine(items []protocol.CompletionItem, fieldType string) []protocol.CompletionItem {
	var target schema.BlockType
	if b, ok := schema.FindNamedBlock(fieldType, k.lines); ok {
		target = b.Type
	}
	if target == schema.TypeBlock {
		items = without(items, labelIs("@default", "@relation"))
	}
	if fieldType != "Int" && fieldType != "String" && target != schema.EnumBlock {
		items = without(items, labelIs("@id"))
	}
	if fieldType != "DateTime" {
		items = without(items, labelIs("@updatedAt"))
	}
	if strings.Contains(k.current, "@map") {
		items = without(items, labelIs("@map"))
	}
	return items
}

// filterForBlock drops every id attribute once the block declares an id.
func (k *cursor) filterForBlock(items []protocol.CompletionItem, block schema.Block) []protocol.CompletionItem {
	for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(k.lines); i++ {
		line := k.lines[i]
		if strings.HasPrefix(line, "//") || !strings.Contains(line, "@id") {
			continue
		}
		return without(items, func(label string) bool { return strings.Contains(label, "id") })
	}
	return items
}
