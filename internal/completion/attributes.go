package completion

import (
	"regexp"
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

var (
	quotedWord       = regexp.MustCompile(`".*"`)
	compositeSegment = regexp.MustCompile(`^(.*\[)?(.+)$`)
)

// indexAttributes are matched against the words before the cursor in this
// order; the first match wins.
var indexAttributes = []string{"@@id", "@id", "@@unique", "@unique", "@@index", "@@fulltext"}

// arguments holds the words of the current line up to the cursor.
type arguments struct {
	words []string
}

func (a arguments) has(substr string) bool {
	return slices.ContainsFunc(a.words, func(w string) bool { return strings.Contains(w, substr) })
}

func (a arguments) index(substr string) int {
	return slices.IndexFunc(a.words, func(w string) bool { return strings.Contains(w, substr) })
}

func (a arguments) last() string {
	return a.words[len(a.words)-1]
}

// previous is the last word, or the one before it when the cursor follows
// a space.
func (a arguments) previous() string {
	if last := a.last(); last != "" || len(a.words) < 2 {
		return last
	}
	return a.words[len(a.words)-2]
}

// insideRoundBrackets suggests the arguments of the attribute the cursor is
// in.
func (k *cursor) insideRoundBrackets(block schema.Block) *protocol.CompletionList {
	args := arguments{words: whitespace.Split(strings.TrimLeft(schema.Prefix(k.line, k.pos.Character), " \t"), -1)}
	switch {
	case args.has("@default"):
		return list(k.defaultValues(args), false)
	case args.has("@relation"):
		return k.relationArguments(block, args)
	case args.has("@unique"), args.has("@id"), args.has("@@index"), args.has("@@fulltext"):
		return k.indexArguments(block, args)
	default:
		return list(nil, false)
	}
}

// defaultValues suggests the expressions valid in `@default(...)` for the
// field on the current line.
func (k *cursor) defaultValues(args arguments) []protocol.CompletionItem {
	provider := k.provider()
	if provider == "cockroachdb" && args.has("sequence(") {
		return k.sequenceProperties()
	}

	var items []protocol.CompletionItem
	if provider == "mongodb" {
		items = append(items, item(static.defaultFunctions, "auto()"))
	} else {
		items = append(items, item(static.defaultFunctions, `dbgenerated("")`))
	}

	fieldType, ok := schema.FieldType(k.current)
	if !ok {
		return nil
	}
	switch fieldType {
	case "BigInt", "Int":
		if provider == "cockroachdb" {
			items = append(items, item(static.defaultFunctions, "sequence()"))
			// autoincrement() is only supported on BigInt fields for cockroachdb
			if fieldType == "Int" {
				break
			}
		}
		items = append(items, item(static.defaultFunctions, "autoincrement()"))
	case "DateTime":
		items = append(items, item(static.defaultFunctions, "now()"))
	case "String":
		items = append(items, item(static.defaultFunctions, "uuid()"), item(static.defaultFunctions, "cuid()"))
	case "Boolean":
		items = append(items,
			protocol.CompletionItem{Label: "true", Kind: protocol.CompletionItemKindValue},
			protocol.CompletionItem{Label: "false", Kind: protocol.CompletionItemKindValue},
		)
	}

	if strings.HasSuffix(fieldType, "[]") {
		items = append([]protocol.CompletionItem{{
			Label:            "[]",
			Kind:             protocol.CompletionItemKindValue,
			InsertText:       "[$0]",
			InsertTextFormat: protocol.InsertTextFormatSnippet,
			Documentation:    "Set a default value on the list field",
		}}, items...)
	}

	if enum, ok := schema.FindNamedBlock(fieldType, k.lines); ok && enum.Type == schema.EnumBlock {
		items = append(items, toItems(schema.FieldsOfBlock(k.lines, enum, -1), protocol.CompletionItemKindValue)...)
	}
	return items
}

// sequenceProperties completes `sequence(...)`. A virtual sequence takes no
// other property, and virtual is only offered while nothing is set.
func (k *cursor) sequenceProperties() []protocol.CompletionItem {
	if strings.Contains(k.current, "virtual") {
		return nil
	}
	var items []protocol.CompletionItem
	empty := !slices.ContainsFunc(static.sequenceProperties, func(p protocol.CompletionItem) bool {
		return strings.Contains(k.current, p.Label)
	})
	for _, p := range static.sequenceProperties {
		if p.Label == "virtual" {
			if empty {
				items = append(items, p)
			}
			continue
		}
		if !strings.Contains(k.current, p.Label) {
			items = append(items, p)
		}
	}
	return items
}

// relationArguments completes `@relation(...)`.
func (k *cursor) relationArguments(block schema.Block, args arguments) *protocol.CompletionList {
	items := static.relationArguments
	if k.provider() == "mongodb" {
		items = without(items, labelIs("map", "onDelete", "onUpdate"))
	}
	if strings.Contains(args.previous(), "@relation") {
		return list(items, false)
	}

	switch k.insideProperty(args) {
	case "fields":
		return list(toItems(schema.FieldsOfBlock(k.lines, block, k.pos.Line), protocol.CompletionItemKindField), false)
	case "references":
		if len(args.words) < 2 {
			return nil
		}
		referenced, ok := schema.FindNamedBlock(stripModifiers(args.words[1]), k.lines)
		if !ok || referenced.Type != schema.ModelBlock {
			return nil
		}
		return list(toItems(schema.FieldsOfBlock(k.lines, referenced, -1), protocol.CompletionItemKindField), false)
	}
	return filterPresent(items, args)
}

// insideProperty names the relation property whose list holds the cursor:
// the rightmost of fields and references, or "" outside of a list.
func (k *cursor) insideProperty(args arguments) string {
	if !schema.IsInsideAttribute(k.line, k.pos, "[]") {
		return ""
	}
	if args.index("references") > args.index("fields") {
		return "references"
	}
	return "fields"
}

// indexArguments completes the arguments of the id, unique, index and
// fulltext attributes.
func (k *cursor) indexArguments(block schema.Block, args arguments) *protocol.CompletionList {
	attribute := ""
	for _, a := range indexAttributes {
		if args.has(a) {
			attribute = a
			break
		}
	}
	provider := k.provider()

	if attribute != "" && attribute != "@@fulltext" && schema.IsInsideAttribute(k.line, k.pos, "[]") {
		return k.indexFields(block, args, attribute, provider)
	}

	var items []protocol.CompletionItem
	switch attribute {
	case "@@unique", "@@id", "@@index", "@@fulltext":
		items = blockAttributeParams(attribute, args.previous(), provider)
	}
	if len(items) == 0 && (attribute == "@unique" || attribute == "@id") {
		items = fieldAttributeParams(attribute, args.previous(), provider)
	}
	return filterPresent(items, args)
}

// indexFields completes inside the field list of an index attribute: field
// names, composite type paths, or the arguments of one field.
func (k *cursor) indexFields(block schema.Block, args arguments, attribute, provider string) *protocol.CompletionList {
	if schema.IsInsideFieldArgument(k.line, k.pos) {
		var items []protocol.CompletionItem
		if provider == "postgresql" && attribute == "@@index" {
			items = append(items, item(static.indexProperties, "ops"))
		}
		items = append(items, filterSortLength(attribute, provider, args.previous(), static.sortLengthProperties)...)
		return list(items, false)
	}

	inLine := schema.ValuesInsideSquareBrackets(k.line)
	first := args.last()

	if provider == "mongodb" && len(inLine) > 0 && strings.HasSuffix(first, ".") {
		name := compositePath(first)
		if name == "" {
			return list(nil, false)
		}
		ft := schema.FieldTypesOfBlock(k.lines, block, -1, false)
		fields := schema.CompositeTypeFields(k.lines, strings.Split(name, "."), ft)
		return list(toItems(fields, protocol.CompletionItemKindField), false)
	}

	fields := schema.FieldsOfBlock(k.lines, block, k.pos.Line)
	if len(inLine) > 0 {
		if strings.Contains(first, ".") {
			return list(nil, false)
		}
		fields = slices.DeleteFunc(fields, func(f string) bool { return slices.Contains(inLine, f) })
	}
	return list(toItems(fields, protocol.CompletionItemKindField), false)
}

// compositePath extracts the dotted path being typed from a word such as
// `[email,address.street.`.
func compositePath(word string) string {
	m := compositeSegment.FindStringSubmatch(word)
	if m == nil {
		return ""
	}
	name := m[2]
	if i := strings.LastIndex(name, ","); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".")
}

// blockAttributeParams lists the parameters of a `@@` attribute.
func blockAttributeParams(attribute, previous, provider string) []protocol.CompletionItem {
	items := attributeParams(static.blockAttributeEntries, attribute)
	switch {
	case provider == "sqlserver" && attribute != "@@fulltext":
		if strings.Contains(previous, "clustered:") {
			return static.clusteredValues
		}
		items = append(items, item(static.indexProperties, "clustered"))
	case attribute == "@@index" && (provider == "postgresql" || provider == "postgres"):
		items = append(items, item(static.indexProperties, "type"))
	}
	return items
}

// fieldAttributeParams lists the parameters of `@id` and `@unique`.
func fieldAttributeParams(attribute, previous, provider string) []protocol.CompletionItem {
	items := filterSortLength(attribute, provider, previous, attributeParams(static.fieldAttributeEntries, attribute))
	if provider == "sqlserver" {
		if strings.Contains(previous, "clustered:") {
			return static.clusteredValues
		}
		items = append(items, item(static.indexProperties, "clustered"))
	}
	return items
}

// filterSortLength applies the connector support matrix of the sort and
// length arguments, or completes the value of `sort:`.
func filterSortLength(attribute, provider, previous string, items []protocol.CompletionItem) []protocol.CompletionItem {
	if strings.Contains(previous, "sort:") {
		return static.sortValues
	}
	sortable := []string{"@unique", "@@unique", "@@index"}
	switch provider {
	case "mysql":
		if slices.Contains(sortable, attribute) {
			return items
		}
		return without(items, labelIs("sort"))
	case "sqlserver":
		if slices.Contains(append(sortable, "@id", "@@id"), attribute) {
			return without(items, labelIs("length"))
		}
		return without(items, labelIs("length", "sort"))
	default:
		if slices.Contains(sortable, attribute) {
			return without(items, labelIs("length"))
		}
		return without(items, labelIs("length", "sort"))
	}
}

// filterPresent drops the arguments already written before the cursor. An
// empty result means there is nothing left to suggest.
func filterPresent(items []protocol.CompletionItem, args arguments) *protocol.CompletionList {
	var found []string
	for _, w := range args.words {
		for _, name := range []string{"references", "fields", "onUpdate", "onDelete", "map", "type"} {
			if strings.Contains(w, name) {
				found = append(found, name)
			}
		}
		if strings.Contains(w, "name") || quotedWord.MatchString(w) {
			found = append(found, "name", `""`)
		}
	}
	items = without(items, func(label string) bool {
		return slices.ContainsFunc(found, func(f string) bool { return strings.Contains(label, f) })
	})
	if len(items) == 0 {
		return nil
	}
	return list(items, false)
}
