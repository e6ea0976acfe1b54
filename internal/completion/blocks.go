package completion

import (
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

// blockTypes suggests the top level keywords. SQLite has no enums.
func (k *cursor) blockTypes() *protocol.CompletionList {
	items := slices.Clone(static.blockTypes)
	inDatasource := false
	for _, line := range k.lines {
		if strings.Contains(line, "datasource") {
			inDatasource = true
			continue
		}
		if !inDatasource {
			continue
		}
		if strings.Contains(line, "}") {
			break
		}
		if strings.HasPrefix(line, "provider") && strings.Contains(line, "sqlite") {
			items = without(items, labelIs("enum"))
			break
		}
	}
	return list(items, false)
}

// firstInsideBlock suggests what can start a new line of block.
func (k *cursor) firstInsideBlock(block schema.Block) *protocol.CompletionList {
	var items []protocol.CompletionItem
	switch block.Type {
	case schema.DatasourceBlock:
		items = static.datasourceFields
		if !slices.Contains(k.previewFeatures(), "postgresqlextensions") ||
			!strings.Contains(k.provider(), "postgres") {
			items = without(items, labelIs("extensions"))
		}
		items = k.withoutDeclared(items, block)
	case schema.GeneratorBlock:
		items = k.withoutDeclared(static.generatorFields, block)
	case schema.ModelBlock:
		items = k.modelBlockAttributes(block)
	}
	return list(items, false)
}

// withoutDeclared drops the properties block already sets on other lines.
func (k *cursor) withoutDeclared(items []protocol.CompletionItem, block schema.Block) []protocol.CompletionItem {
	declared := make(map[string]bool)
	for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(k.lines); i++ {
		if i != k.pos.Line {
			declared[schema.FirstWord(k.lines[i])] = true
		}
	}
	return without(items, func(label string) bool { return declared[label] })
}

// modelBlockAttributes suggests the `@@` attributes of a model.
func (k *cursor) modelBlockAttributes(block schema.Block) []protocol.CompletionItem {
	items := k.filterForBlock(static.blockAttributes, block)
	provider := k.provider()
	fullText := (provider == "mysql" || provider == "mongodb") &&
		slices.Contains(k.previewFeatures(), "fulltextindex")
	if !fullText {
		items = without(items, labelIs("@@fulltext"))
	}
	if provider == "mongodb" {
		// compound ids are not supported on MongoDB
		items = without(items, labelIs("@@id"))
	}
	return items
}

// supportedFields suggests the values of a datasource or generator property.
func (k *cursor) supportedFields(blockType schema.BlockType) (*protocol.CompletionList, error) {
	inQuotes := schema.IsInsideQuotationMark(k.line, k.pos)
	quoted := func(inside, outside []protocol.CompletionItem) *protocol.CompletionList {
		if inQuotes {
			return list(inside, true)
		}
		return list(outside, true)
	}

	var constants []string
	switch blockType {
	case schema.GeneratorBlock:
		switch {
		case strings.HasPrefix(k.current, "provider"):
			return quoted(static.generatorProviders, static.generatorProviderArguments), nil
		case strings.HasPrefix(k.current, "previewFeatures"):
			features, err := k.c.client.PreviewFeatures(k.ctx, k.req.OnError)
			if err != nil {
				return nil, err
			}
			if len(features) > 0 {
				return k.previewFeatureValues(features, inQuotes), nil
			}
		case strings.HasPrefix(k.current, "engineType"):
			return quoted(static.engineTypes, static.engineTypeArguments), nil
		}
	case schema.DatasourceBlock:
		switch {
		case strings.HasPrefix(k.current, "provider"):
			return quoted(static.datasourceProviders, static.datasourceProviderArguments), nil
		case strings.HasPrefix(k.current, "url"):
			if schema.IsInsideAttribute(k.line, k.pos, "()") {
				constants = []string{"DATABASE_URL"}
				break
			}
			if strings.Contains(k.current, "env") {
				return list(without(static.datasourceURLArguments, func(label string) bool {
					return strings.Contains(label, "env")
				}), true), nil
			}
			return list(static.datasourceURLArguments, true), nil
		case strings.HasPrefix(k.current, "relationMode") && k.provider() != "mongodb":
			if inQuotes {
				return list(static.relationModeValues, true), nil
			}
			if !strings.HasSuffix(k.current, `"`) {
				values := make([]protocol.CompletionItem, 0, len(static.relationModeValues))
				for _, v := range static.relationModeValues {
					v.Label = `"` + v.Label + `"`
					v.InsertText = `"` + v.InsertText + `"`
					values = append(values, v)
				}
				return list(values, true), nil
			}
		}
	}
	return list(toItems(constants, protocol.CompletionItemKindConstant), false), nil
}

// previewFeatureValues completes `previewFeatures = ["..."]`, leaving out
// the features already listed.
func (k *cursor) previewFeatureValues(features []string, inQuotes bool) *protocol.CompletionList {
	if !schema.IsInsideAttribute(k.line, k.pos, "[]") {
		return list(without(static.previewFeaturesArguments, func(label string) bool {
			return strings.Contains(label, `"`)
		}), true)
	}
	if !inQuotes {
		return list(without(static.previewFeaturesArguments, func(label string) bool {
			return strings.Contains(label, "[")
		}), true)
	}
	used := schema.ValuesInsideSquareBrackets(k.line)
	items := toItems(features, protocol.CompletionItemKindText)
	return list(without(items, func(label string) bool { return slices.Contains(used, label) }), true)
}
