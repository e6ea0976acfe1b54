package completion

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// entry is one static suggestion.
type entry struct {
	Label         string  `yaml:"label"`
	InsertText    string  `yaml:"insert_text"`
	Documentation string  `yaml:"documentation"`
	FullSignature string  `yaml:"full_signature"`
	Params        []entry `yaml:"params"`
}

// catalogue is the static completion data.
type catalogue struct {
	PrimitiveTypes              []entry `yaml:"primitive_types"`
	BlockTypes                  []entry `yaml:"block_types"`
	DatasourceFields            []entry `yaml:"datasource_fields"`
	RelationModeValues          []entry `yaml:"relation_mode_values"`
	GeneratorFields             []entry `yaml:"generator_fields"`
	DatasourceProviders         []entry `yaml:"datasource_providers"`
	DatasourceProviderArguments []entry `yaml:"datasource_provider_arguments"`
	DatasourceURLArguments      []entry `yaml:"datasource_url_arguments"`
	GeneratorProviders          []entry `yaml:"generator_providers"`
	GeneratorProviderArguments  []entry `yaml:"generator_provider_arguments"`
	EngineTypes                 []entry `yaml:"engine_types"`
	EngineTypeArguments         []entry `yaml:"engine_type_arguments"`
	PreviewFeaturesArguments    []entry `yaml:"preview_features_arguments"`
	BlockAttributes             []entry `yaml:"block_attributes"`
	FieldAttributes             []entry `yaml:"field_attributes"`
	RelationArguments           []entry `yaml:"relation_arguments"`
	DefaultFunctions            []entry `yaml:"default_functions"`
	SequenceProperties          []entry `yaml:"sequence_properties"`
	IndexProperties             []entry `yaml:"index_properties"`
	SortValues                  []entry `yaml:"sort_values"`
	ClusteredValues             []entry `yaml:"clustered_values"`
}

// suggestions holds the catalogue converted to completion items.
type suggestions struct {
	primitiveTypes              []protocol.CompletionItem
	blockTypes                  []protocol.CompletionItem
	datasourceFields            []protocol.CompletionItem
	relationModeValues          []protocol.CompletionItem
	generatorFields             []protocol.CompletionItem
	datasourceProviders         []protocol.CompletionItem
	datasourceProviderArguments []protocol.CompletionItem
	datasourceURLArguments      []protocol.CompletionItem
	generatorProviders          []protocol.CompletionItem
	generatorProviderArguments  []protocol.CompletionItem
	engineTypes                 []protocol.CompletionItem
	engineTypeArguments         []protocol.CompletionItem
	previewFeaturesArguments    []protocol.CompletionItem
	blockAttributes             []protocol.CompletionItem
	fieldAttributes             []protocol.CompletionItem
	relationArguments           []protocol.CompletionItem
	sortLengthProperties        []protocol.CompletionItem
	defaultFunctions            []protocol.CompletionItem
	sequenceProperties          []protocol.CompletionItem
	indexProperties             []protocol.CompletionItem
	sortValues                  []protocol.CompletionItem
	clusteredValues             []protocol.CompletionItem

	// raw entries, for attribute parameters
	blockAttributeEntries []entry
	fieldAttributeEntries []entry
}

var static = mustLoadCatalogue(catalogueYAML)

func mustLoadCatalogue(data []byte) *suggestions {
	s, err := loadCatalogue(data)
	if err != nil {
		panic(err)
	}
	return s
}

func loadCatalogue(data []byte) (*suggestions, error) {
	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse completion catalogue: %w", err)
	}

	s := &suggestions{
		primitiveTypes:              simpleItems(c.PrimitiveTypes, protocol.CompletionItemKindTypeParameter),
		blockTypes:                  simpleItems(c.BlockTypes, protocol.CompletionItemKindClass),
		datasourceFields:            simpleItems(c.DatasourceFields, protocol.CompletionItemKindField),
		relationModeValues:          simpleItems(c.RelationModeValues, protocol.CompletionItemKindField),
		generatorFields:             simpleItems(c.GeneratorFields, protocol.CompletionItemKindField),
		datasourceProviders:         simpleItems(c.DatasourceProviders, protocol.CompletionItemKindConstant),
		datasourceProviderArguments: simpleItems(c.DatasourceProviderArguments, protocol.CompletionItemKindProperty),
		datasourceURLArguments:      attributeItems(c.DatasourceURLArguments, protocol.CompletionItemKindProperty),
		generatorProviders:          simpleItems(c.GeneratorProviders, protocol.CompletionItemKindConstant),
		generatorProviderArguments:  simpleItems(c.GeneratorProviderArguments, protocol.CompletionItemKindProperty),
		engineTypes:                 simpleItems(c.EngineTypes, protocol.CompletionItemKindConstant),
		engineTypeArguments:         simpleItems(c.EngineTypeArguments, protocol.CompletionItemKindProperty),
		previewFeaturesArguments:    simpleItems(c.PreviewFeaturesArguments, protocol.CompletionItemKindProperty),
		blockAttributes:             attributeItems(c.BlockAttributes, protocol.CompletionItemKindProperty),
		fieldAttributes:             attributeItems(c.FieldAttributes, protocol.CompletionItemKindProperty),
		relationArguments:           attributeItems(c.RelationArguments, protocol.CompletionItemKindProperty),
		defaultFunctions:            simpleItems(c.DefaultFunctions, protocol.CompletionItemKindFunction),
		sequenceProperties:          simpleItems(c.SequenceProperties, protocol.CompletionItemKindProperty),
		indexProperties:             simpleItems(c.IndexProperties, protocol.CompletionItemKindProperty),
		sortValues:                  simpleItems(c.SortValues, protocol.CompletionItemKindEnum),
		clusteredValues:             simpleItems(c.ClusteredValues, protocol.CompletionItemKindValue),
		blockAttributeEntries:       c.BlockAttributes,
		fieldAttributeEntries:       c.FieldAttributes,
	}

	unique, ok := findEntry(c.FieldAttributes, "@unique")
	if !ok {
		return nil, fmt.Errorf("completion catalogue has no @unique field attribute")
	}
	for _, p := range unique.Params {
		if p.Label == "length" || p.Label == "sort" {
			s.sortLengthProperties = append(s.sortLengthProperties, simpleItem(p, protocol.CompletionItemKindProperty))
		}
	}
	return s, nil
}

func findEntry(entries []entry, label string) (entry, bool) {
	for _, e := range entries {
		if e.Label == label {
			return e, true
		}
	}
	return entry{}, false
}

// attributeParams returns the parameters of the attribute labelled label.
func attributeParams(entries []entry, label string) []protocol.CompletionItem {
	e, ok := findEntry(entries, label)
	if !ok {
		return nil
	}
	return simpleItems(e.Params, protocol.CompletionItemKindProperty)
}

func simpleItem(e entry, kind protocol.CompletionItemKind) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:            e.Label,
		Kind:             kind,
		InsertText:       e.InsertText,
		InsertTextFormat: protocol.InsertTextFormatPlainText,
		Documentation:    e.Documentation,
	}
	if e.InsertText != "" {
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
	}
	return item
}

func simpleItems(entries []entry, kind protocol.CompletionItemKind) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, simpleItem(e, kind))
	}
	return items
}

// attributeItems renders the signature and parameters into the
// documentation.
func attributeItems(entries []entry, kind protocol.CompletionItemKind) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(entries))
	for _, e := range entries {
		doc := []string{"```prisma", e.FullSignature, "```", "___", e.Documentation}
		for _, p := range e.Params {
			doc = append(doc, "", "_@param_ "+p.Label+" "+p.Documentation)
		}
		items = append(items, protocol.CompletionItem{
			Label:            e.Label,
			Kind:             kind,
			InsertText:       e.InsertText,
			InsertTextFormat: protocol.InsertTextFormatSnippet,
			Documentation:    strings.Join(doc, "\n"),
		})
	}
	return items
}

func toItems(labels []string, kind protocol.CompletionItemKind) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(labels))
	for _, l := range labels {
		items = append(items, protocol.CompletionItem{Label: l, Kind: kind})
	}
	return items
}

// without drops the items whose label satisfies drop. The input is not
// modified.
func without(items []protocol.CompletionItem, drop func(label string) bool) []protocol.CompletionItem {
	out := make([]protocol.CompletionItem, 0, len(items))
	for _, item := range items {
		if !drop(item.Label) {
			out = append(out, item)
		}
	}
	return out
}

func labelIs(labels ...string) func(string) bool {
	return func(label string) bool {
		return slices.Contains(labels, label)
	}
}

// item returns the catalogue item labelled label. It panics on a label the
// catalogue does not define.
func item(items []protocol.CompletionItem, label string) protocol.CompletionItem {
	for _, it := range items {
		if it.Label == label {
			return it
		}
	}
	panic(fmt.Sprintf("completion: catalogue has no item %q", label))
}
