package schema

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

var (
	modelOrEnumHeader  = regexp.MustCompile(`^(model|enum)\s+(\w+)\s+{`)
	typeHeader         = regexp.MustCompile(`^type\s+(\w+)\s+{`)
	providerAssignment = regexp.MustCompile(`^provider\s*=\s*"([^"]*)"`)
	previewFeaturesDef = regexp.MustCompile(`previewFeatures\s*=\s*(\[.*\])`)
)

// fieldName returns the first word of a member line, skipping comments and
// block attributes.
func fieldName(line string) (string, bool) {
	if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "@@") {
		return "", false
	}
	name := FirstWord(line)
	return name, name != ""
}

// FieldsOfBlock lists the member names declared strictly inside block,
// ignoring skipLine (pass -1 to keep every line).
func FieldsOfBlock(lines []string, block Block, skipLine int) []string {
	var names []string
	for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(lines); i++ {
		if i == skipLine {
			continue
		}
		if name, ok := fieldName(strings.TrimSpace(lines[i])); ok {
			names = append(names, name)
		}
	}
	return names
}

// FieldTypeUse records where a field type is used inside a block.
type FieldTypeUse struct {
	LineIndexes []int
	FieldName   string
}

// FieldTypes indexes the member lines of one block.
type FieldTypes struct {
	// ByType maps a field type token to its uses.
	ByType map[string]*FieldTypeUse
	// Types maps a field name to its type token.
	Types map[string]string
	// Order keeps the type tokens in first-seen order.
	Order []string
	// Fields keeps the field names recorded in Types in source order.
	Fields []string
}

// FieldTypesOfBlock collects the field types of block. Only the first field
// of each type is recorded in Types unless allowDuplicates is set.
func FieldTypesOfBlock(lines []string, block Block, skipLine int, allowDuplicates bool) FieldTypes {
	ft := FieldTypes{
		ByType: make(map[string]*FieldTypeUse),
		Types:  make(map[string]string),
	}
	for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if i == skipLine || strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "//") {
			continue
		}
		typ, ok := FieldType(line)
		if !ok {
			continue
		}
		name := FirstWord(line)
		use, seen := ft.ByType[typ]
		if !seen {
			ft.ByType[typ] = &FieldTypeUse{LineIndexes: []int{i}, FieldName: name}
			ft.Order = append(ft.Order, typ)
			ft.record(name, typ)
			continue
		}
		use.LineIndexes = append(use.LineIndexes, i)
		if allowDuplicates {
			ft.record(name, typ)
		}
	}
	return ft
}

func (ft *FieldTypes) record(name, typ string) {
	if _, ok := ft.Types[name]; !ok {
		ft.Fields = append(ft.Fields, name)
	}
	ft.Types[name] = typ
}

// CompositeTypeFields walks a dotted field path through composite types and
// returns the field names of the last type on the path.
func CompositeTypeFields(lines []string, path []string, ft FieldTypes) []string {
	current := ft
	visited := make(map[string]bool)
	for i, segment := range path {
		typeName, ok := current.Types[segment]
		if !ok {
			return nil
		}
		typeName = strings.TrimSuffix(strings.TrimSuffix(typeName, "?"), "[]")
		if visited[typeName] {
			return nil
		}
		visited[typeName] = true

		block, ok := FindNamedBlock(typeName, lines)
		if !ok || block.Type != TypeBlock {
			return nil
		}
		if i == len(path)-1 {
			return FieldsOfBlock(lines, block, -1)
		}
		current = FieldTypesOfBlock(lines, block, -1, false)
	}
	return nil
}

// RelationNames returns the names of every model and enum.
func RelationNames(lines []string) []string {
	var names []string
	for _, line := range lines {
		if m := modelOrEnumHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			names = append(names, m[2])
		}
	}
	return names
}

// TypeNames returns the names of every composite type.
func TypeNames(lines []string) []string {
	var names []string
	for _, line := range lines {
		if m := typeHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// FirstDatasourceName returns the name of the first datasource block.
func FirstDatasourceName(lines []string) string {
	for b := range Blocks(lines) {
		if b.Type == DatasourceBlock {
			return b.Name
		}
	}
	return ""
}

// FirstDatasourceProvider returns the provider of the first datasource.
func FirstDatasourceProvider(lines []string) string {
	for b := range Blocks(lines) {
		if b.Type != DatasourceBlock {
			continue
		}
		for i := b.Range.Start.Line + 1; i < b.Range.End.Line && i < len(lines); i++ {
			if m := providerAssignment.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
				return m[1]
			}
		}
		return ""
	}
	return ""
}

// PreviewFeatures returns the lower-cased preview features of the first
// generator that declares any.
func PreviewFeatures(lines []string) []string {
	m := previewFeaturesDef.FindStringSubmatch(strings.Join(lines, "\n"))
	if m == nil {
		return nil
	}
	var features []string
	if err := json.Unmarshal([]byte(m[1]), &features); err != nil {
		return nil
	}
	for i, f := range features {
		features[i] = strings.ToLower(f)
	}
	return features
}

// HasPreviewFeature reports whether the feature is enabled, case-insensitively.
func HasPreviewFeature(lines []string, feature string) bool {
	feature = strings.ToLower(feature)
	for _, f := range PreviewFeatures(lines) {
		if f == feature {
			return true
		}
	}
	return false
}

// ExperimentalFeaturesRange finds the legacy `experimentalFeatures` property
// inside the first generator.
func ExperimentalFeaturesRange(doc *Document) (protocol.Range, bool) {
	const property = "experimentalFeatures"
	lines := doc.Lines()
	inGenerator := false
	for i, item := range lines {
		if strings.HasPrefix(item, "generator") && strings.Contains(item, "{") {
			inGenerator = true
		}
		if !inGenerator {
			continue
		}
		if strings.HasPrefix(item, "}") {
			return protocol.Range{}, false
		}
		if strings.HasPrefix(item, property) {
			raw := doc.Line(i)
			start := Column(raw, strings.Index(raw, property))
			return protocol.NewRange(i, start, i, start+len(property)), true
		}
	}
	return protocol.Range{}, false
}
