// Package rename computes the edits that rename a model, enum, enum value or
// model field together with every reference to it in the same document.
//
// Renames keep the database mapping stable: the old name is recorded in a
// @map or @@map attribute unless the symbol already carries one. A mapping
// whose value equals the new name is removed again, so renaming back and
// forth restores the original text.
package rename

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

// ErrInvalidName is returned when the new name is not an identifier.
var ErrInvalidName = errors.New("invalid name")

var (
	identifier   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	fieldMapAttr = regexp.MustCompile(`\s*@map\(\s*"([^"]*)"\s*\)`)
	blockMapAttr = regexp.MustCompile(`^@@map\(\s*"([^"]*)"\s*\)`)
)

// Kind classifies a renamable symbol.
type Kind int

const (
	KindModel Kind = iota + 1
	KindEnum
	KindEnumValue
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindEnum:
		return "enum"
	case KindEnumValue:
		return "enum value"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// Target is the symbol under a cursor.
type Target struct {
	Kind Kind
	Name string
	// Range covers the name at the cursor, which is a usage site when a
	// model or enum is renamed from a field type.
	Range protocol.Range
	// Block contains the cursor.
	Block schema.Block
	// Relation is set for fields typed with a model.
	Relation bool
}

// Renamer answers rename requests.
type Renamer struct {
	logger *zap.Logger
}

// New creates a renamer.
func New(logger *zap.Logger) *Renamer {
	return &Renamer{logger: logger.With(zap.String("component", "rename"))}
}

// Classify finds the renamable symbol at pos. Models and enums are found on
// their declaration and wherever they are used as a field type.
func Classify(doc *schema.Document, pos protocol.Position) (Target, bool) {
	lines := doc.Lines()
	if pos.Line < 0 || pos.Line >= len(lines) {
		return Target{}, false
	}
	block, ok := schema.BlockAt(pos.Line, lines, false)
	if !ok || pos.Line == block.Range.End.Line && strings.HasPrefix(lines[pos.Line], "}") {
		return Target{}, false
	}

	if pos.Line == block.Range.Start.Line {
		if !contains(block.NameRange, pos) {
			return Target{}, false
		}
		switch block.Type {
		case schema.ModelBlock:
			return Target{Kind: KindModel, Name: block.Name, Range: block.NameRange, Block: block}, true
		case schema.EnumBlock:
			return Target{Kind: KindEnum, Name: block.Name, Range: block.NameRange, Block: block}, true
		}
		return Target{}, false
	}

	current := lines[pos.Line]
	if current == "" || strings.HasPrefix(current, "//") || strings.HasPrefix(current, "@") {
		return Target{}, false
	}
	raw := doc.Line(pos.Line)
	start, end, ok := identAt(raw, pos.Character)
	if !ok {
		return Target{}, false
	}
	rng := protocol.NewRange(pos.Line, schema.Column(raw, start), pos.Line, schema.Column(raw, end))
	name := raw[start:end]
	nameStart, typeStart := memberOffsets(raw)

	switch block.Type {
	case schema.EnumBlock:
		if start != nameStart {
			return Target{}, false
		}
		return Target{Kind: KindEnumValue, Name: name, Range: rng, Block: block}, true
	case schema.ModelBlock:
		if start == typeStart {
			if decl, ok := declaration(lines, name); ok {
				kind := KindModel
				if decl.Type == schema.EnumBlock {
					kind = KindEnum
				}
				return Target{Kind: kind, Name: name, Range: rng, Block: block}, true
			}
			return Target{}, false
		}
		if start != nameStart {
			return Target{}, false
		}
		typ, ok := schema.FieldType(current)
		if !ok {
			return Target{}, false
		}
		decl, isNamed := declaration(lines, stripModifiers(typ))
		return Target{
			Kind:     KindField,
			Name:     name,
			Range:    rng,
			Block:    block,
			Relation: isNamed && decl.Type == schema.ModelBlock,
		}, true
	}
	return Target{}, false
}

// Rename returns the edits renaming the symbol at pos to newName, or nil
// when there is nothing to rename at pos.
func (r *Renamer) Rename(doc *schema.Document, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	if !identifier.MatchString(newName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}
	target, ok := Classify(doc, pos)
	if !ok || target.Name == newName {
		return nil, nil
	}

	lines := doc.Lines()
	var edits []protocol.TextEdit
	switch target.Kind {
	case KindModel, KindEnum:
		decl, ok := declaration(lines, target.Name)
		if !ok {
			return nil, nil
		}
		edits = append(edits, protocol.TextEdit{Range: decl.NameRange, NewText: newName})
		edits = append(edits, blockMap(doc, lines, decl, target.Name, newName)...)
		edits = append(edits, typeReferences(doc, lines, target.Name, newName)...)
	case KindEnumValue:
		edits = append(edits, protocol.TextEdit{Range: target.Range, NewText: newName})
		edits = append(edits, fieldMap(doc, target.Range.Start.Line, target.Name, newName)...)
		edits = append(edits, enumValueReferences(doc, lines, target.Block.Name, target.Name, newName)...)
	case KindField:
		edits = append(edits, protocol.TextEdit{Range: target.Range, NewText: newName})
		if !target.Relation {
			edits = append(edits, fieldMap(doc, target.Range.Start.Line, target.Name, newName)...)
		}
		edits = append(edits, fieldReferences(doc, lines, target, newName)...)
	}

	r.logger.Info("Renamed symbol",
		zap.Stringer("kind", target.Kind),
		zap.String("from", target.Name),
		zap.String("to", newName),
		zap.Int("edits", len(edits)),
	)
	return &protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{doc.URI: edits}}, nil
}

// declaration finds the model or enum called name.
func declaration(lines []string, name string) (schema.Block, bool) {
	for b := range schema.Blocks(lines) {
		if (b.Type == schema.ModelBlock || b.Type == schema.EnumBlock) && b.Name == name {
			return b, true
		}
	}
	return schema.Block{}, false
}

// blockMap records the old name of a model or enum in a @@map attribute
// before the closing brace, or drops an existing @@map that names newName.
func blockMap(doc *schema.Document, lines []string, block schema.Block, oldName, newName string) []protocol.TextEdit {
	for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(lines); i++ {
		m := blockMapAttr.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if m[1] != newName {
			return nil
		}
		return []protocol.TextEdit{{Range: protocol.NewRange(i, 0, i+1, 0)}}
	}
	end := block.Range.End.Line
	raw := doc.Line(end)
	if !strings.HasPrefix(strings.TrimSpace(raw), "}") {
		return nil
	}
	return []protocol.TextEdit{{
		Range:   protocol.NewRange(end, 0, end, schema.Column(raw, strings.IndexByte(raw, '}')+1)),
		NewText: fmt.Sprintf("\t@@map(%q)\n}", oldName),
	}}
}

// fieldMap records the old name of a field or enum value in a @map
// attribute, or drops an existing @map that names newName.
func fieldMap(doc *schema.Document, line int, oldName, newName string) []protocol.TextEdit {
	raw := doc.Line(line)
	if loc := fieldMapAttr.FindStringSubmatchIndex(raw); loc != nil {
		if raw[loc[2]:loc[3]] != newName {
			return nil
		}
		return []protocol.TextEdit{{
			Range: protocol.NewRange(line, schema.Column(raw, loc[0]), line, schema.Column(raw, loc[1])),
		}}
	}
	col := protocol.EndOfLine
	if i := commentStart(raw); i >= 0 {
		col = schema.Column(raw, len(strings.TrimRight(raw[:i], " \t")))
	}
	return []protocol.TextEdit{{
		Range:   protocol.NewRange(line, col, line, col),
		NewText: fmt.Sprintf(" @map(%q)", oldName),
	}}
}

// typeReferences renames every field typed with name.
func typeReferences(doc *schema.Document, lines []string, name, newName string) []protocol.TextEdit {
	var edits []protocol.TextEdit
	for b := range schema.Blocks(lines) {
		if b.Type != schema.ModelBlock && b.Type != schema.TypeBlock {
			continue
		}
		for i := range members(lines, b) {
			raw := doc.Line(i)
			_, typeStart := memberOffsets(raw)
			start, end, ok := identAt(raw, schema.Column(raw, typeStart))
			if !ok || start != typeStart || raw[start:end] != name {
				continue
			}
			edits = append(edits, protocol.TextEdit{
				Range:   protocol.NewRange(i, schema.Column(raw, start), i, schema.Column(raw, end)),
				NewText: newName,
			})
		}
	}
	return edits
}

// enumValueReferences renames `@default(value)` on fields typed with the
// enum.
func enumValueReferences(doc *schema.Document, lines []string, enumName, value, newName string) []protocol.TextEdit {
	search := "@default(" + value + ")"
	var edits []protocol.TextEdit
	for b := range schema.Blocks(lines) {
		if b.Type != schema.ModelBlock && b.Type != schema.TypeBlock {
			continue
		}
		for i := range members(lines, b) {
			typ, ok := schema.FieldType(lines[i])
			if !ok || stripModifiers(typ) != enumName {
				continue
			}
			raw := doc.Line(i)
			at := strings.Index(raw, search)
			if at == -1 {
				continue
			}
			edits = append(edits, protocol.TextEdit{
				Range:   protocol.NewRange(i, schema.Column(raw, at), i, schema.Column(raw, at+len(search))),
				NewText: "@default(" + newName + ")",
			})
		}
	}
	return edits
}

// fieldReferences renames a field inside the id, unique and index
// attributes and the relation fields of its model, and inside the relation
// references of the models pointing at it.
func fieldReferences(doc *schema.Document, lines []string, target Target, newName string) []protocol.TextEdit {
	var edits []protocol.TextEdit
	rename := func(line int, raw string, from int) {
		at, ok := listValue(raw, from, target.Name)
		if !ok {
			return
		}
		edits = append(edits, protocol.TextEdit{
			Range:   protocol.NewRange(line, schema.Column(raw, at), line, schema.Column(raw, at+len(target.Name))),
			NewText: newName,
		})
	}

	block := target.Block
	for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(lines); i++ {
		item, raw := lines[i], doc.Line(i)
		if !target.Relation && strings.Contains(item, "@relation") {
			if from := strings.Index(raw, "fields:"); from >= 0 {
				rename(i, raw, from)
			}
		}
		if strings.HasPrefix(item, "@@id") || strings.HasPrefix(item, "@@unique") || strings.HasPrefix(item, "@@index") {
			rename(i, raw, 0)
		}
	}

	for b := range schema.Blocks(lines) {
		if b.Type != schema.ModelBlock {
			continue
		}
		for i := range members(lines, b) {
			typ, ok := schema.FieldType(lines[i])
			if !ok || stripModifiers(typ) != block.Name || !strings.Contains(lines[i], "@relation") {
				continue
			}
			raw := doc.Line(i)
			if from := strings.Index(raw, "references:"); from >= 0 {
				rename(i, raw, from)
			}
		}
	}
	return edits
}

// members yields the field lines of block.
func members(lines []string, block schema.Block) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := block.Range.Start.Line + 1; i < block.Range.End.Line && i < len(lines); i++ {
			item := lines[i]
			if item == "" || strings.HasPrefix(item, "//") || strings.HasPrefix(item, "@") {
				continue
			}
			if !yield(i) {
				return
			}
		}
	}
}

func contains(r protocol.Range, pos protocol.Position) bool {
	return pos.Line == r.Start.Line && pos.Character >= r.Start.Character && pos.Character <= r.End.Character
}

func stripModifiers(typ string) string {
	return strings.TrimSuffix(strings.TrimSuffix(typ, "?"), "[]")
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// identAt returns the byte span of the identifier touching the UTF-16
// column col.
func identAt(line string, col int) (int, int, bool) {
	at := schema.ByteOffset(line, col)
	start, end := at, at
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}
	return start, end, start < end
}

// memberOffsets returns the byte offsets of the first and second word of a
// member line.
func memberOffsets(raw string) (int, int) {
	nameStart := len(raw) - len(strings.TrimLeft(raw, " \t"))
	nameEnd := nameStart
	for nameEnd < len(raw) && raw[nameEnd] != ' ' && raw[nameEnd] != '\t' {
		nameEnd++
	}
	rest := raw[nameEnd:]
	return nameStart, nameEnd + len(rest) - len(strings.TrimLeft(rest, " \t"))
}

// commentStart returns the byte offset of a trailing `//` comment outside of
// string literals, or -1.
func commentStart(raw string) int {
	quoted := false
	for i := 0; i+1 < len(raw); i++ {
		switch {
		case raw[i] == '"':
			quoted = !quoted
		case !quoted && raw[i] == '/' && raw[i+1] == '/':
			return i
		}
	}
	return -1
}

// listValue finds value as an element of the first `[...]` list at or after
// from and returns its byte offset in line. Elements may carry arguments,
// as in `title(sort: Desc)`.
func listValue(line string, from int, value string) (int, bool) {
	open := strings.IndexByte(line[from:], '[')
	if open == -1 {
		return 0, false
	}
	open += from
	end := strings.IndexByte(line[open:], ']')
	if end == -1 {
		return 0, false
	}
	end += open

	for i := open + 1; i < end; {
		for i < end && strings.IndexByte(" \t,\"", line[i]) >= 0 {
			i++
		}
		j := i
		for j < end && isIdentByte(line[j]) {
			j++
		}
		if line[i:j] == value && (j == end || line[j] != '.') {
			return i, true
		}
		depth := 0
		for j < end && (line[j] != ',' || depth > 0) {
			switch line[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			j++
		}
		i = j
	}
	return 0, false
}
