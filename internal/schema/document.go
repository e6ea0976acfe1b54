package schema

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.lsp.dev/uri"
)

// Document is an immutable text buffer with offset/position conversion.
// Offsets are byte offsets into Text; positions use UTF-16 columns.
type Document struct {
	URI  string
	text string

	// byte offset of the first character of every line
	lineStarts []int
}

// NewDocument indexes text for position lookups.
func NewDocument(documentURI, text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{URI: documentURI, text: text, lineStarts: starts}
}

// Text returns the full document text.
func (d *Document) Text() string {
	return d.text
}

// Path returns the file system path of the document.
func (d *Document) Path() string {
	return PathFromURI(d.URI)
}

// LineCount returns the number of lines, counting a trailing empty line.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// Line returns line n without its line terminator.
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lineStarts) {
		return ""
	}
	start := d.lineStarts[n]
	end := len(d.text)
	if n+1 < len(d.lineStarts) {
		end = d.lineStarts[n+1] - 1
	}
	return strings.TrimSuffix(d.text[start:end], "\r")
}

// RawLines returns every line without its terminator.
func (d *Document) RawLines() []string {
	lines := make([]string, d.LineCount())
	for i := range lines {
		lines[i] = d.Line(i)
	}
	return lines
}

// Lines returns the trimmed line array used for pattern matching.
func (d *Document) Lines() []string {
	return ToLines(d.text)
}

// OffsetAt converts a position into a byte offset, clamping out of range
// values to the document bounds.
func (d *Document) OffsetAt(pos protocol.Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	return d.lineStarts[pos.Line] + ByteOffset(d.Line(pos.Line), pos.Character)
}

// PositionAt converts a byte offset into a position.
func (d *Document) PositionAt(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	lineText := d.Line(line)
	within := offset - d.lineStarts[line]
	if within > len(lineText) {
		within = len(lineText)
	}
	return protocol.Position{Line: line, Character: Column(lineText, within)}
}

// GetText returns the text covered by r.
func (d *Document) GetText(r protocol.Range) string {
	start, end := d.OffsetAt(r.Start), d.OffsetAt(r.End)
	if end < start {
		return ""
	}
	return d.text[start:end]
}

// FullRange spans the whole document.
func (d *Document) FullRange() protocol.Range {
	return protocol.NewRange(0, 0, d.LineCount()-1, protocol.EndOfLine)
}

// ToLines splits text into lines with surrounding whitespace removed.
func ToLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// Column converts a byte index within line to a UTF-16 column.
func Column(line string, byteIdx int) int {
	if byteIdx > len(line) {
		byteIdx = len(line)
	}
	col := 0
	for _, r := range line[:byteIdx] {
		col += utf16.RuneLen(r)
	}
	return col
}

// ByteOffset converts a UTF-16 column within line to a byte index.
func ByteOffset(line string, column int) int {
	if column <= 0 {
		return 0
	}
	col := 0
	for i, r := range line {
		if col >= column {
			return i
		}
		col += utf16.RuneLen(r)
	}
	return len(line)
}

// Prefix returns the part of line before the given UTF-16 column.
func Prefix(line string, column int) string {
	return line[:ByteOffset(line, column)]
}

// PathFromURI converts a file URI into a path. Non-file URIs are returned
// unchanged.
func PathFromURI(documentURI string) string {
	if !strings.HasPrefix(documentURI, uri.FileScheme+"://") {
		return documentURI
	}
	return filepath.Clean(uri.URI(documentURI).Filename())
}

// URIFromPath converts an absolute path into a file URI.
func URIFromPath(path string) string {
	return string(uri.File(path))
}

// Apply returns the text of d with edits applied. Edits must not overlap;
// inserts at the same position keep their order.
func (d *Document) Apply(edits []protocol.TextEdit) string {
	type span struct {
		start, end int
		text       string
	}
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		spans = append(spans, span{start: d.OffsetAt(e.Range.Start), end: d.OffsetAt(e.Range.End), text: e.NewText})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		if s.start < cursor {
			s.start = cursor
		}
		b.WriteString(d.text[cursor:s.start])
		b.WriteString(s.text)
		cursor = max(cursor, s.end)
	}
	b.WriteString(d.text[cursor:])
	return b.String()
}
