package schema

import (
	"iter"
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

type scanState int

const (
	stateOutside scanState = iota
	stateInBlock
)

// Scanner partitions lines into blocks in a single forward pass.
// Lines may be raw or trimmed; matching is done on trimmed text and columns
// are reported against the given lines.
type Scanner struct {
	lines []string
	next  int

	state     scanState
	blockType BlockType
	name      string
	nameRange protocol.Range
	start     protocol.Position
}

// NewScanner returns a scanner positioned at the first line.
func NewScanner(lines []string) *Scanner {
	return &Scanner{lines: lines}
}

// Next returns the next block in source order. A block that is still open
// when another block starts ends on the line before the new opener; one that
// is still open at the end of input ends on the last line.
func (s *Scanner) Next() (Block, bool) {
	for s.next < len(s.lines) {
		key := s.next
		raw := s.lines[key]
		item := strings.TrimSpace(raw)
		s.next++

		if strings.HasPrefix(item, "import") {
			continue
		}

		if blockType, ok := openerType(item); ok {
			recovered, hasRecovered := s.current(protocol.Position{Line: key - 1, Character: 0})
			s.open(key, raw, item, blockType)
			if hasRecovered {
				return recovered, true
			}
			continue
		}

		if strings.HasPrefix(item, "}") && s.state == stateInBlock {
			block, _ := s.current(protocol.Position{Line: key, Character: 1})
			s.state = stateOutside
			return block, true
		}
	}

	if s.state == stateInBlock {
		block, _ := s.current(protocol.Position{Line: len(s.lines) - 1, Character: 0})
		s.state = stateOutside
		return block, true
	}
	return Block{}, false
}

func (s *Scanner) current(end protocol.Position) (Block, bool) {
	if s.state != stateInBlock {
		return Block{}, false
	}
	return Block{
		Type:      s.blockType,
		Range:     protocol.Range{Start: s.start, End: end},
		NameRange: s.nameRange,
		Name:      s.name,
	}, true
}

func (s *Scanner) open(key int, raw, item string, blockType BlockType) {
	indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
	keyword := blockType.Keyword()
	between := item[len(keyword):strings.Index(item, "{")]
	name := strings.TrimSpace(between)
	startByte := indent + len(keyword) + len(between) - len(strings.TrimLeft(between, " \t"))
	startChar := Column(raw, startByte)

	s.state = stateInBlock
	s.blockType = blockType
	s.name = name
	s.nameRange = protocol.NewRange(key, startChar, key, startChar+Column(name, len(name)))
	s.start = protocol.Position{Line: key, Character: 0}
}

// openerType matches `keyword name {` lines.
func openerType(item string) (BlockType, bool) {
	if !strings.Contains(item, "{") {
		return 0, false
	}
	keyword := item
	if i := strings.IndexAny(item, " \t{"); i >= 0 {
		keyword = item[:i]
	}
	return scannedTypeFor(keyword)
}

func scannedTypeFor(keyword string) (BlockType, bool) {
	t, ok := scannedKeywords[keyword]
	return t, ok
}

// Blocks returns a restartable sequence over the blocks of lines.
func Blocks(lines []string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		s := NewScanner(lines)
		for {
			b, ok := s.Next()
			if !ok || !yield(b) {
				return
			}
		}
	}
}

// AllBlocks collects every non-import block.
func AllBlocks(lines []string) []Block {
	var blocks []Block
	for b := range Blocks(lines) {
		blocks = append(blocks, b)
	}
	return blocks
}

var importEntities = regexp.MustCompile(`\{(.*)\}`)

// ScanImports produces one import block per `import` line.
func ScanImports(lines []string) []Block {
	var blocks []Block
	for key, raw := range lines {
		item := strings.TrimSpace(raw)
		if !strings.HasPrefix(item, "import") {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))

		first := strings.Index(item, `"`)
		last := strings.LastIndex(item, `"`)
		if first == -1 || first == last {
			continue
		}

		var imported []ImportedBlock
		if m := importEntities.FindStringSubmatchIndex(item); m != nil {
			searchFrom := m[2]
			for _, entity := range strings.Split(item[m[2]:m[3]], ",") {
				entity = strings.TrimSpace(entity)
				if entity == "" {
					continue
				}
				idx := strings.Index(item[searchFrom:], entity)
				if idx == -1 {
					continue
				}
				startByte := indent + searchFrom + idx
				startChar := Column(raw, startByte)
				imported = append(imported, ImportedBlock{
					Name:  entity,
					Range: protocol.NewRange(key, startChar, key, startChar+Column(entity, len(entity))),
				})
				searchFrom += idx + len(entity)
			}
		}

		blocks = append(blocks, Block{
			Type:               ImportBlock,
			Range:              protocol.NewRange(key, 0, key, Column(raw, len(raw))),
			NameRange:          protocol.NewRange(key, Column(raw, indent+first+1), key, Column(raw, indent+last)),
			ImportedBlocks:     imported,
			RelativeImportPath: item[first+1 : last],
		})
	}
	return blocks
}

// BlockAt returns the block covering line. With includeImports, an import
// statement on that line wins.
func BlockAt(line int, lines []string, includeImports bool) (Block, bool) {
	if includeImports {
		for _, b := range ScanImports(lines) {
			if b.Range.Start.Line == line {
				return b, true
			}
		}
	}
	for b := range Blocks(lines) {
		if b.Range.Start.Line > line {
			return Block{}, false
		}
		if line <= b.Range.End.Line {
			return b, true
		}
	}
	return Block{}, false
}

// FindNamedBlock locates the single model, type or enum called name.
// Ambiguous names resolve to nothing.
func FindNamedBlock(name string, lines []string) (Block, bool) {
	var found []Block
	for b := range Blocks(lines) {
		if b.Type.IsNamedType() && b.Name == name {
			found = append(found, b)
		}
	}
	if len(found) != 1 {
		return Block{}, false
	}
	return found[0], true
}
