package schema

import (
	"fmt"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

// BlockType is the closed set of top level block kinds.
type BlockType int

const (
	GeneratorBlock BlockType = iota + 1
	DatasourceBlock
	ModelBlock
	TypeBlock
	EnumBlock
	ImportBlock
)

// Keyword returns the schema keyword that opens a block of this type.
func (t BlockType) Keyword() string {
	switch t {
	case GeneratorBlock:
		return "generator"
	case DatasourceBlock:
		return "datasource"
	case ModelBlock:
		return "model"
	case TypeBlock:
		return "type"
	case EnumBlock:
		return "enum"
	case ImportBlock:
		return "import"
	default:
		panic(fmt.Sprintf("schema: unknown block type %d", int(t)))
	}
}

func (t BlockType) String() string {
	return t.Keyword()
}

// IsNamedType reports whether blocks of this type can be used as a field type.
func (t BlockType) IsNamedType() bool {
	switch t {
	case ModelBlock, TypeBlock, EnumBlock:
		return true
	case GeneratorBlock, DatasourceBlock, ImportBlock:
		return false
	default:
		panic(fmt.Sprintf("schema: unknown block type %d", int(t)))
	}
}

// scannedKeywords are the block keywords handled by the brace scanner.
var scannedKeywords = map[string]BlockType{
	"model":      ModelBlock,
	"type":       TypeBlock,
	"enum":       EnumBlock,
	"datasource": DatasourceBlock,
	"generator":  GeneratorBlock,
}

// ParseBlockType maps a keyword to its block type.
func ParseBlockType(keyword string) (BlockType, bool) {
	if keyword == "import" {
		return ImportBlock, true
	}
	t, ok := scannedKeywords[keyword]
	return t, ok
}

// ImportedBlock is one symbol listed in an import statement.
type ImportedBlock struct {
	Name  string
	Range protocol.Range
}

// Block is a top level structural unit of a schema document.
type Block struct {
	Type      BlockType
	Range     protocol.Range
	NameRange protocol.Range
	// Name is empty for import blocks.
	Name string

	ImportedBlocks     []ImportedBlock
	RelativeImportPath string
}

// Imports reports whether an import block lists the given symbol.
func (b Block) Imports(name string) bool {
	for _, ib := range b.ImportedBlocks {
		if ib.Name == name {
			return true
		}
	}
	return false
}
