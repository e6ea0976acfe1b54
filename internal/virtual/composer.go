// Package virtual composes the virtual schema of a document: the text of
// every block it transitively imports, appended after the document so the
// native engine sees one self-contained schema.
package virtual

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
)

const (
	// Marker opens the virtual section of a composed schema.
	Marker = "// begin_virtual_schema"

	// Suffix is appended to the names of imported blocks that are only
	// reachable transitively, so they cannot clash with local names.
	Suffix = "VirtualReplaced"
)

// ImportTarget returns the registry path an import statement of doc points
// to.
func ImportTarget(documentPath, relative string) string {
	return filepath.Join(filepath.Dir(documentPath), relative) + ".prisma"
}

// composer holds the state of one composition.
type composer struct {
	snap *registry.Snapshot

	// names that keep their declared name
	kept    map[string]bool
	visited map[string]bool
	blocks  []string
}

// Compose builds the virtual section for doc. It reports false when doc is
// unknown to the snapshot or imports nothing.
func Compose(doc *schema.Document, snap *registry.Snapshot) (string, bool) {
	self, ok := snap.Lookup(doc.Path())
	if !ok {
		return "", false
	}
	imports := self.Imports()
	if len(imports) == 0 {
		return "", false
	}

	c := &composer{
		snap:    snap,
		kept:    make(map[string]bool),
		visited: make(map[string]bool),
	}
	hasDatasource := false
	for _, b := range self.Blocks {
		switch b.Type {
		case schema.ModelBlock, schema.TypeBlock, schema.EnumBlock:
			c.kept[b.Name] = true
			c.visited[b.Name] = true
		case schema.DatasourceBlock:
			hasDatasource = true
		case schema.GeneratorBlock, schema.ImportBlock:
		}
	}

	type search struct {
		target *registry.SchemaWithBlocks
		names  []string
	}
	var initial []search
	for _, imp := range imports {
		if imp.RelativeImportPath == "" || len(imp.ImportedBlocks) == 0 {
			continue
		}
		target, ok := snap.Lookup(ImportTarget(self.Path, imp.RelativeImportPath))
		if !ok {
			continue
		}
		var names []string
		for _, ib := range imp.ImportedBlocks {
			if _, ok := target.Block(ib.Name); ok {
				names = append(names, ib.Name)
				c.kept[ib.Name] = true
			}
		}
		initial = append(initial, search{target: target, names: names})
	}

	parts := []string{Marker + "\n"}
	if !hasDatasource {
		if ds, ok := firstDatasource(snap); ok {
			parts = append(parts, ds)
		}
	}
	for _, s := range initial {
		c.search(s.target, s.names)
	}
	parts = append(parts, c.blocks...)
	return strings.Join(parts, "\n"), true
}

func firstDatasource(snap *registry.Snapshot) (string, bool) {
	for _, s := range snap.Schemas() {
		for _, b := range s.Blocks {
			if b.Type == schema.DatasourceBlock {
				return s.Document.GetText(b.Range), true
			}
		}
	}
	return "", false
}

// search appends the named blocks of target and, depth first, every block
// their fields depend on. Dependencies are emitted before their dependents.
func (c *composer) search(target *registry.SchemaWithBlocks, names []string) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	lines := target.Document.Lines()

	for _, block := range target.Blocks {
		if block.Type == schema.ImportBlock || !wanted[block.Name] || c.visited[block.Name] {
			continue
		}
		c.visited[block.Name] = true

		text := target.Document.GetText(block.Range)
		if !c.kept[block.Name] {
			text = renameDeclaration(text, block)
		}

		fields := schema.FieldTypesOfBlock(lines, block, -1, true)
		for _, field := range fields.Fields {
			dep := strings.NewReplacer("[]", "", "?", "").Replace(fields.Types[field])
			if !c.snap.IsBlockName(dep) {
				continue
			}

			switch {
			case c.visited[dep]:
			case hasBlock(target, dep):
				c.search(target, []string{dep})
			default:
				source, ok := c.importedFrom(target, dep)
				if !ok {
					continue
				}
				c.search(source, []string{dep})
			}
			if !c.kept[dep] {
				text = renameUsage(text, field, dep)
			}
		}

		c.blocks = append(c.blocks, text)
	}
}

func hasBlock(s *registry.SchemaWithBlocks, name string) bool {
	_, ok := s.Block(name)
	return ok
}

// importedFrom follows the import statements of s to the schema declaring
// name.
func (c *composer) importedFrom(s *registry.SchemaWithBlocks, name string) (*registry.SchemaWithBlocks, bool) {
	for _, imp := range s.Imports() {
		if !imp.Imports(name) {
			continue
		}
		if imp.RelativeImportPath == "" {
			return nil, false
		}
		source, ok := c.snap.Lookup(ImportTarget(s.Path, imp.RelativeImportPath))
		if !ok || !hasBlock(source, name) {
			return nil, false
		}
		return source, true
	}
	return nil, false
}

func renameDeclaration(text string, block schema.Block) string {
	header := regexp.MustCompile(`^(\s*` + block.Type.Keyword() + `\s+)` + regexp.QuoteMeta(block.Name) + `\b`)
	return header.ReplaceAllString(text, "${1}"+block.Name+Suffix)
}

// renameUsage renames every reference to blockName that follows fieldName
// on the same line.
func renameUsage(text, fieldName, blockName string) string {
	usage := regexp.MustCompile(`\b` + regexp.QuoteMeta(blockName) + `\b`)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		idx := strings.Index(line, fieldName)
		if idx == -1 {
			continue
		}
		cut := idx + len(fieldName)
		lines[i] = line[:cut] + usage.ReplaceAllString(line[cut:], blockName+Suffix)
	}
	return strings.Join(lines, "\n")
}
