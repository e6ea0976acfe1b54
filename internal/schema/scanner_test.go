package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

func TestBlocksWellFormed(t *testing.T) {
	text := `datasource db {
  provider = "postgresql"
}

model User {
  id    Int    @id
  posts Post[]
}

enum Role {
  ADMIN
}
`
	doc := NewDocument("file:///schema.prisma", text)
	blocks := AllBlocks(doc.RawLines())

	want := []Block{
		{Type: DatasourceBlock, Name: "db", Range: protocol.NewRange(0, 0, 2, 1), NameRange: protocol.NewRange(0, 11, 0, 13)},
		{Type: ModelBlock, Name: "User", Range: protocol.NewRange(4, 0, 7, 1), NameRange: protocol.NewRange(4, 6, 4, 10)},
		{Type: EnumBlock, Name: "Role", Range: protocol.NewRange(9, 0, 11, 1), NameRange: protocol.NewRange(9, 5, 9, 9)},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("AllBlocks() mismatch (-want +got):\n%s", diff)
	}
}

func TestBlocksIndentedNameRange(t *testing.T) {
	lines := []string{"  model   Post {", "  id Int", "  }"}
	blocks := AllBlocks(lines)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if got, want := blocks[0].NameRange, protocol.NewRange(0, 10, 0, 14); got != want {
		t.Errorf("NameRange = %v, want %v", got, want)
	}
	if lines[0][10:14] != "Post" {
		t.Errorf("name range does not cover the identifier: %q", lines[0][10:14])
	}
}

func TestBlocksUnterminatedRecovery(t *testing.T) {
	lines := []string{
		"model A {",
		"  id Int",
		"",
		"model B {",
		"  id Int",
		"}",
		"enum C {",
		"  X",
	}
	blocks := AllBlocks(lines)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}

	if blocks[0].Name != "A" || blocks[0].Range.End.Line != 2 {
		t.Errorf("recovered block = %+v, want A ending on line 2", blocks[0])
	}
	if blocks[1].Name != "B" || blocks[1].Range.End.Line != 5 {
		t.Errorf("block = %+v, want B ending on line 5", blocks[1])
	}
	if blocks[2].Name != "C" || blocks[2].Range.End.Line != 7 {
		t.Errorf("block = %+v, want C ending on the last line", blocks[2])
	}
}

func TestBlocksSkipImports(t *testing.T) {
	lines := []string{
		`import { A } from "./a"`,
		"model B {",
		"  a A",
		"}",
	}
	blocks := AllBlocks(lines)
	if len(blocks) != 1 || blocks[0].Name != "B" {
		t.Fatalf("AllBlocks() = %+v", blocks)
	}
}

func TestBlocksShortCircuit(t *testing.T) {
	lines := []string{"model A {", "}", "model B {", "}"}
	count := 0
	for range Blocks(lines) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("iteration did not stop, count = %d", count)
	}

	// restartable
	again := 0
	for range Blocks(lines) {
		again++
	}
	if again != 2 {
		t.Errorf("second iteration yielded %d blocks, want 2", again)
	}
}

func TestScanImports(t *testing.T) {
	lines := []string{
		`import { Post, Comment } from "./blog"`,
		"model User {",
		"}",
	}
	imports := ScanImports(lines)
	if len(imports) != 1 {
		t.Fatalf("expected 1 import block, got %d", len(imports))
	}
	b := imports[0]
	if b.Type != ImportBlock || b.RelativeImportPath != "./blog" {
		t.Errorf("import block = %+v", b)
	}
	want := []ImportedBlock{
		{Name: "Post", Range: protocol.NewRange(0, 9, 0, 13)},
		{Name: "Comment", Range: protocol.NewRange(0, 15, 0, 22)},
	}
	if diff := cmp.Diff(want, b.ImportedBlocks); diff != "" {
		t.Errorf("ImportedBlocks mismatch (-want +got):\n%s", diff)
	}
	if got := lines[0][b.NameRange.Start.Character:b.NameRange.End.Character]; got != "./blog" {
		t.Errorf("NameRange covers %q, want ./blog", got)
	}
	if !b.Imports("Comment") || b.Imports("User") {
		t.Error("Imports() mismatch")
	}
}

func TestBlockAt(t *testing.T) {
	lines := []string{
		`import { Post } from "./a"`,
		"",
		"model User {",
		"  posts Post[]",
		"}",
		"",
	}

	b, ok := BlockAt(3, lines, false)
	if !ok || b.Name != "User" {
		t.Errorf("BlockAt(3) = %+v, %v", b, ok)
	}
	if _, ok := BlockAt(5, lines, false); ok {
		t.Error("BlockAt(5) should find nothing")
	}
	if _, ok := BlockAt(0, lines, false); ok {
		t.Error("import lines are not blocks without includeImports")
	}
	b, ok = BlockAt(0, lines, true)
	if !ok || b.Type != ImportBlock {
		t.Errorf("BlockAt(0, imports) = %+v, %v", b, ok)
	}
}

func TestFindNamedBlock(t *testing.T) {
	lines := ToLines("model A {\n}\ntype B {\n}\nmodel A {\n}\ndatasource C {\n}")
	if _, ok := FindNamedBlock("A", lines); ok {
		t.Error("duplicate names must not resolve")
	}
	if b, ok := FindNamedBlock("B", lines); !ok || b.Type != TypeBlock {
		t.Errorf("FindNamedBlock(B) = %+v, %v", b, ok)
	}
	if _, ok := FindNamedBlock("C", lines); ok {
		t.Error("datasources are not named types")
	}
}

func TestBlockTypeKeywords(t *testing.T) {
	for _, keyword := range []string{"generator", "datasource", "model", "type", "enum", "import"} {
		bt, ok := ParseBlockType(keyword)
		if !ok {
			t.Fatalf("ParseBlockType(%q) failed", keyword)
		}
		if bt.Keyword() != keyword {
			t.Errorf("round trip %q -> %q", keyword, bt.Keyword())
		}
	}
	if _, ok := ParseBlockType("view"); ok {
		t.Error("unknown keywords must not parse")
	}
}
