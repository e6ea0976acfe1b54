package imports

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/internal/virtual"
)

const postSchema = `model Post {
  id Int @id
}

enum Status {
  DRAFT
}
`

func resolve(t *testing.T, text string, others ...*schema.Document) (*schema.Document, *Result) {
	t.Helper()
	doc := schema.NewDocument("file:///work/b.prisma", text)
	entries := []*registry.SchemaWithBlocks{registry.Build(doc)}
	for _, o := range others {
		entries = append(entries, registry.Build(o))
	}
	return doc, Resolve(doc, registry.NewSnapshot(entries))
}

func postDocument() *schema.Document {
	return schema.NewDocument("file:///work/a.prisma", postSchema)
}

func TestResolveMissingSchema(t *testing.T) {
	text := "model User {\n  id Int @id\n}\n\nimport { X } from \"./missing\"\n"
	doc, r := resolve(t, text)

	start := strings.Index(text, "./missing")
	want := []engine.LinterError{{
		Start: start,
		End:   start + len("./missing"),
		Text:  "Cannot find schema at './missing.prisma'",
	}}
	if diff := cmp.Diff(want, r.Errors); diff != "" {
		t.Fatalf("Errors mismatch (-want +got):\n%s", diff)
	}

	pos := doc.PositionAt(r.Errors[0].Start)
	if pos.Line != 4 {
		t.Errorf("error reported on line %d, want 4", pos.Line)
	}
	if got := text[r.Errors[0].Start:r.Errors[0].End]; got != "./missing" {
		t.Errorf("error span = %q", got)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		span    string
		text    string
		warning bool
	}{
		{
			name: "invalid",
			line: `import { Post } "./a"`,
			span: `import { Post } "./a"`,
			text: invalidImportMessage,
		},
		{
			name: "no entities",
			line: `import {} from "./a"`,
			span: `import {} from "./a"`,
			text: invalidImportMessage,
		},
		{
			name: "prisma extension",
			line: `import { Post } from "./a.prisma"`,
			span: `./a.prisma`,
			text: `This import path is invalid. Paths should not include the '.prisma' extension. Change it to "./a".`,
		},
		{
			name:    "empty",
			line:    `import { , } from "./a"`,
			span:    `{ , }`,
			text:    "Empty imports are useless, either import a block or remove this line.",
			warning: true,
		},
		{
			name: "unknown block",
			line: `import { Post, Comment } from "./a"`,
			span: `Comment`,
			text: `'/work/a.prisma' has no block named "Comment".`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "model User {\n  id Int @id\n}\n" + tt.line + "\n"
			_, r := resolve(t, text, postDocument())
			if len(r.Errors) != 1 {
				t.Fatalf("expected 1 error, got %+v", r.Errors)
			}
			got := r.Errors[0]
			if span := text[got.Start:got.End]; span != tt.span {
				t.Errorf("span = %q, want %q", span, tt.span)
			}
			if got.Text != tt.text {
				t.Errorf("text = %q, want %q", got.Text, tt.text)
			}
			if got.IsWarning != tt.warning {
				t.Errorf("IsWarning = %v", got.IsWarning)
			}
		})
	}
}

func TestResolveImports(t *testing.T) {
	text := "import { Post, Status } from \"./a\"\n\nmodel User {\n  posts Post[]\n}\n"
	_, r := resolve(t, text, postDocument())

	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
	if len(r.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(r.Imports))
	}
	for i, name := range []string{"Post", "Status"} {
		imp := r.Imports[i]
		if imp.Block.Name != name || imp.Path != "/work/a.prisma" || imp.RelativePath != "./a.prisma" {
			t.Errorf("Imports[%d] = %+v", i, imp)
		}
	}

	if !strings.HasPrefix(r.Masked, "//import { Post, Status }") {
		t.Errorf("import not masked: %q", r.Masked)
	}
	if r.Ledger.Len() != 1 {
		t.Errorf("Ledger.Len() = %d, want 1", r.Ledger.Len())
	}
	if r.VirtualStart != len(r.Masked)+1 {
		t.Errorf("VirtualStart = %d", r.VirtualStart)
	}
	if !strings.HasPrefix(r.Text[r.VirtualStart:], virtual.Marker) {
		t.Errorf("virtual section missing: %q", r.Text)
	}

	// "posts" in the masked text maps back to the original document.
	masked := strings.Index(r.Text, "posts")
	original, ok := r.ToOriginal(masked)
	if !ok || original != strings.Index(text, "posts") {
		t.Errorf("ToOriginal(%d) = %d, %v", masked, original, ok)
	}
	if _, ok := r.ToOriginal(r.VirtualStart + 1); ok {
		t.Error("offsets in the virtual section have no original position")
	}
}

func TestResolveIndentedImport(t *testing.T) {
	text := "model User {\n  id Int @id\n}\n  import { Comment } from \"./a\"\n"
	_, r := resolve(t, text, postDocument())

	if !strings.Contains(r.Masked, "\n  //import { Comment }") {
		t.Errorf("indented import not masked: %q", r.Masked)
	}
	if len(r.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", r.Errors)
	}
	if span := text[r.Errors[0].Start:r.Errors[0].End]; span != "Comment" {
		t.Errorf("span = %q", span)
	}
}

func TestResolveWithoutImports(t *testing.T) {
	text := "model User {\n  id Int @id\n}\n"
	_, r := resolve(t, text)

	if r.Text != text || r.Masked != text {
		t.Errorf("text changed: %q", r.Text)
	}
	if r.VirtualStart != -1 || r.Ledger.Len() != 0 || len(r.Errors) != 0 {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestMask(t *testing.T) {
	text := "import { A } from \"./a\"\nmodel B {\n}\nimport { C } from \"./c\""
	masked, ledger := Mask(text, "//_")

	want := "//_import { A } from \"./a\"\nmodel B {\n}\n//_import { C } from \"./c\""
	if masked != want {
		t.Errorf("Mask() = %q", masked)
	}
	if ledger.Total() != 6 {
		t.Errorf("Total() = %d, want 6", ledger.Total())
	}
}
