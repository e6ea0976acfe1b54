package rename

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap/zaptest"
)

const documentURI = "file:///work/schema.prisma"

var blog = strings.Join([]string{
	`datasource db {`,
	`  provider = "postgresql"`,
	`  url      = env("DATABASE_URL")`,
	`}`,
	``,
	`model User {`,
	`  id Int @id @default(autoincrement())`,
	`  email String @unique`,
	`  posts Post[]`,
	`}`,
	``,
	`model Post {`,
	`  id Int @id`,
	`  title String // shown in lists`,
	`  authorId Int`,
	`  author User @relation(fields: [authorId], references: [id])`,
	`  status Status @default(DRAFT)`,
	``,
	`  @@index([authorId, title])`,
	`}`,
	``,
	`enum Status {`,
	`  DRAFT`,
	`  PUBLISHED`,
	`}`,
	``,
}, "\n")

func renamed(t *testing.T, text string, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, string) {
	t.Helper()
	doc := schema.NewDocument(documentURI, text)
	edit, err := New(zaptest.NewLogger(t)).Rename(doc, pos, newName)
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if edit == nil {
		t.Fatalf("Rename(%v, %q) = nil, want edits", pos, newName)
	}
	return edit, doc.Apply(edit.Changes[documentURI])
}

func TestClassify(t *testing.T) {
	doc := schema.NewDocument(documentURI, blog)
	tests := []struct {
		name     string
		pos      protocol.Position
		kind     Kind
		symbol   string
		relation bool
	}{
		{name: "model declaration", pos: protocol.Position{Line: 11, Character: 8}, kind: KindModel, symbol: "Post"},
		{name: "model declaration end", pos: protocol.Position{Line: 11, Character: 10}, kind: KindModel, symbol: "Post"},
		{name: "model usage", pos: protocol.Position{Line: 8, Character: 9}, kind: KindModel, symbol: "Post"},
		{name: "enum declaration", pos: protocol.Position{Line: 21, Character: 6}, kind: KindEnum, symbol: "Status"},
		{name: "enum usage", pos: protocol.Position{Line: 16, Character: 10}, kind: KindEnum, symbol: "Status"},
		{name: "enum value", pos: protocol.Position{Line: 22, Character: 3}, kind: KindEnumValue, symbol: "DRAFT"},
		{name: "scalar field", pos: protocol.Position{Line: 14, Character: 3}, kind: KindField, symbol: "authorId"},
		{name: "relation field", pos: protocol.Position{Line: 15, Character: 3}, kind: KindField, symbol: "author", relation: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(doc, tt.pos)
			if !ok {
				t.Fatalf("Classify(%v) found nothing", tt.pos)
			}
			if got.Kind != tt.kind || got.Name != tt.symbol || got.Relation != tt.relation {
				t.Errorf("Classify(%v) = %v %q relation=%v, want %v %q relation=%v",
					tt.pos, got.Kind, got.Name, got.Relation, tt.kind, tt.symbol, tt.relation)
			}
		})
	}
}

func TestNothingToRename(t *testing.T) {
	doc := schema.NewDocument(documentURI, blog)
	r := New(zaptest.NewLogger(t))
	for _, pos := range []protocol.Position{
		{Line: 1, Character: 4},   // datasource property
		{Line: 4, Character: 0},   // between blocks
		{Line: 5, Character: 2},   // model keyword
		{Line: 6, Character: 6},   // scalar type
		{Line: 17, Character: 0},  // empty line
		{Line: 18, Character: 12}, // block attribute
		{Line: 19, Character: 0},  // closing brace
	} {
		edit, err := r.Rename(doc, pos, "Renamed")
		if err != nil || edit != nil {
			t.Errorf("Rename(%v) = %v, %v; want nil, nil", pos, edit, err)
		}
	}
}

func TestRenameInvalidName(t *testing.T) {
	doc := schema.NewDocument(documentURI, blog)
	_, err := New(zaptest.NewLogger(t)).Rename(doc, protocol.Position{Line: 11, Character: 8}, "9lives")
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("Rename() error = %v, want ErrInvalidName", err)
	}
}

func TestRenameModel(t *testing.T) {
	want := []protocol.TextEdit{
		{Range: protocol.NewRange(11, 6, 11, 10), NewText: "Article"},
		{Range: protocol.NewRange(19, 0, 19, 1), NewText: "\t@@map(\"Post\")\n}"},
		{Range: protocol.NewRange(8, 8, 8, 12), NewText: "Article"},
	}
	for _, pos := range []protocol.Position{{Line: 11, Character: 8}, {Line: 8, Character: 9}} {
		edit, _ := renamed(t, blog, pos, "Article")
		if diff := cmp.Diff(want, edit.Changes[documentURI]); diff != "" {
			t.Errorf("Rename(%v) mismatch (-want +got):\n%s", pos, diff)
		}
	}
}

func TestRenameEnum(t *testing.T) {
	_, got := renamed(t, blog, protocol.Position{Line: 21, Character: 6}, "State")
	for _, want := range []string{
		"  status State @default(DRAFT)\n",
		"enum State {\n  DRAFT\n  PUBLISHED\n\t@@map(\"Status\")\n}\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renamed schema does not contain %q:\n%s", want, got)
		}
	}
}

func TestRenameEnumValue(t *testing.T) {
	_, got := renamed(t, blog, protocol.Position{Line: 22, Character: 3}, "DRAFTED")
	for _, want := range []string{
		"  status Status @default(DRAFTED)\n",
		"  DRAFTED @map(\"DRAFT\")\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renamed schema does not contain %q:\n%s", want, got)
		}
	}
}

func TestRenameField(t *testing.T) {
	edit, got := renamed(t, blog, protocol.Position{Line: 14, Character: 3}, "writerId")
	want := []protocol.TextEdit{
		{Range: protocol.NewRange(14, 2, 14, 10), NewText: "writerId"},
		{Range: protocol.NewRange(14, protocol.EndOfLine, 14, protocol.EndOfLine), NewText: ` @map("authorId")`},
		{Range: protocol.NewRange(15, 33, 15, 41), NewText: "writerId"},
		{Range: protocol.NewRange(18, 11, 18, 19), NewText: "writerId"},
	}
	if diff := cmp.Diff(want, edit.Changes[documentURI]); diff != "" {
		t.Errorf("Rename() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got, "  @@index([writerId, title])\n") {
		t.Errorf("index not renamed:\n%s", got)
	}
}

func TestRenameFieldKeepsTrailingComment(t *testing.T) {
	_, got := renamed(t, blog, protocol.Position{Line: 13, Character: 3}, "headline")
	for _, want := range []string{
		"  headline String @map(\"title\") // shown in lists\n",
		"  @@index([authorId, headline])\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renamed schema does not contain %q:\n%s", want, got)
		}
	}
}

func TestRenameReferencedField(t *testing.T) {
	_, got := renamed(t, blog, protocol.Position{Line: 6, Character: 3}, "userId")
	for _, want := range []string{
		"  userId Int @id @default(autoincrement()) @map(\"id\")\n",
		"@relation(fields: [authorId], references: [userId])",
		"model Post {\n  id Int @id\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renamed schema does not contain %q:\n%s", want, got)
		}
	}
}

func TestRenameRelationFieldHasNoMap(t *testing.T) {
	edit, _ := renamed(t, blog, protocol.Position{Line: 15, Character: 3}, "writer")
	want := []protocol.TextEdit{{Range: protocol.NewRange(15, 2, 15, 8), NewText: "writer"}}
	if diff := cmp.Diff(want, edit.Changes[documentURI]); diff != "" {
		t.Errorf("Rename() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenameExistingMapIsKept(t *testing.T) {
	text := "model User {\n  id Int @id @map(\"user_id\")\n\n  @@map(\"users\")\n}\n"
	_, got := renamed(t, text, protocol.Position{Line: 1, Character: 3}, "key")
	if want := "  key Int @id @map(\"user_id\")\n"; !strings.Contains(got, want) {
		t.Errorf("renamed schema does not contain %q:\n%s", want, got)
	}
	_, got = renamed(t, text, protocol.Position{Line: 0, Character: 7}, "Account")
	if want := "model Account {\n  id Int @id @map(\"user_id\")\n\n  @@map(\"users\")\n}\n"; got != want {
		t.Errorf("renamed schema = %q, want %q", got, want)
	}
}

func TestRenameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		pos     protocol.Position
		newName string
	}{
		{name: "field", pos: protocol.Position{Line: 14, Character: 3}, newName: "writerId"},
		{name: "commented field", pos: protocol.Position{Line: 13, Character: 3}, newName: "headline"},
		{name: "model", pos: protocol.Position{Line: 11, Character: 8}, newName: "Article"},
		{name: "enum value", pos: protocol.Position{Line: 22, Character: 3}, newName: "DRAFTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward, there := renamed(t, blog, tt.pos, tt.newName)
			oldName := ""
			for _, e := range forward.Changes[documentURI] {
				if e.Range.Start.Line == tt.pos.Line {
					oldName = schema.NewDocument(documentURI, blog).GetText(e.Range)
					break
				}
			}
			if oldName == "" {
				t.Fatalf("no edit on line %d", tt.pos.Line)
			}
			_, back := renamed(t, there, tt.pos, oldName)
			if diff := cmp.Diff(blog, back); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListValue(t *testing.T) {
	tests := []struct {
		line  string
		value string
		at    int
		ok    bool
	}{
		{line: `@@index([a, b])`, value: "b", at: 12, ok: true},
		{line: `@@index([ab, b])`, value: "b", at: 13, ok: true},
		{line: `@@index([title(sort: Desc), id])`, value: "id", at: 28, ok: true},
		{line: `@@unique(fields: ["a", "b"])`, value: "b", at: 24, ok: true},
		{line: `@@index([address.street])`, value: "address", ok: false},
		{line: `@@index(map: "a")`, value: "a", ok: false},
	}
	for _, tt := range tests {
		at, ok := listValue(tt.line, 0, tt.value)
		if at != tt.at || ok != tt.ok {
			t.Errorf("listValue(%q, %q) = %d, %v; want %d, %v", tt.line, tt.value, at, ok, tt.at, tt.ok)
		}
	}
}
