package features

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

const typoSchema = `model Post {
  id Int @id
}

model User {
  id   Int @id
  post Pots?
}
`

func edit(uri string, rng protocol.Range, text string) *protocol.WorkspaceEdit {
	return &protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{
		uri: {{Range: rng, NewText: text}},
	}}
}

func TestCodeActionsUnknownType(t *testing.T) {
	const uri = "file:///work/typo.prisma"
	doc := schema.NewDocument(uri, typoSchema)
	d := protocol.Diagnostic{
		Range:    protocol.NewRange(6, 7, 6, 12),
		Severity: protocol.SeverityError,
		Message:  `Type "Pots" ` + unknownTypeMessage,
	}

	got := newService(t, engine.NewBuiltin()).CodeActions(context.Background(), doc, d.Range, []protocol.Diagnostic{d}, nil)
	end := protocol.NewRange(9, 0, 9, 0)
	want := []protocol.CodeAction{
		{
			Title:       "Change spelling to 'Post'",
			Kind:        protocol.CodeActionKindQuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit:        edit(uri, d.Range, "Post?"),
		},
		{
			Title:       "Create new model 'Pots'",
			Kind:        protocol.CodeActionKindQuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit:        edit(uri, end, "\nmodel Pots {\n\n}\n"),
		},
		{
			Title:       "Create new enum 'Pots'",
			Kind:        protocol.CodeActionKindQuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit:        edit(uri, end, "\nenum Pots {\n\n}\n"),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CodeActions() mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeActionsExperimentalFeatures(t *testing.T) {
	const uri = "file:///work/gen.prisma"
	doc := schema.NewDocument(uri, "generator client {\n  provider             = \"prisma-client-js\"\n  experimentalFeatures = []\n}\n")
	d := protocol.Diagnostic{
		Range:    protocol.NewRange(2, 2, 2, 22),
		Severity: protocol.SeverityWarning,
		Message:  ExperimentalFeaturesMessage,
	}

	got := newService(t, engine.NewBuiltin()).CodeActions(context.Background(), doc, d.Range, []protocol.Diagnostic{d}, nil)
	want := []protocol.CodeAction{{
		Title:       "Rename property to 'previewFeatures'",
		Kind:        protocol.CodeActionKindQuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        edit(uri, d.Range, "previewFeatures"),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CodeActions() mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeActionsUnknownKeyword(t *testing.T) {
	const uri = "file:///work/keyword.prisma"
	doc := schema.NewDocument(uri, "mode User {\n  id Int @id\n}\n")
	d := protocol.Diagnostic{
		Range:    protocol.NewRange(0, 0, 2, 1),
		Severity: protocol.SeverityError,
		Message:  "This line is invalid. " + unknownKeywordMessage,
	}

	got := newService(t, engine.NewBuiltin()).CodeActions(context.Background(), doc, d.Range, []protocol.Diagnostic{d}, nil)
	want := []protocol.CodeAction{{
		Title:       "Change spelling to 'model'",
		Kind:        protocol.CodeActionKindQuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        edit(uri, protocol.NewRange(0, 0, 0, 4), "model"),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CodeActions() mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeActionsEngineFirst(t *testing.T) {
	const uri = "file:///work/gen.prisma"
	doc := schema.NewDocument(uri, "generator client {\n  experimentalFeatures = []\n}\n")
	d := protocol.Diagnostic{
		Range:    protocol.NewRange(1, 2, 1, 22),
		Severity: protocol.SeverityWarning,
		Message:  ExperimentalFeaturesMessage,
	}
	e := &scriptedEngine{actions: `[{"title":"Add a provider","kind":"quickfix"}]`}

	got := newService(t, e).CodeActions(context.Background(), doc, d.Range, []protocol.Diagnostic{d}, nil)
	var titles []string
	for _, a := range got {
		titles = append(titles, a.Title)
	}
	want := []string{"Add a provider", "Rename property to 'previewFeatures'"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("CodeActions() titles mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeActionsEngineFault(t *testing.T) {
	doc := schema.NewDocument("file:///work/typo.prisma", typoSchema)
	d := protocol.Diagnostic{
		Range:    protocol.NewRange(6, 7, 6, 12),
		Severity: protocol.SeverityError,
		Message:  `Type "Pots" ` + unknownTypeMessage,
	}

	var messages []string
	s := newService(t, engine.NewBuiltin(), engine.WithForcedPanic(true))
	got := s.CodeActions(context.Background(), doc, d.Range, []protocol.Diagnostic{d}, errorsTo(&messages))
	if len(messages) != 1 {
		t.Errorf("error messages = %q, want exactly one", messages)
	}
	if len(got) != 3 {
		t.Errorf("CodeActions() returned %d actions, want the 3 local ones", len(got))
	}
}

func TestCodeActionsWithoutDiagnostics(t *testing.T) {
	doc := schema.NewDocument("file:///work/typo.prisma", typoSchema)
	got := newService(t, engine.NewBuiltin()).CodeActions(context.Background(), doc, protocol.Range{}, nil, nil)
	if got != nil {
		t.Errorf("CodeActions() = %v, want nil", got)
	}
}

func TestSpellingSuggestion(t *testing.T) {
	tests := []struct {
		name       string
		word       string
		candidates []string
		want       string
		wantOK     bool
	}{
		{name: "transposed letters", word: "Pots", candidates: []string{"Post", "User"}, want: "Post", wantOK: true},
		{name: "case only", word: "user", candidates: []string{"Users", "User"}, want: "User", wantOK: true},
		{name: "missing letter", word: "mode", candidates: blockKeywords, want: "model", wantOK: true},
		{name: "too far", word: "Comment", candidates: []string{"Post", "User"}},
		{name: "short candidate", word: "Ab", candidates: []string{"Ac"}},
		{name: "no candidates", word: "Post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := spellingSuggestion(tt.word, tt.candidates)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("spellingSuggestion(%q) = (%q, %v), want (%q, %v)", tt.word, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
