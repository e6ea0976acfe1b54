package features

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/internal/virtual"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

func TestDiagnosticsMapOffsetsBack(t *testing.T) {
	posts := schema.NewDocument(postsURI, postsSchema)
	users := schema.NewDocument(usersURI, strings.Replace(usersSchema, "Post[]", "Postt[]", 1))

	const unknown = `Type "Postt" is neither a built-in type, nor refers to another model, custom type, or enum.`
	const clash = `The model "Post" cannot be defined because a model with that name already exists.`
	e := &scriptedEngine{lint: func(text string) []engine.LinterError {
		typo := strings.Index(text, "Postt")
		section := strings.Index(text, virtual.Marker)
		return []engine.LinterError{
			{Start: typo, End: typo + len("Postt"), Text: unknown},
			{Start: section + 5, End: section + 10, Text: clash},
			{Start: section + 5, End: section + 10, Text: "Error parsing attribute"},
		}
	}}

	got := newService(t, e).Diagnostics(context.Background(), users, snapshotOf(posts, users), nil)
	want := []protocol.Diagnostic{
		{Range: protocol.NewRange(4, 8, 4, 13), Severity: protocol.SeverityError, Message: unknown},
		{Range: protocol.NewRange(0, 0, 0, protocol.EndOfLine), Severity: protocol.SeverityError, Message: clash},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diagnostics() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiagnosticsImportErrors(t *testing.T) {
	posts := schema.NewDocument(postsURI, postsSchema)
	doc := schema.NewDocument("file:///work/c.prisma", "import { Nope } from \"./a\"\n")

	got := newService(t, engine.NewBuiltin()).Diagnostics(context.Background(), doc, snapshotOf(posts, doc), nil)
	want := []protocol.Diagnostic{{
		Range:    protocol.NewRange(0, 9, 0, 13),
		Severity: protocol.SeverityError,
		Message:  `'/work/a.prisma' has no block named "Nope".`,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diagnostics() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiagnosticsHints(t *testing.T) {
	doc := schema.NewDocument("file:///work/legacy.prisma", `generator client {
  provider             = "prisma-client-js"
  experimentalFeatures = ["fullTextSearch"]
}

model Legacy {
  id Int @id
  @@ignore
}

model User {
  id     Int @id
  secret String @ignore
}
`)

	got := newService(t, engine.NewBuiltin()).Diagnostics(context.Background(), doc, snapshotOf(doc), nil)
	want := []protocol.Diagnostic{
		{
			Range:    protocol.NewRange(2, 2, 2, 22),
			Severity: protocol.SeverityWarning,
			Message:  ExperimentalFeaturesMessage,
		},
		{
			Range:    protocol.NewRange(5, 0, 8, 1),
			Severity: protocol.SeverityHint,
			Code:     "@@ignore documentation",
			Href:     "https://pris.ly/d/schema-reference#ignore-1",
			Message:  blockIgnoreMessage,
			Tags:     []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary},
		},
		{
			Range:    protocol.NewRange(12, 0, 12, protocol.EndOfLine),
			Severity: protocol.SeverityHint,
			Code:     "@ignore documentation",
			Href:     "https://pris.ly/d/schema-reference#ignore",
			Message:  fieldIgnoreMessage,
			Tags:     []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diagnostics() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiagnosticsPrisma1(t *testing.T) {
	doc := schema.NewDocument("file:///work/old.prisma", "type User {\n  id: ID! @unique\n}\n")
	e := &scriptedEngine{lint: func(string) []engine.LinterError {
		return []engine.LinterError{{Start: 14, End: 15, Text: prisma1Lints[0]}}
	}}

	var messages []string
	got := newService(t, e).Diagnostics(context.Background(), doc, snapshotOf(doc), errorsTo(&messages))
	if diff := cmp.Diff([]string{prisma1Message}, messages); diff != "" {
		t.Errorf("error messages mismatch (-want +got):\n%s", diff)
	}
	if len(got) != 1 || got[0].Message != prisma1Lints[0] {
		t.Errorf("Diagnostics() = %v, want the engine's lint", got)
	}
}

func TestDiagnosticsEngineFault(t *testing.T) {
	posts := schema.NewDocument(postsURI, postsSchema)
	doc := schema.NewDocument("file:///work/c.prisma", "import { Nope } from \"./a\"\n")

	var messages []string
	s := newService(t, engine.NewBuiltin(), engine.WithForcedPanic(true))
	got := s.Diagnostics(context.Background(), doc, snapshotOf(posts, doc), errorsTo(&messages))

	if len(messages) != 1 || !strings.HasPrefix(messages[0], "prisma-fmt error'd during linting.") {
		t.Errorf("error messages = %q, want one linting fault", messages)
	}
	if len(got) != 1 || !strings.Contains(got[0].Message, "has no block named") {
		t.Errorf("Diagnostics() = %v, want the import error only", got)
	}
}
