package features

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"go.uber.org/zap/zaptest"
)

const (
	postsURI = "file:///work/a.prisma"
	usersURI = "file:///work/b.prisma"

	postsSchema = `datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}

/// A blog post.
model Post {
  id    Int    @id
  title String
}
`

	usersSchema = `import { Post } from "./a"

model User {
  id    Int    @id
  posts Post[]
}
`
)

func snapshotOf(docs ...*schema.Document) *registry.Snapshot {
	entries := make([]*registry.SchemaWithBlocks, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, registry.Build(d))
	}
	return registry.NewSnapshot(entries)
}

// workspace returns the posts and users documents and a snapshot of both.
func workspace() (*schema.Document, *schema.Document, *registry.Snapshot) {
	posts := schema.NewDocument(postsURI, postsSchema)
	users := schema.NewDocument(usersURI, usersSchema)
	return posts, users, snapshotOf(posts, users)
}

func newService(t *testing.T, e engine.Engine, opts ...engine.ClientOption) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return New(engine.NewClient(e, logger, opts...), logger)
}

// errorsTo collects the messages passed to an error handler.
func errorsTo(messages *[]string) engine.ErrorHandler {
	return func(message string) { *messages = append(*messages, message) }
}

// scriptedEngine lints, formats and fixes with the given functions.
type scriptedEngine struct {
	engine.Builtin
	lint    func(schema string) []engine.LinterError
	format  func(schema string) string
	actions string
}

func (e *scriptedEngine) Lint(_ context.Context, schema string) (string, error) {
	if e.lint == nil {
		return "[]", nil
	}
	data, err := json.Marshal(e.lint(schema))
	return string(data), err
}

func (e *scriptedEngine) Format(_ context.Context, schema, _ string) (string, error) {
	if e.format == nil {
		return schema, nil
	}
	return e.format(schema), nil
}

func (e *scriptedEngine) CodeActions(context.Context, string, string) (string, error) {
	if e.actions == "" {
		return "[]", nil
	}
	return e.actions, nil
}

var repeatedSpaces = regexp.MustCompile(` {2,}`)

// collapseSpaces stands in for a formatter that changes alignment.
func collapseSpaces(schema string) string {
	return repeatedSpaces.ReplaceAllString(schema, " ")
}
