package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/woxQAQ/prisma-schema-lsp/internal/config"
	"go.uber.org/zap/zaptest"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	return &app{
		cfg: &config.ServerConfig{
			EnginePaths: []string{t.TempDir()},
			LSP:         config.LSPConfig{Transport: "stdio", FileExtension: ".prisma"},
		},
		logger: zaptest.NewLogger(t),
	}
}

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.prisma", "model Post {\n  id Int @id\n}\n")
	b := writeFile(t, dir, "b.prisma", "import { Post } from \"./a\"\nimport { A } from \"./missing\"\n")

	var out bytes.Buffer
	err := newTestApp(t).check(context.Background(), &out, []string{a, b})
	if err == nil {
		t.Fatal("check() error = nil, want the unresolved import to fail the check")
	}
	want := b + ":2:20: error: Cannot find schema at './missing.prisma'\n"
	if out.String() != want {
		t.Errorf("check() output = %q, want %q", out.String(), want)
	}
}

func TestCheckMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := newTestApp(t).check(context.Background(), &out, []string{filepath.Join(t.TempDir(), "nope.prisma")})
	if err == nil {
		t.Error("check() of a missing file returned no error")
	}
}

func TestFormat(t *testing.T) {
	dir := t.TempDir()
	const text = "model Post {\n  id Int @id\n}\n"
	path := writeFile(t, dir, "a.prisma", text)

	var out bytes.Buffer
	if err := newTestApp(t).format(context.Background(), &out, path, formatFlags{}); err != nil {
		t.Fatalf("format() error = %v", err)
	}
	if out.String() != text {
		t.Errorf("format() output = %q, want %q", out.String(), text)
	}

	out.Reset()
	if err := newTestApp(t).format(context.Background(), &out, path, formatFlags{diff: true}); err != nil {
		t.Fatalf("format --diff error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("format --diff of a formatted file printed %q", out.String())
	}
}
