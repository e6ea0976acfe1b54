package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeBundle creates a bundle directory with the given manifest and,
// when wasm is set, a copy of the fixture module.
func writeBundle(t *testing.T, root, name, manifest string, wasm bool) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if wasm {
		data, err := os.ReadFile(filepath.Join("testdata", "bundles", "fixture", "engine.wasm"))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "engine.wasm"), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestParseManifest_Valid(t *testing.T) {
	dir := filepath.Join("testdata", "bundles", "fixture")
	m, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if m.Name != "fixture" {
		t.Errorf("expected name 'fixture', got '%s'", m.Name)
	}
	if m.Version != "0.1.0" {
		t.Errorf("expected version '0.1.0', got '%s'", m.Version)
	}
	if m.EnginesVersion != "0.0.0-test" {
		t.Errorf("expected engines_version '0.0.0-test', got '%s'", m.EnginesVersion)
	}
	want := []Op{OpLint, OpFormat, OpPreviewFeatures, OpNativeTypes}
	if diff := cmp.Diff(want, m.Capabilities); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}
	if m.WasmPath() != filepath.Join(dir, "engine.wasm") {
		t.Errorf("WasmPath() = %s", m.WasmPath())
	}
	if m.Dir() != dir {
		t.Errorf("Dir() = %s", m.Dir())
	}
}

func TestParseManifest_NotFound(t *testing.T) {
	_, err := ParseManifest(filepath.Join(t.TempDir(), "nonexistent"))
	var notFound *ManifestNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	dir := writeBundle(t, t.TempDir(), "broken", "name: [unterminated\n", false)
	_, err := ParseManifest(dir)
	var parseErr *ManifestParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ManifestParseError, got %T", err)
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wasm     bool
		field    string
	}{
		{
			name:     "missing name",
			manifest: "version: 1.0.0\nwasm:\n  file: engine.wasm\ncapabilities: [lint]\n",
			field:    "name",
		},
		{
			name:     "missing version",
			manifest: "name: x\nwasm:\n  file: engine.wasm\ncapabilities: [lint]\n",
			field:    "version",
		},
		{
			name:     "missing wasm file",
			manifest: "name: x\nversion: 1.0.0\ncapabilities: [lint]\n",
			field:    "wasm.file",
		},
		{
			name:     "no capabilities",
			manifest: "name: x\nversion: 1.0.0\nwasm:\n  file: engine.wasm\n",
			field:    "capabilities",
		},
		{
			name:     "unknown capability",
			manifest: "name: x\nversion: 1.0.0\nwasm:\n  file: engine.wasm\ncapabilities: [introspection]\n",
			field:    "capabilities",
		},
		{
			name:     "duplicate capability",
			manifest: "name: x\nversion: 1.0.0\nwasm:\n  file: engine.wasm\ncapabilities: [lint, lint]\n",
			field:    "capabilities",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeBundle(t, t.TempDir(), "bundle", tt.manifest, true)
			_, err := ParseManifest(dir)
			var validation *ManifestValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ManifestValidationError, got %v", err)
			}
			if validation.Field != tt.field {
				t.Errorf("field = %s, want %s", validation.Field, tt.field)
			}
		})
	}
}

func TestManifestValidate_WasmMissing(t *testing.T) {
	dir := writeBundle(t, t.TempDir(), "bundle",
		"name: x\nversion: 1.0.0\nwasm:\n  file: engine.wasm\ncapabilities: [lint]\n", false)
	_, err := ParseManifest(dir)
	var missing *WasmNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected WasmNotFoundError, got %v", err)
	}
	if missing.WasmFile != "engine.wasm" {
		t.Errorf("WasmFile = %s", missing.WasmFile)
	}
}

func TestManifestErrorMessages(t *testing.T) {
	err := &ManifestValidationError{Path: "/a/engine.yaml", Field: "name", Message: "name is required"}
	want := "manifest validation failed at '/a/engine.yaml': name is required (field: name)"
	if err.Error() != want {
		t.Errorf("Error() = %s, want %s", err.Error(), want)
	}

	notFound := &BundleNotFoundError{BundleName: "x"}
	if notFound.Error() != "engine bundle 'x' not found" {
		t.Errorf("Error() = %s", notFound.Error())
	}
}
