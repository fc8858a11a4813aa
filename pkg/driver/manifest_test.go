package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadManifestParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, `
name: inventory
version: 1.2.0
startup: MainForm
modules:
  - src/Data.vb
  - MainForm.vb
resources:
  Title: Inventory Manager
handlers:
  - control: btnSave
    event: Click
    handler: btnSave_Click
dependencies:
  widgets: ../widgets
  reports:
    git: https://example.com/reports.git
    tag: v0.3.1
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if manifest.Name != "inventory" || manifest.Version != "1.2.0" || manifest.Startup != "MainForm" {
		t.Fatalf("unexpected header fields: %+v", manifest)
	}
	if manifest.Entry != "Main" {
		t.Fatalf("expected default entry Main, got %q", manifest.Entry)
	}
	if diff := cmp.Diff([]string{filepath.Join("src", "Data.vb"), "MainForm.vb"}, manifest.Modules); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]HandlerBinding{{Control: "btnSave", Event: "Click", Handler: "btnSave_Click"}}, manifest.Handlers); diff != "" {
		t.Fatalf("handlers mismatch (-want +got):\n%s", diff)
	}
	want := map[string]*DependencySpec{
		"widgets": {Path: "../widgets"},
		"reports": {Git: "https://example.com/reports.git", Tag: "v0.3.1"},
	}
	if diff := cmp.Diff(want, manifest.Dependencies); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"reports", "widgets"}, manifest.DependencyNames()); diff != "" {
		t.Fatalf("dependency order mismatch (-want +got):\n%s", diff)
	}
	if got := manifest.Resources["Title"]; got != "Inventory Manager" {
		t.Fatalf("resource Title = %q", got)
	}
}

func TestLoadManifestValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, `
version: one
modules:
  - a/Util.vb
  - b/util.vb
handlers:
  - control: btn
    event: Click
dependencies:
  both:
    git: https://example.com/x.git
    path: ../x
  pinned:
    git: https://example.com/y.git
    tag: v1.0.0
    branch: main
  loose:
    path: ../z
    rev: abc123
`)

	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"name must be provided",
		`version "one" is not a semantic version`,
		`modules "a/Util.vb" and "b/util.vb" share the module name "util"`,
		"handlers[0] needs control, event and handler",
		"dependencies.both: path dependencies cannot also specify git",
		"dependencies.loose: tag, branch and rev apply only to git dependencies",
		"dependencies.pinned: only one of tag, branch or rev may be set",
	}
	if diff := cmp.Diff(want, verr.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(verr.Error(), "manifest validation failed:\n- name must be provided") {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, "name: app\nmodules: [Main.vb]\nmain: Main.vb\n")

	_, err := LoadManifest(path)
	if err == nil || !strings.Contains(err.Error(), "field main not found") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadManifestEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, "")

	if _, err := LoadManifest(path); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty manifest error, got %v", err)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, "name: app\nmodules: [Main.vb]\n")
	nested := filepath.Join(dir, "src", "forms")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := FindManifest(nested)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if got != path {
		t.Fatalf("FindManifest = %q, want %q", got, path)
	}
}

func TestModuleName(t *testing.T) {
	cases := map[string]string{
		"Main.vb":           "Main",
		"src/Form1.vb":      "Form1",
		"lib/Helpers.bas":   "Helpers",
		"NoExtension":       "NoExtension",
		"dir/Multi.Part.vb": "Multi.Part",
	}
	for in, want := range cases {
		if got := ModuleName(in); got != want {
			t.Fatalf("ModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}
