package driver

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/interpreter"
	"vybe/interpreter-go/pkg/parser"
	"vybe/interpreter-go/pkg/runtime"
)

func consoleText(effects []runtime.SideEffect) string {
	var sb strings.Builder
	for _, effect := range effects {
		if out, ok := effect.(runtime.ConsoleOutput); ok {
			sb.WriteString(out.Text)
		}
	}
	return sb.String()
}

func loadProject(t *testing.T, manifestPath string, searchPaths ...string) *Project {
	t.Helper()
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	project, err := NewLoader(t.TempDir(), searchPaths, nil).Load(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return project
}

func TestLoaderOrdersDependenciesFirst(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, ManifestName), `
name: app
modules: [Main.vb, Second.vb]
dependencies:
  text: ../text
`)
	writeFile(t, filepath.Join(app, "Main.vb"), "Sub Main()\n    Console.WriteLine(Shout(Greeting()))\nEnd Sub\n")
	writeFile(t, filepath.Join(app, "Second.vb"), "Function Greeting() As String\n    Return \"hello\"\nEnd Function\n")
	writeFile(t, filepath.Join(root, "text", ManifestName), "name: text\nmodules: [Shout.vb]\n")
	writeFile(t, filepath.Join(root, "text", "Shout.vb"), "Function Shout(s As String) As String\n    Return UCase(s) & \"!\"\nEnd Function\n")

	project := loadProject(t, filepath.Join(app, ManifestName))

	var got []string
	for _, mod := range project.Modules {
		got = append(got, mod.Origin+":"+mod.Name)
	}
	if diff := cmp.Diff([]string{"text:Shout", "app:Main", "app:Second"}, got); diff != "" {
		t.Fatalf("module order mismatch (-want +got):\n%s", diff)
	}

	interp := interpreter.New()
	defer interp.Close()
	if err := project.Apply(interp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := project.Start(interp); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if diff := cmp.Diff("HELLO!\n", consoleText(interp.SideEffects.Drain())); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderUsesSearchPaths(t *testing.T) {
	app := t.TempDir()
	shared := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), "name: app\nmodules: [Shared.vb]\n")
	writeFile(t, filepath.Join(shared, "Shared.vb"), "Const Answer = 42\n")

	project := loadProject(t, filepath.Join(app, ManifestName), "", shared)
	if len(project.Modules) != 1 || project.Modules[0].Path != filepath.Join(shared, "Shared.vb") {
		t.Fatalf("unexpected modules %+v", project.Modules)
	}
}

func TestLoaderReportsParseErrors(t *testing.T) {
	app := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), "name: app\nmodules: [Good.vb, Bad.vb]\n")
	writeFile(t, filepath.Join(app, "Good.vb"), "Sub Main()\nEnd Sub\n")
	writeFile(t, filepath.Join(app, "Bad.vb"), "Sub Broken(\n")

	manifest, err := LoadManifest(filepath.Join(app, ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	_, err = NewLoader(t.TempDir(), nil, nil).Load(context.Background(), manifest)
	var perr *parser.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a ParseError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Bad.vb") {
		t.Fatalf("expected the file name in %q", err.Error())
	}
}

func TestLoaderMissingModule(t *testing.T) {
	app := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), "name: app\nmodules: [Missing.vb]\n")

	manifest, err := LoadManifest(filepath.Join(app, ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if _, err := NewLoader(t.TempDir(), nil, nil).Load(context.Background(), manifest); err == nil || !strings.Contains(err.Error(), "module Missing.vb not found") {
		t.Fatalf("expected missing module error, got %v", err)
	}
}

func TestLoaderUninstalledGitDependency(t *testing.T) {
	app := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), `
name: app
modules: [Main.vb]
dependencies:
  remote:
    git: https://example.com/remote.git
`)
	writeFile(t, filepath.Join(app, "Main.vb"), "Sub Main()\nEnd Sub\n")

	manifest, err := LoadManifest(filepath.Join(app, ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	_, err = NewLoader(t.TempDir(), nil, nil).Load(context.Background(), manifest)
	if err == nil || !strings.Contains(err.Error(), "dependency remote is not installed") {
		t.Fatalf("expected not-installed error, got %v", err)
	}
}

func TestLoaderDetectsDependencyCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", ManifestName), "name: a\nmodules: [A.vb]\ndependencies:\n  b: ../b\n")
	writeFile(t, filepath.Join(root, "a", "A.vb"), "Sub A()\nEnd Sub\n")
	writeFile(t, filepath.Join(root, "b", ManifestName), "name: b\nmodules: [B.vb]\ndependencies:\n  a: ../a\n")
	writeFile(t, filepath.Join(root, "b", "B.vb"), "Sub B()\nEnd Sub\n")

	manifest, err := LoadManifest(filepath.Join(root, "a", ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	_, err = NewLoader(t.TempDir(), nil, nil).Load(context.Background(), manifest)
	if err == nil || !strings.Contains(err.Error(), "dependency cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoaderSharesDiamondDependency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", ManifestName), "name: app\nmodules: [Main.vb]\ndependencies:\n  b: ../b\n  c: ../c\n")
	writeFile(t, filepath.Join(root, "app", "Main.vb"), "Sub Main()\n    Console.WriteLine(FromB() & FromC())\nEnd Sub\n")
	writeFile(t, filepath.Join(root, "b", ManifestName), "name: b\nmodules: [B.vb]\ndependencies:\n  d: ../d\n")
	writeFile(t, filepath.Join(root, "b", "B.vb"), "Function FromB() As String\n    Return Base() & \"b\"\nEnd Function\n")
	writeFile(t, filepath.Join(root, "c", ManifestName), "name: c\nmodules: [C.vb]\ndependencies:\n  d: ../d\n")
	writeFile(t, filepath.Join(root, "c", "C.vb"), "Function FromC() As String\n    Return Base() & \"c\"\nEnd Function\n")
	writeFile(t, filepath.Join(root, "d", ManifestName), "name: d\nmodules: [D.vb]\n")
	writeFile(t, filepath.Join(root, "d", "D.vb"), "Function Base() As String\n    Return \"d\"\nEnd Function\n")

	project := loadProject(t, filepath.Join(root, "app", ManifestName))

	var got []string
	for _, mod := range project.Modules {
		got = append(got, mod.Origin+":"+mod.Name)
	}
	if diff := cmp.Diff([]string{"d:D", "b:B", "c:C", "app:Main"}, got); diff != "" {
		t.Fatalf("module order mismatch (-want +got):\n%s", diff)
	}

	interp := interpreter.New()
	defer interp.Close()
	if err := project.Apply(interp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := project.Start(interp); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if diff := cmp.Diff("dbdc\n", consoleText(interp.SideEffects.Drain())); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStartSendsLoadToStartupForm(t *testing.T) {
	app := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), "name: app\nstartup: Form1\nmodules: [Form1.vb]\n")
	writeFile(t, filepath.Join(app, "Form1.vb"), `
Public Class Form1
    Private Sub Form1_Load(sender As Object, e As EventArgs) Handles MyBase.Load
        Console.WriteLine("loaded")
    End Sub
End Class
`)

	project := loadProject(t, filepath.Join(app, ManifestName))
	interp := interpreter.New()
	defer interp.Close()
	if err := project.Apply(interp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := project.Start(interp); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if diff := cmp.Diff("loaded\n", consoleText(interp.SideEffects.Drain())); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectApplyBindsHandlersAndResources(t *testing.T) {
	app := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), `
name: app
modules: [Handlers.vb]
resources:
  Title: Orders
handlers:
  - control: btnGo
    event: Click
    handler: btnGo_Click
`)
	writeFile(t, filepath.Join(app, "Handlers.vb"), "Sub btnGo_Click()\n    Console.WriteLine(My.Resources.Title)\nEnd Sub\n")

	project := loadProject(t, filepath.Join(app, ManifestName))
	interp := interpreter.New()
	defer interp.Close()
	if err := project.Apply(interp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := interp.DispatchEvent("btnGo", "Click", nil); err != nil {
		t.Fatalf("DispatchEvent: %v", err)
	}
	if diff := cmp.Diff("Orders\n", consoleText(interp.SideEffects.Drain())); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileRunsScriptWithoutMain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Script.vb")
	writeFile(t, path, "Dim total = 0\nFor n = 1 To 4\n    total += n\nNext\nConsole.WriteLine(total)\n")

	project, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	interp := interpreter.New()
	defer interp.Close()
	if err := project.Apply(interp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := project.Start(interp); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if diff := cmp.Diff("10\n", consoleText(interp.SideEffects.Drain())); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStartReportsMissingExplicitEntry(t *testing.T) {
	app := t.TempDir()
	writeFile(t, filepath.Join(app, ManifestName), "name: app\nentry: Begin\nmodules: [Main.vb]\n")
	writeFile(t, filepath.Join(app, "Main.vb"), "Sub Main()\nEnd Sub\n")

	project := loadProject(t, filepath.Join(app, ManifestName))
	interp := interpreter.New()
	defer interp.Close()
	if err := project.Apply(interp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	var rerr *runtime.Error
	if err := project.Start(interp); !errors.As(err, &rerr) || rerr.Kind != runtime.ErrUndefinedFunction {
		t.Fatalf("expected an undefined function error, got %v", err)
	}
}
