package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func newTestCLI(t *testing.T, stdin string) (*cli, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cli{
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		cfg: config{
			Home:     t.TempDir(),
			LogLevel: slog.LevelError,
		},
	}
	return c, &stdout, &stderr
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	c, stdout, stderr := newTestCLI(t, "")
	code := c.run(args)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRunSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Hello.vb")
	writeFile(t, path, `
Module Program
    Sub Main()
        Console.WriteLine("Hello, " & "world")
        MsgBox("done")
    End Sub
End Module
`)
	got := runCLI(t, "run", path)
	want := cliResult{code: 0, stdout: "Hello, world\n[MsgBox] done\n"}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(cliResult{})); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBareFileArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Script.vb")
	writeFile(t, path, "Console.WriteLine(6 * 7)\n")
	got := runCLI(t, path)
	if got.code != 0 || got.stdout != "42\n" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRunReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bad.vb")
	writeFile(t, path, "Sub Main(\n")
	got := runCLI(t, "run", path)
	if got.code != 1 {
		t.Fatalf("expected exit code 1, got %d", got.code)
	}
	if !strings.HasPrefix(got.stderr, "parse error: "+path+":") {
		t.Fatalf("unexpected stderr %q", got.stderr)
	}
}

func TestRunReportsRuntimeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Boom.vb")
	writeFile(t, path, "Console.WriteLine(\"before\")\nThrow New InvalidOperationException(\"boom\")\n")
	got := runCLI(t, "run", path)
	want := cliResult{
		code:   1,
		stdout: "before\n",
		stderr: "runtime error: InvalidOperationException: boom\n",
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(cliResult{})); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestRunProjectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vybe.yml"), `
name: greeter
version: 0.1.0
entry: Start
modules: [Start.vb]
resources:
  Greeting: Howdy
`)
	writeFile(t, filepath.Join(dir, "Start.vb"), "Sub Start()\n    Console.WriteLine(My.Resources.Greeting & \" \" & Command())\nEnd Sub\n")

	got := runCLI(t, "run", dir, "partner")
	if got.code != 0 || got.stdout != "Howdy partner\n" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestCheckReportsModuleCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vybe.yml"), "name: app\nmodules: [A.vb, B.vb]\n")
	writeFile(t, filepath.Join(dir, "A.vb"), "Sub Main()\nEnd Sub\n")
	writeFile(t, filepath.Join(dir, "B.vb"), "Function Two() As Integer\n    Return 2\nEnd Function\n")

	got := runCLI(t, "check", filepath.Join(dir, "vybe.yml"))
	if got.code != 0 || got.stdout != "ok: 2 module(s) parsed\n" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestCheckReportsManifestErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vybe.yml"), "version: 1.0.0\nmodules: [A.vb]\n")
	got := runCLI(t, "check", dir)
	if got.code != 1 || !strings.Contains(got.stderr, "name must be provided") {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestVersionAndUsage(t *testing.T) {
	if got := runCLI(t, "version"); got.code != 0 || got.stdout != cliToolVersion+"\n" {
		t.Fatalf("unexpected version output %+v", got)
	}
	if got := runCLI(t); got.code != 1 || !strings.HasPrefix(got.stderr, "Usage:") {
		t.Fatalf("unexpected usage output %+v", got)
	}
	if got := runCLI(t, "--bogus"); got.code != 1 || !strings.HasPrefix(got.stderr, "unknown flag --bogus") {
		t.Fatalf("unexpected flag output %+v", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"":        slog.LevelError,
		"loud":    slog.LevelError,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigFromSettings(t *testing.T) {
	home := t.TempDir()
	settings := map[string]string{
		"VYBE_HOME":      home,
		"VYBE_LOG_LEVEL": "debug",
		"VYBE_PATH":      "/opt/vybe/lib" + string(os.PathListSeparator) + "/srv/shared",
	}
	lookup := func(name string, def ...string) string {
		if v := settings[name]; v != "" {
			return v
		}
		if len(def) > 0 {
			return def[0]
		}
		return ""
	}

	cfg := configFrom(lookup)
	want := config{
		Home:        home,
		LogLevel:    slog.LevelDebug,
		SearchPaths: []string{"/opt/vybe/lib", "/srv/shared"},
		History:     filepath.Join(home, "history"),
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}
