package interpreter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileStatics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.ToSlash(filepath.Join(dir, "notes.txt"))
	src := `
Dim p = "` + path + `"
File.WriteAllText(p, "one" & vbLf)
File.AppendAllText(p, "two" & vbLf)
Console.WriteLine(File.Exists(p))
Console.WriteLine(File.ReadAllLines(p).Length)
Console.WriteLine(Path.GetFileNameWithoutExtension(p) & Path.GetExtension(p))
File.Delete(p)
Console.WriteLine(File.Exists(p))
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("True", "2", "notes.txt", "False"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingFileRaisesFileNotFound(t *testing.T) {
	path := filepath.ToSlash(filepath.Join(t.TempDir(), "absent.txt"))
	src := `
Try
    File.ReadAllText("` + path + `")
Catch ex As FileNotFoundException
    Console.WriteLine("missing")
End Try
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("missing"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLegacyFileStatements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.ToSlash(filepath.Join(dir, "data.txt"))
	src := `
Dim fn = FreeFile()
Open "` + path + `" For Output As #fn
Print #fn, "hello"
Write #fn, "a", 1
Close #fn
Open "` + path + `" For Input As #1
Dim first As String
Line Input #1, first
Dim s As String
Dim n As Integer
Input #1, s, n
Console.WriteLine(first & "|" & s & "|" & n & "|" & EOF(1))
Close #1
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("hello|a|1|True"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got := strings.Split(strings.TrimSpace(string(data)), "\n"); len(got) != 2 || got[1] != `"a",1` {
		t.Fatalf("unexpected file contents %q", data)
	}
}
