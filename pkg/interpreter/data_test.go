package interpreter

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/runtime"
)

const createPeople = `
Dim conn As New SqlConnection("Data Source=:memory:")
conn.Open()
Dim cmd = conn.CreateCommand()
cmd.CommandText = "CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, score REAL)"
cmd.ExecuteNonQuery()
cmd.CommandText = "INSERT INTO people (id, name, score) VALUES (@id, @name, @score)"
For Each row In New String() {"1:ann:9.5", "2:bob:7", "3:cy:8.25"}
    Dim parts = row.Split(":")
    cmd.Parameters.Clear()
    cmd.Parameters.AddWithValue("@id", CInt(parts(0)))
    cmd.Parameters.AddWithValue("@name", parts(1))
    cmd.Parameters.AddWithValue("@score", CDbl(parts(2)))
    cmd.ExecuteNonQuery()
Next
cmd.Parameters.Clear()
`

func TestSQLiteRoundTrip(t *testing.T) {
	src := createPeople + `
cmd.CommandText = "SELECT COUNT(*) FROM people"
Console.WriteLine(cmd.ExecuteScalar())
cmd.CommandText = "SELECT name, score FROM people ORDER BY id"
Dim reader = cmd.ExecuteReader()
While reader.Read()
    Console.WriteLine(reader.GetString(0) & "=" & reader.GetDouble(1))
End While
reader.Close()
conn.Close()
Console.WriteLine(conn.State)
`
	_, out := mustRun(t, src)
	want := lines("3", "ann=9.5", "bob=7", "cy=8.25", "0")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDataAdapterFillsTable(t *testing.T) {
	src := createPeople + `
Dim adapter As New SqlDataAdapter("SELECT id, name FROM people WHERE score > 8 ORDER BY id", conn)
Dim table As New DataTable()
Console.WriteLine(adapter.Fill(table))
Console.WriteLine(table.Columns.Count & " " & table.Rows.Count)
For Each r In table.Rows
    Console.WriteLine(r("name"))
Next
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("2", "2 2", "ann", "cy"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestTransactionRollback(t *testing.T) {
	src := createPeople + `
Dim tx = conn.BeginTransaction()
cmd.CommandText = "DELETE FROM people"
cmd.ExecuteNonQuery()
tx.Rollback()
cmd.CommandText = "SELECT COUNT(*) FROM people"
Console.WriteLine(cmd.ExecuteScalar())
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("3"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedConnectionRejectsCommands(t *testing.T) {
	src := `
Dim conn As New SqlConnection("Data Source=:memory:")
Dim cmd As New SqlCommand("SELECT 1", conn)
Try
    cmd.ExecuteScalar()
Catch ex As InvalidOperationException
    Console.WriteLine("closed")
End Try
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("closed"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDataSourcePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.db")
	cases := map[string]string{
		":memory:":                            ":memory:",
		"sqlite:" + file:                      file,
		"Data Source=" + file + ";Version=3;": file,
	}
	for in, want := range cases {
		got, err := dataSourcePath(in)
		if err != nil {
			t.Fatalf("dataSourcePath(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("dataSourcePath(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := dataSourcePath("Server=db;User Id=sa"); err == nil {
		t.Fatalf("expected unsupported connection strings to fail")
	}
}

func TestNullColumnsReadAsDBNull(t *testing.T) {
	if got := fromSQL(nil); !isDBNull(got) {
		t.Fatalf("expected DBNull, got %#v", got)
	}
	if diff := cmp.Diff(runtime.Value(runtime.LongValue{Val: 1 << 40}), fromSQL(int64(1<<40))); diff != "" {
		t.Fatalf("long mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(runtime.Value(runtime.IntegerValue{Val: 5}), fromSQL(int64(5))); diff != "" {
		t.Fatalf("integer mismatch (-want +got):\n%s", diff)
	}
}

func TestBindingSourceNavigation(t *testing.T) {
	src := `
Dim names As New List(Of String)
names.Add("a")
names.Add("b")
names.Add("c")
Dim bs As New BindingSource()
bs.DataSource = names
bs.MoveNext()
bs.MoveNext()
bs.MoveNext()
Console.WriteLine(bs.Position & " " & bs.Current & " " & bs.Count)
bs.MoveFirst()
Console.WriteLine(bs.Current)
`
	interp, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	effects := interp.SideEffects.Drain()
	if diff := cmp.Diff(lines("2 c 3", "a"), consoleOutput(effects)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	var positions []int
	for _, effect := range effects {
		if moved, ok := effect.(runtime.BindingPositionChanged); ok {
			positions = append(positions, moved.Position)
			if moved.Count != 3 {
				t.Fatalf("expected count 3, got %d", moved.Count)
			}
		}
	}
	if diff := cmp.Diff([]int{1, 2, 2, 0}, positions); diff != "" {
		t.Fatalf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestTabulateObjects(t *testing.T) {
	interp := New()
	defer interp.Close()
	a := runtime.NewObject("Person")
	a.Set("Name", runtime.StringValue{Val: "ann"})
	a.Set("Age", runtime.IntegerValue{Val: 30})
	cols, rows, ok := interp.tabulate(runtime.NewArray([]runtime.Value{a}))
	if !ok {
		t.Fatalf("expected a table")
	}
	if diff := cmp.Diff([]string{"age", "name"}, cols); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"30", "ann"}}, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	cols, rows, _ = interp.tabulate(runtime.NewArray([]runtime.Value{runtime.StringValue{Val: "x"}}))
	if strings.Join(cols, ",") != "Value" || rows[0][0] != "x" {
		t.Fatalf("unexpected scalar table %v %v", cols, rows)
	}
}
