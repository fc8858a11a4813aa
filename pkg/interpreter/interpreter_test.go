package interpreter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/runtime"
)

func TestIdentifiersAreCaseInsensitive(t *testing.T) {
	_, out := mustRun(t, "Dim X = 1\nConsole.WriteLine(x)")
	if diff := cmp.Diff(lines("1"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestConstReassignmentFails(t *testing.T) {
	_, err := runProgram(t, "Const Limit = 10\nLimit = 11")
	var rerr *runtime.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if rerr.Kind != runtime.ErrConstantAssignment {
		t.Fatalf("expected constant assignment error, got %v", rerr.Kind)
	}
}

func TestByRefMutationVisibleByValIsNot(t *testing.T) {
	src := `
Sub Bump(ByRef a As Integer, ByVal b As Integer)
    a = a + 1
    b = b + 1
End Sub

Dim x As Integer = 1
Dim y As Integer = 1
Bump(x, y)
Console.WriteLine(x & "," & y)
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("2,1"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestForLoopBounds(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"ascending", "For i = 1 To 3\nConsole.WriteLine(i)\nNext", lines("1", "2", "3")},
		{"descending", "For i = 3 To 1 Step -1\nConsole.WriteLine(i)\nNext", lines("3", "2", "1")},
		{"empty", "For i = 3 To 1\nConsole.WriteLine(i)\nNext\nConsole.WriteLine(\"done\")", lines("done")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, out := mustRun(t, tc.src)
			if diff := cmp.Diff(tc.want, out); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoopBodyRedeclaresLocals(t *testing.T) {
	src := "For i As Integer = 1 To 3\nDim msg = \"iter \" & i\nConsole.WriteLine(msg)\nNext"
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("iter 1", "iter 2", "iter 3"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestValAndStr(t *testing.T) {
	interp := New()
	defer interp.Close()
	for src, want := range map[string]float64{
		`Val("  -12.5xyz")`: -12.5,
		`Val("")`:           0,
		`Val("&H1F")`:       31,
	} {
		got, err := runtime.AsDouble(mustEval(t, interp, src))
		if err != nil || got != want {
			t.Fatalf("%s = %v (%v), want %v", src, got, err, want)
		}
	}
	for src, want := range map[string]string{
		`Str(5)`:  " 5",
		`Str(-5)`: "-5",
	} {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestClassInstancesAlias(t *testing.T) {
	src := `
Class Point
    Public X As Integer
End Class

Dim a As New Point()
Dim b = a
b.X = 42
Console.WriteLine(a.X)
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("42"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStructuresCopyOnAssignment(t *testing.T) {
	src := `
Structure Pair
    Public Left As Integer
End Structure

Dim a As Pair
a.Left = 1
Dim b = a
b.Left = 2
Console.WriteLine(a.Left & " " & b.Left)
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("1 2"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDictionaryStringKeysIgnoreCase(t *testing.T) {
	src := `
Dim d As New Dictionary(Of String, Integer)
d.Add("Key", 1)
d("KEY") = 2
Console.WriteLine(d.Count & " " & d("key"))
Dim n As New Dictionary(Of Integer, String)
n(1) = "one"
Console.WriteLine(n.ContainsKey(1) & " " & n.ContainsKey(2))
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("1 2", "True False"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestAddAndRemoveHandler(t *testing.T) {
	src := `
Sub OnClick()
End Sub

AddHandler btn.Click, AddressOf OnClick
`
	interp, out := mustRun(t, src)
	if out != "" {
		t.Fatalf("unexpected output %q", out)
	}
	if got := len(interp.Events.Handlers("btn", "Click")); got != 1 {
		t.Fatalf("expected 1 handler after AddHandler, got %d", got)
	}

	interp, _ = mustRun(t, src+"RemoveHandler btn.Click, AddressOf OnClick\n")
	if got := interp.Events.Handlers("btn", "Click"); len(got) != 0 {
		t.Fatalf("expected no handlers after RemoveHandler, got %v", got)
	}
}

func TestEventHandlerMutatesInstanceState(t *testing.T) {
	src := `
Class Counter
    Public ClickCount As Integer

    Sub btn_Click()
        ClickCount = ClickCount + 1
    End Sub
End Class
`
	interp, _ := mustRun(t, src)
	for n := 0; n < 2; n++ {
		if _, err := interp.CallEventHandler("Counter.btn_Click", nil); err != nil {
			t.Fatalf("dispatch %d: %v", n, err)
		}
	}
	inst := interp.defaultInstances["counter"]
	if inst == nil {
		t.Fatalf("expected a default Counter instance")
	}
	if diff := cmp.Diff(runtime.Value(runtime.IntegerValue{Val: 2}), inst.Get("ClickCount")); diff != "" {
		t.Fatalf("ClickCount mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchEventFillsSenderAndArgs(t *testing.T) {
	src := `
Class Form1
    Public ClickCount As Integer
    Public Loaded As Boolean

    Private Sub Form1_Load(sender As Object, e As EventArgs) Handles MyBase.Load
        Loaded = sender Is Nothing
    End Sub

    Private Sub btn_Click(sender As Object, e As EventArgs) Handles btn.Click
        ClickCount += 1
    End Sub
End Class
`
	interp, _ := mustRun(t, src)
	if err := interp.DispatchEvent("Form1", "Load", nil); err != nil {
		t.Fatalf("dispatch Load: %v", err)
	}
	for n := 0; n < 2; n++ {
		if err := interp.DispatchEvent("btn", "Click", nil); err != nil {
			t.Fatalf("dispatch Click %d: %v", n, err)
		}
	}
	inst := interp.defaultInstances["form1"]
	if inst == nil {
		t.Fatalf("expected a default Form1 instance")
	}
	if diff := cmp.Diff(runtime.Value(runtime.IntegerValue{Val: 2}), inst.Get("ClickCount")); diff != "" {
		t.Fatalf("ClickCount mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(runtime.Value(runtime.BoolValue{Val: true}), inst.Get("Loaded")); diff != "" {
		t.Fatalf("Loaded mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlesBindsQualifiedClassMethods(t *testing.T) {
	src := `
Class FormA
    Public Hits As Integer
    Sub ok_Click() Handles okA.Click
        Hits += 1
    End Sub
End Class

Class FormB
    Public Hits As Integer
    Sub ok_Click() Handles okB.Click
        Hits += 10
    End Sub
End Class
`
	interp, _ := mustRun(t, src)
	if diff := cmp.Diff([]string{"FormB.ok_Click"}, interp.Events.Handlers("okB", "Click")); diff != "" {
		t.Fatalf("handlers mismatch (-want +got):\n%s", diff)
	}
	if err := interp.DispatchEvent("okB", "Click", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if diff := cmp.Diff(runtime.Value(runtime.IntegerValue{Val: 10}), interp.defaultInstances["formb"].Get("Hits")); diff != "" {
		t.Fatalf("FormB.Hits mismatch (-want +got):\n%s", diff)
	}
	if inst, ok := interp.defaultInstances["forma"]; ok {
		t.Fatalf("FormA should not have been touched, got %v", inst.Get("Hits"))
	}
}

func TestCallProcedureReturnsFunctionValue(t *testing.T) {
	src := `
Function Square(n As Integer) As Integer
    Return n * n
End Function
`
	interp, _ := mustRun(t, src)
	val, err := interp.CallProcedure("Square", []runtime.Value{runtime.IntegerValue{Val: 7}})
	if err != nil {
		t.Fatalf("CallProcedure: %v", err)
	}
	if diff := cmp.Diff(runtime.Value(runtime.IntegerValue{Val: 49}), val); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if _, err := interp.CallProcedure("Missing", nil); err == nil {
		t.Fatalf("expected an error for an undefined procedure")
	}
}
