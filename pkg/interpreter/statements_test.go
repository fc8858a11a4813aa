package interpreter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/runtime"
)

func TestStatements(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "try catch when",
			src: `
Try
    Throw New InvalidOperationException("boom")
Catch ex As ArgumentException
    Console.WriteLine("wrong")
Catch ex As InvalidOperationException When ex.Message = "other"
    Console.WriteLine("filtered")
Catch ex As InvalidOperationException
    Console.WriteLine("caught " & ex.Message)
Finally
    Console.WriteLine("finally")
End Try
`,
			want: lines("caught boom", "finally"),
		},
		{
			name: "on error resume next",
			src: `
On Error Resume Next
Dim x As Integer = 1 \ 0
Console.WriteLine(Err.Number)
Console.WriteLine("after")
`,
			want: lines("11", "after"),
		},
		{
			name: "goto",
			src: `
Dim n As Integer = 0
again:
n = n + 1
If n < 3 Then GoTo again
Console.WriteLine(n)
`,
			want: lines("3"),
		},
		{
			name: "select case ranges",
			src: `
For Each v In New Integer() {1, 5, 12}
    Select Case v
        Case 1
            Console.WriteLine("one")
        Case 2 To 9
            Console.WriteLine("small")
        Case Is >= 10
            Console.WriteLine("big")
    End Select
Next
`,
			want: lines("one", "small", "big"),
		},
		{
			name: "like patterns",
			src: `
Console.WriteLine("Hello" Like "H*o")
Console.WriteLine("a1" Like "a#")
Console.WriteLine("b" Like "[!a]")
Console.WriteLine("abc" Like "a?")
`,
			want: lines("True", "True", "True", "False"),
		},
		{
			name: "do loop with exit",
			src: `
Dim n As Integer = 0
Do
    n += 1
    If n = 4 Then Exit Do
Loop While True
Console.WriteLine(n)
`,
			want: lines("4"),
		},
		{
			name: "while with continue",
			src: `
Dim n As Integer = 0
While n < 5
    n += 1
    If n Mod 2 = 0 Then Continue While
    Console.WriteLine(n)
End While
`,
			want: lines("1", "3", "5"),
		},
		{
			name: "with block",
			src: `
Class Box
    Public Width As Integer
    Public Height As Integer
End Class

Dim b As New Box()
With b
    .Width = 3
    .Height = 4
End With
Console.WriteLine(b.Width * b.Height)
`,
			want: lines("12"),
		},
		{
			name: "redim preserve",
			src: `
Dim a(1) As Integer
a(0) = 7
ReDim Preserve a(3)
Console.WriteLine(UBound(a) & " " & a(0))
`,
			want: lines("3 7"),
		},
		{
			name: "exception inheritance",
			src: `
Class AppError
    Inherits Exception
    Public Sub New(msg As String)
        MyBase.New(msg)
    End Sub
End Class

Try
    Throw New AppError("custom")
Catch ex As Exception
    Console.WriteLine(ex.Message)
End Try
`,
			want: lines("custom"),
		},
		{
			name: "on error goto resumes after the failing statement in a nested block",
			src: `
Sub Work()
    On Error GoTo failed
    If True Then
        Console.WriteLine("a")
        Dim z As Integer = 1 \ 0
        Console.WriteLine("b")
    End If
    Console.WriteLine("c")
    Exit Sub
failed:
    Console.WriteLine("handler " & Err.Number)
    Resume Next
End Sub

Work()
`,
			want: lines("a", "handler 11", "b", "c"),
		},
		{
			name: "on error goto inside a loop",
			src: `
Sub Work()
    On Error GoTo failed
    For n = 0 To 2
        Console.WriteLine(6 \ n)
    Next
    Exit Sub
failed:
    Console.WriteLine("skip")
    Resume Next
End Sub

Work()
`,
			want: lines("skip", "6", "3"),
		},
		{
			name: "resume retries the failing statement",
			src: `
Dim d As Integer = 0
On Error GoTo recover
Console.WriteLine(10 \ d)
GoTo finished
recover:
d = 2
Resume
finished:
Console.WriteLine("done")
`,
			want: lines("5", "done"),
		},
		{
			name: "handler without resume ends the procedure",
			src: `
Function Safe(d As Integer) As Integer
    On Error GoTo failed
    Safe = 10 \ d
    Exit Function
failed:
    Safe = -1
End Function

Console.WriteLine(Safe(2))
Console.WriteLine(Safe(0))
`,
			want: lines("5", "-1"),
		},
		{
			name: "as new with collection and object initializers",
			src: `
Class Point
    Public X As Integer
    Public Y As Integer
End Class

Dim xs As New List(Of Integer) From {3, 1, 2}
Dim d As New Dictionary(Of String, Integer) From {{"a", 1}, {"b", 2}}
Dim p As New Point With {.X = 4, .Y = 5}
Console.WriteLine(xs.Count & " " & xs(0))
Console.WriteLine(d.Count & " " & d("b"))
Console.WriteLine(p.X + p.Y)
`,
			want: lines("3 3", "2 2", "9"),
		},
		{
			name: "mybase calls the overridden member",
			src: `
Class Animal
    Public Overridable Function Speak() As String
        Return "..."
    End Function
End Class

Class Dog
    Inherits Animal
    Public Overrides Function Speak() As String
        Return "Woof " & MyBase.Speak()
    End Function
End Class

Dim a As Animal = New Dog()
Console.WriteLine(a.Speak())
`,
			want: lines("Woof ..."),
		},
		{
			name: "static locals keep their value",
			src: `
Function NextId() As Integer
    Static n As Integer
    n += 1
    Return n
End Function

NextId()
NextId()
Console.WriteLine(NextId())
`,
			want: lines("3"),
		},
		{
			name: "module block members by qualified name",
			src: `
Module Helpers
    Public Total As Integer

    Function AddTo(a As Integer, b As Integer) As Integer
        Total += a + b
        Return a + b
    End Function
End Module

Console.WriteLine(Helpers.AddTo(2, 3))
Helpers.Total = Helpers.Total + 10
Console.WriteLine(Helpers.Total)
Console.WriteLine(AddTo(1, 1))
`,
			want: lines("5", "15", "2"),
		},
		{
			name: "withevents handlers fire in name order",
			src: `
Class Ticker
    Public Event Tick()

    Sub Fire()
        RaiseEvent Tick()
    End Sub
End Class

Module Watchers
    Dim WithEvents zed As Ticker
    Dim WithEvents alpha As Ticker

    Sub OnZed() Handles zed.Tick
        Console.WriteLine("zed")
    End Sub

    Sub OnAlpha() Handles alpha.Tick
        Console.WriteLine("alpha")
    End Sub
End Module

Dim t As New Ticker()
zed = t
alpha = t
t.Fire()
`,
			want: lines("alpha", "zed"),
		},
		{
			name: "lambdas capture locals and parameters",
			src: `
Function MakeAdder(n As Integer)
    Return Function(x As Integer) x + n
End Function

Dim factor = 3
Dim times = Function(x As Integer) x * factor
Dim add5 = MakeAdder(5)
Console.WriteLine(times(4))
Console.WriteLine(add5(10))
`,
			want: lines("12", "15"),
		},
		{
			name: "ctype trycast and directcast",
			src: `
Class Shape
End Class

Class Circle
    Inherits Shape
End Class

Dim s As Shape = New Circle()
Dim o As Object = New Shape()
Console.WriteLine(TryCast(s, Circle) IsNot Nothing)
Console.WriteLine(TryCast(o, Circle) Is Nothing)
Console.WriteLine(TypeOf s Is Shape)
Console.WriteLine(CType("42", Integer) + 1)
Try
    Dim bad = DirectCast(o, Circle)
Catch ex As InvalidCastException
    Console.WriteLine("invalid cast")
End Try
`,
			want: lines("True", "True", "True", "43", "invalid cast"),
		},
		{
			name: "division by zero is catchable",
			src: `
Try
    Dim n = 10 Mod 0
Catch ex As DivideByZeroException
    Console.WriteLine("caught")
End Try
`,
			want: lines("caught"),
		},
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

func TestUncaughtExceptionReturnsError(t *testing.T) {
	_, err := runProgram(t, `Throw New ArgumentException("bad input")`)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected a message")
	}
}

func TestIntegerDivisionByZeroReportsKind(t *testing.T) {
	for _, src := range []string{"Dim x = 5 \\ 0", "Dim x = 5 / 0", "Dim x = 5 Mod 0"} {
		_, err := runProgram(t, src)
		var rerr *runtime.Error
		if !errors.As(err, &rerr) {
			t.Fatalf("%s: expected runtime error, got %v", src, err)
		}
		if rerr.Kind != runtime.ErrDivisionByZero {
			t.Fatalf("%s: expected DivisionByZero, got %v", src, rerr.Kind)
		}
	}
}

func TestOperators(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]string{
		`1 + 2 * 3 ^ 2`:            "19",
		`-2 ^ 2`:                   "-4",
		`"a" & 1 + 2`:              "a3",
		`Not True And False`:       "False",
		`7 / 2`:                    "3.5",
		`7 \ 2`:                    "3",
		`-7 \ 2`:                   "-3",
		`-7 Mod 3`:                 "-1",
		`7.5 Mod 2`:                "1.5",
		`1 << 4`:                   "16",
		`TypeName(2147483647 + 1)`: "Long",
		`TypeName(1 + 1.5)`:        "Double",
		`TypeName(7 \ 2)`:          "Integer",
		`TypeName(10 / 5)`:         "Double",
		`TypeName(CLng(3) * 2)`:    "Long",
		`TypeName(CSng(1.5) + 1)`:  "Single",
		`"abc" < "abd"`:            "True",
		`3 = 3.0`:                  "True",
		`False AndAlso 1 \ 0 = 0`:  "False",
	}
	for src, want := range cases {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}
