package interpreter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQueryExpressions(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "where order select",
			src: `
Dim nums() As Integer = {5, 3, 8, 1}
Dim q = From n In nums Where n > 2 Order By n Descending Select n * 10
For Each x In q
    Console.WriteLine(x)
Next
`,
			want: lines("80", "50", "30"),
		},
		{
			name: "let binding",
			src: `
Dim words() As String = {"pear", "fig", "banana"}
Dim q = From w In words Let size = w.Length Where size > 3 Order By size Select w & ":" & size
Console.WriteLine(String.Join(",", q))
`,
			want: lines("pear:4,banana:6"),
		},
		{
			name: "no select yields range variable",
			src: `
Dim nums() As Integer = {3, 1, 2}
Dim q = From n In nums Order By n
Console.WriteLine(String.Join(",", q))
`,
			want: lines("1,2,3"),
		},
		{
			name: "extension methods",
			src: `
Dim nums As New List(Of Integer)
nums.AddRange(New Integer() {4, 1, 3, 2})
Console.WriteLine(nums.Where(Function(n) n Mod 2 = 0).Sum())
Console.WriteLine(String.Join(",", nums.OrderBy(Function(n) n).Select(Function(n) n * n)))
Console.WriteLine(nums.Any(Function(n) n > 3) & " " & nums.Count(Function(n) n > 1))
`,
			want: lines("6", "1,4,9,16", "True 3"),
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
