package interpreter

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/runtime"
)

func TestStringBuiltins(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]string{
		`Left("Hello", 2)`:                   "He",
		`Right("Hello", 3)`:                  "llo",
		`Mid("Hello", 2, 3)`:                 "ell",
		`UCase("abc") & LCase("DEF")`:        "ABCdef",
		`Trim("  x  ")`:                      "x",
		`Replace("a-b-c", "-", "+")`:         "a+b+c",
		`StrReverse("abc")`:                  "cba",
		`"Hello".Substring(1, 3)`:            "ell",
		`"a,b,,c".Split(",").Length`:         "4",
		`String.Join("|", "a,b".Split(","))`: "a|b",
		`"x".PadLeft(3, "0"c)`:               "00x",
		`InStr("Hello", "l")`:                "3",
		`"Hello".IndexOf("l")`:               "2",
		`String.Format("{0}-{1}", 1, "b")`:   "1-b",
		`Chr(65) & Asc("B")`:                 "A66",
	}
	for src, want := range cases {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestConversionsAndInfo(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]string{
		`CInt(2.5)`:               "2",
		`CInt(3.5)`:               "4",
		`CStr(True)`:              "True",
		`Hex(255)`:                "FF",
		`TypeName(1.5)`:           "Double",
		`VarType("s")`:            "8",
		`IsNumeric("12")`:         "True",
		`IsNumeric("x")`:          "False",
		`IIf(1 > 2, "a", "b")`:    "b",
		`Integer.Parse("42") + 1`: "43",
	}
	for src, want := range cases {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestTryParseWritesBack(t *testing.T) {
	src := `
Dim n As Integer
Dim ok = Integer.TryParse("17", n)
Console.WriteLine(ok & " " & n)
ok = Integer.TryParse("x", n)
Console.WriteLine(ok & " " & n)
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("True 17", "False 0"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFinancialFunctions(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]float64{
		`Pmt(0.01, 12, -1000)`: 88.84878867834166,
		`FV(0.05, 2, -100)`:    205,
		`SLN(1000, 100, 5)`:    180,
		`SYD(1000, 100, 5, 1)`: 300,
		`DDB(1000, 100, 5, 1)`: 400,
		`Pmt(0, 10, -1000)`:    100,
	}
	for src, want := range cases {
		got, err := runtime.AsDouble(mustEval(t, interp, src))
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s = %v, want %v", src, got, want)
		}
	}
}

func TestHashingAndEncoding(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]string{
		`Convert.ToHexString(MD5.HashData(Encoding.UTF8.GetBytes("abc")))`:   "900150983CD24FB0D6963F7D28E17F72",
		`Convert.ToBase64String(Encoding.UTF8.GetBytes("hello"))`:            "aGVsbG8=",
		`Encoding.UTF8.GetString(Convert.FromBase64String("aGVsbG8="))`:      "hello",
		`BitConverter.ToString(SHA256.HashData(Encoding.UTF8.GetBytes("")))`: "E3-B0-C4-42-98-FC-1C-14-9A-FB-F4-C8-99-6F-B9-24-27-AE-41-E4-64-9B-93-4C-A4-95-99-1B-78-52-B8-55",
		`Guid.NewGuid().ToString().Length`:                                   "36",
	}
	for src, want := range cases {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestRegex(t *testing.T) {
	src := `
Console.WriteLine(Regex.IsMatch("abc123", "\d+"))
Console.WriteLine(Regex.Replace("a1b22", "\d+", "#"))
Dim m = Regex.Match("key=42", "(\w+)=(\d+)")
Console.WriteLine(m.Success & " " & m.Groups(2).Value)
Dim count = 0
For Each hit In Regex.Matches("x1 y2 z3", "\d")
    count += 1
Next
Console.WriteLine(count)
Console.WriteLine(Regex.Replace("John Smith", "(\w+) (\w+)", "$2, $1"))
`
	_, out := mustRun(t, src)
	want := lines("True", "a#b#", "True 42", "3", "Smith, John")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStringBuilderAndRandom(t *testing.T) {
	src := `
Dim sb As New StringBuilder("a")
sb.Append("b").Append(1)
sb.Insert(0, ">")
Console.WriteLine(sb.ToString() & " " & sb.Length)
Dim r1 As New Random(7)
Dim r2 As New Random(7)
Console.WriteLine(r1.Next(100) = r2.Next(100))
Dim v = r1.Next(5, 6)
Console.WriteLine(v)
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines(">ab1 4", "True", "5"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCollections(t *testing.T) {
	src := `
Dim l As New List(Of Integer)
l.Add(3)
l.Add(1)
l.Add(2)
l.Sort()
Console.WriteLine(String.Join(",", l))
Dim q As New Queue(Of String)
q.Enqueue("a")
q.Enqueue("b")
Console.WriteLine(q.Dequeue() & q.Count)
Dim s As New Stack(Of Integer)
s.Push(1)
s.Push(2)
Console.WriteLine(s.Pop())
Dim h As New HashSet(Of String)
h.Add("x")
Console.WriteLine(h.Add("x"))
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("1,2,3", "a1", "2", "False"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestNewBuiltinRejectsUnknownTypes(t *testing.T) {
	_, err := runProgram(t, "Dim x As New Frobnicator()")
	if err == nil {
		t.Fatalf("expected an error for an undefined type")
	}
}

func TestDateBuiltins(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]string{
		`Year(DateSerial(2024, 13, 1))`:                                      "2025",
		`Month(DateSerial(2024, 13, 1))`:                                     "1",
		`Day(DateAdd("m", 1, DateSerial(2024, 1, 31)))`:                      "29",
		`Day(DateAdd("m", 1, DateSerial(2023, 1, 31)))`:                      "28",
		`Year(DateAdd("yyyy", -1, DateSerial(2024, 6, 1)))`:                  "2023",
		`DateDiff("d", DateSerial(2024, 1, 1), DateSerial(2024, 3, 1))`:      "60",
		`DateDiff("m", DateSerial(2023, 11, 15), DateSerial(2024, 2, 1))`:    "3",
		`DateDiff("yyyy", DateSerial(2020, 12, 31), DateSerial(2021, 1, 1))`: "1",
		`DatePart("q", DateSerial(2024, 8, 10))`:                             "3",
		`DatePart("y", DateSerial(2024, 2, 1))`:                              "32",
		`Weekday(DateSerial(2024, 1, 1))`:                                    "2",
		`WeekdayName(2)`:                                                     "Monday",
		`WeekdayName(1, True)`:                                               "Sun",
		`MonthName(2, True)`:                                                 "Feb",
		`MonthName(11)`:                                                      "November",
		`DateTime.DaysInMonth(2023, 2)`:                                      "28",
		`DateTime.IsLeapYear(2024)`:                                          "True",
		`DateSerial(2024, 3, 2) - DateSerial(2024, 3, 1)`:                    "1",
		`Month(DateSerial(2024, 3, 5).AddDays(30))`:                          "4",
		`DateSerial(2024, 1, 31).AddMonths(1).Day`:                           "29",
		`DateSerial(2024, 3, 5).ToString("yyyy-MM-dd")`:                      "2024-03-05",
		`DateSerial(2024, 3, 5).ToString("ddd d MMM yy")`:                    "Tue 5 Mar 24",
		`Hour(DateAdd("h", 13, DateSerial(2024, 3, 5)))`:                     "13",
		`Minute(TimeSerial(13, 30, 0))`:                                      "30",
		`TimeSpan.FromHours(36).Days`:                                        "1",
		`TimeSpan.FromHours(36).Hours`:                                       "12",
	}
	for src, want := range cases {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestFormatting(t *testing.T) {
	interp := New()
	defer interp.Close()
	cases := map[string]string{
		`Format(1234567.891, "#,##0.00")`:                         "1,234,567.89",
		`Format(5, "000")`:                                        "005",
		`Format(0.5, "0.0%")`:                                     "50.0%",
		`Format(0.25, "0%")`:                                      "25%",
		`Format(-3, "0;(0)")`:                                     "(3)",
		`Format(12345, "0.00E+00")`:                               "1.23E+04",
		`Format(1234.5, "N2")`:                                    "1,234.50",
		`Format(-5, "C")`:                                         "($5.00)",
		`Format(42, "D5")`:                                        "00042",
		`Format(255, "X4")`:                                       "00FF",
		`Format(3.14159, "F3")`:                                   "3.142",
		`Format(2.5, "0")`:                                        "3",
		`Format(True, "Yes/No")`:                                  "Yes",
		`Format("abc", ">")`:                                      "ABC",
		`Format(DateSerial(2024, 3, 5), "Long Date")`:             "Tuesday, March 5, 2024",
		`Format(DateSerial(2024, 3, 5), "Short Date")`:            "3/5/2024",
		`FormatNumber(1234.567, 1)`:                               "1,234.6",
		`FormatCurrency(9.5)`:                                     "$9.50",
		`FormatPercent(0.125, 1)`:                                 "12.5%",
		`CDbl(1234.5).ToString("N1")`:                             "1,234.5",
		`String.Format("{0,5}|{1,-4}|{2:N1}", 42, "ab", 1234.56)`: "   42|ab  |1,234.6",
		`String.Format("{{{0}}}", 7)`:                             "{7}",
	}
	for src, want := range cases {
		if got := displayString(mustEval(t, interp, src)); got != want {
			t.Fatalf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestFormatRejectsBadCompositeIndex(t *testing.T) {
	_, err := runProgram(t, `Console.WriteLine(String.Format("{1}", "only"))`)
	if err == nil {
		t.Fatalf("expected a FormatException")
	}
}

func TestListAndDictionaryMethods(t *testing.T) {
	src := `
Dim l As New List(Of Integer) From {5, 3, 8, 1}
l.Insert(1, 9)
l.RemoveAt(0)
Console.WriteLine(String.Join(",", l))
Console.WriteLine(l.IndexOf(8) & " " & l.Contains(4))
Console.WriteLine(l.RemoveAll(Function(n) n > 5))
Console.WriteLine(String.Join(",", l))
l.AddRange(New Integer() {7, 2})
Console.WriteLine(String.Join(",", l.GetRange(1, 2)))
l.Reverse()
Console.WriteLine(String.Join(",", l))
Console.WriteLine(l.Sum() & " " & l.Max() & " " & l.First(Function(n) n > 2))

Dim d As New Dictionary(Of String, Integer)
d.Add("b", 2)
d("a") = 1
Dim v As Integer
Console.WriteLine(d.TryGetValue("a", v) & " " & v)
Console.WriteLine(d.TryGetValue("z", v) & " " & v)
Console.WriteLine(d.GetValueOrDefault("z", 9))
Console.WriteLine(String.Join(",", d.Keys))
Console.WriteLine(d.Remove("b") & " " & d.Count & " " & d.ContainsValue(1))

Dim h As New HashSet(Of Integer) From {1, 2, 3}
h.IntersectWith(New Integer() {2, 3, 4})
Console.WriteLine(h.Count & " " & h.Contains(1))
`
	_, out := mustRun(t, src)
	want := lines(
		"9,3,8,1",
		"2 False",
		"2",
		"3,1",
		"1,7",
		"2,7,1,3",
		"13 7 7",
		"True 1",
		"False 0",
		"9",
		"b,a",
		"True 1 True",
		"2 False",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDictionaryAddRejectsDuplicateKey(t *testing.T) {
	src := `
Dim d As New Dictionary(Of String, Integer)
d.Add("k", 1)
d.Add("K", 2)
`
	_, err := runProgram(t, src)
	var rerr *runtime.Error
	if !errors.As(err, &rerr) || !rerr.Matches("ArgumentException") {
		t.Fatalf("expected ArgumentException, got %v", err)
	}
}
