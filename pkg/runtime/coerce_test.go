package runtime

import (
	"testing"
	"time"
)

func TestVal(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"  -12.5xyz", -12.5},
		{"", 0},
		{"abc", 0},
		{"42", 42},
		{"1 2 3", 123},
		{"3.14.15", 3.14},
		{"1e3x", 1000},
		{"2e", 2},
		{"&HFF", 255},
		{"&O17", 15},
		{"+7", 7},
	}
	for _, tc := range cases {
		if got := Val(tc.in); got != tc.want {
			t.Fatalf("Val(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStr(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{IntegerValue{Val: 5}, " 5"},
		{IntegerValue{Val: -5}, "-5"},
		{DoubleValue{Val: 2.5}, " 2.5"},
		{IntegerValue{Val: 0}, " 0"},
		{StringValue{Val: "x"}, "x"},
	}
	for _, tc := range cases {
		if got := Str(tc.in); got != tc.want {
			t.Fatalf("Str(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAsString(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{BoolValue{Val: true}, "True"},
		{BoolValue{Val: false}, "False"},
		{Nothing, "Nothing"},
		{DoubleValue{Val: 0.1}, "0.1"},
		{DoubleValue{Val: 3}, "3"},
		{SingleValue{Val: 1.5}, "1.5"},
		{CharValue{Val: 'z'}, "z"},
		{DateValue{Val: 0}, "12/30/1899 00:00:00"},
		{DateValue{Val: 43832.5}, "01/02/2020 12:00:00"},
		{NewArray(nil), "[Array]"},
		{NewObject("Customer"), "[Object Customer]"},
		{NewDictionary(), "[Dictionary Count=0]"},
	}
	for _, tc := range cases {
		if got := AsString(tc.in); got != tc.want {
			t.Fatalf("AsString(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAsIntegerCoercions(t *testing.T) {
	cases := []struct {
		in   Value
		want int32
	}{
		{BoolValue{Val: true}, -1},
		{Nothing, 0},
		{StringValue{Val: "&H10"}, 16},
		{StringValue{Val: "&o10"}, 8},
		{StringValue{Val: " 12 "}, 12},
		{DoubleValue{Val: 7.9}, 7},
		{CharValue{Val: 'A'}, 65},
	}
	for _, tc := range cases {
		got, err := AsInteger(tc.in)
		if err != nil {
			t.Fatalf("AsInteger(%#v): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("AsInteger(%#v) = %d, want %d", tc.in, got, tc.want)
		}
	}
	_, err := AsInteger(StringValue{Val: "twelve"})
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != ErrTypeMismatch {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestAsBool(t *testing.T) {
	cases := []struct {
		in   Value
		want bool
	}{
		{StringValue{Val: "TRUE"}, true},
		{StringValue{Val: "false"}, false},
		{StringValue{Val: "0"}, false},
		{StringValue{Val: "2.5"}, true},
		{StringValue{Val: "yes"}, true},
		{StringValue{Val: ""}, false},
		{IntegerValue{Val: 0}, false},
		{Nothing, false},
		{NewObject("X"), true},
	}
	for _, tc := range cases {
		got, err := AsBool(tc.in)
		if err != nil {
			t.Fatalf("AsBool(%#v): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("AsBool(%#v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := AsBool(CharValue{Val: 'x'}); err == nil {
		t.Fatalf("expected Char to Boolean to fail")
	}
}

func TestAsByteOverflow(t *testing.T) {
	if _, err := AsByte(IntegerValue{Val: 256}); err == nil {
		t.Fatalf("expected overflow")
	}
	got, err := AsByte(StringValue{Val: "200"})
	if err != nil || got != 200 {
		t.Fatalf("AsByte(\"200\") = %d, %v", got, err)
	}
}

func TestOLEDateRoundTrip(t *testing.T) {
	d, ok := ParseDate("1/2/2020")
	if !ok {
		t.Fatalf("ParseDate failed")
	}
	if d != 43832 {
		t.Fatalf("expected 43832, got %v", d)
	}
	when := time.Date(2021, time.March, 4, 18, 30, 15, 0, time.UTC)
	back := OLEToTime(TimeToOLE(when))
	if !back.Equal(when) {
		t.Fatalf("round trip mismatch: %v vs %v", back, when)
	}
	if got := AsString(DateValue{Val: -1.25}); got != "12/29/1899 06:00:00" {
		t.Fatalf("negative OLE date rendered as %q", got)
	}
}

func TestParseTimeOnly(t *testing.T) {
	d, ok := ParseDate("6:00 PM")
	if !ok {
		t.Fatalf("ParseDate failed")
	}
	if d != 0.75 {
		t.Fatalf("expected 0.75, got %v", d)
	}
}
