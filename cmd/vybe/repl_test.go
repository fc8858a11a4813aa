package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/interpreter"
)

func TestReplSessionKeepsStateAcrossInputs(t *testing.T) {
	interp := interpreter.New()
	defer interp.Close()
	var out, errOut bytes.Buffer
	session := newReplSession(interp, &out, &errOut)

	inputs := []struct {
		line string
		more bool
	}{
		{"Dim total As Integer = 40", false},
		{"Function AddTwo(n As Integer) As Integer", true},
		{"    Return n + 2", true},
		{"End Function", false},
		{"?AddTwo(total)", false},
		{"Console.WriteLine(\"hi\")", false},
		{"", false},
		{"? 1 + 2", false},
	}
	for _, in := range inputs {
		if got := session.feed(in.line); got != in.more {
			t.Fatalf("feed(%q) more = %v, want %v (stderr %q)", in.line, got, in.more, errOut.String())
		}
	}
	if diff := cmp.Diff("42\nhi\n3\n", out.String()); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected errors %q", errOut.String())
	}
}

func TestReplSessionReportsErrors(t *testing.T) {
	interp := interpreter.New()
	defer interp.Close()
	var out, errOut bytes.Buffer
	session := newReplSession(interp, &out, &errOut)

	session.feed("?missing + 1")
	if got := errOut.String(); got != "runtime error: Undefined variable 'missing'\n" {
		t.Fatalf("unexpected stderr %q", got)
	}

	errOut.Reset()
	if !session.feed("If True Then") {
		t.Fatalf("expected an open block")
	}
	if session.feed("") {
		t.Fatalf("a blank line should close the block")
	}
	if errOut.Len() == 0 {
		t.Fatalf("expected a parse error for the unterminated block")
	}
}
