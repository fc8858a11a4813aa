package interpreter

import (
	"strings"
	"testing"

	"vybe/interpreter-go/pkg/parser"
	"vybe/interpreter-go/pkg/runtime"
)

// runProgram parses and runs src in a fresh interpreter.
func runProgram(t *testing.T, src string) (*Interpreter, error) {
	t.Helper()
	program, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	interp := New(WithSeed(1))
	t.Cleanup(func() {
		if err := interp.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return interp, interp.Run(program)
}

// mustRun runs src and returns everything written to the console.
func mustRun(t *testing.T, src string) (*Interpreter, string) {
	t.Helper()
	interp, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return interp, consoleOutput(interp.SideEffects.Drain())
}

func consoleOutput(effects []runtime.SideEffect) string {
	var sb strings.Builder
	for _, effect := range effects {
		if out, ok := effect.(runtime.ConsoleOutput); ok {
			sb.WriteString(out.Text)
		}
	}
	return sb.String()
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

func mustEval(t *testing.T, interp *Interpreter, src string) runtime.Value {
	t.Helper()
	expr, err := parser.ParseExpression(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	val, err := interp.EvaluateExpression(expr)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return val
}
