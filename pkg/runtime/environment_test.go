package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvironmentIsCaseInsensitive(t *testing.T) {
	env := NewEnvironment()
	env.Define("X", IntegerValue{Val: 1})
	got, err := env.Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (IntegerValue{Val: 1}) {
		t.Fatalf("expected 1, got %#v", got)
	}
	if err := env.Set("x", IntegerValue{Val: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = env.Get("X")
	if got != (IntegerValue{Val: 2}) {
		t.Fatalf("expected 2, got %#v", got)
	}
}

func TestEnvironmentConstantsRejectAssignment(t *testing.T) {
	env := NewEnvironment()
	env.DefineConst("Limit", IntegerValue{Val: 10})
	err := env.Set("LIMIT", IntegerValue{Val: 11})
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != ErrConstantAssignment {
		t.Fatalf("expected constant assignment error, got %v", err)
	}
	if rerr.Error() != "Cannot assign to constant 'LIMIT'" {
		t.Fatalf("unexpected message %q", rerr.Error())
	}
	got, _ := env.Get("limit")
	if got != (IntegerValue{Val: 10}) {
		t.Fatalf("constant changed to %#v", got)
	}
}

func TestEnvironmentUndefinedVariable(t *testing.T) {
	env := NewEnvironment()
	_, err := env.Get("missing")
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != ErrUndefinedVariable || rerr.Name != "missing" {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
}

func TestEnvironmentScopes(t *testing.T) {
	env := NewEnvironment()
	env.DefineGlobal("g", StringValue{Val: "global"})
	env.PushScope()
	env.Define("local", IntegerValue{Val: 1})
	if !env.HasLocal("LOCAL") {
		t.Fatalf("expected local binding")
	}
	if env.HasLocal("g") {
		t.Fatalf("global reported as local")
	}
	if err := env.Set("fresh", BoolValue{Val: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !env.HasInCurrentScope("fresh") {
		t.Fatalf("Set on an unknown name should define in the current scope")
	}
	env.PopScope()
	if env.Has("local") || env.Has("fresh") {
		t.Fatalf("block bindings leaked after PopScope")
	}
	env.PopScope()
	if v, ok := env.GetGlobal("G"); !ok || v != (StringValue{Val: "global"}) {
		t.Fatalf("global scope popped: %#v", v)
	}
}

func TestEnvironmentFramesHideCallerLocals(t *testing.T) {
	env := NewEnvironment()
	env.DefineGlobal("shared", IntegerValue{Val: 0})
	env.PushScope()
	env.Define("callerOnly", IntegerValue{Val: 7})

	env.EnterFrame()
	if env.Has("callerOnly") {
		t.Fatalf("callee sees caller locals")
	}
	if err := env.Set("shared", IntegerValue{Val: 5}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.Define("calleeOnly", IntegerValue{Val: 1})
	env.LeaveFrame()

	if env.Has("calleeOnly") {
		t.Fatalf("callee locals leaked")
	}
	got, err := env.Get("callerOnly")
	if err != nil || got != (IntegerValue{Val: 7}) {
		t.Fatalf("caller locals not restored: %#v %v", got, err)
	}
	got, _ = env.Get("shared")
	if got != (IntegerValue{Val: 5}) {
		t.Fatalf("global update lost: %#v", got)
	}
}

func TestEnvironmentSnapshotSkipsGlobals(t *testing.T) {
	env := NewEnvironment()
	env.DefineGlobal("g", IntegerValue{Val: 1})
	env.PushScope()
	env.Define("a", IntegerValue{Val: 2})
	env.PushScope()
	env.Define("A", IntegerValue{Val: 3})
	env.Define("b", IntegerValue{Val: 4})

	want := map[string]Value{"a": IntegerValue{Val: 3}, "b": IntegerValue{Val: 4}}
	if diff := cmp.Diff(want, env.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, env.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}
