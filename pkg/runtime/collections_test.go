package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDictionaryStringKeysIgnoreCase(t *testing.T) {
	d := NewDictionary()
	d.Set(StringValue{Val: "Apple"}, IntegerValue{Val: 1})
	d.Set(StringValue{Val: "APPLE"}, IntegerValue{Val: 2})
	if d.Count() != 1 {
		t.Fatalf("expected one key, got %d", d.Count())
	}
	got, ok := d.Get(StringValue{Val: "apple"})
	if !ok || got != (IntegerValue{Val: 2}) {
		t.Fatalf("lookup mismatch: %#v %v", got, ok)
	}
	if diff := cmp.Diff([]Value{StringValue{Val: "Apple"}}, d.Keys()); diff != "" {
		t.Fatalf("first spelling not kept (-want +got):\n%s", diff)
	}
	if err := d.Add(StringValue{Val: "aPPle"}, Nothing); err == nil {
		t.Fatalf("expected duplicate Add to fail")
	}
}

func TestDictionaryNonStringKeysAreStructural(t *testing.T) {
	d := NewDictionary()
	d.Set(IntegerValue{Val: 1}, StringValue{Val: "one"})
	if _, ok := d.Get(LongValue{Val: 1}); !ok {
		t.Fatalf("numeric widths should share keys")
	}
	if _, ok := d.Get(StringValue{Val: "1"}); ok {
		t.Fatalf("string \"1\" must not match integer 1")
	}
	d.Set(NewArray([]Value{IntegerValue{Val: 1}, StringValue{Val: "a"}}), BoolValue{Val: true})
	if !d.ContainsKey(NewArray([]Value{IntegerValue{Val: 1}, StringValue{Val: "A"}})) {
		t.Fatalf("array keys should compare element-wise")
	}

	a, b := NewObject("Point"), NewObject("Point")
	d.Set(a, IntegerValue{Val: 9})
	if d.ContainsKey(b) {
		t.Fatalf("class instances compare by identity")
	}
	if !d.Remove(a) || d.ContainsKey(a) {
		t.Fatalf("Remove failed")
	}
	if d.Count() != 2 {
		t.Fatalf("expected 2 keys, got %d", d.Count())
	}
}

func TestDictionaryRemoveKeepsOrder(t *testing.T) {
	d := NewDictionary()
	for _, k := range []string{"a", "b", "c"} {
		d.Set(StringValue{Val: k}, StringValue{Val: k})
	}
	d.Remove(StringValue{Val: "b"})
	d.Set(StringValue{Val: "c"}, StringValue{Val: "C"})
	want := []Value{StringValue{Val: "a"}, StringValue{Val: "C"}}
	if diff := cmp.Diff(want, d.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestListIndexing(t *testing.T) {
	legacy := NewList("Collection")
	legacy.Add(StringValue{Val: "first"})
	if _, err := legacy.Index(0); err == nil {
		t.Fatalf("Collection is one-based")
	}
	if offset, err := legacy.Index(1); err != nil || offset != 0 {
		t.Fatalf("Index(1) = %d, %v", offset, err)
	}

	list := NewList("List")
	list.Add(IntegerValue{Val: 1})
	list.Add(IntegerValue{Val: 3})
	if err := list.Insert(1, IntegerValue{Val: 2}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	want := []Value{IntegerValue{Val: 1}, IntegerValue{Val: 2}, IntegerValue{Val: 3}}
	if diff := cmp.Diff(want, list.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if !list.Remove(IntegerValue{Val: 2}) || list.IndexOf(IntegerValue{Val: 3}) != 1 {
		t.Fatalf("Remove/IndexOf mismatch: %#v", list.Items)
	}
}

func TestQueueAndStack(t *testing.T) {
	q := &QueueValue{}
	q.Enqueue(IntegerValue{Val: 1})
	q.Enqueue(IntegerValue{Val: 2})
	head, err := q.Dequeue()
	if err != nil || head != (IntegerValue{Val: 1}) {
		t.Fatalf("Dequeue = %#v, %v", head, err)
	}

	s := &StackValue{}
	s.Push(IntegerValue{Val: 1})
	s.Push(IntegerValue{Val: 2})
	if diff := cmp.Diff([]Value{IntegerValue{Val: 2}, IntegerValue{Val: 1}}, s.TopFirst()); diff != "" {
		t.Fatalf("stack order mismatch (-want +got):\n%s", diff)
	}
	top, _ := s.Pop()
	if top != (IntegerValue{Val: 2}) {
		t.Fatalf("Pop = %#v", top)
	}
	s.Pop()
	if _, err := s.Pop(); err == nil {
		t.Fatalf("expected empty stack error")
	}
}

func TestHashSetDeduplicates(t *testing.T) {
	set := NewHashSet()
	if !set.Add(StringValue{Val: "x"}) || set.Add(StringValue{Val: "X"}) {
		t.Fatalf("expected case-insensitive dedupe")
	}
	set.Add(IntegerValue{Val: 2})
	set.Remove(StringValue{Val: "x"})
	if diff := cmp.Diff([]Value{IntegerValue{Val: 2}}, set.Items()); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyValueSemantics(t *testing.T) {
	arr := NewArray([]Value{IntegerValue{Val: 1}})
	copied := CopyValue(arr).(*ArrayValue)
	copied.Elements[0] = IntegerValue{Val: 2}
	if arr.Elements[0] != (IntegerValue{Val: 1}) {
		t.Fatalf("array copy aliases the original")
	}

	obj := NewObject("Customer")
	if CopyValue(obj) != Value(obj) {
		t.Fatalf("class instances must be shared")
	}

	st := NewObject("Point")
	st.IsStruct = true
	st.Set("X", IntegerValue{Val: 1})
	clone := CopyValue(st).(*ObjectValue)
	clone.Set("x", IntegerValue{Val: 5})
	if st.Get("x") != (IntegerValue{Val: 1}) {
		t.Fatalf("structure copy aliases the original")
	}
}

func TestVarTypeAndTypeName(t *testing.T) {
	cases := []struct {
		in       Value
		varType  int32
		typeName string
	}{
		{Nothing, 1, "Nothing"},
		{IntegerValue{}, 2, "Integer"},
		{LongValue{}, 3, "Long"},
		{DoubleValue{}, 5, "Double"},
		{StringValue{}, 8, "String"},
		{BoolValue{}, 11, "Boolean"},
		{NewArray(nil), 8192, "Variant()"},
		{NewObject("Form1"), 9, "Form1"},
	}
	for _, tc := range cases {
		if got := VarType(tc.in); got != tc.varType {
			t.Fatalf("VarType(%#v) = %d, want %d", tc.in, got, tc.varType)
		}
		if got := TypeName(tc.in); got != tc.typeName {
			t.Fatalf("TypeName(%#v) = %q, want %q", tc.in, got, tc.typeName)
		}
	}
}
