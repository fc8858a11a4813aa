package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEventSystemOrderAndDuplicates(t *testing.T) {
	events := NewEventSystem()
	events.Register("btnOK", "Click", "First")
	events.Register("BTNOK", "click", "Second")
	events.Register("btnok", "CLICK", "First")

	want := []string{"First", "Second", "First"}
	if diff := cmp.Diff(want, events.Handlers("btnOk", "Click")); diff != "" {
		t.Fatalf("handlers mismatch (-want +got):\n%s", diff)
	}

	events.Remove("btnOK", "Click", "first")
	want = []string{"Second", "First"}
	if diff := cmp.Diff(want, events.Handlers("btnOK", "Click")); diff != "" {
		t.Fatalf("handlers after remove mismatch (-want +got):\n%s", diff)
	}
}

func TestEventSystemAddThenRemoveLeavesNothing(t *testing.T) {
	events := NewEventSystem()
	events.Register("ctrl", "Click", "H")
	events.Remove("ctrl", "Click", "H")
	if got := events.Handlers("ctrl", "Click"); len(got) != 0 {
		t.Fatalf("expected no handlers, got %v", got)
	}
	events.Remove("ctrl", "Click", "H")
}

func TestSideEffectQueueDrainsInOrder(t *testing.T) {
	var q SideEffectQueue
	q.Push(ConsoleOutput{Text: "a"})
	q.Push(MsgBox{Text: "b"})
	if q.Len() != 2 {
		t.Fatalf("expected 2 effects, got %d", q.Len())
	}
	want := []SideEffect{ConsoleOutput{Text: "a"}, MsgBox{Text: "b"}}
	if diff := cmp.Diff(want, q.Drain()); diff != "" {
		t.Fatalf("effects mismatch (-want +got):\n%s", diff)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not emptied")
	}
}
