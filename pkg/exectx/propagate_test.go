package exectx

import (
	"testing"
	"time"
)

func TestPropagatingFuncRunsUnderChildContext(t *testing.T) {
	parent := StartRoot("parent", time.Second)
	var observed *ExecutionContext
	var closedWhileRunning bool

	wrapped := PropagatingFunc(parent, "child", func() (string, error) {
		observed = Current()
		if observed != nil {
			closedWhileRunning = observed.Closed()
		}
		return "ok", nil
	})

	result, err := wrapped()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("result = %q, want ok", result)
	}
	if observed == nil {
		t.Fatal("op observed no current context")
	}
	if observed.Parent() != parent {
		t.Fatalf("child's parent = %v, want %v", observed.Parent(), parent)
	}
	if closedWhileRunning != false {
		t.Fatal("child reported closed while op was running")
	}
}

func TestPropagatingFuncClosesChildAfterReturn(t *testing.T) {
	parent := StartRoot("parent", time.Second)
	var captured *ExecutionContext

	wrapped := PropagatingFunc(parent, "child", func() (int, error) {
		captured = Current()
		return 1, nil
	})
	if _, err := wrapped(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !captured.Closed() {
		t.Fatal("child not closed after wrapped op returned")
	}
	if Current() != nil {
		t.Fatal("ambient stack leaked the child context after wrapped op returned")
	}
}

func TestPropagatingFuncRunsEvenIfParentExpired(t *testing.T) {
	parent := New("parent", "", nil, ChildOf, nowNanos()-int64(time.Second), nowNanos()-int64(time.Millisecond))
	ran := false

	wrapped := PropagatingFunc(parent, "child", func() (int, error) {
		ran = true
		if _, err := TimeToDeadline(Current()); err == nil {
			t.Fatal("child of an expired parent should itself be expired")
		}
		return 0, nil
	})
	if _, err := wrapped(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("wrapped op did not run despite expired parent; spec requires it to run regardless")
	}
}

func TestPropagatingFuncsPreservesOrderAndLength(t *testing.T) {
	parent := StartRoot("parent", time.Second)
	ops := []func() (int, error){
		func() (int, error) { return 1, nil },
		func() (int, error) { return 2, nil },
		func() (int, error) { return 3, nil },
	}
	wrapped := PropagatingFuncs(parent, "child", ops)
	if len(wrapped) != len(ops) {
		t.Fatalf("len(wrapped) = %d, want %d", len(wrapped), len(ops))
	}
	for i, w := range wrapped {
		got, err := w()
		if err != nil {
			t.Fatalf("unexpected error at index %d: %v", i, err)
		}
		if got != i+1 {
			t.Fatalf("wrapped[%d]() = %d, want %d", i, got, i+1)
		}
	}
}

func TestDeadlinedPropagatingFuncClampsToParent(t *testing.T) {
	parent := StartRoot("parent", 10*time.Millisecond)
	var child *ExecutionContext
	wrapped := DeadlinedPropagatingFunc(parent, "child", nowNanos()+int64(time.Hour), func() (int, error) {
		child = Current()
		return 0, nil
	})
	if _, err := wrapped(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if child.DeadlineNanos() != parent.DeadlineNanos() {
		t.Fatalf("child deadline = %d, want clamped to parent deadline %d", child.DeadlineNanos(), parent.DeadlineNanos())
	}
}

func TestStartChildInheritsTighterDeadline(t *testing.T) {
	parent := StartRoot("parent", 100*time.Millisecond)
	child := StartChild(parent, "child", ChildOf, time.Second)
	if child.DeadlineNanos() != parent.DeadlineNanos() {
		t.Fatalf("child.DeadlineNanos() = %d, want parent's tighter deadline %d", child.DeadlineNanos(), parent.DeadlineNanos())
	}
}
