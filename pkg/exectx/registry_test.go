package exectx

import (
	"sync"
	"testing"
	"time"
)

func TestCurrentIsNoneWhenStackEmpty(t *testing.T) {
	if got := Current(); got != nil {
		t.Fatalf("Current() = %v on a fresh goroutine, want nil", got)
	}
}

func TestAttachCurrentDetach(t *testing.T) {
	ctx := New("c", "", nil, ChildOf, nowNanos(), nowNanos()+int64(time.Second))
	h := Attach(ctx)
	if got := Current(); got != ctx {
		t.Fatalf("Current() = %v, want %v", got, ctx)
	}
	if err := h.Detach(); err != nil {
		t.Fatalf("Detach returned error: %v", err)
	}
	if got := Current(); got != nil {
		t.Fatalf("Current() after Detach = %v, want nil", got)
	}
}

func TestNestedAttachIsStackOrdered(t *testing.T) {
	outer := New("outer", "", nil, ChildOf, nowNanos(), nowNanos()+int64(time.Second))
	inner := New("inner", "", outer, ChildOf, nowNanos(), nowNanos()+int64(time.Second))

	hOuter := Attach(outer)
	hInner := Attach(inner)

	if got := Current(); got != inner {
		t.Fatalf("Current() = %v, want inner %v", got, inner)
	}
	if err := hInner.Detach(); err != nil {
		t.Fatalf("inner Detach error: %v", err)
	}
	if got := Current(); got != outer {
		t.Fatalf("Current() after inner detach = %v, want outer %v", got, outer)
	}
	if err := hOuter.Detach(); err != nil {
		t.Fatalf("outer Detach error: %v", err)
	}
}

func TestDetachFromWrongGoroutineIsMisuse(t *testing.T) {
	ctx := New("c", "", nil, ChildOf, nowNanos(), nowNanos()+int64(time.Second))
	h := Attach(ctx)

	var wg sync.WaitGroup
	var misuseErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		misuseErr = h.Detach()
	}()
	wg.Wait()

	if misuseErr == nil {
		t.Fatal("Detach from a different goroutine succeeded, want MisuseError")
	}
	var me *MisuseError
	if !asMisuseError(misuseErr, &me) {
		t.Fatalf("error = %v, want *MisuseError", misuseErr)
	}

	if err := h.Detach(); err != nil {
		t.Fatalf("Detach from the original goroutine should still succeed: %v", err)
	}
}

func TestDetachLeakedSiblingIsMisuse(t *testing.T) {
	first := New("first", "", nil, ChildOf, nowNanos(), nowNanos()+int64(time.Second))
	second := New("second", "", nil, ChildOf, nowNanos(), nowNanos()+int64(time.Second))

	hFirst := Attach(first)
	hSecond := Attach(second)
	_ = hSecond

	if err := hFirst.Detach(); err == nil {
		t.Fatal("detaching a non-top handle succeeded, want MisuseError")
	}

	if err := hSecond.Detach(); err != nil {
		t.Fatalf("Detach of actual top failed: %v", err)
	}
	if err := hFirst.Detach(); err != nil {
		t.Fatalf("Detach of first after unwinding second failed: %v", err)
	}
}

func asMisuseError(err error, target **MisuseError) bool {
	me, ok := err.(*MisuseError)
	if !ok {
		return false
	}
	*target = me
	return true
}
