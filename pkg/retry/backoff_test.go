package retry

import (
	"testing"
	"time"
)

func TestXorShift32Deterministic(t *testing.T) {
	a := NewXorShift32(42)
	b := NewXorShift32(42)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("two generators seeded identically diverged at iteration %d", i)
		}
	}
}

func TestXorShift32ZeroSeedRemapped(t *testing.T) {
	x := NewXorShift32(0)
	if x.state == 0 {
		t.Fatal("zero seed was not remapped away from the fixed point")
	}
}

func TestInt63nRange(t *testing.T) {
	x := NewXorShift32(7)
	for i := 0; i < 1000; i++ {
		v := x.Int63n(10)
		if v < 0 || v >= 10 {
			t.Fatalf("Int63n(10) = %d, want in [0,10)", v)
		}
	}
}

func TestInt63nNonPositiveBound(t *testing.T) {
	x := NewXorShift32(7)
	if v := x.Int63n(0); v != 0 {
		t.Fatalf("Int63n(0) = %d, want 0", v)
	}
	if v := x.Int63n(-5); v != 0 {
		t.Fatalf("Int63n(-5) = %d, want 0", v)
	}
}

func TestFibonacciBackoffImmediateRetriesAreZeroDelay(t *testing.T) {
	b := NewFibonacciBackoff(3, 10*time.Millisecond, 100*time.Millisecond, 1)
	key := "k"
	for i := 0; i < 3; i++ {
		if d := b.NextDelay(key, false); d != 0 {
			t.Fatalf("immediate retry %d = %v, want 0", i, d)
		}
	}
	if d := b.NextDelay(key, false); d == 0 {
		t.Log("delayed retry happened to draw 0, which is a valid (if unlikely) uniform outcome")
	}
}

func TestFibonacciBackoffNeverExceedsMaxDelay(t *testing.T) {
	b := NewFibonacciBackoff(0, 10*time.Millisecond, 40*time.Millisecond, 3)
	key := "k"
	for i := 0; i < 50; i++ {
		d := b.NextDelay(key, false)
		if d < 0 || d > 40*time.Millisecond {
			t.Fatalf("NextDelay returned %v at iteration %d, want within [0, 40ms]", d, i)
		}
	}
}

func TestFibonacciBackoffSkipImmediateOnDelayedClassification(t *testing.T) {
	b := NewFibonacciBackoff(5, 10*time.Millisecond, 100*time.Millisecond, 1)
	key := "never-seen"
	if left := b.ImmediateLeft(key); left != 5 {
		t.Fatalf("ImmediateLeft before first use = %d, want 5", left)
	}
	b.NextDelay(key, true)
	if left := b.ImmediateLeft(key); left != 0 {
		t.Fatalf("ImmediateLeft after skipImmediate init = %d, want 0", left)
	}
}

func TestFibonacciBackoffIndependentKeys(t *testing.T) {
	b := NewFibonacciBackoff(2, 10*time.Millisecond, 100*time.Millisecond, 1)
	b.NextDelay("a", false)
	b.NextDelay("a", false)
	if left := b.ImmediateLeft("a"); left != 0 {
		t.Fatalf("key a ImmediateLeft = %d, want 0", left)
	}
	if left := b.ImmediateLeft("b"); left != 2 {
		t.Fatalf("key b ImmediateLeft = %d, want 2 (unaffected by key a)", left)
	}
}

func TestRandomizedBackoffBoundedByInner(t *testing.T) {
	inner := FixedDelay(20 * time.Millisecond)
	r := NewRandomizedBackoff(inner, 9)
	for i := 0; i < 100; i++ {
		d := r.Next()
		if d < 0 || d >= 20*time.Millisecond {
			t.Fatalf("Next() = %v, want within [0, 20ms)", d)
		}
	}
}

func TestRandomizedBackoffZeroInner(t *testing.T) {
	r := NewRandomizedBackoff(FixedDelay(0), 1)
	if d := r.Next(); d != 0 {
		t.Fatalf("Next() with zero inner = %v, want 0", d)
	}
}
