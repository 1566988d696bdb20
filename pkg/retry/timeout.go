package retry

import (
	"context"
	"time"
)

// TimeoutCallable wraps an ExecuteFunc together with a deadline computed
// once, at construction, rather than recomputed on every attempt. Spec.md
// §4.7/§6 names this as the abstract operation a predicate or backoff
// strategy consults to learn how much budget remains, instead of each one
// independently calling "now + timeout" and drifting apart attempt to
// attempt.
type TimeoutCallable[T any] struct {
	fn            ExecuteFunc[T]
	deadlineNanos int64
	hasDeadline   bool
}

// NewTimeoutCallable constructs a TimeoutCallable whose deadline is
// now+timeout. A non-positive timeout leaves the callable with no
// deadline at all.
func NewTimeoutCallable[T any](fn ExecuteFunc[T], timeout time.Duration) *TimeoutCallable[T] {
	c := &TimeoutCallable[T]{fn: fn}
	if timeout > 0 {
		c.deadlineNanos = time.Now().Add(timeout).UnixNano()
		c.hasDeadline = true
	}
	return c
}

// NewDeadlinedCallable constructs a TimeoutCallable against an explicit
// absolute deadline in Unix nanoseconds, e.g. one inherited from an
// exectx.ExecutionContext or a context.Context's own Deadline.
func NewDeadlinedCallable[T any](fn ExecuteFunc[T], deadlineNanos int64) *TimeoutCallable[T] {
	return &TimeoutCallable[T]{fn: fn, deadlineNanos: deadlineNanos, hasDeadline: true}
}

// Deadline returns the callable's absolute deadline in Unix nanoseconds,
// and whether one was set at all.
func (c *TimeoutCallable[T]) Deadline() (int64, bool) {
	return c.deadlineNanos, c.hasDeadline
}

// Call invokes the wrapped operation.
func (c *TimeoutCallable[T]) Call(ctx context.Context) (T, error) {
	return c.fn(ctx)
}

// callableFromContext builds a TimeoutCallable sharing ctx's own deadline,
// if it has one, so a plain ExecuteWithRetry caller gets the same
// deadline-capped delay as a caller that builds a TimeoutCallable by hand.
func callableFromContext[T any](ctx context.Context, fn ExecuteFunc[T]) *TimeoutCallable[T] {
	if deadline, ok := ctx.Deadline(); ok {
		return NewDeadlinedCallable(fn, deadline.UnixNano())
	}
	return &TimeoutCallable[T]{fn: fn}
}
