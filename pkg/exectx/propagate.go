package exectx

import (
	"math"
	"time"
)

// PropagatingFunc wraps op so that invoking it (possibly on a different
// goroutine than the one that built the wrapper) opens a child of the
// captured context, attaches it for the duration of the call, runs op, and
// closes the child on every exit path, including a panic: the deferred
// detach/close still runs before the panic continues unwinding.
//
// If the captured context is already expired at invocation time, the
// wrapper still opens a child (whose deadline is min(parent, now), i.e.
// immediately expired) and still runs op; it does not skip execution. The
// operation is expected to notice the expired deadline on its own via
// TimeToDeadline.
func PropagatingFunc[T any](captured *ExecutionContext, name string, op func() (T, error)) func() (T, error) {
	return func() (T, error) {
		requested := int64(math.MaxInt64)
		if captured != nil {
			requested = captured.DeadlineNanos()
		}
		child := childOf(captured, name, requested)
		handle := Attach(child)
		defer func() {
			_ = handle.Detach()
			_ = child.Close()
		}()
		return op()
	}
}

// DeadlinedPropagatingFunc behaves like PropagatingFunc but overrides the
// child's deadline instead of inheriting the captured context's deadline
// verbatim. The override is still clamped to never exceed the captured
// context's own deadline, per the invariant that a child's deadline never
// exceeds its parent's.
func DeadlinedPropagatingFunc[T any](captured *ExecutionContext, name string, deadlineNanos int64, op func() (T, error)) func() (T, error) {
	return func() (T, error) {
		child := childOf(captured, name, deadlineNanos)
		handle := Attach(child)
		defer func() {
			_ = handle.Detach()
			_ = child.Close()
		}()
		return op()
	}
}

// PropagatingFuncs wraps a slice of operations sharing one captured
// context, producing a slice of wrapped operations of the same length and
// order. The context is captured once and shared across all of them.
func PropagatingFuncs[T any](captured *ExecutionContext, name string, ops []func() (T, error)) []func() (T, error) {
	wrapped := make([]func() (T, error), len(ops))
	for i, op := range ops {
		wrapped[i] = PropagatingFunc(captured, name, op)
	}
	return wrapped
}

func childOf(captured *ExecutionContext, name string, requestedDeadline int64) *ExecutionContext {
	now := nowNanos()
	deadline := requestedDeadline
	if captured != nil && deadline > captured.DeadlineNanos() {
		deadline = captured.DeadlineNanos()
	}
	if deadline < now && captured != nil && captured.DeadlineNanos() < now {
		// Parent already expired; mirror it exactly rather than manufacturing
		// a fresh "now" deadline, so min(parent, now) collapses to parent.
		deadline = captured.DeadlineNanos()
	}
	return currentFactory().Start(name, "", captured, ChildOf, now, deadline)
}

// StartChild opens a child of parent with the given relation and timeout,
// applying the deadline-inheritance rule: the effective deadline is the
// minimum of parent's deadline and now+timeout.
func StartChild(parent *ExecutionContext, name string, relation Relation, timeout time.Duration) *ExecutionContext {
	now := nowNanos()
	deadline := saturatingAddNanos(now, timeout.Nanoseconds())
	if parent != nil && deadline > parent.DeadlineNanos() {
		deadline = parent.DeadlineNanos()
	}
	return currentFactory().Start(name, "", parent, relation, now, deadline)
}

// StartRoot opens a root context (no parent) with the given timeout, or
// the configured default timeout if timeout is zero or negative.
func StartRoot(name string, timeout time.Duration) *ExecutionContext {
	if timeout <= 0 {
		timeout = DefaultTimeout()
	}
	now := nowNanos()
	deadline := saturatingAddNanos(now, timeout.Nanoseconds())
	return currentFactory().Start(name, "", nil, ChildOf, now, deadline)
}

// CreateDetached opens a root context via StartRoot when parent is nil,
// otherwise a child via StartChild. Like them, it never attaches the
// result to the calling goroutine's ambient stack; the caller owns
// attaching it (or not) explicitly.
func CreateDetached(name string, parent *ExecutionContext, relation Relation, timeout time.Duration) *ExecutionContext {
	if parent == nil {
		return StartRoot(name, timeout)
	}
	return StartChild(parent, name, relation, timeout)
}
