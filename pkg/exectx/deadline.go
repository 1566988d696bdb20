package exectx

import (
	"math"
	"time"

	"github.com/relaygo/exectx/pkg/clock"
)

// processStart anchors nowNanos: its wall reading gives the scale, its
// monotonic reading measures elapsed time.
var processStart = time.Now()

// nowNanos returns the current monotonic timestamp in nanoseconds. It adds
// the monotonic time elapsed since processStart to processStart's wall
// reading, so successive calls never go backwards within one process even
// across wall-clock adjustments.
func nowNanos() int64 {
	return processStart.UnixNano() + int64(time.Since(processStart))
}

// saturatingAddNanos adds deltaNanos to baseNanos, saturating at
// math.MaxInt64/math.MinInt64 instead of overflowing when the sum would
// not fit in an int64. A sum that fits is computed through
// clock.DeadlineFrom on time.Time/time.Duration.
func saturatingAddNanos(baseNanos, deltaNanos int64) int64 {
	if deltaNanos > 0 && baseNanos > math.MaxInt64-deltaNanos {
		return math.MaxInt64
	}
	if deltaNanos < 0 && baseNanos < math.MinInt64-deltaNanos {
		return math.MinInt64
	}
	return clock.DeadlineFrom(time.Unix(0, baseNanos), time.Duration(deltaNanos)).UnixNano()
}

// ComputeDeadline returns the absolute deadline for a sub-operation with
// the given requested timeout: now+timeout, saturating. If ctx is nil that
// requested deadline is returned as is; otherwise the tighter of the
// requested deadline and ctx's deadline wins, matching the invariant that
// a child's deadline never exceeds its parent's.
func ComputeDeadline(ctx *ExecutionContext, timeout time.Duration) int64 {
	requested := saturatingAddNanos(nowNanos(), timeout.Nanoseconds())
	if ctx == nil {
		return requested
	}
	if requested > ctx.DeadlineNanos() {
		return ctx.DeadlineNanos()
	}
	return requested
}

// TimeoutDeadline bundles the effective timeout alongside the absolute
// deadline it was derived from.
type TimeoutDeadline struct {
	TimeoutNanos  int64
	DeadlineNanos int64
}

// ComputeTimeoutDeadline is the single normative function for "I am about
// to start a sub-operation; how much time do I have and by when must I
// stop?" It returns the effective timeout (the minimum of the requested
// timeout and whatever remains on ctx) and the absolute deadline that
// timeout implies. It fails with ErrDeadlineExceeded if no time remains.
func ComputeTimeoutDeadline(ctx *ExecutionContext, timeout time.Duration) (TimeoutDeadline, error) {
	now := nowNanos()
	deadline := saturatingAddNanos(now, timeout.Nanoseconds())
	if ctx != nil && deadline > ctx.DeadlineNanos() {
		deadline = ctx.DeadlineNanos()
	}
	remaining := deadline - now
	if remaining <= 0 {
		return TimeoutDeadline{}, ErrDeadlineExceeded
	}
	return TimeoutDeadline{TimeoutNanos: remaining, DeadlineNanos: deadline}, nil
}

// TimeRelativeToDeadline returns the signed time remaining until ctx's
// deadline; negative when already past. If ctx is nil, the ambient current
// context is used; if there is none, the deadline is computed from the
// default timeout measured from now (i.e. always positive).
func TimeRelativeToDeadline(ctx *ExecutionContext) time.Duration {
	if ctx == nil {
		ctx = Current()
	}
	if ctx == nil {
		return DefaultTimeout()
	}
	return time.Duration(ctx.DeadlineNanos() - nowNanos())
}

// TimeToDeadline returns the non-negative time remaining until ctx's
// deadline, failing with ErrDeadlineExceeded when the current instant is
// at or past the deadline.
func TimeToDeadline(ctx *ExecutionContext) (time.Duration, error) {
	remaining := TimeRelativeToDeadline(ctx)
	if remaining <= 0 {
		return 0, ErrDeadlineExceeded
	}
	return remaining, nil
}
