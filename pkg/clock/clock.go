// Package clock provides the monotonic time source shared by the execution
// context substrate and the retry executor.
package clock

import (
	"context"
	"time"
)

// Clock abstracts time operations so tests can drive deadlines and backoff
// without real sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
	// Sleep blocks for d.
	Sleep(d time.Duration)
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// NewTimer creates a new Timer.
	NewTimer(d time.Duration) Timer
	// NewTicker creates a new Ticker.
	NewTicker(d time.Duration) Ticker
}

// Timer mirrors time.Timer behind the Clock abstraction.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// Ticker mirrors time.Ticker behind the Clock abstraction.
type Ticker interface {
	C() <-chan time.Time
	Stop()
	Reset(d time.Duration)
}

// RealClock implements Clock using the standard time package. Go's
// time.Now() is already monotonic for duration arithmetic, so this is the
// only Clock implementation safe to use outside of tests.
type RealClock struct{}

// New returns a Clock backed by the real wall clock.
func New() Clock { return RealClock{} }

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (RealClock) NewTimer(d time.Duration) Timer { return &realTimer{timer: time.NewTimer(d)} }

func (RealClock) NewTicker(d time.Duration) Ticker { return &realTicker{ticker: time.NewTicker(d)} }

type realTimer struct{ timer *time.Timer }

func (t *realTimer) C() <-chan time.Time { return t.timer.C }
func (t *realTimer) Stop() bool { return t.timer.Stop() }
func (t *realTimer) Reset(d time.Duration) bool { return t.timer.Reset(d) }

type realTicker struct{ ticker *time.Ticker }

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop() { t.ticker.Stop() }
func (t *realTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

// maxDuration is the largest positive time.Duration representable; adding
// anything beyond it to a time.Time risks overflowing the internal
// representation.
const maxDuration = time.Duration(1<<63 - 1)

// DeadlineFrom computes start+d, saturating rather than overflowing when d
// is large enough that start.Add(d) would wrap around to a time before
// start. Mirrors the "saturating addition" requirement on deadline
// arithmetic: a caller that asks for an effectively-infinite timeout gets
// the farthest expressible deadline instead of undefined behavior.
func DeadlineFrom(start time.Time, d time.Duration) time.Time {
	if d <= 0 {
		return start.Add(d)
	}
	candidate := start.Add(d)
	if candidate.Before(start) {
		return start.Add(maxDuration)
	}
	return candidate
}

type clockKey struct{}

// WithClock attaches a Clock to ctx for downstream retrieval via FromContext.
func WithClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, c)
}

// FromContext retrieves the Clock attached to ctx, or RealClock if none was
// attached.
func FromContext(ctx context.Context) Clock {
	if c, ok := ctx.Value(clockKey{}).(Clock); ok {
		return c
	}
	return RealClock{}
}
