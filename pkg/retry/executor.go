// Package retry provides a generic retry/backoff executor: a driver that
// repeatedly invokes a user operation until it succeeds, is rejected by a
// retry predicate, or the caller's context is cancelled, scheduling
// inter-attempt delays through a per-failure-class backoff strategy.
package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaygo/exectx/pkg/clock"
)

// ExecuteFunc is the operation ExecuteWithRetry drives; it receives ctx so
// an attempt can itself be cancelled mid-flight.
type ExecuteFunc[T any] func(ctx context.Context) (T, error)

// RetryStats tracks immediate-vs-delayed retries separately from a single
// undifferentiated retry count.
type RetryStats struct {
	TotalAttempts   int64
	TotalRetries    int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRetryDelay time.Duration
	LastRetryTime   time.Time

	mu sync.RWMutex
}

func (s *RetryStats) snapshot() RetryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RetryStats{
		TotalAttempts:   s.TotalAttempts,
		TotalRetries:    s.TotalRetries,
		TotalSuccesses:  s.TotalSuccesses,
		TotalFailures:   s.TotalFailures,
		TotalRetryDelay: s.TotalRetryDelay,
		LastRetryTime:   s.LastRetryTime,
	}
}

// EventHandler receives retry lifecycle notifications.
type EventHandler interface {
	OnAttempt(ctx context.Context, attempt int)
	OnRetry(ctx context.Context, attempt int, decision RetryDecision, delay time.Duration, err error)
	OnSuccess(ctx context.Context, attempt int, duration time.Duration)
	OnTerminal(ctx context.Context, attempt int, err error)
}

// logEventHandler is the default EventHandler, logging every transition
// through logrus.
type logEventHandler struct {
	log *logrus.Logger
}

func (h *logEventHandler) OnAttempt(_ context.Context, attempt int) {
	h.log.WithField("attempt", attempt).Debug("retry: attempt starting")
}

func (h *logEventHandler) OnRetry(_ context.Context, attempt int, decision RetryDecision, delay time.Duration, err error) {
	h.log.WithFields(logrus.Fields{
		"attempt":  attempt,
		"decision": decision.String(),
		"delay":    delay,
		"error":    err,
	}).Warn("retry: attempt failed, retrying")
}

func (h *logEventHandler) OnSuccess(_ context.Context, attempt int, duration time.Duration) {
	h.log.WithFields(logrus.Fields{"attempt": attempt, "duration": duration}).Info("retry: succeeded")
}

func (h *logEventHandler) OnTerminal(_ context.Context, attempt int, err error) {
	h.log.WithFields(logrus.Fields{"attempt": attempt, "error": err}).Error("retry: exhausted, giving up")
}

// Executor drives ExecuteWithRetry's state machine for one result type T.
// Besides its configuration it keeps RetryStats, which accumulate across
// calls. The FibonacciBackoff installed with WithBackoff is shared by every
// call on the Executor and its per-failure-class registers are not reset
// when a call starts: a key's remaining immediate retries and Fibonacci
// state carry over from earlier calls. An Executor built with a fresh
// FibonacciBackoff per call gives each call its own registers.
type Executor[T any] struct {
	clock    clock.Clock
	backoff  *FibonacciBackoff
	keyFor   func(result T, err error) any
	handler  EventHandler
	stats    RetryStats
	lastErr  func(err error) error
	lastVal  func(result T) T
}

// Option configures an Executor.
type Option[T any] func(*Executor[T])

// WithClock overrides the clock used to sleep between attempts and to
// measure attempt duration. Production code should not need this; a test
// can inject a clock.Clock backed by quartz.Mock to drive backoff
// deterministically.
func WithClock[T any](c clock.Clock) Option[T] {
	return func(e *Executor[T]) { e.clock = c }
}

// WithBackoff installs the per-failure-class backoff register.
func WithBackoff[T any](b *FibonacciBackoff) Option[T] {
	return func(e *Executor[T]) { e.backoff = b }
}

// WithKeyFunc overrides how a failed attempt's backoff key is derived. The
// default is FailureClassKey(err).
func WithKeyFunc[T any](f func(result T, err error) any) Option[T] {
	return func(e *Executor[T]) { e.keyFor = f }
}

// WithEventHandler overrides the EventHandler; the default logs through
// logrus.StandardLogger().
func WithEventHandler[T any](h EventHandler) Option[T] {
	return func(e *Executor[T]) { e.handler = h }
}

// WithLogger installs a dedicated *logrus.Logger for the default
// EventHandler, instead of logrus.StandardLogger().
func WithLogger[T any](log *logrus.Logger) Option[T] {
	return func(e *Executor[T]) { e.handler = &logEventHandler{log: log} }
}

// WithLastException installs the "lastException" hook of spec.md §4.7 step
// 3: run when the predicate returns Abort on a failed attempt, it may
// transform or swallow the terminal error before it is returned.
func WithLastException[T any](hook func(err error) error) Option[T] {
	return func(e *Executor[T]) { e.lastErr = hook }
}

// WithLastReturn installs the "lastReturn" hook of spec.md §4.7 step 3: run
// when the predicate returns Abort on a successful result, it may
// transform the value before it is returned.
func WithLastReturn[T any](hook func(result T) T) Option[T] {
	return func(e *Executor[T]) { e.lastVal = hook }
}

// NewExecutor constructs an Executor[T]. With no options, it retries
// immediately with no backoff (a FibonacciBackoff with zero immediate
// retries and zero delay behaves the same as no backoff at all, so a
// caller that only wants predicate-driven abort/retry with no sleeping can
// simply omit WithBackoff and rely on the nil check in delayFor).
func NewExecutor[T any](opts ...Option[T]) *Executor[T] {
	e := &Executor[T]{
		clock:  clock.New(),
		keyFor: func(_ T, err error) any { return FailureClassKey(err) },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.handler == nil {
		e.handler = &logEventHandler{log: logrus.StandardLogger()}
	}
	return e
}

// Stats returns a snapshot of this Executor's accumulated statistics.
func (e *Executor[T]) Stats() RetryStats {
	return e.stats.snapshot()
}

// ExecuteWithRetry runs fn under the driver's state machine: INITIAL ->
// ATTEMPT -> {SUCCESS, ABORT, RETRY_PENDING} -> ATTEMPT ... -> TERMINAL. If
// ctx carries a deadline, it is shared with a TimeoutCallable built for the
// duration of this call, so the delay between attempts is capped the same
// way an explicitly-built TimeoutCallable would cap it; see
// ExecuteCallableWithRetry for the caller-supplied-deadline form.
//
// Every attempt is classified by onError (if fn returned a non-nil error)
// or onResult (otherwise). Abort terminates the loop and returns the
// current result/error, after running the lastReturn/lastException hooks.
// Retry/RetryImmediate/RetryDelayed chain the failure into an ErrorChain
// and loop; the backoff register decides how long to sleep, if any.
// RetryImmediate always retries with zero delay. RetryDelayed skips the
// immediate-retry budget only for a failure class the register has not
// seen yet; for a class already seen, its remaining immediate retries
// still come first.
//
// Exhausting the deadline is distinct from the caller cancelling ctx for
// any other reason. Deadline exhaustion is a predicate ABORT: it ends the
// loop with the accumulated ErrorChain's terminal failure (or
// ErrDeadlineExceeded if no attempt has failed yet), the same as any other
// Abort. A plain cancellation (ctx.Err() is context.Canceled, or anything
// else that isn't context.DeadlineExceeded) returns ErrInterrupted
// instead; interruption is never retried and never folded into the chain.
func ExecuteWithRetry[T any](ctx context.Context, e *Executor[T], fn ExecuteFunc[T], onResult, onError AdvancedRetryPredicate[T]) (T, error) {
	return ExecuteCallableWithRetry(ctx, e, callableFromContext(ctx, fn), onResult, onError)
}

// ExecuteCallableWithRetry is ExecuteWithRetry's caller-supplied-deadline
// form: callable's own deadline (from NewTimeoutCallable/
// NewDeadlinedCallable) governs delay capping and deadline-exhaustion
// detection instead of ctx.Deadline(). ctx is still checked for
// cancellation on every iteration.
func ExecuteCallableWithRetry[T any](ctx context.Context, e *Executor[T], callable *TimeoutCallable[T], onResult, onError AdvancedRetryPredicate[T]) (T, error) {
	var zero T
	var chain ErrorChain
	attempt := 0

	for {
		attempt++
		e.bumpAttempts()
		e.handler.OnAttempt(ctx, attempt)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, e.terminalOnInterrupt(ctx, attempt, &chain, ctxErr)
		}

		start := e.clock.Now()
		result, err := callable.Call(ctx)
		duration := e.clock.Since(start)

		var decision RetryDecision
		if err != nil {
			decision = onError(result, err)
		} else {
			decision = onResult(result, nil)
		}

		if decision == Abort {
			if err != nil {
				e.bumpFailure()
				if e.lastErr != nil {
					err = e.lastErr(err)
				}
				e.handler.OnTerminal(ctx, attempt, err)
				if chain.Len() > 0 {
					chain.Append(err)
					return zero, chain.Err()
				}
				return zero, err
			}
			e.bumpSuccess()
			if e.lastVal != nil {
				result = e.lastVal(result)
			}
			e.handler.OnSuccess(ctx, attempt, duration)
			return result, nil
		}

		if err == nil {
			// onResult demanded a retry on a successful-looking value (e.g. a
			// sentinel "try again" result); there is no error to chain.
			e.bumpRetry()
		} else {
			chain.Append(err)
			e.bumpRetry()
		}

		delay := e.delayFor(result, err, decision)
		if deadlineNanos, ok := callable.Deadline(); ok {
			remaining := deadlineNanos - nowNanos()
			if remaining <= 0 {
				return zero, e.terminalOnDeadline(ctx, attempt, &chain)
			}
			if delay > time.Duration(remaining) {
				delay = time.Duration(remaining)
			}
		}
		e.handler.OnRetry(ctx, attempt, decision, delay, err)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return zero, e.terminalOnInterrupt(ctx, attempt, &chain, ctx.Err())
			case <-e.clock.After(delay):
			}
		}
	}
}

// terminalOnInterrupt classifies ctx.Err() at an interruption point: a
// timed-out deadline is a terminal ABORT carrying the accumulated chain, a
// plain cancellation is ErrInterrupted.
func (e *Executor[T]) terminalOnInterrupt(ctx context.Context, attempt int, chain *ErrorChain, ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return e.terminalOnDeadline(ctx, attempt, chain)
	}
	return ErrInterrupted
}

// terminalOnDeadline ends the loop the same way an Abort on a failed
// attempt does: the chain's terminal failure, or ErrDeadlineExceeded if no
// attempt has failed yet.
func (e *Executor[T]) terminalOnDeadline(ctx context.Context, attempt int, chain *ErrorChain) error {
	e.bumpFailure()
	term := chain.Err()
	if term == nil {
		term = ErrDeadlineExceeded
	}
	e.handler.OnTerminal(ctx, attempt, term)
	return term
}

// nowNanos is the retry package's own wall-clock read in Unix nanoseconds,
// the same scale as the deadlines TimeoutCallable stores (built from
// time.Now() or ctx.Deadline() via UnixNano). It is used only for capping
// delay against a TimeoutCallable's deadline; e.clock governs
// sleeping and attempt-duration measurement so tests can still drive those
// deterministically.
func nowNanos() int64 {
	return time.Now().UnixNano()
}

func (e *Executor[T]) delayFor(result T, err error, decision RetryDecision) time.Duration {
	if e.backoff == nil {
		return 0
	}
	key := e.keyFor(result, err)
	skipImmediate := decision == RetryDelayed
	if decision == RetryImmediate {
		return 0
	}
	return e.backoff.NextDelay(key, skipImmediate)
}

func (e *Executor[T]) bumpAttempts() {
	e.stats.mu.Lock()
	e.stats.TotalAttempts++
	e.stats.mu.Unlock()
}

func (e *Executor[T]) bumpSuccess() {
	e.stats.mu.Lock()
	e.stats.TotalSuccesses++
	e.stats.mu.Unlock()
}

func (e *Executor[T]) bumpFailure() {
	e.stats.mu.Lock()
	e.stats.TotalFailures++
	e.stats.mu.Unlock()
}

func (e *Executor[T]) bumpRetry() {
	e.stats.mu.Lock()
	e.stats.TotalRetries++
	e.stats.LastRetryTime = e.clock.Now()
	e.stats.mu.Unlock()
}

// ExecuteAsync runs ExecuteWithRetry on a new goroutine and reports the
// result on the returned channel.
func ExecuteAsync[T any](ctx context.Context, e *Executor[T], fn ExecuteFunc[T], onResult, onError AdvancedRetryPredicate[T]) <-chan AsyncResult[T] {
	out := make(chan AsyncResult[T], 1)
	go func() {
		defer close(out)
		result, err := ExecuteWithRetry(ctx, e, fn, onResult, onError)
		out <- AsyncResult[T]{Value: result, Err: err}
	}()
	return out
}

// AsyncResult carries the outcome of an ExecuteAsync call.
type AsyncResult[T any] struct {
	Value T
	Err   error
}
