// Package retry provides a generic retry/backoff executor and the
// predicate and backoff types that drive it.
//
// The central algorithm is ExecuteWithRetry: it invokes an operation
// repeatedly until an AdvancedRetryPredicate aborts the loop, classifying
// each attempt's result or error and consulting a FibonacciBackoff for how
// long to wait before the next one. A fresh ErrorChain accumulates every
// failed attempt so the final error carries the whole history, not just
// the last failure.
//
// Basic usage:
//
//	executor := retry.NewExecutor[string](
//		retry.WithBackoff[string](retry.NewFibonacciBackoff(1, 10*time.Millisecond, 40*time.Millisecond, 1)),
//	)
//	result, err := retry.ExecuteWithRetry(ctx, executor, func(ctx context.Context) (string, error) {
//		return callRemote(ctx)
//	}, retry.NoRetryForResult[string](), retry.DefaultExceptionRetry[string]())
//
// Interruption: ExecuteWithRetry checks ctx.Err() between attempts and
// while sleeping. A deadline firing is treated as a predicate ABORT over
// the ErrorChain accumulated so far, the same as any other terminal
// failure; any other cancellation returns ErrInterrupted immediately,
// without adding it to the chain. Interruption is never retried.
package retry
