package retry

import "errors"

// ErrInterrupted is returned when the caller's context was cancelled
// between or during attempts. It is never chained alongside other
// failures and is never itself retried.
var ErrInterrupted = errors.New("retry: interrupted")

// ErrDeadlineExceeded is returned by ExecuteWithRetry and
// ExecuteCallableWithRetry when the deadline is exhausted before any
// attempt has failed. A TimeoutRetryPredicate may also return it when no
// budget remains to schedule another attempt.
var ErrDeadlineExceeded = errors.New("retry: deadline exceeded")
