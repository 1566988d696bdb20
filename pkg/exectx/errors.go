package exectx

import (
	"errors"
	"fmt"
)

// ErrDeadlineExceeded is returned by deadline queries when the current
// instant is at or past the deadline being queried.
var ErrDeadlineExceeded = errors.New("exectx: deadline exceeded")

// ErrInterrupted is returned when a worker of execution's interruption flag
// was observed during a blocking wait. It is never retried and is never
// chained alongside other failures.
var ErrInterrupted = errors.New("exectx: interrupted")

// MisuseError reports a programmer error in attach/detach discipline: a
// detach from a different goroutine than the one that attached, or a
// detach when the top of the stack is not the context the caller expects
// (a sibling handle was leaked).
type MisuseError struct {
	Op  string
	Msg string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("exectx: misuse in %s: %s", e.Op, e.Msg)
}

// ConfigError reports a malformed configuration value or an unknown
// registry name encountered while resolving a Factory, Attacher, or
// factory-wrapper from configuration.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("exectx: config error for %s: %s", e.Key, e.Msg)
}
