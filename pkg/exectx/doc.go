// Package exectx implements a deadline-scoped execution context that can
// be attached to the currently running goroutine as an implicit ambient
// value, propagated across goroutine boundaries via task wrappers, and
// composed into parent/child chains that never relax a deadline once
// inherited.
//
// A context is opened with StartRoot or StartChild, attached to the
// calling goroutine with Attach, and read back with Current by any callee
// that does not want to thread a context parameter through its signature.
// Attach/detach must be perfectly nested on one goroutine; Handle.Detach
// reports a MisuseError if that discipline is violated.
package exectx
