package wpool

import (
	"context"

	"github.com/relaygo/exectx/pkg/exectx"
)

// funcTask adapts a plain function and an id into a Task.
type funcTask struct {
	id string
	fn func(ctx context.Context) error
}

func (t *funcTask) ID() string                        { return t.id }
func (t *funcTask) Execute(ctx context.Context) error { return t.fn(ctx) }

// FuncTask wraps fn as a Task identified by id.
func FuncTask(id string, fn func(ctx context.Context) error) Task {
	return &funcTask{id: id, fn: fn}
}

// PropagatingTask wraps task so that, when it finally runs on a worker
// goroutine, it executes under a child of the ExecutionContext that was
// ambient on the submitting goroutine at wrap time, not under a bare
// context. This is what lets a deadline set on the submitter's side keep
// binding once the task has crossed onto a pool worker.
//
// name becomes the child context's name.
func PropagatingTask(task Task, name string) Task {
	captured := exectx.Current()
	return &funcTask{id: task.ID(), fn: func(ctx context.Context) error {
		wrapped := exectx.PropagatingFunc(captured, name, func() (struct{}, error) {
			return struct{}{}, task.Execute(ctx)
		})
		_, err := wrapped()
		return err
	}}
}
