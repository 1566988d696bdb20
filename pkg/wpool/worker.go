// Package wpool is a fixed-size worker pool that demonstrates the context
// substrate's task-propagation contract: Submit captures the caller's
// ambient exectx context before the task crosses onto a worker goroutine,
// so the worker runs it under a child of that context instead of a bare
// one. It owns no opinion on worker liveness, membership, or eviction
// policy beyond that.
package wpool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaygo/exectx/pkg/clock"
)

// Task is a unit of work a pool worker executes.
type Task interface {
	ID() string
	Execute(ctx context.Context) error
}

// WorkerState is the lifecycle state of a single pool worker.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerBusy
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerBusy:
		return "busy"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WorkerStats is a snapshot of one worker's processing counters.
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	LastTaskTime   time.Time
}

// worker is a single goroutine draining a shared task channel.
type worker struct {
	id       int
	state    int32
	taskChan <-chan Task
	quit     chan struct{}
	done     chan struct{}
	clock    clock.Clock
	log      *logrus.Logger

	totalProcessed int64
	totalFailed    int64
	lastTaskNanos  int64
}

func newWorker(id int, taskChan <-chan Task, c clock.Clock, log *logrus.Logger) *worker {
	return &worker{
		id:       id,
		taskChan: taskChan,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		clock:    c,
		log:      log,
	}
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&w.state, int32(WorkerStopped))
			return
		case <-w.quit:
			atomic.StoreInt32(&w.state, int32(WorkerStopped))
			return
		case task, ok := <-w.taskChan:
			if !ok {
				atomic.StoreInt32(&w.state, int32(WorkerStopped))
				return
			}
			w.process(ctx, task)
		}
	}
}

func (w *worker) process(ctx context.Context, task Task) {
	atomic.StoreInt32(&w.state, int32(WorkerBusy))
	defer atomic.StoreInt32(&w.state, int32(WorkerIdle))

	start := w.clock.Now()
	atomic.StoreInt64(&w.lastTaskNanos, start.UnixNano())

	err := w.executeRecovering(ctx, task)
	if err != nil {
		atomic.AddInt64(&w.totalFailed, 1)
		w.log.WithFields(logrus.Fields{"worker": w.id, "task": task.ID(), "error": err}).Warn("wpool: task failed")
	} else {
		atomic.AddInt64(&w.totalProcessed, 1)
	}
}

func (w *worker) executeRecovering(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("wpool: panic in task %s: %v", task.ID(), v)
			}
			w.log.WithFields(logrus.Fields{
				"worker": w.id,
				"task":   task.ID(),
				"stack":  string(buf[:n]),
			}).Error("wpool: task panicked")
		}
	}()
	return task.Execute(ctx)
}

func (w *worker) stop() error {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
	select {
	case <-w.done:
		return nil
	case <-w.clock.After(5 * time.Second):
		return fmt.Errorf("wpool: worker %d did not stop within 5s", w.id)
	}
}

func (w *worker) stats() WorkerStats {
	return WorkerStats{
		ID:             w.id,
		State:          WorkerState(atomic.LoadInt32(&w.state)),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		LastTaskTime:   time.Unix(0, atomic.LoadInt64(&w.lastTaskNanos)),
	}
}
