package wpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaygo/exectx/pkg/clock"
)

const (
	poolStateStopped int32 = 0
	poolStateRunning int32 = 1
	poolStateClosed  int32 = 2
)

// Config configures a Pool.
type Config struct {
	Size          int
	QueueSize     int
	SubmitTimeout time.Duration
	Clock         clock.Clock
	Logger        *logrus.Logger
}

// DefaultConfig returns a Config with sane defaults: 10 workers, a queue
// of 100, and a 5 second submit timeout.
func DefaultConfig() Config {
	return Config{Size: 10, QueueSize: 100, SubmitTimeout: 5 * time.Second}
}

// ErrPoolFull is returned by SubmitWithTimeout when the task queue has no
// room and the caller did not allow blocking (a non-positive timeout).
var ErrPoolFull = fmt.Errorf("wpool: task queue is full")

// ErrSubmitTimeout is returned by SubmitWithTimeout when the queue had no
// room within the given timeout.
var ErrSubmitTimeout = fmt.Errorf("wpool: submit timed out waiting for queue room")

// Pool is a fixed-size worker pool.
type Pool struct {
	cfg      Config
	workers  []*worker
	taskChan chan Task

	state     int32
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu sync.RWMutex
}

// New constructs a Pool. A zero-value Config field is replaced with its
// DefaultConfig counterpart.
func New(cfg Config) (*Pool, error) {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = def.SubmitTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	taskChan := make(chan Task, cfg.QueueSize)
	workers := make([]*worker, cfg.Size)
	for i := range workers {
		workers[i] = newWorker(i, taskChan, cfg.Clock, cfg.Logger)
	}

	return &Pool{cfg: cfg, workers: workers, taskChan: taskChan}, nil
}

// Start launches every worker goroutine. ctx bounds the pool's lifetime:
// cancelling it stops every worker the same as calling Stop.
func (p *Pool) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.state, poolStateStopped, poolStateRunning) {
		if atomic.LoadInt32(&p.state) == poolStateRunning {
			return fmt.Errorf("wpool: already running")
		}
		return fmt.Errorf("wpool: closed")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.run(p.ctx)
	}
	return nil
}

// Submit enqueues task, blocking up to the pool's configured
// SubmitTimeout if the queue is full. The caller's ambient exectx context,
// if any, is captured now and re-attached on the worker goroutine that
// eventually runs task, per PropagatingFunc's contract.
func (p *Pool) Submit(task Task) error {
	return p.SubmitWithTimeout(task, p.cfg.SubmitTimeout)
}

// SubmitWithTimeout enqueues task, blocking up to timeout if the queue is
// full. A non-positive timeout makes submission non-blocking.
func (p *Pool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	if atomic.LoadInt32(&p.state) != poolStateRunning {
		return fmt.Errorf("wpool: not running")
	}
	if task == nil {
		return fmt.Errorf("wpool: task cannot be nil")
	}
	task = PropagatingTask(task, fmt.Sprintf("wpool-task-%s", task.ID()))

	if timeout <= 0 {
		select {
		case p.taskChan <- task:
			return nil
		default:
			return ErrPoolFull
		}
	}

	timer := p.cfg.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.taskChan <- task:
		return nil
	case <-timer.C():
		return ErrSubmitTimeout
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Stop signals every worker to finish its current task and exit, waiting
// up to 10 seconds for all of them.
func (p *Pool) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, poolStateRunning, poolStateStopped) {
		if atomic.LoadInt32(&p.state) == poolStateStopped {
			return fmt.Errorf("wpool: not running")
		}
		return fmt.Errorf("wpool: closed")
	}
	if p.cancel != nil {
		p.cancel()
	}

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			_ = w.stop()
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-p.cfg.Clock.After(10 * time.Second):
		return fmt.Errorf("wpool: timed out waiting for workers to stop")
	}
}

// Close stops the pool (if running) and releases its task channel. Close
// is idempotent.
func (p *Pool) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		if atomic.LoadInt32(&p.state) == poolStateRunning {
			if err := p.Stop(); err != nil {
				closeErr = err
				return
			}
		}
		atomic.StoreInt32(&p.state, poolStateClosed)
		close(p.taskChan)
	})
	return closeErr
}

// Stats reports aggregate pool occupancy.
type Stats struct {
	Size          int
	ActiveWorkers int
	QueueLength   int
	QueueCapacity int
}

// Stats returns a snapshot of the pool's current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	active := 0
	for _, w := range p.workers {
		if w.stats().State == WorkerBusy {
			active++
		}
	}
	return Stats{
		Size:          len(p.workers),
		ActiveWorkers: active,
		QueueLength:   len(p.taskChan),
		QueueCapacity: p.cfg.QueueSize,
	}
}

// WorkerStats returns a snapshot of every worker's individual stats.
func (p *Pool) WorkerStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.stats()
	}
	return stats
}

// IsRunning reports whether Start has been called and Stop/Close has not.
func (p *Pool) IsRunning() bool { return atomic.LoadInt32(&p.state) == poolStateRunning }
