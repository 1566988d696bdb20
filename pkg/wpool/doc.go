// Package wpool is a fixed-size worker pool built on top of pkg/exectx and
// pkg/clock. It exists to give the execution-context propagation contract a
// real consumer: Submit wraps every task with PropagatingTask so that, once
// a worker goroutine picks it up, it runs under a child of whatever
// ExecutionContext was ambient on the submitting goroutine, rather than
// under a context with no relation to the caller's deadline.
//
//	pool, _ := wpool.New(wpool.DefaultConfig())
//	_ = pool.Start(context.Background())
//	defer pool.Close()
//
//	root := exectx.StartRoot("job", 2*time.Second)
//	exectx.Attach(root)
//	_ = pool.Submit(wpool.FuncTask("job-1", func(ctx context.Context) error {
//		return doWork(ctx)
//	}))
package wpool
