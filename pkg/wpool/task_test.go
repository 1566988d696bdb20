package wpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygo/exectx/pkg/exectx"
)

// PropagatingTask must hand the real worker ctx to the wrapped task, not a
// bare context.Background() that never observes pool shutdown.
func TestPropagatingTaskPassesThroughInvocationContext(t *testing.T) {
	root := exectx.StartRoot("test-root", time.Second)
	defer root.Close()

	inner := FuncTask("inner", func(ctx context.Context) error {
		assert.NotNil(t, ctx.Done())
		select {
		case <-ctx.Done():
			t.Fatal("ctx was already done on entry")
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapped := PropagatingTask(inner, "wrap")
	require.NoError(t, wrapped.Execute(ctx))

	cancel()
	var sawCancellation bool
	cancelAware := FuncTask("inner2", func(ctx context.Context) error {
		<-ctx.Done()
		sawCancellation = true
		return ctx.Err()
	})
	wrapped2 := PropagatingTask(cancelAware, "wrap2")
	err := wrapped2.Execute(ctx)
	require.Error(t, err)
	assert.True(t, sawCancellation, "wrapped task must observe the invocation ctx's cancellation, not a detached context.Background()")
}
