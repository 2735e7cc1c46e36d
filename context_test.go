package steadyflow

import (
	"testing"
	"time"

	"github.com/raskyld/steadyflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, opts ...Option) (*Graph, *Context) {
	t.Helper()
	opts = append([]Option{WithLog(testHandler(t.Name()))}, opts...)
	g, err := New(opts...)
	require.NoError(t, err)
	return g, newContext(g, "test", 1)
}

func TestContext_Accessors(t *testing.T) {
	type args struct{ Beats int }
	_, ctx := newTestContext(t, WithArgs(args{Beats: 3}))

	assert.Equal(t, "test", ctx.Name())
	assert.Equal(t, uint64(1), ctx.Invocation())
	assert.NotEmpty(t, ctx.Incarnation())
	assert.NotNil(t, ctx.Logger())

	got, ok := ArgsAs[args](ctx)
	require.True(t, ok)
	assert.Equal(t, 3, got.Beats)
	_, ok = ArgsAs[string](ctx)
	assert.False(t, ok)
}

func TestContext_WaitAll(t *testing.T) {
	_, ctx := newTestContext(t)
	in := flow.NewChannel[int](4)
	out := flow.NewChannel[int](1)

	require.NoError(t, out.Tx().TrySend(0))
	go func() {
		time.Sleep(10 * time.Millisecond)
		for i := 0; i < 2; i++ {
			_ = in.Tx().TrySend(i)
		}
		time.Sleep(10 * time.Millisecond)
		out.Rx().Take()
	}()

	// every condition must hold at once, whatever order they get ready.
	require.True(t, ctx.WaitAll(in.Rx().WaitAvail(2), out.Tx().WaitVacant(1)))
	assert.Equal(t, 2, in.Len())
	assert.Equal(t, 0, out.Len())

	// asking for more than the capacity waits for a full channel.
	require.NoError(t, in.Tx().TrySend(2))
	require.NoError(t, in.Tx().TrySend(3))
	require.True(t, ctx.WaitAll(in.Rx().WaitAvail(100)))
}

func TestContext_WaitAllExhausted(t *testing.T) {
	_, ctx := newTestContext(t)
	in := flow.NewChannel[int](1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		in.Tx().MarkClosed()
	}()
	require.False(t, ctx.WaitAll(in.Rx().WaitAvail(1)))
	require.True(t, ctx.IsDraining())

	// the input can never deliver again: the actor is asked to stop.
	require.False(t, ctx.IsRunning(in.Rx().IsClosedAndEmpty))
}

func TestContext_Shutdown(t *testing.T) {
	g, ctx := newTestContext(t)
	in := flow.NewChannel[int](2)
	require.True(t, ctx.IsRunning(nil))

	go func() {
		time.Sleep(10 * time.Millisecond)
		ctx.RequestShutdown()
	}()
	require.False(t, ctx.WaitAll(in.Rx().WaitAvail(1)))
	require.True(t, g.ShutdownRequested())
	require.True(t, ctx.ShutdownRequested())

	// refusing to stop drains: waits are no longer interrupted by shutdown.
	require.NoError(t, in.Tx().TrySend(1))
	require.True(t, ctx.IsRunning(in.Rx().IsClosedAndEmpty))
	require.True(t, ctx.IsDraining())
	require.True(t, ctx.WaitAll(in.Rx().WaitAvail(1)))

	in.Rx().Take()
	in.Tx().MarkClosed()
	require.False(t, ctx.WaitAll(in.Rx().WaitAvail(1)))
	require.False(t, ctx.IsRunning(in.Rx().IsClosedAndEmpty))
}

func TestContext_WaitPeriodic(t *testing.T) {
	_, ctx := newTestContext(t)
	period := 20 * time.Millisecond

	start := time.Now()
	require.Same(t, ctx.WaitPeriodic(period), ctx.WaitPeriodic(period))

	for i := 0; i < 3; i++ {
		require.True(t, ctx.WaitAll(ctx.WaitPeriodic(period)))
	}
	require.GreaterOrEqual(t, time.Since(start), 3*period)

	readiness, _ := ctx.WaitPeriodic(0).Poll()
	require.Equal(t, flow.Ready, readiness)
}

func TestContext_PeriodicWake(t *testing.T) {
	_, ctx := newTestContext(t)
	period := 10 * time.Millisecond

	readiness, wake := ctx.WaitPeriodic(period).Poll()
	require.Equal(t, flow.Pending, readiness)
	require.NotNil(t, wake)

	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("the wake channel must be closed once the period elapsed")
	}
	readiness, wake = ctx.WaitPeriodic(period).Poll()
	require.Equal(t, flow.Ready, readiness)
	require.Nil(t, wake)
}
