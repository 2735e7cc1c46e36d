package steadyflow

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/steadyflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(emitter string) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}).WithAttrs([]slog.Attr{
		{Key: "emitter", Value: slog.StringValue(emitter)},
	})
}

func counterSum(sink *metrics.InmemSink, name string, actor string) float64 {
	var sum float64
	for _, interval := range sink.Data() {
		interval.RLock()
		for _, sample := range interval.Counters {
			if sample.Name != name {
				continue
			}
			for _, label := range sample.Labels {
				if label.Name == string(LabelActor) && label.Value == actor {
					sum += sample.Sum
				}
			}
		}
		interval.RUnlock()
	}
	return sum
}

func TestGraph_Options(t *testing.T) {
	_, err := New(WithRestartDelay(-time.Second))
	require.ErrorIs(t, err, ErrInvalidCfg)

	_, err = New(WithTelemetryInterval(-time.Second))
	require.ErrorIs(t, err, ErrInvalidCfg)

	g, err := New(WithMetricSink(nil), WithArgs(42))
	require.NoError(t, err)
	require.IsType(t, &metrics.BlackholeSink{}, g.config.msink)
	require.NotEmpty(t, g.RunID())
}

func TestGraph_AddActor(t *testing.T) {
	g, err := New(WithLog(testHandler("add")))
	require.NoError(t, err)
	noop := func(*Context) error { return nil }

	require.ErrorIs(t, g.AddActor("", noop), ErrNameInvalid)
	require.ErrorIs(t, g.AddActor("with space", noop), ErrNameInvalid)
	require.ErrorIs(t, g.AddActor("nil", nil), ErrNilActor)
	require.ErrorIs(t, g.Start(), ErrNoActors)
	require.ErrorIs(t, g.BlockUntilStopped(time.Second), ErrGraphNotStarted)

	require.NoError(t, g.AddActor("GENERATOR", noop))
	require.ErrorIs(t, g.AddActor("GENERATOR", noop), ErrNameConflict)

	require.NoError(t, g.Start())
	require.ErrorIs(t, g.Start(), ErrGraphStarted)
	require.ErrorIs(t, g.AddActor("late", noop), ErrGraphStarted)
	require.NoError(t, g.BlockUntilStopped(time.Second))
}

func TestGraph_RestartKeepsState(t *testing.T) {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	g, err := New(WithLog(testHandler("restart")), WithMetricSink(sink))
	require.NoError(t, err)

	cell := NewState[int]()
	var incarnations []string
	require.NoError(t, g.AddActor("crashy", func(ctx *Context) error {
		count, unlock := cell.Lock(func() int { return 0 })
		defer unlock()

		incarnations = append(incarnations, ctx.Incarnation())
		*count++
		switch *count {
		case 1:
			panic("boom")
		case 2:
			return errors.New("failed")
		}
		return nil
	}))

	require.NoError(t, g.Start())
	require.NoError(t, g.BlockUntilStopped(time.Second))

	stats, ok := g.Stats("crashy")
	require.True(t, ok)
	assert.Equal(t, uint64(3), stats.Invocations)
	assert.Equal(t, uint64(2), stats.Restarts)
	assert.True(t, stats.Terminated)
	assert.EqualError(t, stats.LastError, "failed")

	count, unlock := cell.Lock(nil)
	assert.Equal(t, 3, *count, "restarts must not reset the state")
	unlock()

	require.Len(t, incarnations, 3)
	assert.NotEqual(t, incarnations[0], incarnations[1])

	assert.Equal(t, 2.0, counterSum(sink, "steadyflow.actor.restart.count", "crashy"))
	assert.Equal(t, 3.0, counterSum(sink, "steadyflow.actor.invocation.count", "crashy"))

	_, ok = g.Stats("unknown")
	assert.False(t, ok)
}

func TestGraph_PanicError(t *testing.T) {
	cause := errors.New("cause")
	_, err := invoke(&Context{}, func(*Context) error { panic(cause) })
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, err, cause)
	require.NotEmpty(t, perr.Stack)
}

func TestGraph_ShutdownPropagation(t *testing.T) {
	g, err := New(WithLog(testHandler("shutdown")), WithRestartDelay(time.Millisecond))
	require.NoError(t, err)

	ch := flow.NewChannel[uint64](2, flow.WithName("numbers"))
	g.Observe(ch)

	producer := NewState[uint64]()
	require.NoError(t, g.AddActor("producer", func(ctx *Context) error {
		next, unlock := producer.Lock(nil)
		defer unlock()
		tx := ch.Tx()
		for ctx.IsRunning(tx.MarkClosed) {
			if !ctx.WaitAll(tx.WaitVacant(1)) {
				continue
			}
			if tx.TrySend(*next) == nil {
				*next++
			}
		}
		return nil
	}))

	var lk sync.Mutex
	var received []uint64
	require.NoError(t, g.AddActor("consumer", func(ctx *Context) error {
		rx := ch.Rx()
		for ctx.IsRunning(rx.IsClosedAndEmpty) {
			if !ctx.WaitAll(rx.WaitAvail(1)) {
				continue
			}
			msg, ok := rx.Peek()
			if !ok {
				continue
			}
			lk.Lock()
			received = append(received, msg)
			n := len(received)
			lk.Unlock()
			rx.Advance(1)
			if n == 50 {
				ctx.RequestShutdown()
			}
		}
		return nil
	}))

	require.NoError(t, g.Start())
	require.NoError(t, g.BlockUntilStopped(time.Second))
	require.True(t, g.ShutdownRequested())
	require.True(t, ch.Rx().IsClosedAndEmpty())

	lk.Lock()
	defer lk.Unlock()
	require.GreaterOrEqual(t, len(received), 50)
	for i, msg := range received {
		require.Equal(t, uint64(i), msg, "messages must be received in order, once")
	}
}

func TestGraph_StopTimeout(t *testing.T) {
	g, err := New(WithLog(testHandler("timeout")))
	require.NoError(t, err)

	stuck := flow.NewChannel[int](1)
	require.NoError(t, g.AddActor("stubborn", func(ctx *Context) error {
		rx := stuck.Rx()
		for ctx.IsRunning(rx.IsClosedAndEmpty) {
			ctx.WaitAll(rx.WaitAvail(1))
			rx.Take()
		}
		return nil
	}))

	require.NoError(t, g.Start())
	g.RequestShutdown()
	g.RequestShutdown()
	require.ErrorIs(t, g.BlockUntilStopped(50*time.Millisecond), ErrStopTimeout)

	stuck.Tx().MarkClosed()
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("actor should stop once its input is closed")
	}
}
