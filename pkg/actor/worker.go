package actor

import (
	"github.com/raskyld/steadyflow"
	"github.com/raskyld/steadyflow/pkg/flow"
)

type WorkerState struct {
	HeartbeatsProcessed uint64
	ValuesProcessed     uint64
	MessagesSent        uint64
	Dropped             uint64
	RestartCount        uint64

	// Pending is the number of generator values the heartbeat at the head
	// of its flow still covers. Zero means the heartbeat was not bound to a
	// batch yet.
	Pending uint64
}

// RunWorker classifies the generated integers. Every heartbeat releases the
// batch of values available when the worker first saw it, and is consumed
// once the whole batch was sent downstream.
func RunWorker(
	ctx *steadyflow.Context,
	heartbeat *flow.Rx[uint64],
	generator *flow.Rx[uint64],
	out *flow.Tx[FizzBuzzMessage],
	cell *steadyflow.State[WorkerState],
) error {
	args := argsOf(ctx)
	state, unlock := cell.Lock(func() WorkerState { return WorkerState{} })
	defer unlock()

	state.RestartCount++
	ctx.Logger().Info(
		"worker starting",
		steadyflow.LabelRestart.L(state.RestartCount),
		steadyflow.LabelHeartbeats.L(state.HeartbeatsProcessed),
		steadyflow.LabelValues.L(state.ValuesProcessed),
		steadyflow.LabelSent.L(state.MessagesSent),
	)

	// Without one of its inputs the worker cannot make progress anymore.
	accept := func() bool {
		return (heartbeat.IsClosedAndEmpty() || generator.IsClosedAndEmpty()) && out.MarkClosed()
	}

	for ctx.IsRunning(accept) {
		if !ctx.WaitAll(heartbeat.WaitAvail(1), generator.WaitAvail(1), out.WaitVacant(1)) {
			continue
		}

		if after := args.Faults.WorkerAfter; after > 0 && state.HeartbeatsProcessed == after && state.RestartCount == 1 {
			ctx.Logger().Error("worker crashing on purpose", steadyflow.LabelHeartbeats.L(state.HeartbeatsProcessed))
			panic("worker: injected fault")
		}

		if _, ok := heartbeat.Peek(); !ok {
			continue
		}
		if state.Pending == 0 {
			state.Pending = uint64(generator.Avail())
		}

		if generator.IsShowstopper(args.ShowstopperThreshold) {
			value, _ := generator.Take()
			state.Dropped++
			ctx.Logger().Warn(
				"dropping showstopper",
				steadyflow.LabelValue.L(value),
				steadyflow.LabelThreshold.L(args.ShowstopperThreshold),
			)
			ctx.IncrCounter(steadyflow.MetricStageQuarantineCount, 1.0)
			settleBatch(ctx, heartbeat, state)
			continue
		}

		value, ok := generator.Peek()
		if !ok {
			continue
		}
		if poison := args.Faults.WorkerPoison; poison != nil && poison(value) {
			panic("worker: poisoned value")
		}

		msg := Classify(value)
		if err := out.TrySend(msg); err != nil {
			continue
		}
		generator.Advance(1)
		state.ValuesProcessed++
		state.MessagesSent++
		ctx.IncrCounter(steadyflow.MetricStageSentCount, 1.0)
		ctx.Logger().Debug("worker sent", steadyflow.LabelValue.L(value), steadyflow.LabelKind.L(msg.String()))
		settleBatch(ctx, heartbeat, state)
	}

	ctx.Logger().Info(
		"worker stopping",
		steadyflow.LabelHeartbeats.L(state.HeartbeatsProcessed),
		steadyflow.LabelValues.L(state.ValuesProcessed),
		steadyflow.LabelSent.L(state.MessagesSent),
		steadyflow.LabelDropped.L(state.Dropped),
	)
	return nil
}

// settleBatch accounts for one value of the current batch, and consumes the
// heartbeat once its batch is complete.
func settleBatch(ctx *steadyflow.Context, heartbeat *flow.Rx[uint64], state *WorkerState) {
	if state.Pending > 0 {
		state.Pending--
	}
	if state.Pending > 0 {
		return
	}
	if beat, ok := heartbeat.Take(); ok {
		state.HeartbeatsProcessed++
		ctx.Logger().Debug("worker processed heartbeat", steadyflow.LabelValue.L(beat))
	}
}
