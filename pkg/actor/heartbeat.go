package actor

import (
	"github.com/raskyld/steadyflow"
	"github.com/raskyld/steadyflow/pkg/flow"
)

type HeartbeatState struct {
	// Count is the next beat to send.
	Count        uint64
	BeatsSent    uint64
	RestartCount uint64
}

// RunHeartbeat sends a beat every `Args.Rate` and requests the graph to shut
// down once `Args.Beats` were sent.
func RunHeartbeat(ctx *steadyflow.Context, tx *flow.Tx[uint64], cell *steadyflow.State[HeartbeatState]) error {
	args := argsOf(ctx)
	state, unlock := cell.Lock(func() HeartbeatState { return HeartbeatState{} })
	defer unlock()

	state.RestartCount++
	ctx.Logger().Info(
		"heartbeat starting",
		steadyflow.LabelRestart.L(state.RestartCount),
		steadyflow.LabelCount.L(state.Count),
	)

	for ctx.IsRunning(tx.MarkClosed) {
		if !ctx.WaitAll(ctx.WaitPeriodic(args.Rate), tx.WaitVacant(1)) {
			continue
		}

		if at := args.Faults.HeartbeatAt; at > 0 && state.Count == at && state.RestartCount == 1 {
			ctx.Logger().Error("heartbeat crashing on purpose", steadyflow.LabelCount.L(state.Count))
			panic("heartbeat: injected fault")
		}

		beat := state.Count
		if err := tx.TrySend(beat); err != nil {
			continue
		}
		state.Count++
		state.BeatsSent++
		ctx.IncrCounter(steadyflow.MetricStageSentCount, 1.0)
		ctx.Logger().Debug("heartbeat sent", steadyflow.LabelValue.L(beat))

		if args.Beats > 0 && state.Count == args.Beats {
			ctx.Logger().Info("heartbeat completed, requesting shutdown", steadyflow.LabelCount.L(state.Count))
			ctx.RequestShutdown()
		}
	}

	ctx.Logger().Info(
		"heartbeat stopping",
		steadyflow.LabelCount.L(state.Count),
		steadyflow.LabelTotal.L(state.BeatsSent),
	)
	return nil
}
