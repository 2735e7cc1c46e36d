package actor

import (
	"github.com/raskyld/steadyflow"
	"github.com/raskyld/steadyflow/pkg/flow"
)

// GeneratorState survives restarts of the generator.
type GeneratorState struct {
	// Value is the next integer to send.
	Value        uint64
	MessagesSent uint64
	// Passes counts the loop iterations which found room to send.
	Passes       uint64
	RestartCount uint64
}

// RunGenerator sends consecutive integers, starting at 0, as fast as the
// downstream stage accepts them.
func RunGenerator(ctx *steadyflow.Context, tx *flow.Tx[uint64], cell *steadyflow.State[GeneratorState]) error {
	args := argsOf(ctx)
	state, unlock := cell.Lock(func() GeneratorState { return GeneratorState{} })
	defer unlock()

	state.RestartCount++
	ctx.Logger().Info(
		"generator starting",
		steadyflow.LabelRestart.L(state.RestartCount),
		steadyflow.LabelValue.L(state.Value),
		steadyflow.LabelCount.L(state.MessagesSent),
	)

	for ctx.IsRunning(tx.MarkClosed) {
		if !ctx.WaitAll(tx.WaitVacant(1)) {
			continue
		}

		state.Passes++
		if at := args.Faults.GeneratorAt; at > 0 && state.Passes == at {
			ctx.Logger().Error("generator crashing on purpose", steadyflow.LabelValue.L(state.Value))
			panic("generator: injected fault")
		}

		if tx.IsFull() {
			continue
		}
		msg := state.Value
		if err := tx.TrySend(msg); err != nil {
			continue
		}
		state.Value++
		state.MessagesSent++
		ctx.IncrCounter(steadyflow.MetricStageSentCount, 1.0)
		ctx.Logger().Debug("generator sent", steadyflow.LabelValue.L(msg))
	}

	ctx.Logger().Info(
		"generator stopping",
		steadyflow.LabelValue.L(state.Value),
		steadyflow.LabelCount.L(state.MessagesSent),
	)
	return nil
}
