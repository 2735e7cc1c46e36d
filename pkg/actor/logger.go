package actor

import (
	"github.com/raskyld/steadyflow"
	"github.com/raskyld/steadyflow/pkg/flow"
)

type LoggerState struct {
	MessagesLogged uint64
	FizzCount      uint64
	BuzzCount      uint64
	FizzBuzzCount  uint64
	ValueCount     uint64
	Dropped        uint64
	RestartCount   uint64
}

// Total returns how many messages of kind were logged.
func (s *LoggerState) Total(kind Kind) uint64 {
	switch kind {
	case KindFizz:
		return s.FizzCount
	case KindBuzz:
		return s.BuzzCount
	case KindFizzBuzz:
		return s.FizzBuzzCount
	default:
		return s.ValueCount
	}
}

func (s *LoggerState) count(kind Kind) {
	switch kind {
	case KindFizz:
		s.FizzCount++
	case KindBuzz:
		s.BuzzCount++
	case KindFizzBuzz:
		s.FizzBuzzCount++
	default:
		s.ValueCount++
	}
}

// RunLogger logs every classified message and, if journal is not nil,
// records it there. A message is consumed only once both succeeded.
func RunLogger(
	ctx *steadyflow.Context,
	rx *flow.Rx[FizzBuzzMessage],
	cell *steadyflow.State[LoggerState],
	journal *Journal,
) error {
	args := argsOf(ctx)
	state, unlock := cell.Lock(func() LoggerState { return LoggerState{} })
	defer unlock()

	state.RestartCount++
	ctx.Logger().Info(
		"logger starting",
		steadyflow.LabelRestart.L(state.RestartCount),
		steadyflow.LabelTotal.L(state.MessagesLogged),
		steadyflow.LabelFizz.L(state.FizzCount),
		steadyflow.LabelBuzz.L(state.BuzzCount),
		steadyflow.LabelFizzBuzz.L(state.FizzBuzzCount),
		steadyflow.LabelValues.L(state.ValueCount),
	)

	for ctx.IsRunning(rx.IsClosedAndEmpty) {
		if !ctx.WaitAll(rx.WaitAvail(1)) {
			continue
		}

		if after := args.Faults.LoggerAfter; after > 0 && state.MessagesLogged == after && state.RestartCount == 1 {
			ctx.Logger().Error("logger crashing on purpose", steadyflow.LabelTotal.L(state.MessagesLogged))
			panic("logger: injected fault")
		}

		if rx.IsShowstopper(args.ShowstopperThreshold) {
			msg, _ := rx.Take()
			state.Dropped++
			ctx.Logger().Warn(
				"dropping showstopper",
				steadyflow.LabelValue.L(uint64(msg)),
				steadyflow.LabelThreshold.L(args.ShowstopperThreshold),
			)
			ctx.IncrCounter(steadyflow.MetricStageQuarantineCount, 1.0)
			continue
		}

		msg, ok := rx.Peek()
		if !ok {
			continue
		}
		if poison := args.Faults.LoggerPoison; poison != nil && poison(msg) {
			panic("logger: poisoned message")
		}

		kind := msg.Kind()
		ctx.Logger().Info(
			"message",
			steadyflow.LabelValue.L(msg.String()),
			steadyflow.LabelKind.L(kind.String()),
			steadyflow.LabelTotal.L(state.Total(kind)+1),
		)
		if journal != nil {
			if err := journal.Record(msg); err != nil {
				return err
			}
		}

		if rx.Advance(1) > 0 {
			state.MessagesLogged++
			state.count(kind)
			ctx.IncrCounter(steadyflow.MetricStageConsumedCount, 1.0)
		}
	}

	ctx.Logger().Info(
		"logger stopping",
		steadyflow.LabelTotal.L(state.MessagesLogged),
		steadyflow.LabelFizz.L(state.FizzCount),
		steadyflow.LabelBuzz.L(state.BuzzCount),
		steadyflow.LabelFizzBuzz.L(state.FizzBuzzCount),
		steadyflow.LabelValues.L(state.ValueCount),
		steadyflow.LabelDropped.L(state.Dropped),
	)
	return nil
}
