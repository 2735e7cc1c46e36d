package actor

import (
	"time"

	"github.com/raskyld/steadyflow"
)

// DefaultShowstopperThreshold is how many times a message can be peeked
// without being consumed before a stage drops it.
const DefaultShowstopperThreshold = 7

// Args are the read-only arguments of the pipeline, passed to the graph
// with `steadyflow.WithArgs`.
type Args struct {
	// Rate is the period of the heartbeat.
	Rate  time.Duration
	// Beats is the number of heartbeats after which the heartbeat requests
	// the graph to shut down. Zero means forever.
	Beats uint64

	ShowstopperThreshold int
	Faults               Faults
}

func DefaultArgs() Args {
	return Args{
		Rate:                 time.Second,
		Beats:                60,
		ShowstopperThreshold: DefaultShowstopperThreshold,
	}
}

// Faults injects crashes in the stages to exercise their recovery. The zero
// value disables all of them.
type Faults struct {
	// GeneratorAt panics the generator on the given pass of its loop,
	// counted across restarts, so it only happens once.
	GeneratorAt uint64
	// HeartbeatAt panics the heartbeat on its first invocation, before it
	// sends the given count.
	HeartbeatAt uint64
	// WorkerAfter panics the worker on its first invocation, once it
	// processed that many heartbeats.
	WorkerAfter uint64
	// LoggerAfter panics the logger on its first invocation, once it logged
	// that many messages.
	LoggerAfter uint64

	// WorkerPoison panics the worker on every attempt to process a value
	// for which it returns true.
	WorkerPoison func(value uint64) bool
	// LoggerPoison panics the logger on every attempt to log a message for
	// which it returns true.
	LoggerPoison func(msg FizzBuzzMessage) bool
}

// DemoFaults crash every stage once.
func DemoFaults() Faults {
	return Faults{
		GeneratorAt: 13,
		HeartbeatAt: 7,
		WorkerAfter: 5,
		LoggerAfter: 3,
	}
}

func argsOf(ctx *steadyflow.Context) Args {
	args, ok := steadyflow.ArgsAs[Args](ctx)
	if !ok {
		return DefaultArgs()
	}
	if args.ShowstopperThreshold == 0 {
		args.ShowstopperThreshold = DefaultShowstopperThreshold
	}
	return args
}
