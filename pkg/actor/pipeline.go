package actor

import (
	"github.com/raskyld/steadyflow"
	"github.com/raskyld/steadyflow/pkg/flow"
)

const (
	NameHeartbeat = "HEARTBEAT"
	NameGenerator = "GENERATOR"
	NameWorker    = "WORKER"
	NameLogger    = "LOGGER"
)

// Pipeline holds the flows and the recovery states of the four stages.
type Pipeline struct {
	Heartbeat *flow.Channel[uint64]
	Generator *flow.Channel[uint64]
	Worker    *flow.Channel[FizzBuzzMessage]

	HeartbeatState *steadyflow.State[HeartbeatState]
	GeneratorState *steadyflow.State[GeneratorState]
	WorkerState    *steadyflow.State[WorkerState]
	LoggerState    *steadyflow.State[LoggerState]
}

// Build registers the heartbeat, generator, worker and logger stages on g,
// connected by flows of the given capacity. journal may be nil.
func Build(g *steadyflow.Graph, capacity int, journal *Journal) (*Pipeline, error) {
	p := &Pipeline{
		Heartbeat: flow.NewChannel[uint64](capacity, flow.WithName("heartbeat")),
		Generator: flow.NewChannel[uint64](capacity, flow.WithName("generator")),
		Worker:    flow.NewChannel[FizzBuzzMessage](capacity, flow.WithName("worker")),

		HeartbeatState: steadyflow.NewState[HeartbeatState](),
		GeneratorState: steadyflow.NewState[GeneratorState](),
		WorkerState:    steadyflow.NewState[WorkerState](),
		LoggerState:    steadyflow.NewState[LoggerState](),
	}

	actors := []struct {
		name string
		fn   steadyflow.ActorFunc
	}{
		{NameHeartbeat, func(ctx *steadyflow.Context) error {
			return RunHeartbeat(ctx, p.Heartbeat.Tx(), p.HeartbeatState)
		}},
		{NameGenerator, func(ctx *steadyflow.Context) error {
			return RunGenerator(ctx, p.Generator.Tx(), p.GeneratorState)
		}},
		{NameWorker, func(ctx *steadyflow.Context) error {
			return RunWorker(ctx, p.Heartbeat.Rx(), p.Generator.Rx(), p.Worker.Tx(), p.WorkerState)
		}},
		{NameLogger, func(ctx *steadyflow.Context) error {
			return RunLogger(ctx, p.Worker.Rx(), p.LoggerState, journal)
		}},
	}
	for _, a := range actors {
		if err := g.AddActor(a.name, a.fn); err != nil {
			return nil, err
		}
	}

	g.Observe(p.Heartbeat)
	g.Observe(p.Generator)
	g.Observe(p.Worker)
	return p, nil
}
