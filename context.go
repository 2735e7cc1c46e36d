package steadyflow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/steadyflow/pkg/flow"
)

// Context is handed to a single invocation of an `ActorFunc`. A restarted
// actor gets a fresh one.
type Context struct {
	graph       *Graph
	name        string
	invocation  uint64
	incarnation string
	logger      *slog.Logger

	// draining is set once the actor refused to stop: from then on, waits
	// are only interrupted by progress of the awaited channels.
	draining  bool
	periodics map[time.Duration]*periodic
}

func newContext(g *Graph, name string, invocation uint64) *Context {
	incarnation := uuid.NewString()
	return &Context{
		graph:       g,
		name:        name,
		invocation:  invocation,
		incarnation: incarnation,
		logger: g.logger.With(
			LabelActor.L(name),
			LabelIncarnation.L(incarnation),
			LabelInvocation.L(invocation),
		),
		periodics: make(map[time.Duration]*periodic),
	}
}

func (c *Context) Name() string {
	return c.name
}

func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Invocation is 1 for the first run of the actor, and is incremented on
// every restart.
func (c *Context) Invocation() uint64 {
	return c.invocation
}

// Incarnation uniquely identifies this invocation.
func (c *Context) Incarnation() string {
	return c.incarnation
}

// Args returns the arguments set with `WithArgs`.
func (c *Context) Args() any {
	return c.graph.config.args
}

// ArgsAs returns the graph arguments if they are of type T.
func ArgsAs[T any](c *Context) (T, bool) {
	args, ok := c.graph.config.args.(T)
	return args, ok
}

func (c *Context) ShutdownRequested() bool {
	return c.graph.ShutdownRequested()
}

// RequestShutdown asks every actor of the graph to stop.
func (c *Context) RequestShutdown() {
	c.graph.RequestShutdown()
}

// IsDraining reports whether the actor is finishing its work before
// stopping.
func (c *Context) IsDraining() bool {
	return c.draining
}

// IsRunning is the loop predicate of actors.
//
// It is true until a shutdown is requested, or a wait found an input which
// will never deliver again. It then calls accept: if accept returns true the
// actor must stop, otherwise it keeps running in draining mode, and accept
// is asked again on every call.
//
// Producers typically pass their `flow.Tx.MarkClosed`, consumers their
// `flow.Rx.IsClosedAndEmpty`.
func (c *Context) IsRunning(accept func() bool) bool {
	if !c.draining && !c.graph.ShutdownRequested() {
		return true
	}
	if accept == nil || accept() {
		return false
	}
	if !c.draining {
		c.draining = true
		c.logger.Debug("draining before stopping")
	}
	return true
}

// WaitAll suspends the actor until every condition holds at the same time.
//
// It returns false, without waiting, when a condition can never hold again,
// and when a shutdown is requested unless the actor is draining: callers
// must then go back to `IsRunning`.
func (c *Context) WaitAll(conds ...flow.Condition) bool {
	for {
		if !c.draining && c.graph.ShutdownRequested() {
			return false
		}

		var wake <-chan struct{}
		for _, cond := range conds {
			readiness, condWake := cond.Poll()
			switch readiness {
			case flow.Exhausted:
				c.draining = true
				return false
			case flow.Pending:
				if wake == nil {
					wake = condWake
				}
			}
		}

		if wake == nil {
			for _, cond := range conds {
				if p, ok := cond.(*periodic); ok {
					p.fire()
				}
			}
			return true
		}

		// Every other condition stays true until we act, so waiting on the
		// first pending one is enough before evaluating them all again.
		var stop <-chan struct{}
		if !c.draining {
			stop = c.graph.shutdownCh
		}
		select {
		case <-wake:
		case <-stop:
			return false
		}
	}
}

// WaitPeriodic returns a condition holding once every period. The period
// starts with the invocation, and is reset every time `WaitAll` returns
// true with it. A zero period always holds.
func (c *Context) WaitPeriodic(period time.Duration) flow.Condition {
	p, ok := c.periodics[period]
	if !ok {
		p = &periodic{
			every: period,
			next:  time.Now().Add(period),
		}
		c.periodics[period] = p
	}
	return p
}

// IncrCounter emits a counter labelled with the actor name.
func (c *Context) IncrCounter(key []string, val float32, labels ...metrics.Label) {
	all := make([]metrics.Label, 0, len(labels)+1)
	all = append(all, LabelActor.M(c.name))
	all = append(all, labels...)
	c.graph.config.msink.IncrCounterWithLabels(key, val, c.graph.labels(all...))
}

type periodic struct {
	every time.Duration
	next  time.Time
}

func (p *periodic) Poll() (flow.Readiness, <-chan struct{}) {
	if p.every <= 0 {
		return flow.Ready, nil
	}
	wait := time.Until(p.next)
	if wait <= 0 {
		return flow.Ready, nil
	}
	wake := make(chan struct{})
	time.AfterFunc(wait, func() { close(wake) })
	return flow.Pending, wake
}

func (p *periodic) fire() {
	now := time.Now()
	p.next = p.next.Add(p.every)
	if p.next.Before(now) {
		// we are late, do not burst to catch up.
		p.next = now.Add(p.every)
	}
}
