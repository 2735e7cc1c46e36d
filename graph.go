package steadyflow

import (
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/steadyflow/pkg/flow"
)

const MaxActorNameLength = 128

var InvalidActorName = regexp.MustCompile(`[^A-Za-z0-9\-\.]+`)

// ActorFunc is the body of an actor. The `Graph` invokes it again every time
// it panics or returns a non-nil error, so everything it must not lose has
// to live in a `State` captured by the function.
type ActorFunc func(*Context) error

// ActorStats are the supervision counters of one actor.
type ActorStats struct {
	Invocations uint64
	Restarts    uint64
	Terminated  bool
	LastError   error
}

type actor struct {
	name  string
	fn    ActorFunc
	lk    sync.Mutex
	stats ActorStats
}

func (a *actor) begin() uint64 {
	a.lk.Lock()
	defer a.lk.Unlock()
	a.stats.Invocations++
	return a.stats.Invocations
}

func (a *actor) restart(err error) uint64 {
	a.lk.Lock()
	defer a.lk.Unlock()
	a.stats.Restarts++
	a.stats.LastError = err
	return a.stats.Restarts
}

func (a *actor) terminate() {
	a.lk.Lock()
	defer a.lk.Unlock()
	a.stats.Terminated = true
}

// Graph supervises a set of actors: each one runs in its own goroutine and
// is restarted whenever it terminates abnormally, until it returns nil.
type Graph struct {
	config config
	logger *slog.Logger
	runID  string

	actors   map[string]*actor
	order    []*actor
	observed []flow.Observable

	// synchronisation
	lk sync.Mutex

	// 2-phase stop:
	// phase 1: shutdown notification, actors drain and close their outputs.
	// phase 2: done, every actor terminated.
	started    bool
	shutdown   bool
	shutdownCh chan struct{}
	doneCh     chan struct{}
	actorsWg   sync.WaitGroup
	wg         sync.WaitGroup
}

func New(opts ...Option) (*Graph, error) {
	g := &Graph{
		runID:      uuid.NewString(),
		actors:     make(map[string]*actor),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	g.config.telemetryInterval = time.Second
	for _, opt := range opts {
		err := opt(&g.config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	// Logging implementations.
	if g.config.logHandler != nil {
		g.logger = slog.New(g.config.logHandler)
	} else {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With(LabelRunID.L(g.runID))

	// Metrics implementations.
	if g.config.msink == nil {
		g.config.msink = metrics.Default()
	}

	return g, nil
}

// RunID uniquely identifies this graph in logs.
func (g *Graph) RunID() string {
	return g.runID
}

// AddActor registers fn under name. It must be called before `Start`.
func (g *Graph) AddActor(name string, fn ActorFunc) error {
	if !ValidateActorName(name) {
		return ErrNameInvalid
	}
	if fn == nil {
		return ErrNilActor
	}

	g.lk.Lock()
	defer g.lk.Unlock()
	if g.started {
		return ErrGraphStarted
	}
	if _, has := g.actors[name]; has {
		return ErrNameConflict
	}

	a := &actor{name: name, fn: fn}
	g.actors[name] = a
	g.order = append(g.order, a)
	return nil
}

// Observe registers a channel whose depth is periodically reported.
func (g *Graph) Observe(ch flow.Observable) {
	g.lk.Lock()
	defer g.lk.Unlock()
	g.observed = append(g.observed, ch)
}

func (g *Graph) Start() error {
	g.lk.Lock()
	defer g.lk.Unlock()
	if g.started {
		return ErrGraphStarted
	}
	if len(g.order) == 0 {
		return ErrNoActors
	}
	g.started = true

	g.actorsWg.Add(len(g.order))
	for _, a := range g.order {
		go g.supervise(a)
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.actorsWg.Wait()
		close(g.doneCh)
	}()

	if g.config.telemetryInterval > 0 && len(g.observed) > 0 {
		g.wg.Add(1)
		go g.observeChannels()
	}

	g.logger.Info("graph started", "actors", len(g.order))
	return nil
}

// RequestShutdown asks every actor to stop. It is idempotent.
func (g *Graph) RequestShutdown() {
	g.lk.Lock()
	if g.shutdown {
		g.lk.Unlock()
		return
	}
	g.shutdown = true
	close(g.shutdownCh)
	g.lk.Unlock()

	g.config.msink.IncrCounterWithLabels(MetricShutdownRequestCount, 1.0, g.labels())
	g.logger.Info("shutdown requested")
}

func (g *Graph) ShutdownRequested() bool {
	select {
	case <-g.shutdownCh:
		return true
	default:
		return false
	}
}

// Done is closed once every actor terminated.
func (g *Graph) Done() <-chan struct{} {
	return g.doneCh
}

// BlockUntilStopped waits for a shutdown request, or for every actor to
// terminate on its own, then gives actors up to timeout to terminate.
func (g *Graph) BlockUntilStopped(timeout time.Duration) error {
	g.lk.Lock()
	started := g.started
	g.lk.Unlock()
	if !started {
		return ErrGraphNotStarted
	}

	select {
	case <-g.shutdownCh:
	case <-g.doneCh:
	}

	start := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-g.doneCh:
	case <-timer.C:
		for _, a := range g.order {
			if stats, _ := g.Stats(a.name); !stats.Terminated {
				g.logger.Error("actor did not stop", LabelActor.L(a.name))
			}
		}
		return fmt.Errorf("%w: after %s", ErrStopTimeout, timeout)
	}

	g.wg.Wait()
	g.logger.Info("graph stopped", LabelDuration.L(time.Since(start)))
	return nil
}

// Stats returns the supervision counters of the named actor.
func (g *Graph) Stats(name string) (ActorStats, bool) {
	g.lk.Lock()
	a, has := g.actors[name]
	g.lk.Unlock()
	if !has {
		return ActorStats{}, false
	}

	a.lk.Lock()
	defer a.lk.Unlock()
	return a.stats, true
}

func (g *Graph) supervise(a *actor) {
	defer g.actorsWg.Done()
	actorLabel := LabelActor.M(a.name)

	for {
		ctx := newContext(g, a.name, a.begin())
		g.config.msink.IncrCounterWithLabels(MetricActorInvocationCount, 1.0, g.labels(actorLabel))

		start := time.Now()
		cause, err := invoke(ctx, a.fn)
		g.config.msink.AddSampleWithLabels(
			MetricActorRunDuration,
			float32(time.Since(start).Seconds()*1e3),
			g.labels(actorLabel),
		)

		if cause == TerminatedByReturn {
			a.terminate()
			g.config.msink.IncrCounterWithLabels(MetricActorTerminatedCount, 1.0, g.labels(actorLabel))
			ctx.logger.Debug("actor terminated")
			return
		}

		restarts := a.restart(err)
		g.config.msink.IncrCounterWithLabels(
			MetricActorRestartCount,
			1.0,
			g.labels(actorLabel, LabelReason.M(cause.String())),
		)
		ctx.logger.Error(
			"actor terminated abnormally, restarting",
			LabelReason.L(cause.String()),
			LabelError.L(err),
			LabelRestart.L(restarts),
		)

		if g.config.restartDelay > 0 {
			// on shutdown, restart at once so the actor can close its outputs.
			timer := time.NewTimer(g.config.restartDelay)
			select {
			case <-timer.C:
			case <-g.shutdownCh:
				timer.Stop()
			}
		}
	}
}

func invoke(ctx *Context, fn ActorFunc) (cause TerminatedBy, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause = TerminatedByPanic
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	if err := fn(ctx); err != nil {
		return TerminatedByError, err
	}
	return TerminatedByReturn, nil
}

func ValidateActorName(name string) bool {
	return name != "" && !InvalidActorName.MatchString(name) && len(name) <= MaxActorNameLength
}
