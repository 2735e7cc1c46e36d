package flow

import "errors"

var (
	ErrFlowClosed = errors.New("flow: closed")
	ErrBlocked    = errors.New("flow: no vacancy")
	ErrFrameSize  = errors.New("flow: invalid frame size")
)

// Readiness of a `Condition` at the time it was polled.
type Readiness uint8

const (
	// Pending conditions may become ready later.
	Pending Readiness = iota
	// Ready conditions hold and keep holding until their owner acts.
	Ready
	// Exhausted conditions can never become ready again, e.g. waiting for
	// messages on a closed and drained flow.
	Exhausted
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return "pending"
	}
}

// Condition is something a stage can suspend on.
//
// Poll MUST return the wake channel atomically with the readiness so no
// state change can be missed between the two. The wake channel is closed
// on the next state change, it can be nil if the readiness is final.
type Condition interface {
	Poll() (Readiness, <-chan struct{})
}

// Observable flows expose their occupation for telemetry.
type Observable interface {
	Name() string
	Len() int
	Cap() int
}
