package steadyflow

import (
	"errors"
	"fmt"
)

var (
	ErrNameInvalid = errors.New("graph: names must only contains alphanum, dashes, dots and be less than 128 chars")

	ErrInvalidCfg      = errors.New("graph: invalid options")
	ErrNameConflict    = errors.New("graph: actor name conflict")
	ErrGraphStarted    = errors.New("graph: already started")
	ErrGraphNotStarted = errors.New("graph: not started")
	ErrNoActors        = errors.New("graph: no actor to start")
	ErrStopTimeout     = errors.New("graph: actors did not stop in time")
	ErrNilActor        = errors.New("graph: actor function is nil")
)

const (
	TerminatedByUnknown TerminatedBy = iota
	TerminatedByReturn
	TerminatedByPanic
	TerminatedByError
)

// TerminatedBy tells how an actor invocation ended.
type TerminatedBy uint8

func (cause TerminatedBy) String() string {
	switch cause {
	case TerminatedByReturn:
		return "return"
	case TerminatedByPanic:
		return "panic"
	case TerminatedByError:
		return "error"
	default:
		return "unknown"
	}
}

// PanicError is the error recorded when an actor invocation panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (perr *PanicError) Error() string {
	return fmt.Sprintf("actor panicked: %v", perr.Value)
}

// Unwrap exposes the panic value when it was an error.
func (perr *PanicError) Unwrap() error {
	err, _ := perr.Value.(error)
	return err
}
