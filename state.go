package steadyflow

import (
	"sync"
	"sync/atomic"
)

// State holds the recovery state of one actor. It is allocated when the
// graph is built and handed again to every restarted invocation, so nothing
// stored in it is lost when the actor panics.
type State[T any] struct {
	lk          sync.Mutex
	value       T
	initialized atomic.Bool
}

func NewState[T any]() *State[T] {
	return &State[T]{}
}

// Lock grants exclusive access to the state until unlock is called. The
// first call ever materializes the state with init, later calls return the
// very same value, whatever happened to previous invocations.
//
// Callers SHOULD defer unlock so it also runs when the invocation panics.
func (s *State[T]) Lock(init func() T) (state *T, unlock func()) {
	s.lk.Lock()
	if !s.initialized.Load() {
		if init != nil {
			s.value = init()
		}
		s.initialized.Store(true)
	}

	var once sync.Once
	return &s.value, func() {
		once.Do(s.lk.Unlock)
	}
}

// Initialized reports whether a previous `Lock` materialized the state.
// It never blocks, even while a stage holds the state.
func (s *State[T]) Initialized() bool {
	return s.initialized.Load()
}
