package steadyflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type counters struct {
	Sent     uint64
	Restarts int
}

func TestState(t *testing.T) {
	cell := NewState[counters]()
	require.False(t, cell.Initialized())

	inits := 0
	init := func() counters {
		inits++
		return counters{Sent: 10}
	}

	func() {
		state, unlock := cell.Lock(init)
		defer unlock()
		state.Sent++
	}()
	require.True(t, cell.Initialized())

	// a panicking holder must release the state through its deferred unlock.
	require.Panics(t, func() {
		state, unlock := cell.Lock(init)
		defer unlock()
		state.Restarts++
		panic("crash")
	})

	state, unlock := cell.Lock(init)
	unlock()
	unlock()
	require.Equal(t, 1, inits)
	require.Equal(t, counters{Sent: 11, Restarts: 1}, *state)
}

func TestState_NilInit(t *testing.T) {
	cell := NewState[int]()
	state, unlock := cell.Lock(nil)
	defer unlock()
	require.Zero(t, *state)

	// the state is held: Initialized must answer without waiting for unlock.
	done := make(chan bool)
	go func() { done <- cell.Initialized() }()
	select {
	case initialized := <-done:
		require.True(t, initialized)
	case <-time.After(time.Second):
		t.Fatal("Initialized blocked on the holder of the state")
	}
}
