package flow

import "sync"

// Channel is a bounded FIFO connecting one producing stage to one consuming
// stage. It outlives the stages using it: a restarted stage finds every
// message it had not committed yet.
//
// Reads are split between an observation (`Rx.Peek`) and a commit
// (`Rx.Advance` or `Rx.Take`) so a consumer can defer consumption until the
// side effect depending on a message succeeded.
type Channel[T any] struct {
	name string

	lk     sync.Mutex
	buf    []T
	head   int
	size   int
	closed bool

	// notifyCh is closed and replaced on every state change.
	notifyCh chan struct{}

	// peeks counts how many times the message at head has been observed
	// without being consumed.
	peeks int
	taken uint64
}

var _ Observable = (*Channel[int])(nil)

type channelOpts struct {
	name string
}

// ChannelOption to pass to `NewChannel`.
type ChannelOption func(*channelOpts)

// WithName names the channel in logs and metrics.
func WithName(name string) ChannelOption {
	return func(o *channelOpts) {
		o.name = name
	}
}

// NewChannel allocates a channel holding at most capacity messages.
// A capacity lower than 1 is raised to 1.
func NewChannel[T any](capacity int, opts ...ChannelOption) *Channel[T] {
	var o channelOpts
	for _, opt := range opts {
		opt(&o)
	}

	if capacity < 1 {
		capacity = 1
	}

	return &Channel[T]{
		name:     o.name,
		buf:      make([]T, capacity),
		notifyCh: make(chan struct{}),
	}
}

func (ch *Channel[T]) Name() string {
	return ch.name
}

// Len is the number of buffered messages.
func (ch *Channel[T]) Len() int {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	return ch.size
}

func (ch *Channel[T]) Cap() int {
	return len(ch.buf)
}

func (ch *Channel[T]) IsClosed() bool {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	return ch.closed
}

// Consumed is the total number of messages taken out of the channel.
func (ch *Channel[T]) Consumed() uint64 {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	return ch.taken
}

// Tx returns a producer handle.
func (ch *Channel[T]) Tx() *Tx[T] {
	return &Tx[T]{ch: ch}
}

// Rx returns a consumer handle.
func (ch *Channel[T]) Rx() *Rx[T] {
	return &Rx[T]{ch: ch}
}

// changed wakes up every waiter. ch.lk MUST be held.
func (ch *Channel[T]) changed() {
	close(ch.notifyCh)
	ch.notifyCh = make(chan struct{})
}

func (ch *Channel[T]) push(msg T) error {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	if ch.closed {
		return ErrFlowClosed
	}
	if ch.size == len(ch.buf) {
		return ErrBlocked
	}

	ch.buf[(ch.head+ch.size)%len(ch.buf)] = msg
	ch.size++
	ch.changed()
	return nil
}

func (ch *Channel[T]) markClosed() {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	if ch.closed {
		// no-op
		return
	}
	ch.closed = true
	ch.changed()
}

func (ch *Channel[T]) peek() (msg T, ok bool) {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	if ch.size == 0 {
		return msg, false
	}
	ch.peeks++
	return ch.buf[ch.head], true
}

func (ch *Channel[T]) take() (msg T, ok bool) {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	if ch.size == 0 {
		return msg, false
	}
	msg = ch.buf[ch.head]
	ch.pop(1)
	return msg, true
}

func (ch *Channel[T]) advance(n int) int {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	return ch.pop(n)
}

// pop drops up to n messages from head. ch.lk MUST be held.
func (ch *Channel[T]) pop(n int) int {
	n = min(n, ch.size)
	if n <= 0 {
		return 0
	}

	var zero T
	for i := 0; i < n; i++ {
		ch.buf[(ch.head+i)%len(ch.buf)] = zero
	}
	ch.head = (ch.head + n) % len(ch.buf)
	ch.size -= n
	ch.taken += uint64(n)
	ch.peeks = 0
	ch.changed()
	return n
}

// Tx is the producing end of a `Channel`.
//
// Methods MUST NOT be called concurrently with another producer.
type Tx[T any] struct {
	ch *Channel[T]
}

// TrySend appends msg if there is room. It returns `ErrBlocked` if the
// channel is full and `ErrFlowClosed` once the channel has been closed.
func (tx *Tx[T]) TrySend(msg T) error {
	return tx.ch.push(msg)
}

// Vacant is the number of messages which can be sent without blocking.
func (tx *Tx[T]) Vacant() int {
	tx.ch.lk.Lock()
	defer tx.ch.lk.Unlock()
	return len(tx.ch.buf) - tx.ch.size
}

func (tx *Tx[T]) IsFull() bool {
	return tx.Vacant() == 0
}

func (tx *Tx[T]) IsClosed() bool {
	return tx.ch.IsClosed()
}

// MarkClosed terminates production, consumers can still drain what is
// buffered. It always returns true so it can be used as a shutdown
// acceptance predicate.
func (tx *Tx[T]) MarkClosed() bool {
	tx.ch.markClosed()
	return true
}

// WaitVacant holds once n messages can be sent. n is capped to the
// channel capacity.
func (tx *Tx[T]) WaitVacant(n int) Condition {
	return vacantCond[T]{ch: tx.ch, n: min(n, len(tx.ch.buf))}
}

// Rx is the consuming end of a `Channel`.
//
// Methods MUST NOT be called concurrently with another consumer.
type Rx[T any] struct {
	ch *Channel[T]
}

// Peek returns the next unread message without consuming it. Subsequent
// calls return the same message until it is advanced over.
func (rx *Rx[T]) Peek() (T, bool) {
	return rx.ch.peek()
}

// Take consumes and returns the next message.
func (rx *Rx[T]) Take() (T, bool) {
	return rx.ch.take()
}

// Advance commits the consumption of n previously peeked messages and
// returns how many were actually consumed.
func (rx *Rx[T]) Advance(n int) int {
	return rx.ch.advance(n)
}

// Avail is the number of buffered messages.
func (rx *Rx[T]) Avail() int {
	return rx.ch.Len()
}

// PeekCount is how many times the next unread message was peeked.
func (rx *Rx[T]) PeekCount() int {
	rx.ch.lk.Lock()
	defer rx.ch.lk.Unlock()
	return rx.ch.peeks
}

// IsShowstopper reports whether the next unread message was peeked at
// least threshold times without being consumed. It usually means
// processing it keeps crashing the consumer.
func (rx *Rx[T]) IsShowstopper(threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return rx.PeekCount() >= threshold
}

// IsClosedAndEmpty is true once no message will ever be read again.
func (rx *Rx[T]) IsClosedAndEmpty() bool {
	rx.ch.lk.Lock()
	defer rx.ch.lk.Unlock()
	return rx.ch.closed && rx.ch.size == 0
}

func (rx *Rx[T]) IsClosed() bool {
	return rx.ch.IsClosed()
}

// WaitAvail holds once n messages are buffered. n is capped to the
// channel capacity.
func (rx *Rx[T]) WaitAvail(n int) Condition {
	return availCond[T]{ch: rx.ch, n: min(n, len(rx.ch.buf))}
}

type availCond[T any] struct {
	ch *Channel[T]
	n  int
}

func (c availCond[T]) Poll() (Readiness, <-chan struct{}) {
	c.ch.lk.Lock()
	defer c.ch.lk.Unlock()
	switch {
	case c.ch.size >= c.n:
		return Ready, nil
	case c.ch.closed:
		return Exhausted, nil
	}
	return Pending, c.ch.notifyCh
}

type vacantCond[T any] struct {
	ch *Channel[T]
	n  int
}

func (c vacantCond[T]) Poll() (Readiness, <-chan struct{}) {
	c.ch.lk.Lock()
	defer c.ch.lk.Unlock()
	switch {
	case c.ch.closed:
		return Exhausted, nil
	case len(c.ch.buf)-c.ch.size >= c.n:
		return Ready, nil
	}
	return Pending, c.ch.notifyCh
}
