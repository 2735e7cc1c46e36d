package actor

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrInvalidMessage = errors.New("actor: invalid fizzbuzz message")

// FizzBuzzMessage packs the classification of an integer in 8 bytes.
//
// The reserved discriminants 3, 5 and 15 stand for Fizz, Buzz and FizzBuzz,
// every other value is the integer itself: it can never collide with a
// discriminant because a carried integer is not a multiple of 3 nor 5.
type FizzBuzzMessage uint64

const (
	Fizz     FizzBuzzMessage = 3
	Buzz     FizzBuzzMessage = 5
	FizzBuzz FizzBuzzMessage = 15
)

// Kind is the variant of a `FizzBuzzMessage`.
type Kind uint8

const (
	KindValue Kind = iota
	KindFizz
	KindBuzz
	KindFizzBuzz
)

func (k Kind) String() string {
	switch k {
	case KindFizz:
		return "Fizz"
	case KindBuzz:
		return "Buzz"
	case KindFizzBuzz:
		return "FizzBuzz"
	default:
		return "Value"
	}
}

// Classify maps n to its FizzBuzz variant.
func Classify(n uint64) FizzBuzzMessage {
	switch {
	case n%15 == 0:
		return FizzBuzz
	case n%3 == 0:
		return Fizz
	case n%5 == 0:
		return Buzz
	default:
		return FizzBuzzMessage(n)
	}
}

// Value wraps n as is, without checking it. It is meant for literals of
// known integers: a multiple of 3 or 5 gives a message `Valid` rejects. Use
// `NewValue` or `Classify` for integers coming from elsewhere.
func Value(n uint64) FizzBuzzMessage {
	return FizzBuzzMessage(n)
}

// NewValue wraps n, unless it is a multiple of 3 or 5.
func NewValue(n uint64) (FizzBuzzMessage, bool) {
	msg := FizzBuzzMessage(n)
	if msg.Kind() != KindValue || !msg.Valid() {
		return 0, false
	}
	return msg, true
}

func (m FizzBuzzMessage) Kind() Kind {
	switch m {
	case Fizz:
		return KindFizz
	case Buzz:
		return KindBuzz
	case FizzBuzz:
		return KindFizzBuzz
	default:
		return KindValue
	}
}

// Int returns the carried integer of a Value message.
func (m FizzBuzzMessage) Int() (uint64, bool) {
	if m.Kind() != KindValue {
		return 0, false
	}
	return uint64(m), true
}

// Valid reports whether m is one of the three discriminants or an integer
// which is neither a multiple of 3 nor 5.
func (m FizzBuzzMessage) Valid() bool {
	if m.Kind() != KindValue {
		return true
	}
	n := uint64(m)
	return n%3 != 0 && n%5 != 0
}

func (m FizzBuzzMessage) String() string {
	if m.Kind() == KindValue {
		return fmt.Sprintf("Value(%d)", uint64(m))
	}
	return m.Kind().String()
}

func (m FizzBuzzMessage) MarshalBinary() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMessage, uint64(m))
	}
	return protowire.AppendVarint(nil, uint64(m)), nil
}

func (m *FizzBuzzMessage) UnmarshalBinary(data []byte) error {
	v, n := protowire.ConsumeVarint(data)
	if err := protowire.ParseError(n); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidMessage, len(data)-n)
	}

	msg := FizzBuzzMessage(v)
	if !msg.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMessage, v)
	}
	*m = msg
	return nil
}
