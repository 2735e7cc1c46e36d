package actor

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	var buf bytes.Buffer
	journal := NewJournal(&buf)

	msgs := []FizzBuzzMessage{FizzBuzz, Value(1), Value(2), Fizz}
	for _, msg := range msgs {
		require.NoError(t, journal.Record(msg))
	}
	require.ErrorIs(t, journal.Record(FizzBuzzMessage(9)), ErrInvalidMessage)
	require.Equal(t, uint64(len(msgs)), journal.Records())

	decoded, err := ReadJournal(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, msgs, decoded)

	truncated := buf.Bytes()[:buf.Len()-1]
	decoded, err = ReadJournal(bytes.NewReader(truncated))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, msgs[:len(msgs)-1], decoded)
}

func TestJournal_Empty(t *testing.T) {
	decoded, err := ReadJournal(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Empty(t, decoded)
}
