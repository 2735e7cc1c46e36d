package actor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/raskyld/steadyflow/pkg/flow"
)

// Journal appends every logged message to w, as length-prefixed varints.
type Journal struct {
	lk      sync.Mutex
	w       io.Writer
	records uint64
}

func NewJournal(w io.Writer) *Journal {
	return &Journal{w: w}
}

// Record appends msg. Invalid messages are rejected without writing
// anything.
func (j *Journal) Record(msg FizzBuzzMessage) error {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return err
	}

	j.lk.Lock()
	defer j.lk.Unlock()
	if err := flow.WriteFrame(j.w, payload); err != nil {
		return fmt.Errorf("actor: journal write: %w", err)
	}
	j.records++
	return nil
}

// Records is the number of messages successfully recorded.
func (j *Journal) Records() uint64 {
	j.lk.Lock()
	defer j.lk.Unlock()
	return j.records
}

// ReadJournal decodes every message of a journal.
func ReadJournal(r io.Reader) ([]FizzBuzzMessage, error) {
	br := bufio.NewReader(r)
	var msgs []FizzBuzzMessage
	for {
		payload, err := flow.ReadFrame(br)
		if errors.Is(err, io.EOF) {
			return msgs, nil
		}
		if err != nil {
			return msgs, err
		}

		var msg FizzBuzzMessage
		if err := msg.UnmarshalBinary(payload); err != nil {
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
}
