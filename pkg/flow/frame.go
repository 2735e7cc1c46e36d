package flow

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds the payload accepted by `ReadFrame`.
const MaxFrameSize = 1 << 20

// AppendFrame appends payload to dst, prefixed by its varint-encoded length.
func AppendFrame(dst, payload []byte) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// WriteFrame writes a single length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(AppendFrame(nil, payload))
	return err
}

// ReadFrame reads a frame written by `WriteFrame`. It returns `io.EOF` only
// when r is exhausted on a frame boundary.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	buf := make([]byte, 0, binary.MaxVarintLen64)
	for len(buf) < binary.MaxVarintLen64 {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf = append(buf, b)
		if b < 0x80 {
			break
		}
	}

	size, n := protowire.ConsumeVarint(buf)
	if err := protowire.ParseError(n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFrameSize, err)
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameSize, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
