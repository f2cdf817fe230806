package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxFrameSize guards against a malformed or hostile length prefix
// forcing an unbounded allocation.
const maxFrameSize = 64 << 20 // 64 MiB

// ErrFrameTooLarge is returned when a peer's length prefix exceeds
// maxFrameSize.
var ErrFrameTooLarge = errors.New("transport: frame exceeds maximum size")

// writeFrame writes data as one length-prefixed frame.
func writeFrame(w io.Writer, data []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("transport: write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("transport: write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("transport: read frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, ErrFrameTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("transport: read frame body: %w", err)
	}
	return body, nil
}
