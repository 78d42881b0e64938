package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameHeaderSize is the fixed length prefix in front of every payload:
// 4 bytes, big-endian, counting payload bytes only.
const frameHeaderSize = 4

// WriteFrame writes one length-prefixed message frame. Header and payload go
// out in a single Write call so a tiny header is never stranded behind Nagle.
func WriteFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:frameHeaderSize], uint32(len(payload)))
	copy(frame[frameHeaderSize:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and returns its payload. Frames
// with a zero length or exceeding maxPayload yield a *Error since the stream
// can no longer be trusted.
func ReadFrame(r io.Reader, maxPayload int) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	size := int(binary.BigEndian.Uint32(header[:]))
	if size <= 0 {
		return nil, errf("invalid frame length %d", size)
	}
	if maxPayload > 0 && size > maxPayload {
		return nil, errf("frame length %d exceeds limit %d", size, maxPayload)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", size, err)
	}
	return payload, nil
}
