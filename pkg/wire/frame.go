package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame writes one length-prefixed frame: a 4-byte big-endian length
// followed by the encoded record body.
func WriteFrame(w io.Writer, r *Record) error {
	body, err := r.Encode()
	if err != nil {
		return err
	}
	if len(body) > maxFrameLen {
		return fmt.Errorf("wire: frame too large (%d bytes)", len(body))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and decodes it into a Record.
func ReadFrame(r io.Reader) (*Record, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("wire: frame length %d exceeds maximum", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read body: %w", err)
	}
	return Decode(body)
}
