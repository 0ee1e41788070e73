package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const prefixLen = 4

// Limits constrains codec memory use.
type Limits struct {
	MaxMessageBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxMessageBytes: 8 * 1024 * 1024}
}

// ReadMessage reads one length-prefixed JSON frame. io.EOF before the
// first prefix byte is a clean disconnect. A truncated prefix or payload
// is ErrShortRead. A prefix above limits.MaxMessageBytes is
// ErrFrameTooLarge; nothing past it can be trusted. Decode failures on a
// fully consumed frame come back as *DecodeError with the stream still
// aligned.
func ReadMessage(r io.Reader, limits Limits) (*Message, error) {
	var prefix [prefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortRead
		}
		return nil, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > limits.MaxMessageBytes {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortRead
		}
		return nil, err
	}
	return decodeEnvelope(payload)
}

// WriteMessage marshals doc and writes it as one frame. A writer that
// stops accepting bytes mid-frame yields ErrShortWrite; the frame is
// unrecoverable at that point.
func WriteMessage(w io.Writer, doc Response, limits Limits) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > uint64(limits.MaxMessageBytes) {
		return ErrFrameTooLarge
	}
	var prefix [prefixLen]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if err := writeFull(w, prefix[:]); err != nil {
		return err
	}
	return writeFull(w, payload)
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrShortWrite, err)
		}
		if n == 0 {
			return ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

// Drain discards exactly size bytes from r, preserving frame alignment
// when a declared inline payload cannot be used. An early end of stream
// is ErrShortRead.
func Drain(r io.Reader, size int64) error {
	if _, err := io.CopyN(io.Discard, r, size); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrShortRead
		}
		return err
	}
	return nil
}
