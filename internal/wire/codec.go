package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrPeerLost is returned by ReadFrame/WriteFrame when the connection
// can no longer carry frames: a short read/write of zero bytes, or any
// hard I/O error. Per spec §4.2/§7, this is the signal a Communicator
// uses to transition its Context to "not running".
var ErrPeerLost = errors.New("wire: peer lost")

// maxFrameSize bounds the length prefix so a corrupt or adversarial
// peer cannot make ReadFrame allocate unbounded memory.
const maxFrameSize = 256 << 20

// WriteFrame writes msg as a u32-little-endian length prefix followed
// by its msgpack encoding, retrying partial writes until the full
// frame is on the wire (spec §4.1: "MUST fully read/write it before
// returning").
func WriteFrame(w io.Writer, msg interface{}) error {
	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return fmt.Errorf("wire: encode frame: %w", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", len(payload), maxFrameSize)
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))

	if err := writeAll(w, header[:]); err != nil {
		return err
	}
	return writeAll(w, payload)
}

// ReadFrame reads one length-prefixed msgpack frame and decodes it
// into out (a pointer to Request or Response).
func ReadFrame(r io.Reader, out interface{}) error {
	var header [4]byte
	if err := readAll(r, header[:]); err != nil {
		return err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if size > maxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", size, maxFrameSize)
	}

	payload := getFrameBuffer(size)
	defer putFrameBuffer(payload)
	if err := readAll(r, payload); err != nil {
		return err
	}

	if err := msgpack.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("wire: decode frame: %w", err)
	}
	return nil
}

// writeAll retries partial writes until count bytes are written. A
// write of zero bytes with a nil error, or any non-nil error, is
// treated as peer loss (spec §4.1: "a short read/write returning zero
// or a hard error fails the frame and signals peer loss").
func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPeerLost, err)
		}
		if n == 0 {
			return ErrPeerLost
		}
		buf = buf[n:]
	}
	return nil
}

// readAll retries partial reads until buf is full.
func readAll(r io.Reader, buf []byte) error {
	for len(buf) > 0 {
		n, err := r.Read(buf)
		if n > 0 {
			buf = buf[n:]
		}
		if err != nil {
			if err == io.EOF && n == 0 {
				return ErrPeerLost
			}
			return fmt.Errorf("%w: %v", ErrPeerLost, err)
		}
		if n == 0 {
			return ErrPeerLost
		}
	}
	return nil
}
