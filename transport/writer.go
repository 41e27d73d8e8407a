package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// Writer serializes protocol primitives onto an underlying byte stream.
// All writes are buffered; nothing reaches the stream before Flush is
// called. A Writer is owned by a single goroutine at a time.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new Writer on top of the given stream
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteByte writes a single byte
func (w *Writer) WriteByte(b byte) error {
	return w.w.WriteByte(b)
}

// WriteUint16 writes an unsigned 16 bit integer in big endian order
func (w *Writer) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.w.Write(buf[:])
	return err
}

// WriteInt32 writes a signed 32 bit integer in big endian order
func (w *Writer) WriteInt32(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.w.Write(buf[:])
	return err
}

// WriteVInt writes an unsigned integer as a variable-length quantity:
// 7 bits per byte, least significant group first, high bit set on every
// byte except the last. A uint32 occupies at most 5 bytes.
func (w *Writer) WriteVInt(v uint32) error {
	return w.WriteVLong(uint64(v))
}

// WriteVLong writes an unsigned 64 bit integer as a variable-length
// quantity, occupying at most 9 bytes.
func (w *Writer) WriteVLong(v uint64) error {
	for v >= 0x80 {
		if err := w.w.WriteByte(byte(v&0x7f) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return w.w.WriteByte(byte(v))
}

// WriteBytes writes a length-prefixed byte array (vInt length followed by
// the raw bytes). A nil slice is written as an empty array.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.WriteVInt(uint32(len(b))); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

// WriteString writes a length-prefixed UTF-8 string
func (w *Writer) WriteString(s string) error {
	if err := w.WriteVInt(uint32(len(s))); err != nil {
		return err
	}
	_, err := w.w.WriteString(s)
	return err
}

// WriteRaw writes bytes verbatim, without a length prefix
func (w *Writer) WriteRaw(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

// Flush pushes all buffered bytes onto the underlying stream. This is the
// suspension point of a client operation: the call blocks until the stream
// accepts the bytes or fails.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("transport: flush failed: %w", err)
	}
	return nil
}
