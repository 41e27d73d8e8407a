package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// maxArrayLength caps length-prefixed arrays so a corrupted or hostile
// length prefix cannot trigger an arbitrarily large allocation.
const maxArrayLength = 64 * 1024 * 1024

var (
	// ErrMalformedVarint is returned when a variable-length integer does
	// not terminate within its maximum encoded size. Framing is lost at
	// this point and the connection must be discarded.
	ErrMalformedVarint = errors.New("transport: malformed variable-length integer")

	// ErrArrayTooLarge is returned when a length prefix exceeds
	// maxArrayLength
	ErrArrayTooLarge = errors.New("transport: array length exceeds limit")
)

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// Reader decodes protocol primitives from an underlying byte stream.
// A Reader is owned by a single goroutine at a time.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a new Reader on top of the given stream
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadByte reads a single byte
func (r *Reader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

// ReadUint16 reads an unsigned 16 bit integer in big endian order
func (r *Reader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadInt32 reads a signed 32 bit integer in big endian order
func (r *Reader) ReadInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadVInt reads a variable-length unsigned 32 bit integer (at most 5
// encoded bytes)
func (r *Reader) ReadVInt() (uint32, error) {
	v, err := r.readVarint(5)
	return uint32(v), err
}

// ReadVLong reads a variable-length unsigned 64 bit integer (at most 9
// encoded bytes)
func (r *Reader) ReadVLong() (uint64, error) {
	return r.readVarint(9)
}

func (r *Reader) readVarint(maxBytes int) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < maxBytes; i++ {
		b, err := r.r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
	return 0, ErrMalformedVarint
}

// ReadBytes reads a length-prefixed byte array. An empty array is returned
// as a nil slice.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > maxArrayLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrArrayTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadString reads a length-prefixed UTF-8 string
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --------------------------------------------------------------------------
// Error classification
// --------------------------------------------------------------------------

// IsTimeout reports whether err was caused by an expired transport
// deadline. Callers classify such failures as a command timeout rather
// than a generic protocol error, since "no response" and "bad response"
// require different handling.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
