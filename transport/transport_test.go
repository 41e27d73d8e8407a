package transport

import (
	"bytes"
	"errors"
	"testing"
)

// roundTrip writes with fn and returns a reader over the produced bytes
func roundTrip(t *testing.T, fn func(w *Writer) error) *Reader {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := fn(w); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	return NewReader(&buf)
}

// TestVarintRoundTrip tests that variable-length integers survive a write/read cycle
func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 127, 128, 129, 255, 256,
		1<<14 - 1, 1 << 14,
		1<<21 - 1, 1 << 21,
		1<<28 - 1, 1 << 28,
		1<<32 - 1,
		1<<63 - 1, 1<<64 - 1,
	}

	for _, v := range values {
		r := roundTrip(t, func(w *Writer) error { return w.WriteVLong(v) })
		got, err := r.ReadVLong()
		if err != nil {
			t.Errorf("ReadVLong(%d) failed: %v", v, err)
			continue
		}
		if got != v {
			t.Errorf("vLong round trip: wrote %d, read %d", v, got)
		}
	}

	for _, v := range values {
		if v > 1<<32-1 {
			continue
		}
		r := roundTrip(t, func(w *Writer) error { return w.WriteVInt(uint32(v)) })
		got, err := r.ReadVInt()
		if err != nil {
			t.Errorf("ReadVInt(%d) failed: %v", v, err)
			continue
		}
		if got != uint32(v) {
			t.Errorf("vInt round trip: wrote %d, read %d", v, got)
		}
	}
}

// TestVarintEncodedSize tests the encoded size bounds of the varint format
func TestVarintEncodedSize(t *testing.T) {
	tests := []struct {
		value uint64
		size  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{1<<14 - 1, 2},
		{1 << 14, 3},
		{1<<32 - 1, 5},
		{1<<64 - 1, 10},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteVLong(tt.value); err != nil {
			t.Fatalf("WriteVLong(%d) failed: %v", tt.value, err)
		}
		if err := w.Flush(); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if buf.Len() != tt.size {
			t.Errorf("WriteVLong(%d): expected %d bytes, got %d", tt.value, tt.size, buf.Len())
		}
	}
}

// TestMalformedVarint tests that an unterminated varint is rejected rather
// than read past its maximum size
func TestMalformedVarint(t *testing.T) {
	// six continuation bytes exceed a vInt's five-byte maximum
	r := NewReader(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80}))
	if _, err := r.ReadVInt(); !errors.Is(err, ErrMalformedVarint) {
		t.Errorf("expected ErrMalformedVarint, got %v", err)
	}

	// ten continuation bytes exceed a vLong's nine-byte maximum
	r = NewReader(bytes.NewReader(bytes.Repeat([]byte{0x80}, 10)))
	if _, err := r.ReadVLong(); !errors.Is(err, ErrMalformedVarint) {
		t.Errorf("expected ErrMalformedVarint, got %v", err)
	}
}

// TestBytesRoundTrip tests length-prefixed byte arrays
func TestBytesRoundTrip(t *testing.T) {
	tests := [][]byte{
		[]byte("hello"),
		[]byte{0x00, 0xff, 0x80},
		bytes.Repeat([]byte("x"), 1000),
	}

	for _, b := range tests {
		r := roundTrip(t, func(w *Writer) error { return w.WriteBytes(b) })
		got, err := r.ReadBytes()
		if err != nil {
			t.Errorf("ReadBytes failed: %v", err)
			continue
		}
		if !bytes.Equal(got, b) {
			t.Errorf("bytes round trip: wrote %v, read %v", b, got)
		}
	}
}

// TestEmptyBytes tests that both nil and empty slices round-trip to nil
func TestEmptyBytes(t *testing.T) {
	for _, b := range [][]byte{nil, {}} {
		r := roundTrip(t, func(w *Writer) error { return w.WriteBytes(b) })
		got, err := r.ReadBytes()
		if err != nil {
			t.Fatalf("ReadBytes failed: %v", err)
		}
		if got != nil {
			t.Errorf("empty array: expected nil, got %v", got)
		}
	}
}

// TestArrayTooLarge tests that a hostile length prefix is rejected before
// any allocation
func TestArrayTooLarge(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteVInt(maxArrayLength + 1); err != nil {
		t.Fatalf("WriteVInt failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadBytes(); !errors.Is(err, ErrArrayTooLarge) {
		t.Errorf("expected ErrArrayTooLarge, got %v", err)
	}
}

// TestStringRoundTrip tests length-prefixed strings
func TestStringRoundTrip(t *testing.T) {
	tests := []string{"", "default", "CacheNotFoundException: cache 'x' is not defined", "ünïcode"}

	for _, s := range tests {
		r := roundTrip(t, func(w *Writer) error { return w.WriteString(s) })
		got, err := r.ReadString()
		if err != nil {
			t.Errorf("ReadString(%q) failed: %v", s, err)
			continue
		}
		if got != s {
			t.Errorf("string round trip: wrote %q, read %q", s, got)
		}
	}
}

// TestFixedWidthRoundTrip tests the big-endian fixed-width integers
func TestFixedWidthRoundTrip(t *testing.T) {
	r := roundTrip(t, func(w *Writer) error {
		if err := w.WriteUint16(0xBEEF); err != nil {
			return err
		}
		return w.WriteInt32(-123456789)
	})

	u, err := r.ReadUint16()
	if err != nil || u != 0xBEEF {
		t.Errorf("uint16 round trip: got %d, err %v", u, err)
	}
	i, err := r.ReadInt32()
	if err != nil || i != -123456789 {
		t.Errorf("int32 round trip: got %d, err %v", i, err)
	}
}
