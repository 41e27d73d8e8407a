package protocol

import (
	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// Error codec (pre-handshake sentinel)
// --------------------------------------------------------------------------

// errorCodec is the minimal codec selected before a protocol version has
// been established (and for any version value outside the table). It can
// only write an error header and body. It never emits topology metadata:
// the topology wire layout itself is version-specific, so before a version
// is known it cannot be written safely.
type errorCodec struct{}

func (errorCodec) Version() Version {
	return VersionUnknown
}

func (errorCodec) WriteResponseHeader(w *transport.Writer, resp *Response, _ *topology.View) error {
	if err := w.WriteByte(ResponseMagic); err != nil {
		return err
	}
	if err := w.WriteVLong(resp.MessageID); err != nil {
		return err
	}
	if err := w.WriteByte(OpErrorResponse); err != nil {
		return err
	}
	if err := w.WriteByte(byte(resp.Status)); err != nil {
		return err
	}
	// No topology payload, ever.
	return w.WriteByte(0)
}

func (errorCodec) WriteResponseBody(w *transport.Writer, resp *Response) error {
	return w.WriteString(resp.ErrorMessage)
}

func (errorCodec) WriteRequestHeader(*transport.Writer, *HeaderParams) error {
	return ErrPreHandshake
}

func (errorCodec) ReadResponseHeader(*transport.Reader, *HeaderParams) (*ResponseHeader, error) {
	return nil, ErrPreHandshake
}
