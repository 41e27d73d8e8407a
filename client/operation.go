package client

import (
	"fmt"

	"github.com/hotrodkv/hotrod/protocol"
	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// Operation
// --------------------------------------------------------------------------

// operation is the execution state of one request/response exchange. It
// owns its HeaderParams exclusively and is discarded after the round trip:
//
//	created -> header written -> flushed -> header read -> decoded | failed
//
// The flush and the header read are the only suspension points; both block
// until the transport completes or its deadline expires.
type operation struct {
	codec  protocol.Codec
	params *protocol.HeaderParams

	// body writes the request body, if the operation has one. It runs
	// after the header, through the same codec's primitives, before the
	// flush.
	body func(w *transport.Writer) error
}

// execute runs the full life cycle on c and returns the validated
// response header. Exactly one write and one read cycle; operations are
// never retried internally - retry and rerouting policy belongs to the
// caller.
//
// The returned header is non-nil whenever it was parsed, even when err is
// a RemoteError, so the caller can still apply a piggybacked topology
// update from a failed exchange.
func (o *operation) execute(c *conn) (*protocol.ResponseHeader, error) {
	if err := c.arm(); err != nil {
		return nil, err
	}

	// created -> header written
	if err := o.codec.WriteRequestHeader(c.w, o.params); err != nil {
		return nil, classifyTransport(err)
	}
	if o.body != nil {
		if err := o.body(c.w); err != nil {
			return nil, classifyTransport(err)
		}
	}

	// header written -> flushed
	if err := c.w.Flush(); err != nil {
		return nil, classifyTransport(err)
	}

	// flushed -> header read
	hdr, err := o.codec.ReadResponseHeader(c.r, o.params)
	if err != nil {
		if isAnomaly(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return nil, classifyTransport(err)
	}

	// The response must answer this request. A mismatch means the
	// connection has lost its 1:1 request/response pairing and cannot be
	// trusted any further.
	if hdr.MessageID != o.params.MessageID {
		return nil, fmt.Errorf("%w: message id mismatch (sent %d, received %d)",
			ErrInvalidResponse, o.params.MessageID, hdr.MessageID)
	}

	if hdr.Status.IsError() {
		message, err := c.r.ReadString()
		if err != nil {
			return hdr, classifyTransport(err)
		}
		return hdr, &RemoteError{Status: hdr.Status, Message: message}
	}
	return hdr, nil
}
