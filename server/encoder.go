package server

import (
	"bytes"
	"fmt"

	"github.com/hotrodkv/hotrod/protocol"
	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// ResponseEncoder
// --------------------------------------------------------------------------

// ResponseEncoder turns application-level responses into wire frames. It
// is a pure function of its explicit inputs: the clustered flag and the
// topology provider are fixed at construction, and every encode reads a
// single point-in-time topology snapshot. Encoders and the codecs they
// select are stateless and safely shared across connections.
type ResponseEncoder struct {
	clustered bool
	provider  topology.Provider
}

// NewResponseEncoder creates an encoder. A non-clustered encoder (or one
// without a provider) never embeds topology metadata.
func NewResponseEncoder(clustered bool, provider topology.Provider) *ResponseEncoder {
	return &ResponseEncoder{clustered: clustered, provider: provider}
}

// Encode serializes a response into a single buffer, emitted exactly once
// per response.
//
// A response carrying the pre-handshake sentinel version is encoded as a
// minimal error header with no topology payload, since no version-specific
// framing may be written before a version is known. A response carrying
// any other unrecognized version is a programming-contract violation and
// panics: responses must never be constructed with versions the codec
// table does not know.
func (e *ResponseEncoder) Encode(resp *protocol.Response) ([]byte, error) {
	if resp.Version != protocol.VersionUnknown && !resp.Version.Supported() {
		panic(fmt.Sprintf("hotrod: response constructed with unrecognized protocol version %d", resp.Version))
	}

	codec := protocol.SelectCodec(resp.Version)

	var topo *topology.View
	if e.clustered && e.provider != nil && resp.Version != protocol.VersionUnknown {
		topo = e.provider.View(resp.CacheName)
	}

	var buf bytes.Buffer
	w := transport.NewWriter(&buf)
	if err := codec.WriteResponseHeader(w, resp, topo); err != nil {
		return nil, fmt.Errorf("server: encoding response header: %w", err)
	}
	if err := codec.WriteResponseBody(w, resp); err != nil {
		return nil, fmt.Errorf("server: encoding response body: %w", err)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
