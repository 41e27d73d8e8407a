package protocol

import (
	"errors"
	"fmt"

	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

var (
	// ErrInvalidMagic is returned when a frame does not start with the
	// expected magic byte. Framing is lost; the connection must be
	// discarded.
	ErrInvalidMagic = errors.New("protocol: invalid magic byte")

	// ErrUnknownStatus is returned when a response carries a status byte
	// outside the negotiated version's encoding
	ErrUnknownStatus = errors.New("protocol: unknown status byte")

	// ErrPreHandshake is returned when a client-side codec method is
	// invoked before a protocol version has been negotiated
	ErrPreHandshake = errors.New("protocol: version not negotiated")

	// ErrTopologyTooLarge is returned when a topology payload declares
	// more members or segments than the decoder is willing to allocate for
	ErrTopologyTooLarge = errors.New("protocol: topology size exceeds limit")
)

// Topology decoders size their member and segment slices from counts the
// peer supplies, before any element data arrives. The caps below bound the
// allocation a single frame can force, analogous to the transport layer's
// array length limit.
const (
	maxTopologyMembers  = 4096
	maxTopologySegments = 1 << 16
)

// --------------------------------------------------------------------------
// Codec interface
// --------------------------------------------------------------------------

// Codec is the serialization strategy for one protocol version. Codecs
// hold no mutable state and are shared by any number of concurrent
// connections; all per-exchange state lives in the arguments.
type Codec interface {
	// Version returns the protocol version this codec speaks
	Version() Version

	// WriteResponseHeader writes the response header, embedding a
	// topology payload when topo is a newer view than the one the
	// request declared and the client can consume it.
	WriteResponseHeader(w *transport.Writer, resp *Response, topo *topology.View) error

	// WriteResponseBody writes the response body: the error message for
	// error statuses, the pre-encoded operation payload otherwise
	WriteResponseBody(w *transport.Writer, resp *Response) error

	// WriteRequestHeader writes a request header from the operation's
	// scratch state
	WriteRequestHeader(w *transport.Writer, p *HeaderParams) error

	// ReadResponseHeader reads and decodes a response header, including
	// any embedded topology payload (which must be consumed to keep the
	// stream framed). It does not validate the message ID; that is the
	// operation's job.
	ReadResponseHeader(r *transport.Reader, p *HeaderParams) (*ResponseHeader, error)
}

// --------------------------------------------------------------------------
// Codec table
// --------------------------------------------------------------------------

var (
	codec10 = legacyCodec{baseCodec: baseCodec{version: Version10}}
	codec11 = legacyCodec{baseCodec: baseCodec{version: Version11}, virtualNodes: true}
	codec12 = modernCodec{baseCodec{version: Version12}}
	codec13 = modernCodec{baseCodec{version: Version13}}
	codec20 = modernCodec{baseCodec{version: Version20, structuredCacheNotFound: true}}

	// errCodec can only write minimal error headers; it is selected for
	// the pre-handshake sentinel and for any version value outside the
	// table, so that no version-specific framing leaks before a version
	// is established.
	errCodec = errorCodec{}
)

// codecs is the fixed dispatch table, indexed by version ordinal. Adding a
// protocol version is a one-line update here.
var codecs = [Version20 + 1]Codec{
	Version10: codec10,
	Version11: codec11,
	Version12: codec12,
	Version13: codec13,
	Version20: codec20,
}

// SelectCodec resolves a version tag to its codec. The function is total:
// unknown or unsupported values (including VersionUnknown) select the
// minimal error codec. Selection is a pure lookup, safe for concurrent use
// from any number of connections.
func SelectCodec(v Version) Codec {
	if int(v) < len(codecs) {
		if c := codecs[v]; c != nil {
			return c
		}
	}
	return errCodec
}

// --------------------------------------------------------------------------
// Shared codec behavior
// --------------------------------------------------------------------------

// baseCodec carries the version tag and the pieces of the wire format
// shared by every released version: the request header layout, the
// response prefix, and the status byte mapping.
type baseCodec struct {
	version                 Version
	structuredCacheNotFound bool
}

func (c baseCodec) Version() Version {
	return c.version
}

func (c baseCodec) WriteRequestHeader(w *transport.Writer, p *HeaderParams) error {
	if err := w.WriteByte(RequestMagic); err != nil {
		return err
	}
	if err := w.WriteVLong(p.MessageID); err != nil {
		return err
	}
	if err := w.WriteByte(byte(c.version)); err != nil {
		return err
	}
	if err := w.WriteByte(p.OpCode); err != nil {
		return err
	}
	if err := w.WriteBytes(p.CacheName); err != nil {
		return err
	}
	if err := w.WriteVInt(p.Flags); err != nil {
		return err
	}
	if err := w.WriteByte(p.Intelligence); err != nil {
		return err
	}
	return w.WriteVInt(p.TopologyID)
}

func (c baseCodec) WriteResponseBody(w *transport.Writer, resp *Response) error {
	if resp.Status.IsError() {
		return w.WriteString(resp.ErrorMessage)
	}
	return w.WriteRaw(resp.Payload)
}

// statusToWire maps a logical status onto this version's byte encoding.
// Versions without a structured cache-not-found code degrade it to a
// server error rather than inventing a byte old clients would reject.
func (c baseCodec) statusToWire(s Status) byte {
	if s == StatusCacheNotFound && !c.structuredCacheNotFound {
		return byte(StatusServerError)
	}
	return byte(s)
}

// statusFromWire decodes a status byte, rejecting values outside this
// version's encoding. An unknown byte desynchronizes nothing by itself,
// but it means the peer speaks a different dialect, so it is treated as a
// protocol anomaly.
func (c baseCodec) statusFromWire(b byte) (Status, error) {
	s := Status(b)
	switch s {
	case StatusSuccess, StatusNotExecuted, StatusKeyNotFound,
		StatusUnknownVersion, StatusProtocolError, StatusServerError,
		StatusCommandTimedOut:
		return s, nil
	case StatusCacheNotFound:
		if c.structuredCacheNotFound {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: 0x%02x (version %s)", ErrUnknownStatus, b, c.version)
}

// writeResponsePrefix writes the header fields common to all versions:
// magic, message ID, opcode and status
func (c baseCodec) writeResponsePrefix(w *transport.Writer, resp *Response) error {
	if err := w.WriteByte(ResponseMagic); err != nil {
		return err
	}
	if err := w.WriteVLong(resp.MessageID); err != nil {
		return err
	}
	if err := w.WriteByte(resp.OpCode); err != nil {
		return err
	}
	return w.WriteByte(c.statusToWire(resp.Status))
}

// readResponsePrefix reads the common header fields up to and including
// the topology-change marker
func (c baseCodec) readResponsePrefix(r *transport.Reader) (hdr *ResponseHeader, topologyChanged bool, err error) {
	magic, err := r.ReadByte()
	if err != nil {
		return nil, false, err
	}
	if magic != ResponseMagic {
		return nil, false, fmt.Errorf("%w: 0x%02x", ErrInvalidMagic, magic)
	}
	messageID, err := r.ReadVLong()
	if err != nil {
		return nil, false, err
	}
	opCode, err := r.ReadByte()
	if err != nil {
		return nil, false, err
	}
	statusByte, err := r.ReadByte()
	if err != nil {
		return nil, false, err
	}
	status, err := c.statusFromWire(statusByte)
	if err != nil {
		return nil, false, err
	}
	marker, err := r.ReadByte()
	if err != nil {
		return nil, false, err
	}
	return &ResponseHeader{MessageID: messageID, OpCode: opCode, Status: status}, marker == 1, nil
}

// shouldWriteTopology decides whether a topology payload is due: the
// server must know a view, the view must differ from the one the client
// declared, and the client must have announced it can consume topology
// metadata at all.
func shouldWriteTopology(resp *Response, topo *topology.View) bool {
	return topo != nil &&
		len(topo.Members) > 0 &&
		topo.ID != resp.TopologyID &&
		resp.ClientIntelligence >= IntelligenceTopologyAware
}
