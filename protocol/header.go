package protocol

import "github.com/hotrodkv/hotrod/topology"

// --------------------------------------------------------------------------
// HeaderParams (client side)
// --------------------------------------------------------------------------

// HeaderParams is the per-request scratch state of one client operation.
// It is created fresh for every operation, owned exclusively by it, and
// discarded once the response has been read.
type HeaderParams struct {
	// MessageID correlates the response with the request. The response
	// header must echo it exactly; a mismatch is fatal for the
	// connection.
	MessageID uint64

	// CacheName addresses the target cache. Empty selects the server's
	// default cache.
	CacheName []byte

	// Flags is the bitwise OR of the Flag* request flags
	Flags uint32

	// Intelligence declares how much topology detail this client can
	// consume (one of the Intelligence* levels)
	Intelligence byte

	// TopologyID is the client's last-known cluster view ID, echoed so
	// the server can decide whether a topology update is due
	TopologyID uint32

	// OpCode is the request operation code
	OpCode byte
}

// --------------------------------------------------------------------------
// ResponseHeader (client side)
// --------------------------------------------------------------------------

// ResponseHeader is the decoded header of a server response
type ResponseHeader struct {
	MessageID uint64
	OpCode    byte
	Status    Status

	// Topology is non-nil when the response carried a topology update.
	// The view is freshly decoded and owned by the caller.
	Topology *topology.View
}

// --------------------------------------------------------------------------
// Response (server side)
// --------------------------------------------------------------------------

// Response is the application-level response handed to the encoder. It is
// produced once per request by the request handler, consumed exactly once,
// and never mutated after creation.
type Response struct {
	// Version is the protocol version of the request this response
	// answers, or VersionUnknown when no version could be established.
	Version Version

	MessageID uint64
	CacheName string
	OpCode    byte
	Status    Status

	// ErrorMessage is the response body for error statuses
	ErrorMessage string

	// Payload is the pre-encoded operation body for non-error statuses
	Payload []byte

	// ClientIntelligence is the intelligence level the request declared
	ClientIntelligence byte

	// TopologyID is the client's last-known view ID as echoed in the
	// request; the codec compares it against the current view to decide
	// whether to embed a topology payload
	TopologyID uint32
}

// NewErrorResponse builds a response reporting a failed exchange
func NewErrorResponse(version Version, messageID uint64, status Status, message string) *Response {
	return &Response{
		Version:      version,
		MessageID:    messageID,
		OpCode:       OpErrorResponse,
		Status:       status,
		ErrorMessage: message,
	}
}
