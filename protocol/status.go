package protocol

import "fmt"

// Status is a logical operation outcome. The numeric values double as the
// canonical wire encoding; codecs for older versions remap the codes they
// do not support (see Codec).
//
// The set is closed: a response must never be constructed with a status
// outside of it.
type Status byte

const (
	// StatusSuccess - the operation was applied
	StatusSuccess Status = 0x00

	// StatusNotExecuted - a conditional operation found a mismatch and
	// was not applied. Not an error; callers branch on it.
	StatusNotExecuted Status = 0x01

	// StatusKeyNotFound - the key does not exist. Not an error.
	StatusKeyNotFound Status = 0x02

	// StatusUnknownVersion - the request declared a protocol version the
	// server does not speak
	StatusUnknownVersion Status = 0x83

	// StatusProtocolError - the request could not be parsed or violated
	// the framing contract
	StatusProtocolError Status = 0x84

	// StatusServerError - the operation failed on the server
	StatusServerError Status = 0x85

	// StatusCommandTimedOut - the operation timed out inside the cluster
	StatusCommandTimedOut Status = 0x86

	// StatusCacheNotFound - the named cache is not defined on the server.
	// Only protocol 2.0 encodes this code structurally; older versions
	// degrade it to StatusServerError with a recognizable message.
	StatusCacheNotFound Status = 0x87
)

// statuses lists the full logical set, used by tests and mapping checks
var statuses = []Status{
	StatusSuccess,
	StatusNotExecuted,
	StatusKeyNotFound,
	StatusUnknownVersion,
	StatusProtocolError,
	StatusServerError,
	StatusCommandTimedOut,
	StatusCacheNotFound,
}

// IsError reports whether the status denotes a failed exchange (as
// opposed to an application-level outcome such as a key miss)
func (s Status) IsError() bool {
	return s >= 0x80
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotExecuted:
		return "not-executed"
	case StatusKeyNotFound:
		return "key-not-found"
	case StatusUnknownVersion:
		return "unknown-version"
	case StatusProtocolError:
		return "protocol-error"
	case StatusServerError:
		return "server-error"
	case StatusCommandTimedOut:
		return "command-timed-out"
	case StatusCacheNotFound:
		return "cache-not-found"
	default:
		return fmt.Sprintf("status(0x%02x)", byte(s))
	}
}
