package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hotrodkv/hotrod/protocol"
	"github.com/hotrodkv/hotrod/transport"
)

var (
	// ErrInvalidResponse marks a protocol anomaly: a mismatched message
	// ID, an unparsable header, or a status byte outside the negotiated
	// version. The exchange is unrecoverable and the connection must be
	// discarded - reading on would desynchronize framing.
	ErrInvalidResponse = errors.New("hotrod: invalid response")

	// ErrTimeout marks an expired transport deadline. Distinct from
	// protocol errors because "no response" and "bad response" call for
	// different caller reactions.
	ErrTimeout = errors.New("hotrod: command timed out")
)

// --------------------------------------------------------------------------
// RemoteError
// --------------------------------------------------------------------------

// RemoteError is an error status reported by the server. The raw status
// value is preserved for diagnostics and branching.
type RemoteError struct {
	Status  protocol.Status
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("hotrod: server responded %s: %s", e.Status, e.Message)
}

// CacheNotFound reports whether the error denotes an undefined cache.
// Protocol 2.0 signals this with a structured status code; older versions
// only ship a server error whose message names the server-side exception,
// so a text match remains as a compatibility shim for them.
func (e *RemoteError) CacheNotFound() bool {
	if e.Status == protocol.StatusCacheNotFound {
		return true
	}
	return strings.Contains(e.Message, "CacheNotFoundException")
}

// TimedOut reports whether the server classified the operation as timed
// out inside the cluster
func (e *RemoteError) TimedOut() bool {
	return e.Status == protocol.StatusCommandTimedOut
}

// --------------------------------------------------------------------------
// Classification
// --------------------------------------------------------------------------

// classifyTransport maps a raw transport failure to the client's error
// taxonomy: deadline expiries become ErrTimeout, everything else passes
// through as a connection-level fault.
func classifyTransport(err error) error {
	if transport.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// isAnomaly reports whether err came from unparsable or inconsistent
// response bytes, as opposed to a failed transport
func isAnomaly(err error) bool {
	return errors.Is(err, protocol.ErrInvalidMagic) ||
		errors.Is(err, protocol.ErrUnknownStatus) ||
		errors.Is(err, protocol.ErrTopologyTooLarge) ||
		errors.Is(err, transport.ErrMalformedVarint) ||
		errors.Is(err, transport.ErrArrayTooLarge)
}

// discardsConnection reports whether the connection that produced err may
// no longer be reused. Application-level statuses (RemoteError) keep the
// connection framed and healthy; anything else poisons it.
func discardsConnection(err error) bool {
	if err == nil {
		return false
	}
	var remote *RemoteError
	return !errors.As(err, &remote)
}
