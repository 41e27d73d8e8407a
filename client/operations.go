package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/hotrodkv/hotrod/protocol"
	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// Ping
// --------------------------------------------------------------------------

// PingResult is the three-way outcome of a connectivity probe
type PingResult int

const (
	// PingSuccess - the server answered and the cache exists
	PingSuccess PingResult = iota
	// PingCacheDoesNotExist - the server answered but the cache is not
	// defined on it
	PingCacheDoesNotExist
	// PingFail - any other failure (transport fault, protocol anomaly,
	// unexpected status)
	PingFail
)

func (r PingResult) String() string {
	switch r {
	case PingSuccess:
		return "success"
	case PingCacheDoesNotExist:
		return "cache-does-not-exist"
	default:
		return "fail"
	}
}

// doPing probes the server over c. A single failed ping is reported
// as-is; trying another node is the caller's decision.
func (cl *Client) doPing(c *conn) (PingResult, error) {
	op := cl.newOperation(protocol.OpPingRequest)
	hdr, err := op.execute(c)
	cl.applyTopology(hdr)

	if err == nil {
		if hdr.Status == protocol.StatusSuccess {
			return PingSuccess, nil
		}
		return PingFail, fmt.Errorf("%w: unexpected ping status %s", ErrInvalidResponse, hdr.Status)
	}

	var remote *RemoteError
	if errors.As(err, &remote) && remote.CacheNotFound() {
		return PingCacheDoesNotExist, nil
	}
	return PingFail, err
}

// --------------------------------------------------------------------------
// Cache operations
// --------------------------------------------------------------------------

func (cl *Client) doGet(c *conn, key []byte) ([]byte, bool, error) {
	op := cl.newOperation(protocol.OpGetRequest)
	op.body = func(w *transport.Writer) error { return w.WriteBytes(key) }

	hdr, err := op.execute(c)
	cl.applyTopology(hdr)
	if err != nil {
		return nil, false, err
	}
	switch hdr.Status {
	case protocol.StatusKeyNotFound:
		return nil, false, nil
	case protocol.StatusSuccess:
		value, err := c.r.ReadBytes()
		if err != nil {
			return nil, false, classifyTransport(err)
		}
		return value, true, nil
	default:
		return nil, false, fmt.Errorf("%w: unexpected get status %s", ErrInvalidResponse, hdr.Status)
	}
}

func (cl *Client) doPut(c *conn, key, value []byte, lifespan, maxIdle time.Duration) ([]byte, error) {
	op := cl.newOperation(protocol.OpPutRequest)
	op.body = writeBody(key, value, lifespan, maxIdle)

	hdr, err := op.execute(c)
	cl.applyTopology(hdr)
	if err != nil {
		return nil, err
	}
	if hdr.Status != protocol.StatusSuccess {
		return nil, fmt.Errorf("%w: unexpected put status %s", ErrInvalidResponse, hdr.Status)
	}
	return cl.readPrevious(c)
}

func (cl *Client) doPutIfAbsent(c *conn, key, value []byte, lifespan, maxIdle time.Duration) (bool, []byte, error) {
	op := cl.newOperation(protocol.OpPutIfAbsentRequest)
	op.body = writeBody(key, value, lifespan, maxIdle)

	hdr, err := op.execute(c)
	cl.applyTopology(hdr)
	if err != nil {
		return false, nil, err
	}
	switch hdr.Status {
	case protocol.StatusSuccess, protocol.StatusNotExecuted:
		prev, err := cl.readPrevious(c)
		if err != nil {
			return false, nil, err
		}
		return hdr.Status == protocol.StatusSuccess, prev, nil
	default:
		return false, nil, fmt.Errorf("%w: unexpected putIfAbsent status %s", ErrInvalidResponse, hdr.Status)
	}
}

func (cl *Client) doRemove(c *conn, key []byte) (bool, []byte, error) {
	op := cl.newOperation(protocol.OpRemoveRequest)
	op.body = func(w *transport.Writer) error { return w.WriteBytes(key) }

	hdr, err := op.execute(c)
	cl.applyTopology(hdr)
	if err != nil {
		return false, nil, err
	}
	switch hdr.Status {
	case protocol.StatusSuccess, protocol.StatusKeyNotFound:
		prev, err := cl.readPrevious(c)
		if err != nil {
			return false, nil, err
		}
		return hdr.Status == protocol.StatusSuccess, prev, nil
	default:
		return false, nil, fmt.Errorf("%w: unexpected remove status %s", ErrInvalidResponse, hdr.Status)
	}
}

func (cl *Client) doContainsKey(c *conn, key []byte) (bool, error) {
	op := cl.newOperation(protocol.OpContainsKeyRequest)
	op.body = func(w *transport.Writer) error { return w.WriteBytes(key) }

	hdr, err := op.execute(c)
	cl.applyTopology(hdr)
	if err != nil {
		return false, err
	}
	switch hdr.Status {
	case protocol.StatusSuccess:
		return true, nil
	case protocol.StatusKeyNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected containsKey status %s", ErrInvalidResponse, hdr.Status)
	}
}

// --------------------------------------------------------------------------
// Body helpers
// --------------------------------------------------------------------------

// writeBody builds the request body of the write operations: key,
// lifespan and max-idle in whole seconds, then the value
func writeBody(key, value []byte, lifespan, maxIdle time.Duration) func(w *transport.Writer) error {
	return func(w *transport.Writer) error {
		if err := w.WriteBytes(key); err != nil {
			return err
		}
		if err := w.WriteVInt(uint32(lifespan / time.Second)); err != nil {
			return err
		}
		if err := w.WriteVInt(uint32(maxIdle / time.Second)); err != nil {
			return err
		}
		return w.WriteBytes(value)
	}
}

// readPrevious consumes the previous-value array that write responses
// carry when the client asked for returned values
func (cl *Client) readPrevious(c *conn) ([]byte, error) {
	if !cl.config.ForceReturnValues {
		return nil, nil
	}
	prev, err := c.r.ReadBytes()
	if err != nil {
		return nil, classifyTransport(err)
	}
	return prev, nil
}
