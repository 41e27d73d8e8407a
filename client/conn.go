package client

import (
	"fmt"
	"net"
	"time"

	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// conn is one established connection. During an operation the owning
// goroutine holds it exclusively; operations never interleave on the same
// connection.
type conn struct {
	nc      net.Conn
	r       *transport.Reader
	w       *transport.Writer
	timeout time.Duration
}

// dial opens a connection to addr
func dial(addr string, cfg ClientConfig) (*conn, error) {
	timeout := time.Duration(cfg.TimeoutSecond) * time.Second
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("hotrod: failed to connect to %s: %w", addr, err)
	}
	if tcpConn, ok := nc.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(cfg.TCPNoDelay)
	}
	return newConn(nc, timeout), nil
}

// newConn wraps an already-open duplex stream
func newConn(nc net.Conn, timeout time.Duration) *conn {
	return &conn{
		nc:      nc,
		r:       transport.NewReader(nc),
		w:       transport.NewWriter(nc),
		timeout: timeout,
	}
}

// arm sets the deadlines for one operation round trip
func (c *conn) arm() error {
	if c.timeout <= 0 {
		return nil
	}
	return c.nc.SetDeadline(time.Now().Add(c.timeout))
}

func (c *conn) Close() error {
	return c.nc.Close()
}
