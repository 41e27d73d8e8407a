package client

import (
	"context"

	"github.com/jackc/puddle/v2"
)

// --------------------------------------------------------------------------
// Connection pool
// --------------------------------------------------------------------------

// connPool keeps a bounded set of reusable connections to one endpoint
type connPool struct {
	addr string
	pool *puddle.Pool[*conn]
}

func newConnPool(addr string, cfg ClientConfig) (*connPool, error) {
	pool, err := puddle.NewPool(&puddle.Config[*conn]{
		Constructor: func(ctx context.Context) (*conn, error) {
			return dial(addr, cfg)
		},
		Destructor: func(c *conn) {
			_ = c.Close()
		},
		MaxSize: int32(cfg.ConnectionsPerEndpoint),
	})
	if err != nil {
		return nil, err
	}
	return &connPool{addr: addr, pool: pool}, nil
}

// with acquires a connection, runs fn on it and returns it to the pool.
// Connections that produced a transport or framing fault are destroyed
// instead of released - their byte stream can no longer be trusted.
func (p *connPool) with(ctx context.Context, fn func(c *conn) error) error {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	err = fn(res.Value())
	if discardsConnection(err) {
		res.Destroy()
	} else {
		res.Release()
	}
	return err
}

func (p *connPool) close() {
	p.pool.Close()
}
