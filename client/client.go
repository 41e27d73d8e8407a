package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/hotrodkv/hotrod/protocol"
)

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is a Hot Rod client bound to one cache. It is safe for concurrent
// use; every operation acquires a connection from a per-endpoint pool, runs
// exactly one request/response round trip on it and returns it.
type Client struct {
	config ClientConfig
	codec  protocol.Codec
	logger zerolog.Logger

	// messageID is the correlation counter shared by all operations
	messageID atomic.Uint64

	// topologyID is the last cluster view ID learned from responses; it is
	// echoed in every request header so servers can skip redundant updates
	topologyID atomic.Uint32

	// next selects the endpoint for the next operation (round robin)
	next atomic.Uint32

	mu        sync.RWMutex
	endpoints []string
	pools     map[string]*connPool
	breakers  map[string]*gobreaker.CircuitBreaker[struct{}]
	closed    bool

	timers struct {
		ping     metrics.Timer
		get      metrics.Timer
		put      metrics.Timer
		putIfAbs metrics.Timer
		remove   metrics.Timer
		contains metrics.Timer
	}
}

// NewClient creates a client for the given configuration. The optional
// logger defaults to a disabled one.
func NewClient(config ClientConfig, logger ...zerolog.Logger) (*Client, error) {
	config = config.withDefaults()

	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("hotrod: at least one endpoint is required")
	}
	if !config.Version.Supported() {
		return nil, fmt.Errorf("hotrod: unsupported protocol version %s", config.Version)
	}

	l := zerolog.Nop()
	if len(logger) > 0 {
		l = logger[0]
	}

	c := &Client{
		config:    config,
		codec:     protocol.SelectCodec(config.Version),
		logger:    l.With().Str("layer", "client").Logger(),
		endpoints: append([]string(nil), config.Endpoints...),
		pools:     make(map[string]*connPool),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}

	c.timers.ping = metrics.GetOrRegisterTimer("hotrod.client.ping", nil)
	c.timers.get = metrics.GetOrRegisterTimer("hotrod.client.get", nil)
	c.timers.put = metrics.GetOrRegisterTimer("hotrod.client.put", nil)
	c.timers.putIfAbs = metrics.GetOrRegisterTimer("hotrod.client.putIfAbsent", nil)
	c.timers.remove = metrics.GetOrRegisterTimer("hotrod.client.remove", nil)
	c.timers.contains = metrics.GetOrRegisterTimer("hotrod.client.containsKey", nil)

	return c, nil
}

// Close shuts down all connection pools. The client must not be used
// afterwards.
func (cl *Client) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	cl.closed = true
	for _, p := range cl.pools {
		p.close()
	}
	return nil
}

// TopologyID returns the last cluster view ID the client has learned
func (cl *Client) TopologyID() uint32 {
	return cl.topologyID.Load()
}

// Endpoints returns the endpoints the client currently routes to,
// bootstrap addresses plus everything learned from topology updates
func (cl *Client) Endpoints() []string {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return append([]string(nil), cl.endpoints...)
}

// --------------------------------------------------------------------------
// Public operations
// --------------------------------------------------------------------------

// Ping probes the configured cache on one server
func (cl *Client) Ping(ctx context.Context) (PingResult, error) {
	start := time.Now()
	defer cl.timers.ping.UpdateSince(start)

	result := PingFail
	err := cl.withConn(ctx, func(c *conn) error {
		var err error
		result, err = cl.doPing(c)
		return err
	})
	return result, err
}

// Get returns the value stored under key; ok is false on a miss
func (cl *Client) Get(ctx context.Context, key []byte) (value []byte, ok bool, err error) {
	start := time.Now()
	defer cl.timers.get.UpdateSince(start)

	err = cl.withConn(ctx, func(c *conn) error {
		var err error
		value, ok, err = cl.doGet(c, key)
		return err
	})
	return value, ok, err
}

// Put stores value under key. The previous value is returned only when the
// client was configured with ForceReturnValues.
func (cl *Client) Put(ctx context.Context, key, value []byte, lifespan, maxIdle time.Duration) (prev []byte, err error) {
	start := time.Now()
	defer cl.timers.put.UpdateSince(start)

	err = cl.withConn(ctx, func(c *conn) error {
		var err error
		prev, err = cl.doPut(c, key, value, lifespan, maxIdle)
		return err
	})
	return prev, err
}

// PutIfAbsent stores value under key unless the key already exists; stored
// reports whether the write happened
func (cl *Client) PutIfAbsent(ctx context.Context, key, value []byte, lifespan, maxIdle time.Duration) (stored bool, prev []byte, err error) {
	start := time.Now()
	defer cl.timers.putIfAbs.UpdateSince(start)

	err = cl.withConn(ctx, func(c *conn) error {
		var err error
		stored, prev, err = cl.doPutIfAbsent(c, key, value, lifespan, maxIdle)
		return err
	})
	return stored, prev, err
}

// Remove deletes the entry under key; removed reports whether it existed
func (cl *Client) Remove(ctx context.Context, key []byte) (removed bool, prev []byte, err error) {
	start := time.Now()
	defer cl.timers.remove.UpdateSince(start)

	err = cl.withConn(ctx, func(c *conn) error {
		var err error
		removed, prev, err = cl.doRemove(c, key)
		return err
	})
	return removed, prev, err
}

// ContainsKey reports whether an entry exists under key
func (cl *Client) ContainsKey(ctx context.Context, key []byte) (found bool, err error) {
	start := time.Now()
	defer cl.timers.contains.UpdateSince(start)

	err = cl.withConn(ctx, func(c *conn) error {
		var err error
		found, err = cl.doContainsKey(c, key)
		return err
	})
	return found, err
}

// --------------------------------------------------------------------------
// Routing
// --------------------------------------------------------------------------

// withConn routes one operation: pick an endpoint round robin, pass its
// circuit breaker, borrow a pooled connection and run fn on it
func (cl *Client) withConn(ctx context.Context, fn func(c *conn) error) error {
	addr, err := cl.pickEndpoint()
	if err != nil {
		return err
	}
	pool, breaker, err := cl.resources(addr)
	if err != nil {
		return err
	}

	_, err = breaker.Execute(func() (struct{}, error) {
		return struct{}{}, pool.with(ctx, fn)
	})
	return err
}

func (cl *Client) pickEndpoint() (string, error) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if cl.closed {
		return "", fmt.Errorf("hotrod: client is closed")
	}
	n := len(cl.endpoints)
	if n == 0 {
		return "", fmt.Errorf("hotrod: no endpoints available")
	}
	// Reduce in uint32 space so the conversion to int can never go
	// negative once the counter wraps.
	return cl.endpoints[(cl.next.Add(1)-1)%uint32(n)], nil
}

// resources returns the pool and breaker for addr, creating them lazily
func (cl *Client) resources(addr string) (*connPool, *gobreaker.CircuitBreaker[struct{}], error) {
	cl.mu.RLock()
	pool, okP := cl.pools[addr]
	breaker, okB := cl.breakers[addr]
	cl.mu.RUnlock()
	if okP && okB {
		return pool, breaker, nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil, nil, fmt.Errorf("hotrod: client is closed")
	}
	if pool = cl.pools[addr]; pool == nil {
		p, err := newConnPool(addr, cl.config)
		if err != nil {
			return nil, nil, err
		}
		pool = p
		cl.pools[addr] = pool
	}
	if breaker = cl.breakers[addr]; breaker == nil {
		breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name: "hotrod-" + addr,
			// Server-reported statuses mean the node is alive and framing
			// is intact; only transport faults should trip the breaker.
			IsSuccessful: func(err error) bool {
				return !discardsConnection(err)
			},
		})
		cl.breakers[addr] = breaker
	}
	return pool, breaker, nil
}

// --------------------------------------------------------------------------
// Per-operation state
// --------------------------------------------------------------------------

// newOperation builds the exchange state for one request
func (cl *Client) newOperation(opCode byte) *operation {
	var flags uint32
	if cl.config.ForceReturnValues {
		flags |= protocol.FlagForceReturnValue
	}
	return &operation{
		codec: cl.codec,
		params: &protocol.HeaderParams{
			MessageID:    cl.messageID.Add(1),
			CacheName:    []byte(cl.config.CacheName),
			Flags:        flags,
			Intelligence: cl.config.Intelligence,
			TopologyID:   cl.topologyID.Load(),
			OpCode:       opCode,
		},
	}
}

// applyTopology folds a piggybacked cluster view into the client's routing
// state. Stale or duplicate views lose the compare-and-swap and are
// dropped; a won swap merges the view's members into the endpoint list.
func (cl *Client) applyTopology(hdr *protocol.ResponseHeader) {
	if hdr == nil || hdr.Topology == nil {
		return
	}
	view := hdr.Topology

	old := cl.topologyID.Load()
	if view.ID == old || !cl.topologyID.CompareAndSwap(old, view.ID) {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	known := make(map[string]bool, len(cl.endpoints))
	for _, addr := range cl.endpoints {
		known[addr] = true
	}
	added := 0
	for _, m := range view.Members {
		addr := m.Addr()
		if !known[addr] {
			cl.endpoints = append(cl.endpoints, addr)
			known[addr] = true
			added++
		}
	}

	cl.logger.Info().
		Uint32("viewID", view.ID).
		Int("members", len(view.Members)).
		Int("newEndpoints", added).
		Msg("applied topology update")
}
