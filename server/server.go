package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog"

	"github.com/hotrodkv/hotrod/protocol"
	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

var (
	requestsTotal       = metrics.NewCounter(`hotrod_server_requests_total`)
	errorResponsesTotal = metrics.NewCounter(`hotrod_server_error_responses_total`)
	connectionsTotal    = metrics.NewCounter(`hotrod_server_connections_total`)
)

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server accepts Hot Rod connections and serves requests against a cache
// store. Each connection is handled by its own goroutine; within a
// connection, requests are strictly sequential.
type Server struct {
	config   ServerConfig
	handler  *Handler
	encoder  *ResponseEncoder
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates a server over the given store. The topology provider
// supplies the cluster views embedded into responses; it may be nil for a
// non-clustered server. An optional logger can be passed, otherwise
// logging is disabled.
func NewServer(config ServerConfig, store *Store, provider topology.Provider, logger ...zerolog.Logger) *Server {
	s := &Server{
		config:  config,
		handler: NewHandler(store),
		encoder: NewResponseEncoder(config.Clustered, provider),
	}
	if len(logger) > 0 {
		s.logger = logger[0].With().Str("layer", "server").Logger()
	} else {
		s.logger = zerolog.Nop()
	}
	return s
}

// Start binds the listener and launches the accept loop. It returns once
// the server is accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %w", s.config.Endpoint, err)
	}
	s.listener = listener
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("hotrod server listening")

	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Endpoint
	}
	return s.listener.Addr().String()
}

// Close stops accepting connections. In-flight exchanges finish on their
// own connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("accept error")
			continue
		}
		connectionsTotal.Inc()
		go s.handleConnection(conn)
	}
}

// --------------------------------------------------------------------------
// Connection handling
// --------------------------------------------------------------------------

// handleConnection runs the sequential request/response loop for one
// connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if err := s.upgradeConnection(conn); err != nil {
		s.logger.Warn().Err(err).Msg("failed to apply socket options")
	}

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	r := transport.NewReader(conn)

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				s.logger.Error().Err(err).Msg("failed to set read deadline")
				return
			}
		}

		req, err := readRequest(r)

		switch {
		case err == nil:

		case errors.Is(err, io.EOF):
			s.logger.Debug().Msg("connection closed by client")
			return

		case errors.Is(err, errUnknownVersion):
			// Answer through the minimal error codec, then drop the
			// connection: the rest of the frame cannot be parsed, so
			// framing is lost.
			resp := protocol.NewErrorResponse(protocol.VersionUnknown, req.messageID,
				protocol.StatusUnknownVersion, err.Error())
			s.writeResponse(conn, resp, timeout)
			return

		case errors.Is(err, errUnknownOperation):
			resp := protocol.NewErrorResponse(req.version, req.messageID,
				protocol.StatusProtocolError, err.Error())
			s.writeResponse(conn, resp, timeout)
			return

		default:
			// Bad magic or a mid-frame transport fault: nothing can be
			// answered safely.
			s.logger.Error().Err(err).Msg("dropping connection")
			return
		}

		requestsTotal.Inc()
		resp := s.handler.Handle(req)
		if resp.Status.IsError() {
			errorResponsesTotal.Inc()
		}
		if !s.writeResponse(conn, resp, timeout) {
			return
		}
	}
}

// writeResponse encodes and emits one response. It reports whether the
// connection is still usable.
func (s *Server) writeResponse(conn net.Conn, resp *protocol.Response, timeout time.Duration) bool {
	buf, err := s.encoder.Encode(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
		return false
	}
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			s.logger.Error().Err(err).Msg("failed to set write deadline")
			return false
		}
	}
	if _, err := conn.Write(buf); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
		return false
	}
	return true
}

// upgradeConnection applies the configured socket options
func (s *Server) upgradeConnection(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetNoDelay(s.config.TCP.NoDelay); err != nil {
		return err
	}
	if s.config.TCP.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(s.config.TCP.WriteBufferSize); err != nil {
			return err
		}
	}
	if s.config.TCP.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(s.config.TCP.ReadBufferSize); err != nil {
			return err
		}
	}
	if s.config.TCP.KeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(s.config.TCP.KeepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	return nil
}
