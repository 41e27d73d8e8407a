package server

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hotrodkv/hotrod/protocol"
	"github.com/hotrodkv/hotrod/transport"
)

var (
	// errBadMagic - the frame does not start with the request magic;
	// framing is unknown, the connection cannot be answered
	errBadMagic = errors.New("server: invalid request magic")

	// errUnknownVersion - the request declared a version outside the
	// codec table; the remainder of the frame cannot be parsed
	errUnknownVersion = errors.New("server: unknown protocol version")

	// errUnknownOperation - the opcode is not part of the protocol; the
	// body length is unknowable
	errUnknownOperation = errors.New("server: unknown operation code")
)

// --------------------------------------------------------------------------
// Request decoding
// --------------------------------------------------------------------------

// request is one decoded client request
type request struct {
	version      protocol.Version
	messageID    uint64
	opCode       byte
	cacheName    string
	flags        uint32
	intelligence byte
	topologyID   uint32

	key      []byte
	value    []byte
	lifespan time.Duration
	maxIdle  time.Duration
}

// readRequest decodes the next request frame. On errUnknownVersion and
// errUnknownOperation the returned request still carries the fields
// decoded so far (notably the message ID), so the caller can answer with
// a minimal error response before discarding the connection.
func readRequest(r *transport.Reader) (*request, error) {
	magic, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if magic != protocol.RequestMagic {
		return nil, fmt.Errorf("%w: 0x%02x", errBadMagic, magic)
	}

	req := &request{}
	if req.messageID, err = r.ReadVLong(); err != nil {
		return nil, err
	}

	versionByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	req.version = protocol.Version(versionByte)
	if !req.version.Supported() {
		return req, fmt.Errorf("%w: %d", errUnknownVersion, versionByte)
	}

	if req.opCode, err = r.ReadByte(); err != nil {
		return nil, err
	}
	cacheName, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	req.cacheName = string(cacheName)
	if req.flags, err = r.ReadVInt(); err != nil {
		return nil, err
	}
	if req.intelligence, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if req.topologyID, err = r.ReadVInt(); err != nil {
		return nil, err
	}

	return req, readRequestBody(r, req)
}

func readRequestBody(r *transport.Reader, req *request) error {
	var err error
	switch req.opCode {
	case protocol.OpPingRequest:
		return nil

	case protocol.OpGetRequest, protocol.OpRemoveRequest, protocol.OpContainsKeyRequest:
		req.key, err = r.ReadBytes()
		return err

	case protocol.OpPutRequest, protocol.OpPutIfAbsentRequest:
		if req.key, err = r.ReadBytes(); err != nil {
			return err
		}
		lifespan, err := r.ReadVInt()
		if err != nil {
			return err
		}
		maxIdle, err := r.ReadVInt()
		if err != nil {
			return err
		}
		req.lifespan = time.Duration(lifespan) * time.Second
		req.maxIdle = time.Duration(maxIdle) * time.Second
		req.value, err = r.ReadBytes()
		return err

	default:
		return fmt.Errorf("%w: 0x%02x", errUnknownOperation, req.opCode)
	}
}

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

// Handler executes decoded requests against the cache store and produces
// the application-level response consumed by the ResponseEncoder.
type Handler struct {
	store *Store
}

// NewHandler creates a handler over the given store
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Handle executes one request. It never returns nil: failures become
// error responses.
func (h *Handler) Handle(req *request) *protocol.Response {
	resp := &protocol.Response{
		Version:            req.version,
		MessageID:          req.messageID,
		CacheName:          req.cacheName,
		OpCode:             protocol.ResponseOpCode(req.opCode),
		Status:             protocol.StatusSuccess,
		ClientIntelligence: req.intelligence,
		TopologyID:         req.topologyID,
	}

	cache, ok := h.store.Cache(req.cacheName)
	if !ok {
		resp.OpCode = protocol.OpErrorResponse
		resp.Status = protocol.StatusCacheNotFound
		// The exception-style message is part of the compatibility
		// contract: pre-2.0 clients detect cache absence by matching it.
		resp.ErrorMessage = fmt.Sprintf("CacheNotFoundException: cache '%s' is not defined", req.cacheName)
		return resp
	}

	returnPrev := req.flags&protocol.FlagForceReturnValue != 0

	switch req.opCode {
	case protocol.OpPingRequest:
		// Reaching the cache lookup above is the whole point of a ping.

	case protocol.OpGetRequest:
		value, found := cache.Get(req.key)
		if !found {
			resp.Status = protocol.StatusKeyNotFound
			break
		}
		resp.Payload = encodeArray(value)

	case protocol.OpPutRequest:
		prev, _ := cache.Put(req.key, req.value, req.lifespan, req.maxIdle)
		if returnPrev {
			resp.Payload = encodeArray(prev)
		}

	case protocol.OpPutIfAbsentRequest:
		prev, applied := cache.PutIfAbsent(req.key, req.value, req.lifespan, req.maxIdle)
		if !applied {
			resp.Status = protocol.StatusNotExecuted
		}
		if returnPrev {
			resp.Payload = encodeArray(prev)
		}

	case protocol.OpRemoveRequest:
		prev, had := cache.Remove(req.key)
		if !had {
			resp.Status = protocol.StatusKeyNotFound
		}
		if returnPrev {
			resp.Payload = encodeArray(prev)
		}

	case protocol.OpContainsKeyRequest:
		if !cache.Contains(req.key) {
			resp.Status = protocol.StatusKeyNotFound
		}

	default:
		resp.OpCode = protocol.OpErrorResponse
		resp.Status = protocol.StatusProtocolError
		resp.ErrorMessage = fmt.Sprintf("unknown operation 0x%02x", req.opCode)
	}

	return resp
}

// encodeArray renders a length-prefixed byte array as a response payload
func encodeArray(b []byte) []byte {
	var buf bytes.Buffer
	w := transport.NewWriter(&buf)
	_ = w.WriteBytes(b)
	_ = w.Flush()
	return buf.Bytes()
}
