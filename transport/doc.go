// Package transport provides the byte-stream primitives of the Hot Rod
// wire format: buffered readers and writers that understand the protocol's
// variable-length integers, length-prefixed byte arrays and strings.
//
// The package deliberately knows nothing about protocol versions, headers
// or operations - it only implements the primitive encodings that every
// protocol version shares. Connection lifecycle (dialing, pooling,
// reconnects) is owned by the client and server packages.
package transport
