// Package server implements the server half of the Hot Rod protocol
// layer: a TCP listener that decodes versioned requests, executes them
// against an in-memory named-cache store, and encodes responses through
// the ResponseEncoder - embedding cluster topology metadata for clients
// whose routing tables have gone stale.
//
// Per connection, requests are processed strictly sequentially: the
// protocol guarantees a 1:1, in-order request/response pairing and assumes
// no pipelined multiplexing.
package server
