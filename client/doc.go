// Package client implements the client half of the Hot Rod protocol
// layer: single-shot operations executed over pooled TCP connections.
//
// Every operation follows the same strict life cycle - write the request
// header and body, flush, read and validate the response header, decode
// the typed result or classify the failure. One operation means exactly
// one write and one read cycle; retry and rerouting policy belong to the
// caller.
//
// The Client facade adds the surrounding machinery: endpoint round-robin,
// a connection pool per endpoint, a circuit breaker per endpoint, and
// client-side topology tracking fed by the topology payloads servers
// piggyback onto ordinary responses.
package client
