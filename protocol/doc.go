// Package protocol implements the version-independent vocabulary and the
// version-specific codecs of the Hot Rod binary protocol.
//
// The package is organized around a few small pieces:
//
//   - Version: the protocol version tag negotiated per connection, plus
//     the pre-handshake sentinel VersionUnknown.
//
//   - Status: the closed set of logical operation outcomes. Every codec
//     maps this set onto its version's byte encoding; the mapping is
//     bijective for the codes a version supports and degrades unsupported
//     codes to StatusServerError.
//
//   - HeaderParams / ResponseHeader: the per-request scratch state a
//     client operation owns, and the decoded response header it produces.
//
//   - Codec: the per-version serialization strategy. Codecs are stateless
//     and shared freely between connections; SelectCodec is a pure table
//     lookup that resolves any version value - including unknown ones -
//     to a usable codec.
//
// The exact byte layout produced by each codec is an external contract
// shared with already-shipped clients and servers and must not change for
// released versions.
package protocol
