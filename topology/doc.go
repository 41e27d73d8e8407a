// Package topology models the cluster membership information that Hot Rod
// servers embed into responses so that clients can keep their routing
// tables current without extra round trips.
//
// The package provides:
//
//   - View: an immutable point-in-time snapshot of cluster membership,
//     identified by a monotonically increasing view ID and optionally
//     carrying per-segment ownership hints.
//
//   - Provider: the read-only interface the protocol layer uses to obtain
//     the current view for a cache. The protocol layer never mutates a
//     view; all update paths live behind the Provider implementation.
//
//   - RingProvider: a Provider backed by a consistent-hash ring that
//     computes segment ownership from the member set.
package topology
