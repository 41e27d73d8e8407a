package topology

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// --------------------------------------------------------------------------
// Member
// --------------------------------------------------------------------------

// Member is a single cluster node as advertised to clients
type Member struct {
	Host string
	Port uint16

	// HashID is the node's position on the legacy (protocol 1.0/1.1)
	// hash wheel. Derived from the address; ignored by newer versions,
	// which ship explicit segment ownership instead.
	HashID int32
}

// Addr returns the member's host:port form
func (m Member) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// NewMember creates a member and derives its legacy hash wheel position
func NewMember(host string, port uint16) Member {
	m := Member{Host: host, Port: port}
	m.HashID = int32(xxh3.HashString(m.Addr()))
	return m
}

// --------------------------------------------------------------------------
// View
// --------------------------------------------------------------------------

// View is an immutable point-in-time snapshot of cluster membership.
// Views are created by a Provider and shared by reference; no field may be
// mutated after creation. Responses encoded against the same view produce
// identical topology payloads.
type View struct {
	// ID is the monotonically increasing view counter. A response embeds
	// a topology payload only when the requesting client's last-known ID
	// is older than this one.
	ID uint32

	// Members is the ordered member list. Order is part of the wire
	// contract: segment ownership refers to members by index.
	Members []Member

	// NumKeyOwners is the number of copies of each key the cluster keeps
	NumKeyOwners int

	// HashSpaceSize is the size of the legacy hash wheel (1.0/1.1 only)
	HashSpaceSize uint32

	// NumVirtualNodes is the legacy virtual node count (1.1 only)
	NumVirtualNodes int

	// Segments holds, per hash segment, the indices into Members of the
	// nodes owning that segment. Nil when the provider does not compute
	// ownership hints.
	Segments [][]int
}
