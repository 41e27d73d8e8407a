package topology

import (
	"sync"
	"sync/atomic"

	"github.com/buraksezer/consistent"
	"github.com/zeebo/xxh3"
)

// --------------------------------------------------------------------------
// Provider interface
// --------------------------------------------------------------------------

// Provider is the read-only view over cluster membership consumed by the
// protocol layer. Implementations must return immutable snapshots: the
// returned view is shared between concurrent encodes and must never change
// after it has been handed out.
type Provider interface {
	// View returns the current membership snapshot for the given cache,
	// or nil when no topology is known for it.
	View(cacheName string) *View
}

// --------------------------------------------------------------------------
// Static provider
// --------------------------------------------------------------------------

// StaticProvider serves a fixed view for every cache. Used in tests and in
// deployments where membership is managed externally.
type StaticProvider struct {
	view atomic.Pointer[View]
}

// NewStaticProvider creates a provider pinned to the given view
func NewStaticProvider(view *View) *StaticProvider {
	p := &StaticProvider{}
	p.view.Store(view)
	return p
}

func (p *StaticProvider) View(string) *View {
	return p.view.Load()
}

// Update replaces the served view. The new view must carry a higher ID
// than the previous one.
func (p *StaticProvider) Update(view *View) {
	p.view.Store(view)
}

// --------------------------------------------------------------------------
// Ring provider
// --------------------------------------------------------------------------

// ringMember adapts a Member to the consistent-hash ring's member interface
type ringMember struct {
	member Member
	index  int
}

func (r ringMember) String() string {
	return r.member.Addr()
}

// ringHasher feeds the ring with xxh3
type ringHasher struct{}

func (ringHasher) Sum64(data []byte) uint64 {
	return xxh3.Hash(data)
}

// RingProvider computes segment ownership from the member set using a
// consistent-hash ring, so that membership changes move as few segments as
// possible. All caches on the node share one cluster view.
//
// Reads are lock-free snapshot loads; the mutex only serializes the update
// path, which rebuilds the ring and publishes a new immutable view with an
// incremented view ID.
type RingProvider struct {
	numSegments  int
	numKeyOwners int

	mu      sync.Mutex
	viewID  uint32
	current atomic.Pointer[View]
}

// NewRingProvider creates a provider for the given segment geometry and
// publishes an initial view for the given members.
func NewRingProvider(numSegments, numKeyOwners int, members ...Member) *RingProvider {
	if numSegments <= 0 {
		numSegments = 256
	}
	if numKeyOwners <= 0 {
		numKeyOwners = 1
	}
	p := &RingProvider{
		numSegments:  numSegments,
		numKeyOwners: numKeyOwners,
	}
	p.SetMembers(members...)
	return p
}

func (p *RingProvider) View(string) *View {
	return p.current.Load()
}

// SetMembers replaces the member set and publishes a new view. The view ID
// increases by exactly one per call, including for identical member sets,
// so callers should only invoke it on actual membership changes.
func (p *RingProvider) SetMembers(members ...Member) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewID++
	view := &View{
		ID:              p.viewID,
		Members:         append([]Member(nil), members...),
		NumKeyOwners:    p.numKeyOwners,
		HashSpaceSize:   1 << 31,
		NumVirtualNodes: 1,
	}
	if len(members) > 0 {
		view.Segments = p.computeSegments(view.Members)
	}
	p.current.Store(view)
}

// computeSegments builds the per-segment owner lists from a fresh ring
func (p *RingProvider) computeSegments(members []Member) [][]int {
	ringMembers := make([]consistent.Member, len(members))
	indexByAddr := make(map[string]int, len(members))
	for i, m := range members {
		ringMembers[i] = ringMember{member: m, index: i}
		indexByAddr[m.Addr()] = i
	}

	owners := p.numKeyOwners
	if owners > len(members) {
		owners = len(members)
	}

	ring := consistent.New(ringMembers, consistent.Config{
		PartitionCount:    p.numSegments,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            ringHasher{},
	})

	segments := make([][]int, p.numSegments)
	for seg := 0; seg < p.numSegments; seg++ {
		closest, err := ring.GetClosestNForPartition(seg, owners)
		if err != nil {
			// Fewer members than owners; fall back to the partition owner.
			closest = []consistent.Member{ring.GetPartitionOwner(seg)}
		}
		idx := make([]int, 0, len(closest))
		for _, m := range closest {
			idx = append(idx, indexByAddr[m.String()])
		}
		segments[seg] = idx
	}
	return segments
}
