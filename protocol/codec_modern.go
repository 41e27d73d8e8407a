package protocol

import (
	"fmt"

	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// Modern codec (protocol 1.2, 1.3 and 2.0)
// --------------------------------------------------------------------------

// modernCodec implements the segment-based topology format introduced in
// protocol 1.2 and kept through 2.0: a flat member list for every
// topology-aware client, plus explicit per-segment ownership for clients
// that declared hash-distribution awareness. Protocol 2.0 differs from
// 1.2/1.3 only in its status byte mapping (structured cache-not-found).
type modernCodec struct {
	baseCodec
}

func (c modernCodec) WriteResponseHeader(w *transport.Writer, resp *Response, topo *topology.View) error {
	if err := c.writeResponsePrefix(w, resp); err != nil {
		return err
	}
	if !shouldWriteTopology(resp, topo) {
		return w.WriteByte(0)
	}
	if err := w.WriteByte(1); err != nil {
		return err
	}
	return c.writeTopology(w, resp, topo)
}

func (c modernCodec) writeTopology(w *transport.Writer, resp *Response, topo *topology.View) error {
	if err := w.WriteVInt(topo.ID); err != nil {
		return err
	}
	if err := w.WriteVInt(uint32(len(topo.Members))); err != nil {
		return err
	}
	for _, m := range topo.Members {
		if err := w.WriteString(m.Host); err != nil {
			return err
		}
		if err := w.WriteUint16(m.Port); err != nil {
			return err
		}
	}

	// Ownership hints only go to clients that can use them.
	if resp.ClientIntelligence != IntelligenceHashAware {
		return nil
	}
	if topo.Segments == nil {
		if err := w.WriteByte(0); err != nil {
			return err
		}
		return w.WriteVInt(0)
	}
	if err := w.WriteByte(HashFunctionXXH3); err != nil {
		return err
	}
	if err := w.WriteVInt(uint32(len(topo.Segments))); err != nil {
		return err
	}
	for _, owners := range topo.Segments {
		if err := w.WriteByte(byte(len(owners))); err != nil {
			return err
		}
		for _, idx := range owners {
			if err := w.WriteVInt(uint32(idx)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c modernCodec) ReadResponseHeader(r *transport.Reader, p *HeaderParams) (*ResponseHeader, error) {
	hdr, topologyChanged, err := c.readResponsePrefix(r)
	if err != nil {
		return nil, err
	}
	if !topologyChanged {
		return hdr, nil
	}
	view, err := c.readTopology(r, p)
	if err != nil {
		return nil, err
	}
	hdr.Topology = view
	return hdr, nil
}

func (c modernCodec) readTopology(r *transport.Reader, p *HeaderParams) (*topology.View, error) {
	view := &topology.View{}

	id, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	view.ID = id

	numServers, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	if numServers > maxTopologyMembers {
		return nil, fmt.Errorf("%w: %d members", ErrTopologyTooLarge, numServers)
	}
	view.Members = make([]topology.Member, 0, numServers)
	for i := uint32(0); i < numServers; i++ {
		host, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		port, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		view.Members = append(view.Members, topology.Member{Host: host, Port: port})
	}

	// The segment block is only present when this client asked for it.
	if p.Intelligence != IntelligenceHashAware {
		return view, nil
	}
	if _, err := r.ReadByte(); err != nil { // hash function version
		return nil, err
	}
	numSegments, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	if numSegments == 0 {
		return view, nil
	}
	if numSegments > maxTopologySegments {
		return nil, fmt.Errorf("%w: %d segments", ErrTopologyTooLarge, numSegments)
	}
	view.Segments = make([][]int, numSegments)
	for seg := uint32(0); seg < numSegments; seg++ {
		numOwners, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		owners := make([]int, 0, numOwners)
		for o := byte(0); o < numOwners; o++ {
			idx, err := r.ReadVInt()
			if err != nil {
				return nil, err
			}
			owners = append(owners, int(idx))
		}
		view.Segments[seg] = owners
	}
	return view, nil
}
