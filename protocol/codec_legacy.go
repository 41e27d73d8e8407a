package protocol

import (
	"fmt"

	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

// --------------------------------------------------------------------------
// Legacy codec (protocol 1.0 and 1.1)
// --------------------------------------------------------------------------

// legacyCodec implements the hash-wheel topology format of protocol 1.0
// and 1.1. Protocol 1.1 extends 1.0 with a virtual node count field; the
// rest of the layout is identical.
type legacyCodec struct {
	baseCodec
	virtualNodes bool
}

func (c legacyCodec) WriteResponseHeader(w *transport.Writer, resp *Response, topo *topology.View) error {
	if err := c.writeResponsePrefix(w, resp); err != nil {
		return err
	}
	if !shouldWriteTopology(resp, topo) {
		return w.WriteByte(0)
	}
	if err := w.WriteByte(1); err != nil {
		return err
	}
	return c.writeTopology(w, topo)
}

func (c legacyCodec) writeTopology(w *transport.Writer, topo *topology.View) error {
	if err := w.WriteVInt(topo.ID); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(topo.NumKeyOwners)); err != nil {
		return err
	}
	if err := w.WriteByte(HashFunctionXXH3); err != nil {
		return err
	}
	if err := w.WriteVInt(topo.HashSpaceSize); err != nil {
		return err
	}
	if c.virtualNodes {
		if err := w.WriteVInt(uint32(topo.NumVirtualNodes)); err != nil {
			return err
		}
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
		if err := w.WriteInt32(m.HashID); err != nil {
			return err
		}
	}
	return nil
}

func (c legacyCodec) ReadResponseHeader(r *transport.Reader, p *HeaderParams) (*ResponseHeader, error) {
	hdr, topologyChanged, err := c.readResponsePrefix(r)
	if err != nil {
		return nil, err
	}
	if !topologyChanged {
		return hdr, nil
	}
	view, err := c.readTopology(r)
	if err != nil {
		return nil, err
	}
	hdr.Topology = view
	return hdr, nil
}

func (c legacyCodec) readTopology(r *transport.Reader) (*topology.View, error) {
	view := &topology.View{NumVirtualNodes: 1}

	id, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	view.ID = id

	numOwners, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	view.NumKeyOwners = int(numOwners)

	// Hash function version; informational for the client.
	if _, err := r.ReadByte(); err != nil {
		return nil, err
	}

	hashSpace, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	view.HashSpaceSize = hashSpace

	if c.virtualNodes {
		vnodes, err := r.ReadVInt()
		if err != nil {
			return nil, err
		}
		view.NumVirtualNodes = int(vnodes)
	}

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
		hashID, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		view.Members = append(view.Members, topology.Member{Host: host, Port: port, HashID: hashID})
	}
	return view, nil
}
