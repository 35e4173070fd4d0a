// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package peer defines the remote peer record that is remembered by the
// routing table. Records are produced by the discovery layer and are never
// mutated by their consumers, only replaced.
package peer

import (
	"errors"
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethersphere/portal/pkg/overlay"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

var ErrNilNode = errors.New("nil node")

// Record is a remote peer as announced by discovery.
type Record interface {
	// Overlay is the identifier of the peer, records are equal
	// when their overlays are equal.
	Overlay() overlay.Address
	// Seq is the monotonically increasing sequence number of the record.
	Seq() uint64
	// Underlay is the network endpoint of the peer, it may be nil.
	Underlay() ma.Multiaddr
}

// Equal reports whether two records describe the same peer.
func Equal(a, b Record) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Overlay().Equal(b.Overlay())
}

// Overlays returns the overlay addresses of the given records.
func Overlays(rs []Record) []overlay.Address {
	addrs := make([]overlay.Address, 0, len(rs))
	for _, r := range rs {
		addrs = append(addrs, r.Overlay())
	}
	return addrs
}

type record struct {
	overlay  overlay.Address
	seq      uint64
	underlay ma.Multiaddr
}

// New returns a plain record.
func New(o overlay.Address, seq uint64, underlay ma.Multiaddr) Record {
	return &record{overlay: o, seq: seq, underlay: underlay}
}

func (r *record) Overlay() overlay.Address { return r.overlay }
func (r *record) Seq() uint64              { return r.seq }
func (r *record) Underlay() ma.Multiaddr   { return r.underlay }

func (r *record) String() string {
	return fmt.Sprintf("%s (seq %d)", r.overlay, r.seq)
}

// Node is a Record backed by a signed ethereum node record.
type Node struct {
	node     *enode.Node
	overlay  overlay.Address
	underlay ma.Multiaddr
}

// FromNode wraps the discovery node into a Record. The underlay is
// derived from the IP and UDP entries of the node record and is nil
// when the record does not announce an endpoint.
func FromNode(n *enode.Node) (*Node, error) {
	if n == nil {
		return nil, ErrNilNode
	}
	id := n.ID()
	underlay, err := underlayOf(n)
	if err != nil {
		return nil, fmt.Errorf("node %s underlay: %w", id.TerminalString(), err)
	}
	return &Node{
		node:     n,
		overlay:  overlay.NewAddress(id[:]),
		underlay: underlay,
	}, nil
}

func (n *Node) Overlay() overlay.Address { return n.overlay }
func (n *Node) Seq() uint64              { return n.node.Seq() }
func (n *Node) Underlay() ma.Multiaddr   { return n.underlay }

// Node returns the underlying discovery node.
func (n *Node) Node() *enode.Node { return n.node }

func (n *Node) String() string {
	return n.node.String()
}

func underlayOf(n *enode.Node) (ma.Multiaddr, error) {
	ip := n.IP()
	if ip == nil || n.UDP() == 0 {
		return nil, nil
	}
	return manet.FromNetAddr(&net.UDPAddr{IP: ip, Port: n.UDP()})
}
