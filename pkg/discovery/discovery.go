// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package discovery connects the routing table to the discv5 protocol: it
// probes peers with discv5 pings and feeds discovered nodes to the table.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/peer"
)

// ErrNotPingable is returned for records that carry no node record.
var ErrNotPingable = errors.New("record is not pingable")

// Driver is the part of the discv5 transport used by this package.
// *discover.UDPv5 implements it.
type Driver interface {
	Ping(n *enode.Node) error
	RandomNodes() enode.Iterator
}

// Pinger probes peers with discv5 PING requests.
type Pinger struct {
	driver Driver
}

func NewPinger(d Driver) *Pinger {
	return &Pinger{driver: d}
}

// Ping sends a PING to the peer and waits for the PONG or for the context to
// be done.
func (p *Pinger) Ping(ctx context.Context, r peer.Record) (time.Duration, error) {
	n, ok := r.(*peer.Node)
	if !ok {
		return 0, ErrNotPingable
	}

	start := time.Now()
	errc := make(chan error, 1)
	go func() {
		errc <- p.driver.Ping(n.Node())
	}()

	select {
	case err := <-errc:
		if err != nil {
			return 0, fmt.Errorf("ping %s: %w", r.Overlay(), err)
		}
		return time.Since(start), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Adder receives discovered peers.
type Adder interface {
	AddNode(r peer.Record)
	IsNodeIgnored(r peer.Record) bool
}

// Feed hands the nodes produced by the iterator to the adder until the
// iterator is exhausted or the context is done. It closes the iterator and
// returns the number of added nodes.
func Feed(ctx context.Context, it enode.Iterator, a Adder, logger logging.Logger) (int, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			it.Close()
		case <-done:
			it.Close()
		}
	}()

	added := 0
	for it.Next() {
		r, err := peer.FromNode(it.Node())
		if err != nil {
			logger.Debugf("discovery: skipping node: %v", err)
			continue
		}
		if a.IsNodeIgnored(r) {
			continue
		}
		a.AddNode(r)
		added++
	}
	return added, ctx.Err()
}
