// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"sync"

	"github.com/ethereum/go-ethereum/p2p/enode"
)

// Driver is a discovery.Driver that serves a fixed set of nodes.
type Driver struct {
	mtx      sync.Mutex
	pings    map[enode.ID]int
	nodes    []*enode.Node
	pingFunc func(*enode.Node) error
}

type Option func(*Driver)

func WithNodes(nodes ...*enode.Node) Option {
	return func(d *Driver) {
		d.nodes = append(d.nodes, nodes...)
	}
}

func WithPingFunc(f func(*enode.Node) error) Option {
	return func(d *Driver) {
		d.pingFunc = f
	}
}

func New(opts ...Option) *Driver {
	d := &Driver{pings: make(map[enode.ID]int)}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Driver) Ping(n *enode.Node) error {
	d.mtx.Lock()
	d.pings[n.ID()]++
	f := d.pingFunc
	d.mtx.Unlock()

	if f != nil {
		return f(n)
	}
	return nil
}

// Pings returns the number of pings sent to the node.
func (d *Driver) Pings(id enode.ID) int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.pings[id]
}

func (d *Driver) RandomNodes() enode.Iterator {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return enode.IterNodes(d.nodes)
}
