// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debugapi exposes the debug API used to inspect and operate the
// routing table of a running node.
package debugapi

import (
	"math/big"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
	"github.com/ethersphere/portal/pkg/topology/nodetable"
	"github.com/prometheus/client_golang/prometheus"
)

// Table is the routing table as seen by the debug API.
type Table interface {
	Home() peer.Record
	Node(addr overlay.Address) (peer.Record, bool)
	RemoveAddress(addr overlay.Address) bool
	LiveNodes(distance int) []peer.Record
	ClosestNodes(target overlay.Address) *nodetable.Iterator
	UpdateRadius(addr overlay.Address, radius *big.Int)
	Radius(addr overlay.Address) (*big.Int, bool)
	RemoveRadius(addr overlay.Address)
	FindClosestNodesToKey(key overlay.Address, count int, boundByRadius bool) []peer.Record
	PerformMaintenanceOnOldestBucket() (int, bool)
	Stats() nodetable.Stats
}

// LocalNode provides the current node record. *enode.LocalNode implements it.
type LocalNode interface {
	Node() *enode.Node
}

// Service implements http.Handler interface to be used in HTTP server.
type Service struct {
	table              Table
	localNode          LocalNode
	logger             logging.Logger
	corsAllowedOrigins []string
	metricsRegistry    *prometheus.Registry
	// handler is changed in the Configure method
	handler   http.Handler
	handlerMu sync.RWMutex
}

// New creates a new Debug API Service with only basic routes enabled in order
// to expose /health, Go metrics and pprof before the routing table is ready.
func New(logger logging.Logger, corsAllowedOrigins []string) *Service {
	s := new(Service)
	s.logger = logger
	s.corsAllowedOrigins = corsAllowedOrigins
	s.metricsRegistry = newMetricsRegistry()

	s.setRouter(s.newBasicRouter())

	return s
}

// Configure injects the routing table and constructs the routes that depend
// on it. It is intended and safe to call this method only once. The local
// node may be nil.
func (s *Service) Configure(table Table, localNode LocalNode) {
	s.table = table
	s.localNode = localNode

	s.setRouter(s.newRouter())
}

// ServeHTTP implements http.Handler interface.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// protect handler as it is changed by the Configure method
	s.handlerMu.RLock()
	h := s.handler
	s.handlerMu.RUnlock()

	h.ServeHTTP(w, r)
}
