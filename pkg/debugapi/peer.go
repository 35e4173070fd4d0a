// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"net/http"
	"strconv"

	"github.com/ethersphere/portal/pkg/jsonhttp"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
	"github.com/gorilla/mux"
)

const (
	defaultPeersLimit = 16
	maxPeersLimit     = 1024
)

type peerResponse struct {
	Overlay  string `json:"overlay"`
	Seq      uint64 `json:"seq"`
	Distance int    `json:"distance"`
	Underlay string `json:"underlay,omitempty"`
	ENR      string `json:"enr,omitempty"`
}

type peersResponse struct {
	Peers []peerResponse `json:"peers"`
}

func (s *Service) newPeerResponse(r peer.Record) peerResponse {
	resp := peerResponse{
		Overlay:  r.Overlay().String(),
		Seq:      r.Seq(),
		Distance: overlay.LogDistance(s.table.Home().Overlay(), r.Overlay()),
	}
	if u := r.Underlay(); u != nil {
		resp.Underlay = u.String()
	}
	if n, ok := r.(*peer.Node); ok {
		resp.ENR = n.Node().String()
	}
	return resp
}

func (s *Service) newPeersResponse(rs []peer.Record) peersResponse {
	resp := peersResponse{Peers: make([]peerResponse, 0, len(rs))}
	for _, r := range rs {
		resp.Peers = append(resp.Peers, s.newPeerResponse(r))
	}
	return resp
}

// parseAddress responds with Bad Request and returns false if the named path
// variable is not a hex encoded address.
func (s *Service) parseAddress(w http.ResponseWriter, r *http.Request, name string) (overlay.Address, bool) {
	v := mux.Vars(r)[name]
	addr, err := overlay.ParseHexAddress(v)
	if err != nil || len(addr.Bytes()) != overlay.AddressSize {
		s.logger.Debugf("debug api: parse %s %q: %v", name, v, err)
		jsonhttp.BadRequest(w, "invalid "+name)
		return overlay.Address{}, false
	}
	return addr, true
}

// parseLimit reads a positive integer query parameter.
func parseLimit(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultPeersLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxPeersLimit {
		n = maxPeersLimit
	}
	return n, true
}

func (s *Service) peerHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.parseAddress(w, r, "address")
	if !ok {
		return
	}

	rec, ok := s.table.Node(addr)
	if !ok {
		jsonhttp.NotFound(w, "peer not found")
		return
	}
	jsonhttp.OK(w, s.newPeerResponse(rec))
}

func (s *Service) peerRemoveHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.parseAddress(w, r, "address")
	if !ok {
		return
	}

	if !s.table.RemoveAddress(addr) {
		jsonhttp.NotFound(w, "peer not found")
		return
	}
	s.logger.Debugf("debug api: removed peer %s", addr)
	jsonhttp.OK(w, nil)
}

func (s *Service) liveNodesHandler(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)["distance"]
	d, err := strconv.Atoi(v)
	if err != nil || d < 0 || d > overlay.MaxDistance {
		s.logger.Debugf("debug api: live nodes: invalid distance %q", v)
		jsonhttp.BadRequest(w, "invalid distance")
		return
	}

	jsonhttp.OK(w, s.newPeersResponse(s.table.LiveNodes(d)))
}

func (s *Service) closestNodesHandler(w http.ResponseWriter, r *http.Request) {
	target, ok := s.parseAddress(w, r, "address")
	if !ok {
		return
	}
	limit, ok := parseLimit(r, "limit")
	if !ok {
		jsonhttp.BadRequest(w, "invalid limit")
		return
	}

	it := s.table.ClosestNodes(target)
	defer it.Close()

	var rs []peer.Record
	for len(rs) < limit && it.Next() {
		rs = append(rs, it.Record())
	}
	jsonhttp.OK(w, s.newPeersResponse(rs))
}
