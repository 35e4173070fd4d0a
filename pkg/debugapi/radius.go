// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethersphere/portal/pkg/jsonhttp"
)

type radiusRequest struct {
	Radius string `json:"radius"`
}

type radiusResponse struct {
	Radius string `json:"radius"`
}

func (s *Service) radiusHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.parseAddress(w, r, "address")
	if !ok {
		return
	}

	radius, ok := s.table.Radius(addr)
	if !ok {
		jsonhttp.NotFound(w, "radius not found")
		return
	}
	jsonhttp.OK(w, radiusResponse{Radius: radius.String()})
}

func (s *Service) radiusUpdateHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.parseAddress(w, r, "address")
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		s.logger.Debugf("debug api: radius: read request body: %v", err)
		jsonhttp.InternalServerError(w, "cannot read request")
		return
	}

	var req radiusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Debugf("debug api: radius: unmarshal request body: %v", err)
		jsonhttp.BadRequest(w, "invalid request body")
		return
	}

	radius, ok := new(big.Int).SetString(req.Radius, 10)
	if !ok || radius.Sign() < 0 {
		jsonhttp.BadRequest(w, "invalid radius")
		return
	}

	s.table.UpdateRadius(addr, radius)
	jsonhttp.OK(w, radiusResponse{Radius: radius.String()})
}

func (s *Service) radiusRemoveHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.parseAddress(w, r, "address")
	if !ok {
		return
	}

	s.table.RemoveRadius(addr)
	jsonhttp.OK(w, nil)
}

func (s *Service) contentPeersHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := s.parseAddress(w, r, "key")
	if !ok {
		return
	}
	count, ok := parseLimit(r, "count")
	if !ok {
		jsonhttp.BadRequest(w, "invalid count")
		return
	}
	bound := false
	if v := r.URL.Query().Get("bound"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonhttp.BadRequest(w, "invalid bound")
			return
		}
		bound = b
	}

	jsonhttp.OK(w, s.newPeersResponse(s.table.FindClosestNodesToKey(key, count, bound)))
}
