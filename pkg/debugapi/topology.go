// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"net/http"

	"github.com/ethersphere/portal/pkg/jsonhttp"
)

func (s *Service) topologyHandler(w http.ResponseWriter, _ *http.Request) {
	jsonhttp.OK(w, s.table.Stats())
}

type maintenanceResponse struct {
	Maintained bool `json:"maintained"`
	Distance   int  `json:"distance"`
}

func (s *Service) maintenanceHandler(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.table.PerformMaintenanceOnOldestBucket()
	jsonhttp.OK(w, maintenanceResponse{
		Maintained: ok,
		Distance:   d,
	})
}

type addressesResponse struct {
	Overlay  string `json:"overlay"`
	Underlay string `json:"underlay,omitempty"`
	ENR      string `json:"enr,omitempty"`
}

func (s *Service) addressesHandler(w http.ResponseWriter, _ *http.Request) {
	home := s.table.Home()
	resp := addressesResponse{
		Overlay: home.Overlay().String(),
	}
	if u := home.Underlay(); u != nil {
		resp.Underlay = u.String()
	}
	if s.localNode != nil {
		resp.ENR = s.localNode.Node().String()
	}
	jsonhttp.OK(w, resp)
}
