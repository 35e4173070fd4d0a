// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

type (
	StatusResponse      = statusResponse
	PeerResponse        = peerResponse
	PeersResponse       = peersResponse
	RadiusRequest       = radiusRequest
	RadiusResponse      = radiusResponse
	MaintenanceResponse = maintenanceResponse
	AddressesResponse   = addressesResponse
)
