// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi_test

import (
	"bytes"
	"math/big"
	"net/http"
	"strings"
	"testing"

	"github.com/ethersphere/portal/pkg/debugapi"
	"github.com/ethersphere/portal/pkg/jsonhttp"
	"github.com/ethersphere/portal/pkg/jsonhttp/jsonhttptest"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

func TestRadius(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})
	addr := overlay.RandAddress(t)
	path := "/radius/" + addr.String()

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, path, http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "radius not found",
			Code:    http.StatusNotFound,
		}),
	)

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)).String()

	jsonhttptest.Request(t, testServer.Client, http.MethodPut, path, http.StatusOK,
		jsonhttptest.WithJSONRequestBody(debugapi.RadiusRequest{Radius: max}),
		jsonhttptest.WithExpectedJSONResponse(debugapi.RadiusResponse{Radius: max}),
	)
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, path, http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.RadiusResponse{Radius: max}),
	)
	if r, ok := testServer.Table.Radius(addr); !ok || r.String() != max {
		t.Fatalf("got table radius %v, want %s", r, max)
	}

	for _, body := range []string{"-1", "abc", ""} {
		jsonhttptest.Request(t, testServer.Client, http.MethodPut, path, http.StatusBadRequest,
			jsonhttptest.WithJSONRequestBody(debugapi.RadiusRequest{Radius: body}),
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "invalid radius",
				Code:    http.StatusBadRequest,
			}),
		)
	}
	jsonhttptest.Request(t, testServer.Client, http.MethodPut, path, http.StatusBadRequest,
		jsonhttptest.WithRequestBody(strings.NewReader("{")),
	)
	jsonhttptest.Request(t, testServer.Client, http.MethodPut, path, http.StatusRequestEntityTooLarge,
		jsonhttptest.WithRequestBody(bytes.NewReader(make([]byte, 2048))),
	)

	jsonhttptest.Request(t, testServer.Client, http.MethodDelete, path, http.StatusOK)
	if _, ok := testServer.Table.Radius(addr); ok {
		t.Fatal("radius not removed")
	}
}

func TestContentPeers(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})

	near := peer.New(overlay.RandAddressAt(t, testServer.Home, 250), 1, nil)
	far := peer.New(overlay.RandAddressAt(t, testServer.Home, 256), 1, nil)
	testServer.Table.AddNode(near)
	testServer.Table.AddNode(far)
	testServer.Table.UpdateRadius(near.Overlay(), big.NewInt(0))
	testServer.Table.UpdateRadius(far.Overlay(), new(big.Int).Lsh(big.NewInt(1), 256))

	key := testServer.Home.String()

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/content/"+key+"/peers", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.PeersResponse{
			Peers: []debugapi.PeerResponse{
				{Overlay: near.Overlay().String(), Seq: 1, Distance: 250},
				{Overlay: far.Overlay().String(), Seq: 1, Distance: 256},
			},
		}),
	)
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/content/"+key+"/peers?bound=true", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.PeersResponse{
			Peers: []debugapi.PeerResponse{
				{Overlay: far.Overlay().String(), Seq: 1, Distance: 256},
			},
		}),
	)
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/content/"+key+"/peers?count=1", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.PeersResponse{
			Peers: []debugapi.PeerResponse{
				{Overlay: near.Overlay().String(), Seq: 1, Distance: 250},
			},
		}),
	)
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/content/"+key+"/peers?bound=maybe", http.StatusBadRequest)
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/content/"+key+"/peers?count=x", http.StatusBadRequest)
}
