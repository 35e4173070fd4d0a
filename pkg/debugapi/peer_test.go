// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi_test

import (
	"net/http"
	"testing"

	"github.com/ethersphere/portal/pkg/debugapi"
	"github.com/ethersphere/portal/pkg/jsonhttp"
	"github.com/ethersphere/portal/pkg/jsonhttp/jsonhttptest"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
	"github.com/ethersphere/portal/pkg/topology/nodetable"
	"github.com/google/go-cmp/cmp"
)

func TestPeer(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})

	p := peer.New(overlay.RandAddressAt(t, testServer.Home, 250), 4, nil)
	testServer.Table.AddNode(p)

	t.Run("ok", func(t *testing.T) {
		jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/peers/"+p.Overlay().String(), http.StatusOK,
			jsonhttptest.WithExpectedJSONResponse(debugapi.PeerResponse{
				Overlay:  p.Overlay().String(),
				Seq:      4,
				Distance: 250,
			}),
		)
	})

	t.Run("not found", func(t *testing.T) {
		jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/peers/"+overlay.RandAddressAt(t, testServer.Home, 250).String(), http.StatusNotFound,
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "peer not found",
				Code:    http.StatusNotFound,
			}),
		)
	})

	t.Run("invalid address", func(t *testing.T) {
		jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/peers/zz", http.StatusBadRequest,
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "invalid address",
				Code:    http.StatusBadRequest,
			}),
		)
	})

	t.Run("remove", func(t *testing.T) {
		jsonhttptest.Request(t, testServer.Client, http.MethodDelete, "/peers/"+p.Overlay().String(), http.StatusOK,
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: http.StatusText(http.StatusOK),
				Code:    http.StatusOK,
			}),
		)
		if _, ok := testServer.Table.Node(p.Overlay()); ok {
			t.Fatal("peer not removed")
		}
		jsonhttptest.Request(t, testServer.Client, http.MethodDelete, "/peers/"+p.Overlay().String(), http.StatusNotFound)
	})

	t.Run("method not allowed", func(t *testing.T) {
		jsonhttptest.Request(t, testServer.Client, http.MethodPost, "/peers/"+p.Overlay().String(), http.StatusMethodNotAllowed)
	})
}

func TestLiveNodes(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})

	p1 := peer.New(overlay.RandAddressAt(t, testServer.Home, 256), 1, nil)
	p2 := peer.New(overlay.RandAddressAt(t, testServer.Home, 256), 1, nil)
	testServer.Table.AddNode(p1)
	testServer.Table.AddNode(p2)

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/buckets/256/live", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.PeersResponse{
			Peers: []debugapi.PeerResponse{
				{Overlay: p2.Overlay().String(), Seq: 1, Distance: 256},
				{Overlay: p1.Overlay().String(), Seq: 1, Distance: 256},
			},
		}),
	)

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/buckets/0/live", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.PeersResponse{
			Peers: []debugapi.PeerResponse{
				{Overlay: testServer.Home.String(), Seq: 1, Underlay: "/ip4/127.0.0.1/udp/9009"},
			},
		}),
	)

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/buckets/12/live", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.PeersResponse{
			Peers: []debugapi.PeerResponse{},
		}),
	)

	for _, d := range []string{"257", "-1", "x"} {
		jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/buckets/"+d+"/live", http.StatusBadRequest)
	}
}

func TestClosestNodes(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})

	for d := 240; d <= 256; d++ {
		testServer.Table.AddNode(peer.New(overlay.RandAddressAt(t, testServer.Home, d), 1, nil))
	}
	target := overlay.RandAddress(t)

	var want []string
	it := testServer.Table.ClosestNodes(target)
	for len(want) < 5 && it.Next() {
		want = append(want, it.Record().Overlay().String())
	}
	it.Close()

	var resp debugapi.PeersResponse
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/closest/"+target.String()+"?limit=5", http.StatusOK,
		jsonhttptest.WithUnmarshalResponse(&resp),
	)

	var got []string
	for _, p := range resp.Peers {
		got = append(got, p.Overlay)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("closest nodes mismatch (-want +got):\n%s", diff)
	}

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/closest/"+target.String()+"?limit=0", http.StatusBadRequest)
}

func TestTopology(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})
	testServer.Table.AddNode(peer.New(overlay.RandAddressAt(t, testServer.Home, 256), 1, nil))

	var resp nodetable.Stats
	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/topology", http.StatusOK,
		jsonhttptest.WithUnmarshalResponse(&resp),
	)
	if !resp.Home.Equal(testServer.Home) {
		t.Errorf("got home %s, want %s", resp.Home, testServer.Home)
	}
	if resp.Total != 1 || resp.Live != 1 || len(resp.Buckets) != 1 || resp.Buckets[0].Distance != 256 {
		t.Errorf("got stats %+v", resp)
	}
}

func TestMaintenance(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})

	jsonhttptest.Request(t, testServer.Client, http.MethodPost, "/maintenance", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.MaintenanceResponse{}),
	)

	testServer.Table.AddNode(peer.New(overlay.RandAddressAt(t, testServer.Home, 200), 1, nil))

	jsonhttptest.Request(t, testServer.Client, http.MethodPost, "/maintenance", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.MaintenanceResponse{
			Maintained: true,
			Distance:   200,
		}),
	)
}

func TestAddresses(t *testing.T) {
	testServer := newTestServer(t, testServerOptions{})

	jsonhttptest.Request(t, testServer.Client, http.MethodGet, "/addresses", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.AddressesResponse{
			Overlay:  testServer.Home.String(),
			Underlay: "/ip4/127.0.0.1/udp/9009",
		}),
	)
}
