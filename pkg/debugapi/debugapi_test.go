// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ethersphere/portal/pkg/debugapi"
	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
	"github.com/ethersphere/portal/pkg/topology/nodetable"
	ma "github.com/multiformats/go-multiaddr"
	"resenje.org/web"
)

type liveness struct{}

func (liveness) Check(peer.Record)              {}
func (liveness) IsBadPeer(overlay.Address) bool { return false }

type testServerOptions struct {
	CORSAllowedOrigins []string
	Unconfigured       bool
}

type testServer struct {
	Client *http.Client
	Table  *nodetable.Table
	Home   overlay.Address
}

func newTestServer(t *testing.T, o testServerOptions) *testServer {
	t.Helper()

	home := overlay.RandAddress(t)
	underlay, err := ma.NewMultiaddr("/ip4/127.0.0.1/udp/9009")
	if err != nil {
		t.Fatal(err)
	}
	logger := logging.New(io.Discard, 0)

	table, err := nodetable.New(peer.New(home, 1, underlay), liveness{}, logger, nodetable.Options{})
	if err != nil {
		t.Fatal(err)
	}

	s := debugapi.New(logger, o.CORSAllowedOrigins)
	if !o.Unconfigured {
		s.Configure(table, nil)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	client := &http.Client{
		Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			u, err := url.Parse(ts.URL + r.URL.String())
			if err != nil {
				return nil, err
			}
			r.URL = u
			return ts.Client().Transport.RoundTrip(r)
		}),
	}
	return &testServer{
		Client: client,
		Table:  table,
		Home:   home,
	}
}
