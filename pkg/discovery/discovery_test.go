// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package discovery_test

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/p2p/enr"
	"github.com/ethersphere/portal/pkg/discovery"
	"github.com/ethersphere/portal/pkg/discovery/mock"
	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

func newNode(t *testing.T, port int) *enode.Node {
	t.Helper()

	var r enr.Record
	r.Set(enr.IP(net.IPv4(127, 0, 0, 1)))
	r.Set(enr.UDP(port))

	var id enode.ID
	copy(id[:], overlay.RandAddress(t).Bytes())
	return enode.SignNull(&r, id)
}

func newRecord(t *testing.T) *peer.Node {
	t.Helper()

	r, err := peer.FromNode(newNode(t, 9000))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestPingerPing(t *testing.T) {
	d := mock.New()
	p := discovery.NewPinger(d)
	r := newRecord(t)

	if _, err := p.Ping(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if got := d.Pings(r.Node().ID()); got != 1 {
		t.Fatalf("got %d pings, want 1", got)
	}
}

func TestPingerError(t *testing.T) {
	errTest := errors.New("test error")
	p := discovery.NewPinger(mock.New(mock.WithPingFunc(func(*enode.Node) error {
		return errTest
	})))

	if _, err := p.Ping(context.Background(), newRecord(t)); !errors.Is(err, errTest) {
		t.Fatalf("got error %v, want %v", err, errTest)
	}
}

func TestPingerNotPingable(t *testing.T) {
	p := discovery.NewPinger(mock.New())

	_, err := p.Ping(context.Background(), peer.New(overlay.RandAddress(t), 1, nil))
	if !errors.Is(err, discovery.ErrNotPingable) {
		t.Fatalf("got error %v, want %v", err, discovery.ErrNotPingable)
	}
}

func TestPingerContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := discovery.NewPinger(mock.New(mock.WithPingFunc(func(*enode.Node) error {
		<-release
		return nil
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Ping(ctx, newRecord(t)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got error %v, want %v", err, context.DeadlineExceeded)
	}
}

type adder struct {
	mu      sync.Mutex
	added   []peer.Record
	ignored map[string]bool
}

func (a *adder) AddNode(r peer.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.added = append(a.added, r)
}

func (a *adder) IsNodeIgnored(r peer.Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ignored[r.Overlay().ByteString()]
}

func TestFeed(t *testing.T) {
	nodes := []*enode.Node{newNode(t, 1), newNode(t, 2), newNode(t, 3)}
	ignored, _ := peer.FromNode(nodes[1])

	a := &adder{ignored: map[string]bool{ignored.Overlay().ByteString(): true}}
	d := mock.New(mock.WithNodes(nodes...))

	n, err := discovery.Feed(context.Background(), d.RandomNodes(), a, logging.New(io.Discard, 0))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(a.added) != 2 {
		t.Fatalf("got %d added nodes, want 2", n)
	}
	for _, r := range a.added {
		if r.Overlay().Equal(ignored.Overlay()) {
			t.Fatal("ignored node was added")
		}
	}
}

// blockingIterator yields nothing until it is closed.
type blockingIterator struct {
	once   sync.Once
	closed chan struct{}
}

func (it *blockingIterator) Next() bool {
	<-it.closed
	return false
}

func (it *blockingIterator) Node() *enode.Node { return nil }

func (it *blockingIterator) Close() {
	it.once.Do(func() { close(it.closed) })
}

func TestFeedCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := &blockingIterator{closed: make(chan struct{})}

	errc := make(chan error, 1)
	go func() {
		_, err := discovery.Feed(ctx, it, &adder{}, logging.New(io.Discard, 0))
		errc <- err
	}()

	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got error %v, want %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop on cancel")
	}
}
