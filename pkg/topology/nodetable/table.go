// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nodetable implements a Kademlia routing table with one fixed size
// bucket per log distance from the home node.
//
// Peers are admitted as they are observed and are verified lazily: bucket
// maintenance asks the liveness manager to probe the least recently seen
// entry and evicts it once the probe has not been confirmed within the ping
// timeout. A single overflow candidate per bucket waits for such an
// eviction. All exported methods of Table are safe for concurrent use.
package nodetable

import (
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

const (
	DefaultBucketSize      = 16
	DefaultMinPingInterval = 60 * time.Second
	DefaultPingTimeout     = 90 * time.Second
)

var (
	errNilHome     = errors.New("nil home record")
	errNilLiveness = errors.New("nil liveness manager")
	// ErrInvalidOptions is returned by New for negative option values.
	ErrInvalidOptions = errors.New("invalid options")
)

// Liveness dispatches liveness probes and tells which peers should not be
// admitted. Check must not block. Probe outcomes are expected to come back
// through Table.Reachable.
type Liveness interface {
	Check(p peer.Record)
	IsBadPeer(addr overlay.Address) bool
}

type Options struct {
	// BucketSize is the number of entries a bucket holds.
	BucketSize int
	// MinPingInterval is the minimal time between two probes of the same
	// peer, and between a confirmation and the next probe.
	MinPingInterval time.Duration
	// PingTimeout is the time after which an unconfirmed probe counts as
	// failed.
	PingTimeout time.Duration
	// Now is the clock; time.Now if nil.
	Now func() time.Time
}

type Table struct {
	mu      sync.Mutex
	home    peer.Record
	buckets map[int]*bucket
	radius  map[string]*big.Int
	cfg     config
	now     func() time.Time
	logger  logging.Logger
}

func New(home peer.Record, l Liveness, logger logging.Logger, o Options) (*Table, error) {
	if home == nil {
		return nil, errNilHome
	}
	if l == nil {
		return nil, errNilLiveness
	}
	if o.BucketSize < 0 || o.MinPingInterval < 0 || o.PingTimeout < 0 {
		return nil, ErrInvalidOptions
	}
	if o.BucketSize == 0 {
		o.BucketSize = DefaultBucketSize
	}
	if o.MinPingInterval == 0 {
		o.MinPingInterval = DefaultMinPingInterval
	}
	if o.PingTimeout == 0 {
		o.PingTimeout = DefaultPingTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return &Table{
		home:    home,
		buckets: make(map[int]*bucket),
		radius:  make(map[string]*big.Int),
		cfg: config{
			bucketSize:      o.BucketSize,
			minPingInterval: o.MinPingInterval,
			pingTimeout:     o.PingTimeout,
			liveness:        l,
			logger:          logger,
		},
		now:    o.Now,
		logger: logger,
	}, nil
}

// Home returns the record of the node that owns the table.
func (t *Table) Home() peer.Record {
	return t.home
}

// distance returns the bucket distance of the address and whether it can be
// held by a bucket. Addresses of another length than the home address are
// never held.
func (t *Table) distance(addr overlay.Address) (int, bool) {
	if !t.sameLength(addr) {
		return 0, false
	}
	d := overlay.LogDistance(t.home.Overlay(), addr)
	return d, d > 0 && d <= overlay.MaxDistance
}

func (t *Table) sameLength(addr overlay.Address) bool {
	return len(addr.Bytes()) == len(t.home.Overlay().Bytes())
}

// AddNode admits the peer or refreshes its entry. The home node and peers
// out of the distance range are ignored.
func (t *Table) AddNode(r peer.Record) {
	d, ok := t.distance(r.Overlay())
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[d]
	if !ok {
		b = newBucket(d, &t.cfg)
		t.buckets[d] = b
	}
	b.addOrUpdate(r, t.now())
}

// RemoveNode removes the peer from its bucket, including the pending slot.
func (t *Table) RemoveNode(r peer.Record) {
	t.remove(r.Overlay())
}

// RemoveAddress is RemoveNode for callers that hold only the overlay address.
func (t *Table) RemoveAddress(addr overlay.Address) bool {
	return t.remove(addr)
}

func (t *Table) remove(addr overlay.Address) bool {
	d, ok := t.distance(addr)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[d]
	if !ok {
		return false
	}
	return b.remove(addr)
}

// Node returns the record of the peer if it is held by a bucket. The home
// address returns the home record.
func (t *Table) Node(addr overlay.Address) (peer.Record, bool) {
	if !t.sameLength(addr) {
		return nil, false
	}
	d := overlay.LogDistance(t.home.Overlay(), addr)
	if d == 0 {
		return t.home, true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[d]
	if !ok {
		return nil, false
	}
	return b.node(addr)
}

// LiveNodes returns the live records at the distance. Distance 0 returns the
// home record.
func (t *Table) LiveNodes(distance int) []peer.Record {
	if distance == 0 {
		return []peer.Record{t.home}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[distance]
	if !ok {
		return nil
	}
	return b.liveNodes()
}

// AllNodes returns every record held by the buckets, ordered by distance and
// from head to tail within a bucket.
func (t *Table) AllNodes() []peer.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var rs []peer.Record
	for _, d := range t.distances() {
		rs = append(rs, t.buckets[d].allNodes()...)
	}
	return rs
}

// distances returns the distances of the existing buckets in ascending order.
// It must be called with the lock held.
func (t *Table) distances() []int {
	ds := make([]int, 0, len(t.buckets))
	for d := range t.buckets {
		ds = append(ds, d)
	}
	sort.Ints(ds)
	return ds
}

// UpdateRadius sets the interest radius announced by the peer.
func (t *Table) UpdateRadius(addr overlay.Address, radius *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.radius[addr.ByteString()] = new(big.Int).Set(radius)
}

// Radius returns the interest radius announced by the peer.
func (t *Table) Radius(addr overlay.Address) (*big.Int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.radius[addr.ByteString()]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(r), true
}

func (t *Table) RemoveRadius(addr overlay.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.radius, addr.ByteString())
}

// FindClosestNodesToKey returns at most count peers with a known radius
// ordered by ascending log distance to the key. Peers at the same log
// distance keep the table order. If boundByRadius is set, only peers whose
// radius covers the key are returned.
func (t *Table) FindClosestNodesToKey(key overlay.Address, count int, boundByRadius bool) []peer.Record {
	if count <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	type candidate struct {
		record   peer.Record
		distance int
	}

	var cs []candidate
	for _, d := range t.distances() {
		for _, e := range t.buckets[d].entries {
			radius, ok := t.radius[e.record.Overlay().ByteString()]
			if !ok {
				continue
			}
			if boundByRadius && !covers(radius, e.record.Overlay(), key) {
				continue
			}
			cs = append(cs, candidate{
				record:   e.record,
				distance: overlay.LogDistance(e.record.Overlay(), key),
			})
		}
	}

	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].distance < cs[j].distance
	})

	if len(cs) > count {
		cs = cs[:count]
	}
	rs := make([]peer.Record, 0, len(cs))
	for _, c := range cs {
		rs = append(rs, c.record)
	}
	return rs
}

// covers reports whether the key is within the radius of the peer.
func covers(radius *big.Int, addr, key overlay.Address) bool {
	d, err := overlay.Distance(addr.Bytes(), key.Bytes())
	if err != nil {
		return false
	}
	return radius.Cmp(d) >= 0
}

// PerformMaintenanceOnOldestBucket runs maintenance on the non-empty bucket
// that was maintained least recently and returns its distance. It returns
// false if all buckets are empty.
func (t *Table) PerformMaintenanceOnOldestBucket() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var oldest *bucket
	for _, d := range t.distances() {
		b := t.buckets[d]
		if b.empty() {
			continue
		}
		if oldest == nil || b.lastMaintenance.Before(oldest.lastMaintenance) {
			oldest = b
		}
	}
	if oldest == nil {
		return 0, false
	}
	oldest.performMaintenance(t.now())
	return oldest.distance, true
}

// IsNodeIgnored reports whether AddNode would never admit the peer.
func (t *Table) IsNodeIgnored(r peer.Record) bool {
	if _, ok := t.distance(r.Overlay()); !ok {
		return true
	}
	return t.cfg.liveness.IsBadPeer(r.Overlay())
}

// Confirm records a liveness confirmation of the peer at the current time if
// the peer is still held by the table. The confirmed entry moves to the head
// of its bucket.
func (t *Table) Confirm(addr overlay.Address) bool {
	d, ok := t.distance(addr)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[d]
	if !ok {
		return false
	}
	return b.confirm(addr, t.now())
}

// Reachable receives liveness probe outcomes. A failed probe changes nothing:
// the entry fails once the ping timeout passes without a confirmation.
func (t *Table) Reachable(addr overlay.Address, reachable bool) {
	if !reachable {
		t.logger.Tracef("nodetable: peer %s did not respond", addr)
		return
	}
	if !t.Confirm(addr) {
		t.logger.Tracef("nodetable: confirmation for unknown peer %s", addr)
	}
}
