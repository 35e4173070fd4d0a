// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"time"

	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

type config struct {
	bucketSize      int
	minPingInterval time.Duration
	pingTimeout     time.Duration
	liveness        Liveness
	logger          logging.Logger
}

// bucket holds the peers at a single log distance from the home node.
// entries[0] is the head, the most recently confirmed or updated entry.
// pending is set only while the bucket is full. A bucket is not safe for
// concurrent use.
type bucket struct {
	distance        int
	entries         []*entry
	pending         *entry
	lastMaintenance time.Time
	cfg             *config
}

func newBucket(distance int, cfg *config) *bucket {
	return &bucket{
		distance: distance,
		entries:  make([]*entry, 0, cfg.bucketSize),
		cfg:      cfg,
	}
}

func (b *bucket) addOrUpdate(r peer.Record, now time.Time) {
	b.performMaintenance(now)

	if i := b.index(r.Overlay()); i >= 0 {
		stored := b.entries[i].record
		b.removeAt(i)
		b.pushHead(confirmedEntry(newer(stored, r), now))
		return
	}

	if b.cfg.liveness.IsBadPeer(r.Overlay()) {
		b.cfg.logger.Tracef("nodetable: bucket %d: ignoring bad peer %s", b.distance, r.Overlay())
		return
	}

	if len(b.entries) < b.cfg.bucketSize {
		b.pushHead(confirmedEntry(r, now))
		b.cfg.logger.Tracef("nodetable: bucket %d: added peer %s", b.distance, r.Overlay())
		return
	}

	switch {
	case b.pending == nil:
		b.pending = confirmedEntry(r, now)
		b.cfg.logger.Tracef("nodetable: bucket %d: peer %s is pending", b.distance, r.Overlay())
	case b.pending.record.Overlay().Equal(r.Overlay()):
		b.pending = confirmedEntry(newer(b.pending.record, r), now)
	}
}

func (b *bucket) performMaintenance(now time.Time) {
	b.lastMaintenance = now

	if b.pending != nil {
		if b.pending.hasFailedLivenessCheck(now, b.cfg.pingTimeout) {
			b.cfg.logger.Debugf("nodetable: bucket %d: dropping unresponsive pending peer %s", b.distance, b.pending.record.Overlay())
			b.pending = nil
		} else {
			b.pending.checkLiveness(now, b.cfg.minPingInterval, b.cfg.pingTimeout, b.cfg.liveness)
		}
	}

	if len(b.entries) == 0 {
		return
	}

	tail := b.entries[len(b.entries)-1]
	if !tail.hasFailedLivenessCheck(now, b.cfg.pingTimeout) {
		tail.checkLiveness(now, b.cfg.minPingInterval, b.cfg.pingTimeout, b.cfg.liveness)
		return
	}

	b.cfg.logger.Debugf("nodetable: bucket %d: evicting unresponsive peer %s", b.distance, tail.record.Overlay())
	b.removeAt(len(b.entries) - 1)
	b.promotePending()
}

// remove deletes the peer from the entries or from the pending slot. It
// reports whether anything was removed.
func (b *bucket) remove(addr overlay.Address) bool {
	if i := b.index(addr); i >= 0 {
		b.removeAt(i)
		b.promotePending()
		return true
	}
	if b.pending != nil && b.pending.record.Overlay().Equal(addr) {
		b.pending = nil
		return true
	}
	return false
}

// confirm applies a liveness confirmation to the peer if it is still held by
// the bucket. A confirmed entry moves to the head.
func (b *bucket) confirm(addr overlay.Address, now time.Time) bool {
	if i := b.index(addr); i >= 0 {
		r := b.entries[i].record
		b.removeAt(i)
		b.pushHead(confirmedEntry(r, now))
		return true
	}
	if b.pending != nil && b.pending.record.Overlay().Equal(addr) {
		b.pending = confirmedEntry(b.pending.record, now)
		return true
	}
	return false
}

func (b *bucket) allNodes() []peer.Record {
	rs := make([]peer.Record, 0, len(b.entries))
	for _, e := range b.entries {
		rs = append(rs, e.record)
	}
	return rs
}

// liveNodes returns the longest head aligned run of live entries.
func (b *bucket) liveNodes() []peer.Record {
	var rs []peer.Record
	for _, e := range b.entries {
		if !e.isLive() {
			break
		}
		rs = append(rs, e.record)
	}
	return rs
}

func (b *bucket) node(addr overlay.Address) (peer.Record, bool) {
	if i := b.index(addr); i >= 0 {
		return b.entries[i].record, true
	}
	return nil, false
}

func (b *bucket) liveCount() int {
	n := 0
	for _, e := range b.entries {
		if !e.isLive() {
			break
		}
		n++
	}
	return n
}

func (b *bucket) empty() bool {
	return len(b.entries) == 0
}

func (b *bucket) index(addr overlay.Address) int {
	for i, e := range b.entries {
		if e.record.Overlay().Equal(addr) {
			return i
		}
	}
	return -1
}

func (b *bucket) pushHead(e *entry) {
	b.entries = append(b.entries, nil)
	copy(b.entries[1:], b.entries)
	b.entries[0] = e
}

func (b *bucket) removeAt(i int) {
	copy(b.entries[i:], b.entries[i+1:])
	b.entries[len(b.entries)-1] = nil
	b.entries = b.entries[:len(b.entries)-1]
}

func (b *bucket) promotePending() {
	if b.pending == nil {
		return
	}
	b.cfg.logger.Tracef("nodetable: bucket %d: promoting pending peer %s", b.distance, b.pending.record.Overlay())
	b.pushHead(b.pending)
	b.pending = nil
}

// newer returns the incoming record only if its sequence number is strictly
// greater than the stored one.
func newer(stored, incoming peer.Record) peer.Record {
	if incoming.Seq() > stored.Seq() {
		return incoming
	}
	return stored
}
