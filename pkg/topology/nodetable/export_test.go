// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

// BucketNodes returns all records of the bucket at the distance, head first.
func (t *Table) BucketNodes(distance int) []peer.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[distance]
	if !ok {
		return nil
	}
	return b.allNodes()
}

// Pending returns the pending candidate of the bucket at the distance.
func (t *Table) Pending(distance int) (peer.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[distance]
	if !ok || b.pending == nil {
		return nil, false
	}
	return b.pending.record, true
}

// IsLive reports whether the entry of the peer is live.
func (t *Table) IsLive(addr overlay.Address) bool {
	e := t.entry(addr)
	return e != nil && e.isLive()
}

// Entry returns the probe and confirmation times of the peer entry as unix
// nanoseconds, zero meaning never.
func (t *Table) Entry(addr overlay.Address) (lastPingSent, lastConfirmed int64, ok bool) {
	e := t.entry(addr)
	if e == nil {
		return 0, 0, false
	}
	if !e.lastPingSent.IsZero() {
		lastPingSent = e.lastPingSent.UnixNano()
	}
	if !e.lastConfirmed.IsZero() {
		lastConfirmed = e.lastConfirmed.UnixNano()
	}
	return lastPingSent, lastConfirmed, true
}

func (t *Table) entry(addr overlay.Address) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[overlay.LogDistance(t.home.Overlay(), addr)]
	if !ok {
		return nil
	}
	if i := b.index(addr); i >= 0 {
		return b.entries[i]
	}
	if b.pending != nil && b.pending.record.Overlay().Equal(addr) {
		return b.pending
	}
	return nil
}
