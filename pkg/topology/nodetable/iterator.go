// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"bytes"
	"sort"

	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

// Iterator yields the records known to the table in ascending XOR distance
// to a target. It reads the table one group of buckets at a time, so records
// added or removed while iterating may or may not be seen. An Iterator is
// not safe for concurrent use and cannot be restarted.
//
// With dt the log distance between the home node and the target, peers in
// bucket dt are closer to the target than dt, peers in any bucket below dt
// are at log distance dt from the target and peers in a bucket d above dt
// are at log distance d. The groups are visited in that order.
type Iterator struct {
	t      *Table
	target overlay.Address
	dt     int
	next   int // next bucket distance above dt, or a phase marker below
	buf    []peer.Record
	cur    peer.Record
	closed bool
}

const (
	phaseTargetBucket = -2
	phaseLowerBuckets = -1
)

// ClosestNodes returns an iterator over the known records ordered by
// ascending distance to the target.
func (t *Table) ClosestNodes(target overlay.Address) *Iterator {
	it := &Iterator{
		t:      t,
		target: target,
		dt:     overlay.LogDistance(t.home.Overlay(), target),
		next:   phaseTargetBucket,
	}
	switch {
	case !t.sameLength(target), it.dt > overlay.MaxDistance:
		it.closed = true
	case it.dt == 0:
		it.next = 1
	}
	return it
}

// Next moves to the next record. It returns false when the sequence is
// exhausted or the iterator was closed.
func (it *Iterator) Next() bool {
	for len(it.buf) == 0 {
		if it.closed || it.next > overlay.MaxDistance {
			it.cur = nil
			return false
		}
		it.buf = it.load()
	}
	it.cur, it.buf = it.buf[0], it.buf[1:]
	return true
}

// Record returns the current record. It is nil before the first call to Next
// and after the sequence ends.
func (it *Iterator) Record() peer.Record {
	return it.cur
}

// Close ends the iteration.
func (it *Iterator) Close() {
	it.closed = true
	it.buf = nil
	it.cur = nil
}

// load reads the next group of buckets and sorts it by distance to the
// target.
func (it *Iterator) load() []peer.Record {
	var ds []int
	switch it.next {
	case phaseTargetBucket:
		ds = []int{it.dt}
		it.next = phaseLowerBuckets
	case phaseLowerBuckets:
		for d := 1; d < it.dt; d++ {
			ds = append(ds, d)
		}
		it.next = it.dt + 1
	default:
		ds = []int{it.next}
		it.next++
	}

	it.t.mu.Lock()
	var rs []peer.Record
	for _, d := range ds {
		if b, ok := it.t.buckets[d]; ok {
			rs = append(rs, b.allNodes()...)
		}
	}
	it.t.mu.Unlock()

	sortByDistance(rs, it.target)
	return rs
}

func sortByDistance(rs []peer.Record, target overlay.Address) {
	type keyed struct {
		record peer.Record
		xor    []byte
	}

	tb := target.Bytes()
	ks := make([]keyed, len(rs))
	for i, r := range rs {
		ab := r.Overlay().Bytes()
		x := make([]byte, len(tb))
		for j := range x {
			if j < len(ab) {
				x[j] = ab[j] ^ tb[j]
			} else {
				x[j] = tb[j]
			}
		}
		ks[i] = keyed{record: r, xor: x}
	}

	sort.SliceStable(ks, func(i, j int) bool {
		return bytes.Compare(ks[i].xor, ks[j].xor) < 0
	})
	for i, k := range ks {
		rs[i] = k.record
	}
}
