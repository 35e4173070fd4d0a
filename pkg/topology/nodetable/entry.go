// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"time"

	"github.com/ethersphere/portal/pkg/peer"
)

// entry is a bucket slot. The zero time means that the event never happened.
type entry struct {
	record        peer.Record
	lastPingSent  time.Time
	lastConfirmed time.Time
}

func confirmedEntry(r peer.Record, now time.Time) *entry {
	return &entry{record: r, lastConfirmed: now}
}

// checkLiveness asks for a probe unless one was sent, or liveness was
// confirmed, less than minInterval ago. A probe that is still outstanding,
// sent after the last confirmation and not yet timed out, is never repeated.
func (e *entry) checkLiveness(now time.Time, minInterval, timeout time.Duration, l Liveness) {
	if !e.lastPingSent.IsZero() && now.Sub(e.lastPingSent) < minInterval {
		return
	}
	if e.pingOutstanding(now, timeout) {
		return
	}
	if !e.lastConfirmed.IsZero() && now.Sub(e.lastConfirmed) < minInterval {
		return
	}
	e.lastPingSent = now
	l.Check(e.record)
}

func (e *entry) pingOutstanding(now time.Time, timeout time.Duration) bool {
	if e.lastPingSent.IsZero() || !e.lastPingSent.After(e.lastConfirmed) {
		return false
	}
	return now.Sub(e.lastPingSent) < timeout
}

func (e *entry) hasFailedLivenessCheck(now time.Time, timeout time.Duration) bool {
	return !e.lastPingSent.IsZero() && now.Sub(e.lastPingSent) >= timeout
}

func (e *entry) isLive() bool {
	return !e.lastConfirmed.IsZero()
}
