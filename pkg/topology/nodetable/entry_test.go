// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"testing"
	"time"

	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
)

type countingLiveness struct{ checks int }

func (l *countingLiveness) Check(peer.Record)              { l.checks++ }
func (l *countingLiveness) IsBadPeer(overlay.Address) bool { return false }

func TestEntryLiveness(t *testing.T) {
	const (
		interval = time.Minute
		timeout  = 90 * time.Second
	)

	var (
		l  = new(countingLiveness)
		t0 = time.Unix(1000, 0)
		e  = confirmedEntry(peer.New(overlay.RandAddress(t), 1, nil), t0)
	)

	if !e.isLive() {
		t.Fatal("confirmed entry is not live")
	}
	if e.hasFailedLivenessCheck(t0.Add(time.Hour), timeout) {
		t.Fatal("entry that was never probed failed")
	}

	e.checkLiveness(t0.Add(interval-time.Nanosecond), interval, timeout, l)
	if l.checks != 0 {
		t.Fatal("probed within the interval after confirmation")
	}

	sent := t0.Add(interval)
	e.checkLiveness(sent, interval, timeout, l)
	if l.checks != 1 || !e.lastPingSent.Equal(sent) {
		t.Fatal("probe not dispatched")
	}

	e.checkLiveness(sent.Add(interval-time.Nanosecond), interval, timeout, l)
	if l.checks != 1 {
		t.Fatal("probed within the interval after the previous probe")
	}

	e.checkLiveness(sent.Add(timeout-time.Nanosecond), interval, timeout, l)
	if l.checks != 1 || !e.lastPingSent.Equal(sent) {
		t.Fatal("outstanding probe was repeated before the timeout")
	}

	if e.hasFailedLivenessCheck(sent.Add(timeout-time.Nanosecond), timeout) {
		t.Fatal("failed before the timeout")
	}
	if !e.hasFailedLivenessCheck(sent.Add(timeout), timeout) {
		t.Fatal("not failed at the timeout")
	}
	if !e.isLive() {
		t.Fatal("outstanding probe retracted the confirmation")
	}

	// a confirmation ends the outstanding probe
	confirmedAt := sent.Add(time.Second)
	e = confirmedEntry(e.record, confirmedAt)
	e.checkLiveness(confirmedAt.Add(interval), interval, timeout, l)
	if l.checks != 2 {
		t.Fatal("probe not dispatched after the confirmation aged")
	}

	if (&entry{}).isLive() {
		t.Fatal("unconfirmed entry is live")
	}
}
