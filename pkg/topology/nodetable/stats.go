// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"time"

	"github.com/ethersphere/portal/pkg/overlay"
)

type BucketStats struct {
	Distance        int       `json:"distance"`
	Live            int       `json:"live"`
	Total           int       `json:"total"`
	Pending         bool      `json:"pending"`
	LastMaintenance time.Time `json:"lastMaintenance"`
}

type Stats struct {
	Home    overlay.Address `json:"home"`
	Live    int             `json:"live"`
	Total   int             `json:"total"`
	Pending int             `json:"pending"`
	Radii   int             `json:"radii"`
	Buckets []BucketStats   `json:"buckets"`
}

// Stats returns a snapshot of the bucket occupancy, ordered by distance.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{
		Home:    t.home.Overlay(),
		Radii:   len(t.radius),
		Buckets: make([]BucketStats, 0, len(t.buckets)),
	}
	for _, d := range t.distances() {
		b := t.buckets[d]
		bs := BucketStats{
			Distance:        d,
			Live:            b.liveCount(),
			Total:           len(b.entries),
			Pending:         b.pending != nil,
			LastMaintenance: b.lastMaintenance,
		}
		s.Live += bs.Live
		s.Total += bs.Total
		if bs.Pending {
			s.Pending++
		}
		s.Buckets = append(s.Buckets, bs)
	}
	return s
}
