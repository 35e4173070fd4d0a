// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nodetable

import (
	"strconv"

	m "github.com/ethersphere/portal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "nodetable"

// collector exports the table occupancy. It reads Stats at scrape time.
type collector struct {
	t *Table

	bucketLive    *prometheus.Desc
	bucketTotal   *prometheus.Desc
	bucketPending *prometheus.Desc
	live          *prometheus.Desc
	total         *prometheus.Desc
	radii         *prometheus.Desc
}

// NewCollector returns a prometheus collector over the table statistics.
func NewCollector(t *Table) prometheus.Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(m.Namespace, subsystem, n)
	}
	distance := []string{"distance"}

	return &collector{
		t:             t,
		bucketLive:    prometheus.NewDesc(name("bucket_live_peers"), "Number of live peers in a bucket.", distance, nil),
		bucketTotal:   prometheus.NewDesc(name("bucket_peers"), "Number of peers in a bucket.", distance, nil),
		bucketPending: prometheus.NewDesc(name("bucket_pending"), "Whether a bucket holds a pending candidate.", distance, nil),
		live:          prometheus.NewDesc(name("live_peers"), "Number of live peers in the table.", nil, nil),
		total:         prometheus.NewDesc(name("peers"), "Number of peers in the table.", nil, nil),
		radii:         prometheus.NewDesc(name("radii"), "Number of known peer radii.", nil, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bucketLive
	ch <- c.bucketTotal
	ch <- c.bucketPending
	ch <- c.live
	ch <- c.total
	ch <- c.radii
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.t.Stats()

	for _, b := range s.Buckets {
		d := strconv.Itoa(b.Distance)
		pending := 0.0
		if b.Pending {
			pending = 1
		}
		ch <- prometheus.MustNewConstMetric(c.bucketLive, prometheus.GaugeValue, float64(b.Live), d)
		ch <- prometheus.MustNewConstMetric(c.bucketTotal, prometheus.GaugeValue, float64(b.Total), d)
		ch <- prometheus.MustNewConstMetric(c.bucketPending, prometheus.GaugeValue, pending, d)
	}
	ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(s.Live))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.radii, prometheus.GaugeValue, float64(s.Radii))
}

// Metrics returns set of prometheus collectors.
func (t *Table) Metrics() []prometheus.Collector {
	return []prometheus.Collector{NewCollector(t)}
}
