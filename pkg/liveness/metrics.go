// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package liveness

import (
	m "github.com/ethersphere/portal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

type metrics struct {
	Checks       prometheus.Counter
	JoinedChecks prometheus.Counter
	Probes       *prometheus.CounterVec
	ProbeTime    *prometheus.HistogramVec
	BadPeers     prometheus.Counter
	Outstanding  prometheus.GaugeFunc
}

func newMetrics() metrics {
	const subsystem = "liveness"

	return metrics{
		Checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "checks_total",
			Help:      "Number of liveness checks requested.",
		}),
		JoinedChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "joined_checks_total",
			Help:      "Number of liveness checks that shared a probe with another check.",
		}),
		Probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "probes_total",
			Help:      "Number of probes by result.",
		}, []string{"result"}),
		ProbeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "probe_duration_seconds",
			Help:      "Probe duration by result.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"result"}),
		BadPeers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "bad_peers_total",
			Help:      "Number of times a peer crossed the bad peer threshold.",
		}),
	}
}

func newOutstandingGauge(v *atomic.Int64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.Namespace,
		Subsystem: "liveness",
		Name:      "outstanding_checks",
		Help:      "Number of liveness checks in flight.",
	}, func() float64 {
		return float64(v.Load())
	})
}

// Metrics returns set of prometheus collectors.
func (mgr *Manager) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(mgr.metrics)
}
