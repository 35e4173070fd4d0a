// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"github.com/ethersphere/portal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type nodeMetrics struct {
	// FedNodes counts nodes handed from discv5 lookups to the table.
	FedNodes prometheus.Counter
	// MaintenanceRuns counts periodic bucket maintenance runs.
	MaintenanceRuns prometheus.Counter
}

func newMetrics() nodeMetrics {
	subsystem := "node"

	return nodeMetrics{
		FedNodes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: subsystem,
				Name:      "fed_nodes_total",
				Help:      "Number of discovered nodes handed to the routing table.",
			},
		),
		MaintenanceRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: subsystem,
				Name:      "maintenance_runs_total",
				Help:      "Number of periodic bucket maintenance runs.",
			},
		),
	}
}

func (m nodeMetrics) collectors() []prometheus.Collector {
	return metrics.PrometheusCollectorsFromFields(m)
}
