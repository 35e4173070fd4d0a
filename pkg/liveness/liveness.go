// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package liveness dispatches asynchronous liveness probes to peers and
// reports the outcome back to a notifier. Concurrent checks of the same peer
// share a single probe, the number of probes in flight is bounded and the
// probe rate is shaped. Peers that keep failing are remembered as bad.
package liveness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/overlay"
	"github.com/ethersphere/portal/pkg/peer"
	lru "github.com/hashicorp/golang-lru"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"resenje.org/singleflight"
)

const (
	DefaultPingTimeout      = 5 * time.Second
	DefaultWorkers          = 8
	DefaultBadPeerThreshold = 3
	DefaultBadPeerCacheSize = 4096
)

var (
	ErrClosed       = errors.New("liveness manager closed")
	ErrInvalidRate  = errors.New("invalid probe rate")
	errNilPinger    = errors.New("nil pinger")
	errProbeAborted = errors.New("probe aborted")
)

// Pinger sends a single liveness probe to a peer.
type Pinger interface {
	Ping(ctx context.Context, p peer.Record) (rtt time.Duration, err error)
}

// Notifier receives probe outcomes.
type Notifier interface {
	Reachable(addr overlay.Address, reachable bool)
}

// Options configure the Manager. Zero values select the defaults.
type Options struct {
	// PingTimeout bounds a single probe.
	PingTimeout time.Duration
	// Workers is the maximal number of probes in flight.
	Workers int
	// Rate is the number of probes started per second. Zero means unlimited.
	Rate float64
	// BadPeerThreshold is the number of consecutive failed probes after
	// which a peer is considered bad.
	BadPeerThreshold int
	BadPeerCacheSize int
	Notifier         Notifier
	Tracer           opentracing.Tracer
}

type Manager struct {
	pinger   Pinger
	logger   logging.Logger
	tracer   opentracing.Tracer
	group    singleflight.Group
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	timeout  time.Duration
	badAfter int

	failuresMu sync.Mutex
	failures   *lru.Cache // overlay byte string -> consecutive failures

	notifierMu sync.RWMutex
	notifier   Notifier

	outstanding *atomic.Int64

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics metrics
}

func New(pinger Pinger, logger logging.Logger, o Options) (*Manager, error) {
	if pinger == nil {
		return nil, errNilPinger
	}
	if o.Rate < 0 {
		return nil, ErrInvalidRate
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = DefaultPingTimeout
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.BadPeerThreshold <= 0 {
		o.BadPeerThreshold = DefaultBadPeerThreshold
	}
	if o.BadPeerCacheSize <= 0 {
		o.BadPeerCacheSize = DefaultBadPeerCacheSize
	}
	if o.Tracer == nil {
		o.Tracer = opentracing.GlobalTracer()
	}

	failures, err := lru.New(o.BadPeerCacheSize)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if o.Rate > 0 {
		limit = rate.Limit(o.Rate)
	}

	m := &Manager{
		pinger:      pinger,
		logger:      logger,
		tracer:      o.Tracer,
		sem:         semaphore.NewWeighted(int64(o.Workers)),
		limiter:     rate.NewLimiter(limit, o.Workers),
		timeout:     o.PingTimeout,
		badAfter:    o.BadPeerThreshold,
		failures:    failures,
		notifier:    o.Notifier,
		outstanding: atomic.NewInt64(0),
		metrics:     newMetrics(),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.metrics.Outstanding = newOutstandingGauge(m.outstanding)

	return m, nil
}

// SetNotifier replaces the notifier that receives probe outcomes.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifierMu.Lock()
	m.notifier = n
	m.notifierMu.Unlock()
}

// Check dispatches a liveness probe for the peer and returns immediately. If
// a probe for the same peer is already in flight, the check joins it.
func (m *Manager) Check(p peer.Record) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	m.metrics.Checks.Inc()
	m.outstanding.Inc()

	go func() {
		defer m.wg.Done()
		defer m.outstanding.Dec()

		_, shared, err := m.group.Do(m.ctx, p.Overlay().ByteString(), func(ctx context.Context) (interface{}, error) {
			return nil, m.probe(ctx, p)
		})
		if shared {
			m.metrics.JoinedChecks.Inc()
		}
		if err != nil && !errors.Is(err, errProbeAborted) {
			m.logger.Tracef("liveness: peer %s: %v", p.Overlay(), err)
		}
	}()
}

// probe runs one probe and reports its outcome. Probes interrupted by Close
// are not reported.
func (m *Manager) probe(ctx context.Context, p peer.Record) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return errProbeAborted
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return errProbeAborted
	}
	defer m.sem.Release(1)

	span := m.tracer.StartSpan("liveness-probe")
	span.SetTag("peer", p.Overlay().String())
	defer span.Finish()

	start := time.Now()
	pctx, cancel := context.WithTimeout(opentracing.ContextWithSpan(ctx, span), m.timeout)
	_, err := m.pinger.Ping(pctx, p)
	cancel()

	if m.ctx.Err() != nil {
		return errProbeAborted
	}

	if err != nil {
		span.SetTag("error", true)
		m.metrics.Probes.WithLabelValues("failure").Inc()
		m.metrics.ProbeTime.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		n := m.recordFailure(p.Overlay())
		m.logger.Debugf("liveness: probe of peer %s failed (%d consecutive): %v", p.Overlay(), n, err)
		m.notify(p.Overlay(), false)
		return err
	}

	m.metrics.Probes.WithLabelValues("success").Inc()
	m.metrics.ProbeTime.WithLabelValues("success").Observe(time.Since(start).Seconds())
	m.failuresMu.Lock()
	m.failures.Remove(p.Overlay().ByteString())
	m.failuresMu.Unlock()
	m.notify(p.Overlay(), true)
	return nil
}

func (m *Manager) recordFailure(addr overlay.Address) int {
	m.failuresMu.Lock()
	defer m.failuresMu.Unlock()

	n := 1
	if v, ok := m.failures.Get(addr.ByteString()); ok {
		n = v.(int) + 1
	}
	m.failures.Add(addr.ByteString(), n)
	if n == m.badAfter {
		m.metrics.BadPeers.Inc()
	}
	return n
}

func (m *Manager) notify(addr overlay.Address, reachable bool) {
	m.notifierMu.RLock()
	n := m.notifier
	m.notifierMu.RUnlock()

	if n != nil {
		n.Reachable(addr, reachable)
	}
}

// IsBadPeer reports whether the peer failed at least BadPeerThreshold
// consecutive probes.
func (m *Manager) IsBadPeer(addr overlay.Address) bool {
	m.failuresMu.Lock()
	defer m.failuresMu.Unlock()

	v, ok := m.failures.Peek(addr.ByteString())
	return ok && v.(int) >= m.badAfter
}

// Failures returns the number of consecutive failed probes of the peer.
func (m *Manager) Failures(addr overlay.Address) int {
	m.failuresMu.Lock()
	defer m.failuresMu.Unlock()

	if v, ok := m.failures.Peek(addr.ByteString()); ok {
		return v.(int)
	}
	return 0
}

// Outstanding returns the number of checks that have not completed yet.
func (m *Manager) Outstanding() int64 {
	return m.outstanding.Load()
}

// Close cancels probes in flight and waits for them to return. Checks
// issued after Close are ignored.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	return nil
}
