// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package node assembles a running node: the discv5 transport, the liveness
// manager, the routing table, the background loops that feed and maintain
// the table and the debug API.
package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/p2p/discover"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethersphere/portal/pkg/debugapi"
	"github.com/ethersphere/portal/pkg/discovery"
	"github.com/ethersphere/portal/pkg/liveness"
	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/metrics"
	"github.com/ethersphere/portal/pkg/peer"
	"github.com/ethersphere/portal/pkg/topology/nodetable"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaintenanceInterval = 5 * time.Second
	feedRetryInterval          = 5 * time.Second
)

var ErrShutdownInProgress = errors.New("shutdown in progress")

type Portal struct {
	table          *nodetable.Table
	liveness       *liveness.Manager
	localNode      *enode.LocalNode
	discv5         *discover.UDPv5
	nodeDB         *enode.DB
	debugAPIServer *http.Server
	errorLogWriter io.Closer
	ctxCancel      context.CancelFunc
	loops          sync.WaitGroup
	logger         logging.Logger
	metrics        nodeMetrics

	shutdownInProgress bool
	shutdownMutex      sync.Mutex
}

type Options struct {
	// DataDir holds the node key and the node database. An empty value keeps
	// both in memory.
	DataDir string
	// Addr is the UDP address discv5 listens on.
	Addr string
	// Bootnodes are enr: or enode: URLs.
	Bootnodes          []string
	DebugAPIAddr       string
	CORSAllowedOrigins []string
	Logger             logging.Logger

	BucketSize          int
	MinPingInterval     time.Duration
	PingTimeout         time.Duration
	MaintenanceInterval time.Duration

	ProbeTimeout    time.Duration
	ProbeWorkers    int
	ProbeRate       float64
	BadPeerFailures int
}

func NewPortal(o Options) (_ *Portal, err error) {
	logger := o.Logger
	if o.MaintenanceInterval <= 0 {
		o.MaintenanceInterval = DefaultMaintenanceInterval
	}

	p := &Portal{
		logger:  logger,
		metrics: newMetrics(),
	}

	defer func() {
		if err != nil {
			if e := p.Shutdown(); e != nil {
				logger.Errorf("shutdown after failed start: %v", e)
			}
		}
	}()

	key, err := loadOrCreateKey(o.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("node key: %w", err)
	}

	p.nodeDB, err = enode.OpenDB(nodeDBPath(o.DataDir))
	if err != nil {
		return nil, fmt.Errorf("node database: %w", err)
	}
	p.localNode = enode.NewLocalNode(p.nodeDB, key)

	bootnodes, err := parseBootnodes(o.Bootnodes)
	if err != nil {
		return nil, err
	}

	if err := p.listen(o.Addr, key, bootnodes); err != nil {
		return nil, err
	}

	home, err := peer.FromNode(p.localNode.Node())
	if err != nil {
		return nil, fmt.Errorf("home record: %w", err)
	}
	logger.Infof("overlay address: %s", home.Overlay())
	logger.Infof("node record: %s", p.localNode.Node().String())

	p.liveness, err = liveness.New(discovery.NewPinger(p.discv5), logger, liveness.Options{
		PingTimeout:      o.ProbeTimeout,
		Workers:          o.ProbeWorkers,
		Rate:             o.ProbeRate,
		BadPeerThreshold: o.BadPeerFailures,
	})
	if err != nil {
		return nil, fmt.Errorf("liveness manager: %w", err)
	}

	p.table, err = nodetable.New(home, p.liveness, logger, nodetable.Options{
		BucketSize:      o.BucketSize,
		MinPingInterval: o.MinPingInterval,
		PingTimeout:     o.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("node table: %w", err)
	}
	p.liveness.SetNotifier(p.table)

	if o.DebugAPIAddr != "" {
		if err := p.startDebugAPI(o.DebugAPIAddr, o.CORSAllowedOrigins); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.ctxCancel = cancel

	p.loops.Add(2)
	go p.feed(ctx)
	go p.maintain(ctx, o.MaintenanceInterval)

	return p, nil
}

func (p *Portal) listen(addr string, key *ecdsa.PrivateKey, bootnodes []*enode.Node) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve p2p address %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen p2p: %w", err)
	}

	laddr := conn.LocalAddr().(*net.UDPAddr)
	if laddr.IP.IsUnspecified() {
		p.localNode.SetFallbackIP(net.IP{127, 0, 0, 1})
	} else {
		p.localNode.SetFallbackIP(laddr.IP)
	}
	p.localNode.SetFallbackUDP(laddr.Port)

	p.discv5, err = discover.ListenV5(conn, p.localNode, discover.Config{
		PrivateKey: key,
		Bootnodes:  bootnodes,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("discv5: %w", err)
	}
	p.logger.Infof("discv5 listening on %s", laddr)
	return nil
}

func (p *Portal) startDebugAPI(addr string, corsAllowedOrigins []string) error {
	debugService := debugapi.New(p.logger, corsAllowedOrigins)

	errorLogWriter := p.logger.WriterLevel(logrus.ErrorLevel)
	p.errorLogWriter = errorLogWriter

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("debug api listener: %w", err)
	}

	p.debugAPIServer = &http.Server{
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		Handler:           debugService,
		ErrorLog:          log.New(errorLogWriter, "", 0),
	}

	go func() {
		p.logger.Infof("debug api address: %s", ln.Addr())

		if err := p.debugAPIServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Debugf("debug api server: %v", err)
			p.logger.Error("unable to serve debug api")
		}
	}()

	for _, c := range []metrics.Collector{p.logger, p.liveness, p.table} {
		debugService.MustRegisterMetrics(c.Metrics()...)
	}
	debugService.MustRegisterMetrics(p.metrics.collectors()...)
	debugService.Configure(p.table, p.localNode)

	return nil
}

// feed adds the nodes found by random discv5 lookups to the table.
func (p *Portal) feed(ctx context.Context) {
	defer p.loops.Done()

	for {
		n, err := discovery.Feed(ctx, p.discv5.RandomNodes(), p.table, p.logger)
		p.metrics.FedNodes.Add(float64(n))
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(feedRetryInterval):
		}
	}
}

func (p *Portal) maintain(ctx context.Context, interval time.Duration) {
	defer p.loops.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d, ok := p.table.PerformMaintenanceOnOldestBucket(); ok {
				p.metrics.MaintenanceRuns.Inc()
				p.logger.Tracef("maintained bucket %d", d)
			}
		}
	}
}

// Table returns the routing table of the node.
func (p *Portal) Table() *nodetable.Table {
	return p.table
}

// LocalNode returns the local node record.
func (p *Portal) LocalNode() *enode.Node {
	return p.localNode.Node()
}

func (p *Portal) Shutdown() error {
	var mErr error

	// if a shutdown is already in process, return here
	p.shutdownMutex.Lock()
	if p.shutdownInProgress {
		p.shutdownMutex.Unlock()
		return ErrShutdownInProgress
	}
	p.shutdownInProgress = true
	p.shutdownMutex.Unlock()

	// tryClose is a convenient closure which decrease
	// repetitive io.Closer tryClose procedure.
	tryClose := func(c io.Closer, errMsg string) {
		if c == nil {
			return
		}
		if err := c.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", errMsg, err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var eg errgroup.Group
	if p.debugAPIServer != nil {
		eg.Go(func() error {
			if err := p.debugAPIServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("debug api server: %w", err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		if p.ctxCancel != nil {
			p.ctxCancel()
		}
		p.loops.Wait()
		return nil
	})
	if err := eg.Wait(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	if p.liveness != nil {
		tryClose(p.liveness, "liveness manager")
	}
	if p.discv5 != nil {
		p.discv5.Close()
	}
	if p.nodeDB != nil {
		p.nodeDB.Close()
	}
	tryClose(p.errorLogWriter, "error log writer")

	return mErr
}
