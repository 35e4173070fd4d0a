// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ethersphere/portal"
	"github.com/ethersphere/portal/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initStartCmd() {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a portal routing node",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			logger, err := newLogger(cmd, c.config.GetString(optionNameVerbosity))
			if err != nil {
				return err
			}

			logger.Infof("version: %v", portal.Version)

			p, err := node.NewPortal(node.Options{
				DataDir:             c.config.GetString(optionNameDataDir),
				Addr:                c.config.GetString(optionNameP2PAddr),
				Bootnodes:           c.config.GetStringSlice(optionNameBootnodes),
				DebugAPIAddr:        c.config.GetString(optionNameDebugAPIAddr),
				CORSAllowedOrigins:  c.config.GetStringSlice(optionCORSAllowedOrigins),
				Logger:              logger,
				BucketSize:          c.config.GetInt(optionNameBucketSize),
				MinPingInterval:     c.config.GetDuration(optionNameMinPingInterval),
				PingTimeout:         c.config.GetDuration(optionNamePingTimeout),
				MaintenanceInterval: c.config.GetDuration(optionNameMaintenanceInterval),
				ProbeTimeout:        c.config.GetDuration(optionNameProbeTimeout),
				ProbeWorkers:        c.config.GetInt(optionNameProbeWorkers),
				ProbeRate:           c.config.GetFloat64(optionNameProbeRate),
				BadPeerFailures:     c.config.GetInt(optionNameBadPeerFailures),
			})
			if err != nil {
				return err
			}

			// Wait for termination or interrupt signals.
			// We want to clean up things at the end.
			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, syscall.SIGINT, syscall.SIGTERM)

			// Block main goroutine until it is interrupted
			sig := <-interruptChannel

			logger.Debugf("received signal: %v", sig)
			logger.Info("shutting down")

			// Shutdown
			done := make(chan struct{})
			go func() {
				defer close(done)

				if err := p.Shutdown(); err != nil {
					logger.Errorf("shutdown: %v", err)
				}
			}()

			// If shutdown function is blocking too long,
			// allow process termination by receiving another signal.
			select {
			case sig := <-interruptChannel:
				logger.Debugf("received signal: %v", sig)
			case <-done:
			}

			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setAllFlags(cmd)
	c.root.AddCommand(cmd)
}
