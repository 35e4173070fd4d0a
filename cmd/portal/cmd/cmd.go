// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethersphere/portal/pkg/logging"
	"github.com/ethersphere/portal/pkg/node"
	"github.com/ethersphere/portal/pkg/topology/nodetable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	optionNameDataDir             = "data-dir"
	optionNameP2PAddr             = "p2p-addr"
	optionNameBootnodes           = "bootnode"
	optionNameDebugAPIAddr        = "debug-api-addr"
	optionCORSAllowedOrigins      = "cors-allowed-origins"
	optionNameVerbosity           = "verbosity"
	optionNameBucketSize          = "bucket-size"
	optionNameMinPingInterval     = "min-ping-interval"
	optionNamePingTimeout         = "ping-timeout"
	optionNameMaintenanceInterval = "maintenance-interval"
	optionNameProbeTimeout        = "probe-timeout"
	optionNameProbeWorkers        = "probe-workers"
	optionNameProbeRate           = "probe-rate"
	optionNameBadPeerFailures     = "bad-peer-failures"
)

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "portal",
			Short:         "Portal network routing node",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
	}

	c.initGlobalFlags()

	for _, o := range opts {
		o(c)
	}

	// Find home directory.
	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initStartCmd()
	c.initVersionCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	return c.root.Execute()
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.portal.yaml)")
}

func (c *command) initConfig() (err error) {
	config := viper.New()
	configName := ".portal"
	if c.cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".portal" (without extension).
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	// Environment
	config.SetEnvPrefix("portal")
	config.AutomaticEnv() // read in environment variables that match
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}
	c.config = config
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

func (c *command) setAllFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".portal"), "data directory, empty for an ephemeral node")
	cmd.Flags().String(optionNameP2PAddr, ":9009", "discv5 UDP listen address")
	cmd.Flags().StringSlice(optionNameBootnodes, []string{}, "enr or enode URLs of the initial nodes")
	cmd.Flags().String(optionNameDebugAPIAddr, "", "debug HTTP API listen address, empty to disable")
	cmd.Flags().StringSlice(optionCORSAllowedOrigins, []string{}, "origins with CORS headers enabled")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
	cmd.Flags().Int(optionNameBucketSize, nodetable.DefaultBucketSize, "maximum number of peers in a bucket")
	cmd.Flags().Duration(optionNameMinPingInterval, nodetable.DefaultMinPingInterval, "minimal interval between liveness checks of a peer")
	cmd.Flags().Duration(optionNamePingTimeout, nodetable.DefaultPingTimeout, "time after which an unanswered liveness check fails")
	cmd.Flags().Duration(optionNameMaintenanceInterval, node.DefaultMaintenanceInterval, "interval of bucket maintenance")
	cmd.Flags().Duration(optionNameProbeTimeout, 0, "timeout of a single ping, 0 for the default")
	cmd.Flags().Int(optionNameProbeWorkers, 0, "maximum number of concurrent pings, 0 for the default")
	cmd.Flags().Float64(optionNameProbeRate, 0, "maximum number of pings per second, 0 for unlimited")
	cmd.Flags().Int(optionNameBadPeerFailures, 0, "consecutive failed pings after which a peer is ignored, 0 for the default")
}

func newLogger(cmd *cobra.Command, verbosity string) (logging.Logger, error) {
	var logger logging.Logger
	switch verbosity {
	case "0", "silent":
		logger = logging.New(io.Discard, 0)
	case "1", "error":
		logger = logging.New(cmd.OutOrStdout(), logrus.ErrorLevel)
	case "2", "warn":
		logger = logging.New(cmd.OutOrStdout(), logrus.WarnLevel)
	case "3", "info":
		logger = logging.New(cmd.OutOrStdout(), logrus.InfoLevel)
	case "4", "debug":
		logger = logging.New(cmd.OutOrStdout(), logrus.DebugLevel)
	case "5", "trace":
		logger = logging.New(cmd.OutOrStdout(), logrus.TraceLevel)
	default:
		return nil, fmt.Errorf("unknown verbosity level %q", verbosity)
	}
	return logger, nil
}
