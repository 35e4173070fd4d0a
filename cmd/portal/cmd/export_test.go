// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

type (
	Command = command
	Option  = option
)

var (
	NewCommand = newCommand
	NewLogger  = newLogger
)

func WithCfgFile(f string) func(c *Command) {
	return func(c *Command) {
		c.cfgFile = f
	}
}

func WithHomeDir(dir string) func(c *Command) {
	return func(c *Command) {
		c.homeDir = dir
	}
}

func WithArgs(a ...string) func(c *Command) {
	return func(c *Command) {
		c.root.SetArgs(a)
	}
}

func WithOutput(w io.Writer) func(c *Command) {
	return func(c *Command) {
		c.root.SetOut(w)
	}
}

// Root returns the root cobra command.
func (c *Command) Root() *cobra.Command {
	return c.root
}

// ConfigString returns the resolved value of a configuration option.
func (c *Command) ConfigString(name string) string {
	return c.config.GetString(name)
}
