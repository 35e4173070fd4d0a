// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethersphere/portal/pkg/logging"
)

const (
	keyFilename   = "nodekey"
	nodeDBDirname = "nodes"
	dataDirPerm   = 0700
)

// loadOrCreateKey reads the secp256k1 node key from the data directory or
// generates and stores a new one. Without a data directory the key is
// ephemeral.
func loadOrCreateKey(dataDir string, logger logging.Logger) (*ecdsa.PrivateKey, error) {
	if dataDir == "" {
		logger.Warning("no data directory, using an ephemeral node key")
		return crypto.GenerateKey()
	}

	path := filepath.Join(dataDir, keyFilename)
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, dataDirPerm); err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	logger.Infof("new node key stored in %s", path)
	return key, nil
}

// nodeDBPath returns the enode database location, empty for an in-memory
// database.
func nodeDBPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, nodeDBDirname)
}

func parseBootnodes(urls []string) ([]*enode.Node, error) {
	nodes := make([]*enode.Node, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		n, err := enode.Parse(enode.ValidSchemes, u)
		if err != nil {
			return nil, fmt.Errorf("bootnode %q: %w", u, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
