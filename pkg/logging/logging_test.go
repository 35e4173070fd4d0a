// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethersphere/portal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logrus.InfoLevel)

	logger.Debug("hidden")
	logger.Infof("peer %s added", "abc")
	logger.Warning("careful")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %q", out)
	}
	if !strings.Contains(out, "peer abc added") {
		t.Errorf("info message missing: %q", out)
	}
	if !strings.Contains(out, "careful") {
		t.Errorf("warning message missing: %q", out)
	}
}

func TestLoggerMetrics(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, logrus.TraceLevel)

	logger.Info("one")
	logger.Info("two")
	logger.Error("three")

	cs := logger.Metrics()
	if len(cs) != 5 {
		t.Fatalf("got %d collectors, want 5", len(cs))
	}
	if got := testutil.ToFloat64(cs[0]); got != 1 {
		t.Errorf("got %v error lines, want 1", got)
	}
	if got := testutil.ToFloat64(cs[2]); got != 2 {
		t.Errorf("got %v info lines, want 2", got)
	}
}
