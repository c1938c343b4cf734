// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type buffer struct {
	bytes.Buffer
}

func (*buffer) Close() error { return nil }

func TestNewWritesFile(t *testing.T) {
	require := require.New(t)

	c := NewDefaultConfig()
	c.Format = "json"
	c.Level = "debug"
	c.Directory = t.TempDir()

	display := &buffer{}
	log, err := newLogger(c, display)
	require.NoError(err)

	log.Debug("applied transaction", zap.String("sender", "alice"))
	log.Info("bootstrapped", zap.Int("wallets", 3))
	log.Stop()

	b, err := os.ReadFile(filepath.Join(c.Directory, "ledger.log"))
	require.NoError(err)
	require.Contains(string(b), "applied transaction")
	require.Contains(string(b), "alice")

	// display level is info
	require.NotContains(display.String(), "applied transaction")
	require.Contains(display.String(), "bootstrapped")
}

func TestNewDisabled(t *testing.T) {
	require := require.New(t)

	log, err := New(Config{Disabled: true})
	require.NoError(err)
	require.IsType(logging.NoLog{}, log)
	require.False(log.Enabled(0))
}

func TestConfigVerify(t *testing.T) {
	require := require.New(t)

	c := NewDefaultConfig()
	require.NoError(c.Verify())

	c.Level = "loud"
	require.Error(c.Verify())

	c = NewDefaultConfig()
	c.Name = ""
	require.ErrorIs(c.Verify(), ErrMissingName)
}
