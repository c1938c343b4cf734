// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the node-local settings of a ledger.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/ava-labs/dposledger/event"
	"github.com/ava-labs/dposledger/internal/logging"
	"github.com/ava-labs/dposledger/mempool"
	"github.com/ava-labs/dposledger/pebble"
	"github.com/ava-labs/dposledger/trace"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log    logging.Config `yaml:"log"`
	Trace  trace.Config   `yaml:"trace"`
	Pebble pebble.Config  `yaml:"pebble"`

	// HistoryDirectory stores confirmed transactions in pebble. Empty keeps
	// them in memory.
	HistoryDirectory string `yaml:"historyDirectory"`
	// GenesisPath is the genesis file. Empty uses the default genesis.
	GenesisPath string `yaml:"genesis"`

	Mempool mempool.Config `yaml:"mempool"`
	Events  event.Config   `yaml:"events"`

	// BootstrapParallelism bounds the handlers rebuilt at once.
	BootstrapParallelism int `yaml:"bootstrapParallelism"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Log:                  logging.NewDefaultConfig(),
		Trace:                trace.Config{AppName: "dposledger", Agent: "ledger"},
		Pebble:               pebble.NewDefaultConfig(),
		Mempool:              mempool.NewDefaultConfig(),
		Events:               event.NewDefaultConfig(),
		BootstrapParallelism: runtime.NumCPU(),
	}
}

// Load applies the YAML file at [path] on top of [NewDefaultConfig].
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	c := NewDefaultConfig()
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return nil, err
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Verify() error {
	if err := c.Log.Verify(); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalidConfig, err)
	}
	switch {
	case c.Trace.SampleRate < 0 || c.Trace.SampleRate > 1:
		return fmt.Errorf("%w: trace sample rate %f", ErrInvalidConfig, c.Trace.SampleRate)
	case c.Mempool.MaxSize <= 0:
		return fmt.Errorf("%w: mempool size %d", ErrInvalidConfig, c.Mempool.MaxSize)
	case c.Mempool.MaxSenderSize <= 0:
		return fmt.Errorf("%w: mempool sender size %d", ErrInvalidConfig, c.Mempool.MaxSenderSize)
	case c.Events.Backlog <= 0:
		return fmt.Errorf("%w: event backlog %d", ErrInvalidConfig, c.Events.Backlog)
	case c.BootstrapParallelism <= 0:
		return fmt.Errorf("%w: bootstrap parallelism %d", ErrInvalidConfig, c.BootstrapParallelism)
	default:
		return nil
	}
}
