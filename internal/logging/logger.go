// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/ava-labs/avalanchego/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrMissingName = errors.New("missing logger name")

type Config struct {
	// Disabled discards every entry.
	Disabled bool `yaml:"disabled"`

	Name         string `yaml:"name"`
	Level        string `yaml:"level"`
	DisplayLevel string `yaml:"displayLevel"`
	// Format is one of "auto", "plain", "colors" or "json".
	Format string `yaml:"format"`

	// Directory enables a rotated log file when set.
	Directory string `yaml:"directory"`
	MaxSize   int    `yaml:"maxSize"` // megabytes
	MaxAge    int    `yaml:"maxAge"`  // days
	MaxFiles  int    `yaml:"maxFiles"`
	Compress  bool   `yaml:"compress"`
}

func NewDefaultConfig() Config {
	return Config{
		Name:         "ledger",
		Level:        logging.Info.String(),
		DisplayLevel: logging.Info.String(),
		Format:       "auto",
		MaxSize:      8,
		MaxAge:       7,
		MaxFiles:     5,
	}
}

func (c Config) Verify() error {
	if c.Disabled {
		return nil
	}
	if len(c.Name) == 0 {
		return ErrMissingName
	}
	if _, err := logging.ToLevel(c.Level); err != nil {
		return err
	}
	if _, err := logging.ToLevel(c.DisplayLevel); err != nil {
		return err
	}
	_, err := logging.ToFormat(c.Format, os.Stderr.Fd())
	return err
}

// New builds a logger writing to stderr and, when [Config.Directory] is set,
// to a rotated file.
func New(c Config) (logging.Logger, error) {
	return newLogger(c, os.Stderr)
}

func newLogger(c Config, display io.WriteCloser) (logging.Logger, error) {
	if c.Disabled {
		return logging.NoLog{}, nil
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	level, _ := logging.ToLevel(c.Level)
	displayLevel, _ := logging.ToLevel(c.DisplayLevel)
	format, _ := logging.ToFormat(c.Format, os.Stderr.Fd())

	cores := []logging.WrappedCore{
		logging.NewWrappedCore(displayLevel, display, format.ConsoleEncoder()),
	}
	if len(c.Directory) > 0 {
		rw := &lumberjack.Logger{
			Filename:   filepath.Join(c.Directory, c.Name+".log"),
			MaxSize:    c.MaxSize,
			MaxAge:     c.MaxAge,
			MaxBackups: c.MaxFiles,
			Compress:   c.Compress,
		}
		cores = append(cores, logging.NewWrappedCore(level, rw, format.FileEncoder()))
	}
	return logging.NewLogger(format.WrapPrefix(c.Name), cores...), nil
}
