// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"errors"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	CacheSize                   int64  `yaml:"cacheSize"`
	BytesPerSync                int    `yaml:"bytesPerSync"`
	WALBytesPerSync             int    `yaml:"walBytesPerSync"`
	MemTableStopWritesThreshold int    `yaml:"memTableStopWritesThreshold"`
	MemTableSize                uint64 `yaml:"memTableSize"`
	MaxOpenFiles                int    `yaml:"maxOpenFiles"`
	ConcurrentCompactions       int    `yaml:"concurrentCompactions"`
	Sync                        bool   `yaml:"sync"`
}

func NewDefaultConfig() Config {
	return Config{
		CacheSize:                   256 * 1024 * 1024,
		BytesPerSync:                1024 * 1024,
		WALBytesPerSync:             1024 * 1024,
		MemTableStopWritesThreshold: 8,
		MemTableSize:                16 * 1024 * 1024,
		MaxOpenFiles:                4_096,
		ConcurrentCompactions:       1,
		Sync:                        true,
	}
}

// Database is a pebble key-value store. Confirmed history is written in
// batches and read back with prefix iterators.
type Database struct {
	lock    sync.RWMutex
	db      *pebble.DB
	closed  bool
	writeOp *pebble.WriteOptions

	openIterators set.Set[*iterator]

	metrics *metrics
	closing chan struct{}
	wg      sync.WaitGroup
}

func New(file string, cfg Config) (*Database, *prometheus.Registry, error) {
	// These tunings follow the cockroach defaults for a write heavy store.
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(cfg.CacheSize),
		BytesPerSync:                cfg.BytesPerSync,
		Comparer:                    pebble.DefaultComparer,
		WALBytesPerSync:             cfg.WALBytesPerSync,
		MemTableStopWritesThreshold: cfg.MemTableStopWritesThreshold,
		MemTableSize:                int(cfg.MemTableSize),
		MaxOpenFiles:                cfg.MaxOpenFiles,
		MaxConcurrentCompactions:    func() int { return cfg.ConcurrentCompactions },
	}
	for i := 0; i < len(opts.Levels); i++ {
		l := &opts.Levels[i]
		l.BlockSize = 32 * 1024
		l.IndexBlockSize = 256 * 1024
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		if i > 0 {
			l.TargetFileSize = opts.Levels[i-1].TargetFileSize * 2
		}
		l.EnsureDefaults()
	}

	registry, metrics, err := newMetrics()
	if err != nil {
		return nil, nil, err
	}
	db := &Database{
		writeOp:       &pebble.WriteOptions{Sync: cfg.Sync},
		openIterators: set.Set[*iterator]{},
		metrics:       metrics,
		closing:       make(chan struct{}),
	}
	opts.EventListener = &pebble.EventListener{
		CompactionBegin: db.onCompactionBegin,
		CompactionEnd:   db.onCompactionEnd,
		WriteStallBegin: db.onWriteStallBegin,
		WriteStallEnd:   db.onWriteStallEnd,
	}
	d, err := pebble.Open(file, opts)
	if err != nil {
		return nil, nil, err
	}
	db.db = d

	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.collectMetrics()
	}()
	return db, registry, nil
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	for it := range db.openIterators {
		it.release()
	}
	db.openIterators.Clear()
	close(db.closing)
	db.wg.Wait()
	return updateError(db.db.Close())
}

func (db *Database) Has(key []byte) (bool, error) {
	_, err := db.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (db *Database) Get(key []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		db.metrics.getLatency.Observe(float64(time.Since(start)))
	}()

	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	data, closer, err := db.db.Get(key)
	if err != nil {
		return nil, updateError(err)
	}
	value := make([]byte, len(data))
	copy(value, data)
	return value, closer.Close()
}

func (db *Database) Put(key []byte, value []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return updateError(db.db.Set(key, value, db.writeOp))
}

func (db *Database) Delete(key []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return updateError(db.db.Delete(key, db.writeOp))
}

func updateError(err error) error {
	switch {
	case errors.Is(err, pebble.ErrClosed):
		return database.ErrClosed
	case errors.Is(err, pebble.ErrNotFound):
		return database.ErrNotFound
	default:
		return err
	}
}
