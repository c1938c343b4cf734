// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/cockroachdb/pebble"
)

// Batch buffers writes until [Batch.Write] commits them atomically.
type Batch struct {
	db    *Database
	batch *pebble.Batch
	size  int
}

func (db *Database) NewBatch() *Batch {
	return &Batch{db: db, batch: db.db.NewBatch()}
}

func (b *Batch) Put(key []byte, value []byte) error {
	b.size += len(key) + len(value)
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	b.size += len(key)
	return b.batch.Delete(key, nil)
}

// Size is the number of key and value bytes buffered.
func (b *Batch) Size() int {
	return b.size
}

func (b *Batch) Write() error {
	b.db.lock.RLock()
	defer b.db.lock.RUnlock()

	if b.db.closed {
		return database.ErrClosed
	}
	return updateError(b.batch.Commit(b.db.writeOp))
}
