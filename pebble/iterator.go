// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/cockroachdb/pebble"
)

// Iterator walks keys in ascending order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

type iterator struct {
	db   *Database
	iter *pebble.Iterator

	initialized bool
	valid       bool
	closed      bool
	err         error
}

// NewIteratorWithPrefix iterates over every key starting with [prefix].
func (db *Database) NewIteratorWithPrefix(prefix []byte) Iterator {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return &iterator{closed: true, err: database.ErrClosed}
	}
	it := &iterator{
		db: db,
		iter: db.db.NewIter(&pebble.IterOptions{
			LowerBound: prefix,
			UpperBound: prefixToUpperBound(prefix),
		}),
	}
	db.openIterators.Add(it)
	return it
}

func (it *iterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.initialized {
		it.valid = it.iter.First()
		it.initialized = true
	} else {
		it.valid = it.iter.Next()
	}
	if !it.valid {
		it.err = updateError(it.iter.Error())
	}
	return it.valid
}

func (it *iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return clone(it.iter.Key())
}

func (it *iterator) Value() []byte {
	if !it.valid {
		return nil
	}
	return clone(it.iter.Value())
}

func (it *iterator) Error() error {
	return it.err
}

func (it *iterator) Release() {
	if it.db == nil {
		return
	}
	it.db.lock.Lock()
	defer it.db.lock.Unlock()

	if it.closed {
		return
	}
	it.db.openIterators.Remove(it)
	it.release()
}

// release assumes the database lock is held.
func (it *iterator) release() {
	if it.closed {
		return
	}
	it.closed = true
	it.valid = false
	if err := it.iter.Close(); err != nil && it.err == nil {
		it.err = updateError(err)
	}
}

// prefixToUpperBound returns the first key after every key with [prefix],
// or nil when there is none.
func prefixToUpperBound(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xFF {
			upper := make([]byte, i+1)
			copy(upper, prefix)
			upper[i]++
			return upper
		}
	}
	return nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
