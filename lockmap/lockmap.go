// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lockmap provides read-write locks keyed by string. Entries exist
// only while held.
package lockmap

import (
	"sort"
	"sync"
)

type holderLock struct {
	holders int
	mu      sync.RWMutex
}

type Lockmap struct {
	l sync.Mutex
	m map[string]*holderLock
}

func New(initSize int) *Lockmap {
	return &Lockmap{
		m: make(map[string]*holderLock, initSize),
	}
}

func (l *Lockmap) Lock(key string) {
	l.acquire(key).mu.Lock()
}

func (l *Lockmap) Unlock(key string) {
	l.release(key).mu.Unlock()
}

func (l *Lockmap) RLock(key string) {
	l.acquire(key).mu.RLock()
}

func (l *Lockmap) RUnlock(key string) {
	l.release(key).mu.RUnlock()
}

// LockAll write-locks [keys] in sorted order and returns the function that
// releases them. Duplicate keys are locked once.
func (l *Lockmap) LockAll(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	unique := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k != sorted[i-1] {
			unique = append(unique, k)
		}
	}
	for _, k := range unique {
		l.Lock(k)
	}
	return func() {
		for i := len(unique) - 1; i >= 0; i-- {
			l.Unlock(unique[i])
		}
	}
}

// acquire registers a holder before it blocks on the key's lock so release
// never drops an entry someone is waiting on.
func (l *Lockmap) acquire(key string) *holderLock {
	l.l.Lock()
	defer l.l.Unlock()

	hl, ok := l.m[key]
	if !ok {
		hl = &holderLock{}
		l.m[key] = hl
	}
	hl.holders++
	return hl
}

func (l *Lockmap) release(key string) *holderLock {
	l.l.Lock()
	defer l.l.Unlock()

	hl, ok := l.m[key]
	if !ok {
		panic("lockmap: unlock of unlocked key " + key)
	}
	hl.holders--
	if hl.holders == 0 {
		delete(l.m, key)
	}
	return hl
}

// Locks returns the number of keys held or waited on.
func (l *Lockmap) Locks() int {
	l.l.Lock()
	defer l.l.Unlock()

	return len(l.m)
}
