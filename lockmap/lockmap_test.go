// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lockmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockmapExclusive(t *testing.T) {
	require := require.New(t)
	l := New(4)

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("alice")
			counter++
			l.Unlock("alice")
		}()
	}
	wg.Wait()
	require.Equal(50, counter)
	require.Zero(l.Locks())
}

func TestLockmapReaders(t *testing.T) {
	require := require.New(t)
	l := New(0)

	l.RLock("alice")
	l.RLock("alice")
	l.Lock("bob")
	require.Equal(2, l.Locks())

	l.RUnlock("alice")
	require.Equal(2, l.Locks())
	l.RUnlock("alice")
	l.Unlock("bob")
	require.Zero(l.Locks())
}

func TestLockAll(t *testing.T) {
	require := require.New(t)
	l := New(0)

	unlock := l.LockAll("kind/1/2", "sender/alice", "kind/1/2")
	require.Equal(2, l.Locks())

	done := make(chan struct{})
	go func() {
		defer close(done)
		release := l.LockAll("sender/alice", "kind/1/2")
		release()
	}()
	unlock()
	<-done
	require.Zero(l.Locks())
}

func TestUnlockUnknown(t *testing.T) {
	require.Panics(t, func() {
		New(0).Unlock("missing")
	})
}
