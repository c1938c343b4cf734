// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/chain"
)

type recorder struct {
	mu     sync.Mutex
	names  []string
	closed bool
}

func (r *recorder) Accept(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = append(r.names, e.Name)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}

func TestBusDeliversInOrder(t *testing.T) {
	require := require.New(t)

	rec := &recorder{}
	b := NewBus(logging.NoLog{}, NewDefaultConfig(), rec)
	b.Dispatch(chain.DelegateRegistered, chain.EventPayload{Username: "alice"})
	b.Dispatch(chain.TransactionApplied, chain.EventPayload{})
	b.Dispatch(chain.WalletVoted, chain.EventPayload{})
	require.NoError(b.Close())

	require.Equal([]string{
		chain.DelegateRegistered,
		chain.TransactionApplied,
		chain.WalletVoted,
	}, rec.names)
	require.True(rec.closed)
	require.Equal(Stats{Dispatched: 3, Delivered: 3}, b.Stats())

	// dispatching after close is dropped
	b.Dispatch(chain.TransactionApplied, chain.EventPayload{})
	require.Equal(uint64(1), b.Stats().Dropped)
	require.NoError(b.Close())
}

func TestBusIsolatesFailures(t *testing.T) {
	require := require.New(t)

	rec := &recorder{}
	failing := SubscriptionFunc{AcceptF: func(context.Context, Event) error {
		return errors.New("webhook unavailable")
	}}
	panicking := SubscriptionFunc{AcceptF: func(context.Context, Event) error {
		panic("observer bug")
	}}
	b := NewBus(logging.NoLog{}, NewDefaultConfig(), failing, panicking, rec)
	b.Dispatch(chain.BusinessRegistered, chain.EventPayload{BusinessID: 1})
	require.NoError(b.Close())

	require.Equal([]string{chain.BusinessRegistered}, rec.names)
	stats := b.Stats()
	require.Equal(uint64(2), stats.Failed)
	require.Equal(uint64(1), stats.Delivered)
}

func TestBusDropsWhenFull(t *testing.T) {
	require := require.New(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	blocking := SubscriptionFunc{AcceptF: func(context.Context, Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}}
	b := NewBus(logging.NoLog{}, Config{Backlog: 1}, blocking)

	b.Dispatch("first", chain.EventPayload{})
	<-started
	// the first event is being delivered, the backlog holds one more
	b.Dispatch("second", chain.EventPayload{})
	b.Dispatch("third", chain.EventPayload{})
	close(release)
	require.NoError(b.Close())

	stats := b.Stats()
	require.Equal(uint64(2), stats.Dispatched)
	require.Equal(uint64(1), stats.Dropped)
	require.Equal(uint64(2), stats.Delivered)
}
