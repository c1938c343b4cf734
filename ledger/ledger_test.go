// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/codec"
	"github.com/ava-labs/dposledger/config"
	"github.com/ava-labs/dposledger/event"
	"github.com/ava-labs/dposledger/genesis"
	"github.com/ava-labs/dposledger/handlers"
	"github.com/ava-labs/dposledger/mempool"
	"github.com/ava-labs/dposledger/wallet"
)

var (
	aliceKey = strings.Repeat("0a", 32)
	bobKey   = strings.Repeat("0b", 32)
)

type recorder struct {
	l     sync.Mutex
	names []string
}

func (r *recorder) Accept(_ context.Context, e event.Event) error {
	r.l.Lock()
	defer r.l.Unlock()

	r.names = append(r.names, e.Name)
	return nil
}

func (*recorder) Close() error { return nil }

func testConfig(dir string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Log.Disabled = true
	cfg.HistoryDirectory = dir
	cfg.BootstrapParallelism = 2
	return cfg
}

func testGenesis() *genesis.Genesis {
	g := genesis.NewDefaultGenesis()
	g.Allocations = []*genesis.Allocation{
		{PublicKey: aliceKey, Balance: "10000"},
		{PublicKey: bobKey, Balance: "5000"},
	}
	return g
}

func address(t *testing.T, key string) string {
	a, err := codec.AddressFromHexKey(testGenesis().HRP, key)
	require.NoError(t, err)
	return a
}

func newLedger(t *testing.T, dir string, subs ...event.Subscription) *Ledger {
	require := require.New(t)

	l, err := New(testConfig(dir), testGenesis(), subs...)
	require.NoError(err)
	require.NoError(l.Bootstrap(context.Background()))
	return l
}

func transfer(sender string, recipient string, nonce uint64, amount uint64, height uint64) *chain.Transaction {
	tx := &chain.Transaction{
		ID:          ids.GenerateTestID(),
		Kind:        handlers.TransferKind,
		SenderID:    sender,
		RecipientID: recipient,
		Nonce:       nonce,
		BlockHeight: height,
	}
	tx.Fee.SetUint64(10)
	tx.Amount.SetUint64(amount)
	return tx
}

func register(sender string, username string, nonce uint64, height uint64) *chain.Transaction {
	tx := &chain.Transaction{
		ID:          ids.GenerateTestID(),
		Kind:        handlers.DelegateRegistrationKind,
		SenderID:    sender,
		Nonce:       nonce,
		BlockHeight: height,
		Asset:       &chain.Asset{Registration: &chain.RegistrationAsset{Username: username}},
	}
	tx.Fee.SetUint64(25)
	return tx
}

func TestBootstrapAllocations(t *testing.T) {
	require := require.New(t)

	l := newLedger(t, "")
	defer func() { require.NoError(l.Close()) }()

	alice := l.Repository().FindByAddress(address(t, aliceKey))
	require.Equal(uint64(10_000), alice.Balance().Uint64())
	key, ok := alice.PublicKey(wallet.Primary)
	require.True(ok)
	require.Equal(aliceKey, key)
	require.Zero(l.Height())

	supply, err := l.Delegates().Supply(context.Background())
	require.NoError(err)
	require.Equal(uint64(15_000), supply.Uint64())
}

func TestApplyAndRevertBlocks(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	rec := &recorder{}
	l := newLedger(t, "", rec)
	alice, bob := address(t, aliceKey), address(t, bobKey)

	b1 := &Block{
		Height: 1,
		ID:     "block-1",
		Transactions: []*chain.Transaction{
			register(alice, "alice", 1, 1),
			transfer(bob, alice, 1, 100, 1),
		},
	}
	require.NoError(l.ApplyBlock(ctx, b1))
	require.Equal(uint64(1), l.Height())
	require.Equal(uint64(10_075), l.Repository().FindByAddress(alice).Balance().Uint64())
	require.Equal(uint64(4_890), l.Repository().FindByAddress(bob).Balance().Uint64())

	// heights only move forward
	require.ErrorIs(l.ApplyBlock(ctx, &Block{Height: 1}), ErrUnexpectedBlock)

	b2 := &Block{Height: 2, ID: "block-2", Generator: "alice"}
	b2.Reward.SetUint64(200)
	b2.TotalFees.SetUint64(35)
	require.NoError(l.ApplyBlock(ctx, b2))

	w, err := l.Repository().FindByUsername("alice")
	require.NoError(err)
	d, ok := wallet.DelegateKey.Get(w)
	require.True(ok)
	require.Equal(uint64(1), d.ProducedBlocks)
	require.Equal(uint64(200), d.ForgedRewards.Uint64())
	require.Equal(uint64(35), d.ForgedFees.Uint64())
	require.NotNil(d.LastBlock)
	require.Equal("block-2", d.LastBlock.ID)

	resource, found, err := l.Delegates().Get(ctx, alice)
	require.NoError(err)
	require.True(found)
	require.Equal("alice", resource.Username)

	// only the latest block can be reverted
	require.ErrorIs(l.RevertBlock(ctx, b1), ErrUnexpectedBlock)
	require.NoError(l.RevertBlock(ctx, b2))
	w, err = l.Repository().FindByUsername("alice")
	require.NoError(err)
	d, ok = wallet.DelegateKey.Get(w)
	require.True(ok)
	require.Zero(d.ProducedBlocks)
	require.True(d.ForgedRewards.IsZero())
	require.Nil(d.LastBlock)

	require.NoError(l.RevertBlock(ctx, b1))
	require.Zero(l.Height())
	require.False(l.Repository().HasByUsername("alice"))
	require.Equal(uint64(10_000), l.Repository().FindByAddress(alice).Balance().Uint64())
	require.Equal(uint64(5_000), l.Repository().FindByAddress(bob).Balance().Uint64())
	require.Zero(l.Repository().FindByAddress(bob).Nonce())

	// reverted transactions return to the pool
	for _, tx := range b1.Transactions {
		require.True(l.Mempool().Has(tx.ID))
	}

	require.NoError(l.Close())
	require.Contains(rec.names, chain.DelegateRegistered)
}

func TestApplyBlockIsAtomic(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	l := newLedger(t, "")
	defer func() { require.NoError(l.Close()) }()
	alice, bob := address(t, aliceKey), address(t, bobKey)

	bad := &Block{
		Height: 1,
		Transactions: []*chain.Transaction{
			transfer(alice, bob, 1, 100, 1),
			transfer(bob, alice, 1, 1_000_000, 1),
		},
	}
	require.ErrorIs(l.ApplyBlock(ctx, bad), chain.ErrStateValidation)
	require.Zero(l.Height())
	require.Equal(uint64(10_000), l.Repository().FindByAddress(alice).Balance().Uint64())
	require.Zero(l.Repository().FindByAddress(alice).Nonce())

	// unknown producers leave no trace
	unknown := &Block{
		Height:       1,
		Generator:    "nobody",
		Transactions: []*chain.Transaction{transfer(alice, bob, 1, 100, 1)},
	}
	require.Error(l.ApplyBlock(ctx, unknown))
	require.Zero(l.Height())
	require.Equal(uint64(10_000), l.Repository().FindByAddress(alice).Balance().Uint64())
	_, ok := l.history.LastHeight()
	require.False(ok)
}

func TestSubmitTransaction(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	l := newLedger(t, "")
	defer func() { require.NoError(l.Close()) }()
	alice, bob := address(t, aliceKey), address(t, bobKey)

	first := transfer(alice, bob, 1, 100, 0)
	second := transfer(alice, bob, 2, 100, 0)
	require.NoError(l.SubmitTransaction(ctx, first))
	require.NoError(l.SubmitTransaction(ctx, second))
	require.Equal(2, l.Mempool().Len())

	// the pool is checked on top of pending transactions
	require.ErrorIs(l.SubmitTransaction(ctx, transfer(alice, bob, 2, 100, 0)), chain.ErrStateValidation)
	require.ErrorIs(l.SubmitTransaction(ctx, first), mempool.ErrDuplicate)

	confirmed := *first
	confirmed.BlockHeight = 1
	require.NoError(l.ApplyBlock(ctx, &Block{Height: 1, Transactions: []*chain.Transaction{&confirmed}}))
	require.False(l.Mempool().Has(first.ID))
	require.True(l.Mempool().Has(second.ID))
}

func TestPersistentHistory(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	alice, bob := address(t, aliceKey), address(t, bobKey)

	l := newLedger(t, dir)
	require.NoError(l.ApplyBlock(ctx, &Block{
		Height: 1,
		Transactions: []*chain.Transaction{
			register(alice, "alice", 1, 1),
			transfer(bob, alice, 1, 100, 1),
		},
	}))
	require.NoError(l.ApplyBlock(ctx, &Block{
		Height:       3,
		Transactions: []*chain.Transaction{transfer(bob, alice, 2, 50, 3)},
	}))
	expected := map[string]*wallet.Wallet{}
	for _, a := range []string{alice, bob} {
		expected[a] = l.Repository().FindByAddress(a).Clone()
	}
	require.NoError(l.Close())

	reopened := newLedger(t, dir)
	defer func() { require.NoError(reopened.Close()) }()
	require.Equal(uint64(3), reopened.Height())
	for a, w := range expected {
		got := reopened.Repository().FindByAddress(a)
		require.Equal(w.Balance(), got.Balance(), a)
		require.Equal(w.Nonce(), got.Nonce(), a)
		require.Equal(w.PublicKeys(), got.PublicKeys(), a)
	}
	require.True(reopened.Repository().HasByUsername("alice"))

	var spent uint256.Int
	spent.SetUint64(10_000 + 150 - 25)
	require.Equal(&spent, reopened.Repository().FindByAddress(alice).Balance())
}

func TestProducerSurvivesRestart(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	alice := address(t, aliceKey)

	l := newLedger(t, dir)
	require.NoError(l.ApplyBlock(ctx, &Block{
		Height:       1,
		Transactions: []*chain.Transaction{register(alice, "alice", 1, 1)},
	}))
	b2 := &Block{Height: 2, ID: "block-2", Generator: "alice"}
	b2.Reward.SetUint64(200)
	b2.TotalFees.SetUint64(25)
	require.NoError(l.ApplyBlock(ctx, b2))
	require.NoError(l.Close())

	reopened := newLedger(t, dir)
	defer func() { require.NoError(reopened.Close()) }()

	w, err := reopened.Repository().FindByUsername("alice")
	require.NoError(err)
	d, ok := wallet.DelegateKey.Get(w)
	require.True(ok)
	require.Equal(uint64(1), d.ProducedBlocks)
	require.Equal(uint64(200), d.ForgedRewards.Uint64())
	require.Equal(uint64(25), d.ForgedFees.Uint64())
	require.NotNil(d.LastBlock)
	require.Equal("block-2", d.LastBlock.ID)

	require.NoError(reopened.RevertBlock(ctx, b2))
	w, err = reopened.Repository().FindByUsername("alice")
	require.NoError(err)
	d, ok = wallet.DelegateKey.Get(w)
	require.True(ok)
	require.Zero(d.ProducedBlocks)
	require.Nil(d.LastBlock)
	require.Equal(uint64(1), reopened.Height())
}

func TestFailedRevertKeepsProducer(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	alice, bob := address(t, aliceKey), address(t, bobKey)

	l := newLedger(t, "")
	defer func() { require.NoError(l.Close()) }()
	require.NoError(l.ApplyBlock(ctx, &Block{
		Height:       1,
		Transactions: []*chain.Transaction{register(alice, "alice", 1, 1)},
	}))
	b2 := &Block{
		Height:       2,
		ID:           "block-2",
		Generator:    "alice",
		Transactions: []*chain.Transaction{transfer(bob, alice, 1, 100, 2)},
	}
	b2.Reward.SetUint64(200)
	require.NoError(l.ApplyBlock(ctx, b2))

	// a transaction that was never applied cannot be reverted
	stale := *b2
	stale.Transactions = []*chain.Transaction{transfer(bob, alice, 5, 100, 2)}
	require.ErrorIs(l.RevertBlock(ctx, &stale), chain.ErrBrokenInvariant)
	require.Equal(uint64(2), l.Height())

	w, err := l.Repository().FindByUsername("alice")
	require.NoError(err)
	d, ok := wallet.DelegateKey.Get(w)
	require.True(ok)
	require.Equal(uint64(1), d.ProducedBlocks)
	require.Equal(uint64(200), d.ForgedRewards.Uint64())
	require.NotNil(d.LastBlock)
	require.Equal("block-2", d.LastBlock.ID)
	sums, err := l.summaries.DelegatesForgedBlocks(ctx)
	require.NoError(err)
	require.Len(sums, 1)
	require.Equal(uint64(1), sums[0].TotalProduced)

	require.NoError(l.RevertBlock(ctx, b2))
	require.Equal(uint64(1), l.Height())
	require.Equal(uint64(5_000), l.Repository().FindByAddress(bob).Balance().Uint64())
}
