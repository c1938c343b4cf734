// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/crypto/ed25519"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/trace"
	"github.com/ava-labs/dposledger/wallet"
)

type testRules struct {
	activeDelegates  uint32
	maxVotes         uint32
	autoUpgrade      bool
	noUsernames      bool
	noUpgrades       bool
	noMagistrate     bool
	noBridgechains   bool
	revocationBlocks uint64
	fees             map[chain.Kind]uint64
	devFund          map[string]uint16
}

func defaultRules() *testRules {
	return &testRules{activeDelegates: 1, maxVotes: 2}
}

func (*testRules) Height() uint64 { return 0 }
func (r *testRules) ActiveDelegates() uint32 { return r.activeDelegates }
func (r *testRules) MaxVotes() uint32 { return r.maxVotes }
func (*testRules) ExtendedHeaders() bool { return true }
func (r *testRules) MinFee(k chain.Kind) uint64 { return r.fees[k] }
func (r *testRules) UsernameRegistrations() bool { return !r.noUsernames }
func (r *testRules) AutoUpgradeUsernames() bool { return r.autoUpgrade }
func (r *testRules) BlockProducerUpgrades() bool { return !r.noUpgrades }
func (r *testRules) Magistrate() bool { return !r.noMagistrate }
func (r *testRules) Bridgechains() bool { return !r.noBridgechains }
func (r *testRules) ResignationRevocationBlocks() uint64 { return r.revocationBlocks }
func (r *testRules) DevFund() map[string]uint16 { return r.devFund }

func (r *testRules) GetRules(uint64) chain.Rules { return r }

func testAddress(publicKey string) (string, error) {
	return "addr-" + publicKey, nil
}

type harness struct {
	t    *testing.T
	d    *chain.Dispatcher
	repo *state.Canonical
	ctx  context.Context

	height uint64
	// every committed block, in order
	blocks [][]*chain.Transaction
}

func newHarness(t *testing.T, rules *testRules, emitter chain.Emitter) *harness {
	require := require.New(t)

	registry, err := chain.NewRegistry(Default(ed25519.Verifier{})...)
	require.NoError(err)
	repo, err := state.New(registry.Attributes(), testAddress, registry.Indexers()...)
	require.NoError(err)
	tracer, err := trace.New(&trace.Config{})
	require.NoError(err)
	d, err := chain.NewDispatcher(logging.NoLog{}, tracer, registry, rules, repo, emitter, prometheus.NewRegistry())
	require.NoError(err)
	return &harness{
		t:    t,
		d:    d,
		repo: repo,
		ctx:  context.Background(),
	}
}

func (h *harness) fund(address string, amount uint64) *wallet.Wallet {
	w := h.repo.FindByAddress(address)
	require.NoError(h.t, w.IncreaseBalance(uint256.NewInt(amount)))
	return w
}

// tx builds the next transaction of [sender] with a fee of 1.
func (h *harness) tx(kind chain.Kind, sender string, asset *chain.Asset) *chain.Transaction {
	h.height++
	tx := &chain.Transaction{
		ID:          ids.GenerateTestID(),
		Kind:        kind,
		SenderID:    sender,
		Nonce:       h.repo.FindByAddress(sender).Nonce() + 1,
		BlockHeight: h.height,
		Asset:       asset,
	}
	tx.Fee.SetUint64(1)
	return tx
}

func (h *harness) apply(tx *chain.Transaction) error {
	if err := h.d.Apply(h.ctx, tx); err != nil {
		return err
	}
	h.blocks = append(h.blocks, []*chain.Transaction{tx})
	return nil
}

func (h *harness) mustApply(tx *chain.Transaction) {
	require.NoError(h.t, h.apply(tx))
}

func (h *harness) history() chainHistory {
	var txs chainHistory
	for _, b := range h.blocks {
		txs = append(txs, b...)
	}
	return txs
}

// snapshot deep copies every wallet and secondary index.
func (h *harness) snapshot() map[string]*wallet.Wallet {
	out := map[string]*wallet.Wallet{}
	for _, w := range state.Collect(h.repo.AllByAddress()) {
		out[w.Address()] = w.Clone()
	}
	return out
}

func (h *harness) requireSnapshot(expected map[string]*wallet.Wallet) {
	require := require.New(h.t)

	for address, w := range expected {
		require.True(w.Equal(h.repo.FindByAddress(address)), address)
	}
}

func (h *harness) indexes() map[string]map[string]string {
	out := map[string]map[string]string{}
	for _, name := range []string{state.PublicKeysIndex, state.UsernamesIndex, BusinessesIndex, BridgechainsIndex} {
		snap, err := h.repo.GetIndex(name)
		require.NoError(h.t, err)
		entries := map[string]string{}
		for _, k := range snap.Keys() {
			v, _ := snap.Get(k)
			entries[k] = v
		}
		out[name] = entries
	}
	return out
}

// requireInverse applies [tx] and reverts it, checking that nothing changed.
func (h *harness) requireInverse(tx *chain.Transaction) {
	require := require.New(h.t)

	before := h.snapshot()
	indexes := h.indexes()
	require.NoError(h.d.Apply(h.ctx, tx))
	require.NoError(h.d.Revert(h.ctx, tx))
	h.requireSnapshot(before)
	require.Equal(indexes, h.indexes())
}

func registration(username string) *chain.Asset {
	return &chain.Asset{Registration: &chain.RegistrationAsset{Username: username}}
}

func votes(v map[string]uint16) *chain.Asset {
	return &chain.Asset{Votes: &chain.VoteAsset{Votes: v}}
}

func resign(action chain.ResignationAction) *chain.Asset {
	return &chain.Asset{Resignation: &chain.ResignationAsset{Action: action}}
}

// delegate registers [username] from a fresh wallet of the same name.
func (h *harness) delegate(username string, balance uint64) *wallet.Wallet {
	w := h.fund(username, balance)
	h.mustApply(h.tx(DelegateRegistrationKind, username, registration(username)))
	return w
}

func (h *harness) delegateOf(username string) *wallet.Delegate {
	w, err := h.repo.FindByUsername(username)
	require.NoError(h.t, err)
	d, ok := wallet.DelegateKey.Get(w)
	require.True(h.t, ok)
	return d
}

type chainHistory []*chain.Transaction

func (c chainHistory) FetchByCriteria(_ context.Context, criteria chain.Criteria) (chain.TxIterator, error) {
	var txs []*chain.Transaction
	for _, tx := range c {
		if criteria.Matches(tx) {
			txs = append(txs, tx)
		}
	}
	return &historyIterator{txs: txs, i: -1}, nil
}

type historyIterator struct {
	txs []*chain.Transaction
	i   int
}

func (it *historyIterator) Next() bool {
	it.i++
	return it.i < len(it.txs)
}

func (it *historyIterator) Transaction() *chain.Transaction { return it.txs[it.i] }

func (*historyIterator) Error() error { return nil }

func (*historyIterator) Release() {}

type testPool struct {
	pending []*chain.Transaction
}

func (p *testPool) Admit(_ context.Context, tx *chain.Transaction, check func(chain.PoolQuery) error) error {
	if err := check(p); err != nil {
		return err
	}
	p.pending = append(p.pending, tx)
	return nil
}

func (p *testPool) GetAll() chain.PoolCursor {
	return cursor(p.pending)
}

func (p *testPool) GetAllBySender(address string) chain.PoolCursor {
	return cursor(p.pending).WherePredicate(func(tx *chain.Transaction) bool {
		return tx.SenderID == address
	})
}

type cursor []*chain.Transaction

func (c cursor) WhereKind(tx *chain.Transaction) chain.PoolCursor {
	return c.WherePredicate(func(o *chain.Transaction) bool { return o.Kind == tx.Kind })
}

func (c cursor) WherePredicate(fn func(*chain.Transaction) bool) chain.PoolCursor {
	var out cursor
	for _, tx := range c {
		if fn(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (c cursor) Has() bool { return len(c) > 0 }

func (c cursor) All() []*chain.Transaction { return c }
