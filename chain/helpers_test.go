// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"sync"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/trace"
	"github.com/ava-labs/dposledger/wallet"
)

var transferKind = Kind{Group: 1, Type: 0}

type testRules struct {
	extendedHeaders bool
	minFee          uint64
	devFund         map[string]uint16
}

func (*testRules) Height() uint64 { return 0 }
func (*testRules) ActiveDelegates() uint32 { return 3 }
func (*testRules) MaxVotes() uint32 { return 3 }
func (r *testRules) ExtendedHeaders() bool { return r.extendedHeaders }
func (r *testRules) MinFee(Kind) uint64 { return r.minFee }
func (*testRules) UsernameRegistrations() bool { return true }
func (*testRules) AutoUpgradeUsernames() bool { return false }
func (*testRules) BlockProducerUpgrades() bool { return true }
func (*testRules) Magistrate() bool { return true }
func (*testRules) Bridgechains() bool { return true }
func (*testRules) ResignationRevocationBlocks() uint64 { return 0 }
func (r *testRules) DevFund() map[string]uint16 { return r.devFund }

func (r *testRules) GetRules(uint64) Rules { return r }

type testHandler struct {
	BaseHandler

	name     string
	kind     Kind
	deps     []Kind
	attrs    []string
	inactive bool

	bootstrapped *recorder
}

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = append(r.names, name)
}

func (h *testHandler) Name() string { return h.name }
func (h *testHandler) Kind() Kind { return h.kind }
func (h *testHandler) Dependencies() []Kind { return h.deps }
func (h *testHandler) WalletAttributes() []string { return h.attrs }
func (h *testHandler) IsActivated(Rules) bool { return !h.inactive }

func (h *testHandler) Bootstrap(context.Context, *BootstrapEnv) error {
	if h.bootstrapped == nil {
		return nil
	}
	h.bootstrapped.record(h.name)
	return nil
}

func newTransferHandler() *testHandler {
	return &testHandler{name: "transfer", kind: transferKind}
}

func testAddress(publicKey string) (string, error) {
	return "addr-" + publicKey, nil
}

func newTestRepository(t *testing.T, handlers ...Handler) (*Registry, *state.Canonical) {
	require := require.New(t)

	registry, err := NewRegistry(handlers...)
	require.NoError(err)
	repo, err := state.New(registry.Attributes(), testAddress, registry.Indexers()...)
	require.NoError(err)
	return registry, repo
}

func newTestDispatcher(t *testing.T, rules *testRules, emitter Emitter, handlers ...Handler) *Dispatcher {
	require := require.New(t)

	registry, repo := newTestRepository(t, handlers...)
	tracer, err := trace.New(&trace.Config{})
	require.NoError(err)
	d, err := NewDispatcher(logging.NoLog{}, tracer, registry, rules, repo, emitter, prometheus.NewRegistry())
	require.NoError(err)
	return d
}

func fund(repo state.Repository, address string, amount uint64) *wallet.Wallet {
	w := repo.FindByAddress(address)
	_ = w.IncreaseBalance(uint256.NewInt(amount))
	return w
}

func newTransfer(sender string, recipient string, nonce uint64, amount uint64, fee uint64) *Transaction {
	tx := &Transaction{
		ID:          ids.GenerateTestID(),
		Kind:        transferKind,
		SenderID:    sender,
		RecipientID: recipient,
		Nonce:       nonce,
	}
	tx.Amount.SetUint64(amount)
	tx.Fee.SetUint64(fee)
	return tx
}

type sliceHistory []*Transaction

func (h sliceHistory) FetchByCriteria(_ context.Context, c Criteria) (TxIterator, error) {
	var txs []*Transaction
	for _, tx := range h {
		if c.Matches(tx) {
			txs = append(txs, tx)
		}
	}
	return &sliceIterator{txs: txs, i: -1}, nil
}

type sliceIterator struct {
	txs []*Transaction
	i   int
}

func (it *sliceIterator) Next() bool {
	it.i++
	return it.i < len(it.txs)
}

func (it *sliceIterator) Transaction() *Transaction { return it.txs[it.i] }

func (*sliceIterator) Error() error { return nil }

func (*sliceIterator) Release() {}

type testPool struct {
	pending []*Transaction
}

func (p *testPool) Admit(_ context.Context, tx *Transaction, check func(PoolQuery) error) error {
	if err := check(p); err != nil {
		return err
	}
	p.pending = append(p.pending, tx)
	return nil
}

func (p *testPool) GetAll() PoolCursor {
	return testCursor(p.pending)
}

func (p *testPool) GetAllBySender(address string) PoolCursor {
	return testCursor(p.pending).WherePredicate(func(tx *Transaction) bool {
		return tx.SenderID == address
	})
}

type testCursor []*Transaction

func (c testCursor) WhereKind(tx *Transaction) PoolCursor {
	return c.WherePredicate(func(o *Transaction) bool { return o.Kind == tx.Kind })
}

func (c testCursor) WherePredicate(fn func(*Transaction) bool) PoolCursor {
	var out testCursor
	for _, tx := range c {
		if fn(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (c testCursor) Has() bool { return len(c) > 0 }
func (c testCursor) All() []*Transaction { return c }
