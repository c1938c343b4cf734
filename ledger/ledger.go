// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger assembles the wallet repository, the transaction handlers
// and their collaborators into a ledger that accepts blocks and pending
// transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/codec"
	"github.com/ava-labs/dposledger/config"
	"github.com/ava-labs/dposledger/crypto/ed25519"
	"github.com/ava-labs/dposledger/delegates"
	"github.com/ava-labs/dposledger/event"
	"github.com/ava-labs/dposledger/genesis"
	"github.com/ava-labs/dposledger/handlers"
	"github.com/ava-labs/dposledger/history"
	"github.com/ava-labs/dposledger/mempool"
	"github.com/ava-labs/dposledger/pebble"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/utils"

	ledgerlogging "github.com/ava-labs/dposledger/internal/logging"
	ledgertrace "github.com/ava-labs/dposledger/trace"
)

var (
	ErrNotBootstrapped = errors.New("ledger not bootstrapped")
	ErrUnexpectedBlock = errors.New("unexpected block")
)

// Block is a confirmed block as the ledger sees it. Generator is the
// username of the producing delegate and may be empty for blocks without a
// registered producer.
type Block struct {
	Height       uint64
	ID           string
	Generator    string
	Reward       uint256.Int
	TotalFees    uint256.Int
	BurnedFees   uint256.Int
	Transactions []*chain.Transaction
}

type Ledger struct {
	log    logging.Logger
	tracer trace.Tracer
	cfg    *config.Config

	genesis   *genesis.Genesis
	rules     *genesis.RuleFactory
	repo      *state.Canonical
	d         *chain.Dispatcher
	pool      *mempool.Mempool
	bus       *event.Bus
	history   history.History
	summaries *history.Summaries
	delegates *delegates.Service

	db       *pebble.Database
	gatherer prometheus.Gatherers

	// serializes block application, reversion and bootstrap
	mu           sync.Mutex
	bootstrapped bool
	height       uint64
}

// Open loads the configured genesis and builds a ledger.
func Open(cfg *config.Config, subs ...event.Subscription) (*Ledger, error) {
	g := genesis.NewDefaultGenesis()
	if len(cfg.GenesisPath) > 0 {
		var err error
		g, err = genesis.Load(cfg.GenesisPath)
		if err != nil {
			return nil, fmt.Errorf("loading genesis: %w", err)
		}
	}
	return New(cfg, g, subs...)
}

func New(cfg *config.Config, g *genesis.Genesis, subs ...event.Subscription) (*Ledger, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	if err := g.Verify(); err != nil {
		return nil, err
	}
	log, err := ledgerlogging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	tracer, err := ledgertrace.New(&cfg.Trace)
	if err != nil {
		return nil, err
	}
	rules, err := g.RuleFactory()
	if err != nil {
		return nil, err
	}

	registry, err := chain.NewRegistry(handlers.Default(ed25519.Verifier{})...)
	if err != nil {
		return nil, err
	}
	hrp := g.HRP
	repo, err := state.New(registry.Attributes(), func(publicKey string) (string, error) {
		return codec.AddressFromHexKey(hrp, publicKey)
	}, registry.Indexers()...)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	l := &Ledger{
		log:       log,
		tracer:    tracer,
		cfg:       cfg,
		genesis:   g,
		rules:     rules,
		repo:      repo,
		gatherer:  prometheus.Gatherers{reg},
	}
	l.bus = event.NewBus(log, cfg.Events, subs...)
	l.d, err = chain.NewDispatcher(log, tracer, registry, rules, repo, l.bus, reg)
	if err != nil {
		return nil, l.closeAfter(err)
	}
	l.pool, err = mempool.New(tracer, log, cfg.Mempool, reg)
	if err != nil {
		return nil, l.closeAfter(err)
	}
	if len(cfg.HistoryDirectory) == 0 {
		l.history = history.NewMemory()
	} else {
		db, dbReg, err := pebble.New(cfg.HistoryDirectory, cfg.Pebble)
		if err != nil {
			return nil, l.closeAfter(err)
		}
		l.db = db
		l.gatherer = append(l.gatherer, dbReg)
		l.history, err = history.New(log, db, reg)
		if err != nil {
			return nil, l.closeAfter(err)
		}
	}
	l.delegates = delegates.New(tracer, repo)
	return l, nil
}

func (l *Ledger) closeAfter(err error) error {
	return errors.Join(err, l.Close())
}

// Bootstrap rebuilds every wallet from the genesis allocations and the
// confirmed history. It runs once.
func (l *Ledger) Bootstrap(ctx context.Context) error {
	ctx, span := l.tracer.Start(ctx, "Ledger.Bootstrap")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bootstrapped {
		return nil
	}
	allocations, err := l.genesis.ChainAllocations()
	if err != nil {
		return err
	}
	summaries, err := history.LoadSummaries(ctx, l.history)
	if err != nil {
		return err
	}
	l.summaries = summaries
	if err := l.d.Bootstrap(ctx, chain.BootstrapSources{
		History:     l.history,
		Summaries:   l.summaries,
		Allocations: allocations,
		Parallelism: l.cfg.BootstrapParallelism,
	}); err != nil {
		l.log.Error("bootstrap failed", zap.Error(err))
		return err
	}
	l.height, _ = l.history.LastHeight()
	l.bootstrapped = true
	l.log.Info("ledger bootstrapped",
		zap.Uint64("height", l.height),
		zap.Int("wallets", l.repo.Len()),
	)
	return nil
}

// SubmitTransaction admits [tx] to the pool if it would apply on top of the
// current state and the sender's pending transactions. [tx] is evaluated at
// the next block height.
func (l *Ledger) SubmitTransaction(ctx context.Context, tx *chain.Transaction) error {
	ctx, span := l.tracer.Start(ctx, "Ledger.SubmitTransaction")
	defer span.End()

	l.mu.Lock()
	if !l.bootstrapped {
		l.mu.Unlock()
		return ErrNotBootstrapped
	}
	next := l.height + 1
	l.mu.Unlock()

	pending := *tx
	pending.BlockHeight = next
	return l.d.AdmitToPool(ctx, &pending, l.pool)
}

// ApplyBlock applies every transaction of [b] or none, records the block in
// the history and credits its producer.
func (l *Ledger) ApplyBlock(ctx context.Context, b *Block) error {
	ctx, span := l.tracer.Start(ctx, "Ledger.ApplyBlock")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.bootstrapped {
		return ErrNotBootstrapped
	}
	if b.Height <= l.height {
		return fmt.Errorf("%w: height %d at %d", ErrUnexpectedBlock, b.Height, l.height)
	}
	for _, tx := range b.Transactions {
		if tx.BlockHeight != b.Height {
			return fmt.Errorf("%w: tx %s at height %d in block %d", ErrUnexpectedBlock, tx.ID, tx.BlockHeight, b.Height)
		}
	}
	if err := l.d.ApplyBlock(ctx, b.Transactions); err != nil {
		return err
	}
	var p *history.Production
	if len(b.Generator) > 0 {
		summary, last := l.forged(b)
		p = &history.Production{Summary: summary, Last: last}
	}
	if err := l.history.Append(ctx, b.Height, b.Transactions, p); err != nil {
		return l.undo(ctx, b, err)
	}
	if p != nil {
		if err := l.d.ApplyForged(ctx, p.Summary, p.Last); err != nil {
			if terr := l.history.Truncate(ctx, b.Height); terr != nil {
				err = errors.Join(err, terr)
			}
			return l.undo(ctx, b, err)
		}
		l.summaries.Add(p.Summary, p.Last)
	}
	l.height = b.Height

	l.pool.Remove(ctx, b.Transactions)
	for sender := range senders(b.Transactions) {
		l.pool.RemoveStale(ctx, sender, l.repo.FindByAddress(sender).Nonce())
	}
	l.log.Debug("applied block",
		zap.Uint64("height", b.Height),
		zap.String("generator", b.Generator),
		zap.String("reward", utils.FormatBalance(&b.Reward)),
		zap.Int("txs", len(b.Transactions)),
	)
	return nil
}

// undo reverts the transactions of a block whose bookkeeping failed.
func (l *Ledger) undo(ctx context.Context, b *Block, cause error) error {
	if err := l.d.RevertBlock(ctx, b.Transactions); err != nil {
		l.log.Error("failed to undo block",
			zap.Uint64("height", b.Height),
			zap.Error(err),
		)
		return errors.Join(cause, err)
	}
	return cause
}

// RevertBlock undoes the latest block. Its transactions return to the pool.
func (l *Ledger) RevertBlock(ctx context.Context, b *Block) error {
	ctx, span := l.tracer.Start(ctx, "Ledger.RevertBlock")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.bootstrapped {
		return ErrNotBootstrapped
	}
	if b.Height != l.height {
		return fmt.Errorf("%w: reverting %d at %d", ErrUnexpectedBlock, b.Height, l.height)
	}
	var p *history.Production
	if len(b.Generator) > 0 {
		summary, last := l.forged(b)
		previous, err := l.summaries.Remove(summary)
		if err != nil {
			return err
		}
		if err := l.d.RevertForged(ctx, summary, previous); err != nil {
			l.summaries.Add(summary, last)
			return err
		}
		p = &history.Production{Summary: summary, Last: last}
	}
	if err := l.d.RevertBlock(ctx, b.Transactions); err != nil {
		return l.recredit(ctx, b, p, err)
	}
	if err := l.history.Truncate(ctx, b.Height); err != nil {
		if aerr := l.d.ApplyBlock(ctx, b.Transactions); aerr != nil {
			err = errors.Join(err, aerr)
		}
		return l.recredit(ctx, b, p, err)
	}
	l.height, _ = l.history.LastHeight()
	l.pool.Restore(ctx, b.Transactions)
	return nil
}

// recredit restores the production [p] of a block whose reversion failed.
func (l *Ledger) recredit(ctx context.Context, b *Block, p *history.Production, cause error) error {
	if p == nil {
		return cause
	}
	if err := l.d.ApplyForged(ctx, p.Summary, p.Last); err != nil {
		l.log.Error("failed to restore producer",
			zap.Uint64("height", b.Height),
			zap.String("generator", b.Generator),
			zap.Error(err),
		)
		return errors.Join(cause, err)
	}
	l.summaries.Add(p.Summary, p.Last)
	return cause
}

// forged describes the producer's share of [b].
func (l *Ledger) forged(b *Block) (*chain.ForgedSummary, *chain.LastForgedBlock) {
	donations, _ := chain.Donations(l.rules.GetRules(b.Height), &b.Reward)
	summary := &chain.ForgedSummary{
		Username:        b.Generator,
		TotalFees:       b.TotalFees,
		TotalFeesBurned: b.BurnedFees,
		TotalRewards:    b.Reward,
		Donations:       *donations,
		TotalProduced:   1,
	}
	last := &chain.LastForgedBlock{
		Username:  b.Generator,
		Height:    b.Height,
		ID:        b.ID,
		Reward:    b.Reward,
		Donations: *donations,
	}
	return summary, last
}

func senders(txs []*chain.Transaction) map[string]struct{} {
	out := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		out[tx.SenderID] = struct{}{}
	}
	return out
}

func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.height
}

func (l *Ledger) Repository() *state.Canonical { return l.repo }

func (l *Ledger) Dispatcher() *chain.Dispatcher { return l.d }

func (l *Ledger) Mempool() *mempool.Mempool { return l.pool }

func (l *Ledger) Delegates() *delegates.Service { return l.delegates }

func (l *Ledger) Events() *event.Bus { return l.bus }

func (l *Ledger) Metrics() prometheus.Gatherer { return l.gatherer }

// Close flushes pending events and releases the history store.
func (l *Ledger) Close() error {
	var errs []error
	if l.bus != nil {
		errs = append(errs, l.bus.Close())
	}
	if l.db != nil {
		errs = append(errs, l.db.Close())
	}
	errs = append(errs, l.tracer.Close())
	l.log.Stop()
	return errors.Join(errs...)
}
