// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/holiman/uint256"
	"github.com/neilotoole/errgroup"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

// Allocation is a genesis balance.
type Allocation struct {
	Address   string
	PublicKey string
	Balance   uint256.Int
}

type BootstrapSources struct {
	History     TransactionHistory
	Summaries   BlockSummarySource
	Allocations []*Allocation
	// Parallelism bounds the handler groups bootstrapped at once. Zero uses
	// every CPU.
	Parallelism int
}

// Dispatcher routes transactions to their handler and keeps the canonical
// repository consistent. Every batch runs on a view that is committed only
// if all of its transactions succeed.
type Dispatcher struct {
	log      logging.Logger
	tracer   trace.Tracer
	registry *Registry
	rules    RuleFactory
	repo     *state.Canonical
	emitter  Emitter
	metrics  *dispatcherMetrics

	// held for writing while a batch is applied and for reading while
	// pool admission simulates against the repository
	mu sync.RWMutex
}

func NewDispatcher(
	log logging.Logger,
	tracer trace.Tracer,
	registry *Registry,
	rules RuleFactory,
	repo *state.Canonical,
	emitter Emitter,
	reg prometheus.Registerer,
) (*Dispatcher, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		log:      log,
		tracer:   tracer,
		registry: registry,
		rules:    rules,
		repo:     repo,
		emitter:  emitter,
		metrics:  m,
	}, nil
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) Repository() *state.Canonical {
	return d.repo
}

func (d *Dispatcher) Rules(height uint64) Rules {
	return d.rules.GetRules(height)
}

func (d *Dispatcher) Apply(ctx context.Context, tx *Transaction) error {
	return d.ApplyBlock(ctx, []*Transaction{tx})
}

func (d *Dispatcher) Revert(ctx context.Context, tx *Transaction) error {
	return d.RevertBlock(ctx, []*Transaction{tx})
}

// ApplyBlock applies [txs] in order. Either every transaction is applied or
// the repository is left untouched.
func (d *Dispatcher) ApplyBlock(ctx context.Context, txs []*Transaction) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.ApplyBlock")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	view := d.repo.Clone()
	buf := &BufferedEmitter{}
	for i, tx := range txs {
		if err := d.apply(ctx, view, tx, buf); err != nil {
			d.metrics.txsRejected.Inc()
			return fmt.Errorf("apply tx %d (%s): %w", i, tx.ID, err)
		}
	}
	if err := view.Commit(); err != nil {
		return err
	}
	d.metrics.txsApplied.Add(float64(len(txs)))
	d.metrics.applyBlock.Observe(float64(time.Since(start)))
	buf.Flush(d.emitter)
	return nil
}

// RevertBlock reverts [txs], given in the order they were applied.
func (d *Dispatcher) RevertBlock(ctx context.Context, txs []*Transaction) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.RevertBlock")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()

	view := d.repo.Clone()
	buf := &BufferedEmitter{}
	for i := len(txs) - 1; i >= 0; i-- {
		if err := d.revert(ctx, view, txs[i], buf); err != nil {
			return fmt.Errorf("revert tx %d (%s): %w", i, txs[i].ID, err)
		}
	}
	if err := view.Commit(); err != nil {
		return err
	}
	d.metrics.txsReverted.Add(float64(len(txs)))
	buf.Flush(d.emitter)
	return nil
}

// DryRun validates and applies [tx] on a throwaway view.
func (d *Dispatcher) DryRun(ctx context.Context, tx *Transaction) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.DryRun")
	defer span.End()

	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.apply(ctx, d.repo.Clone(), tx, nil)
}

// AdmitToPool runs the handler's pool checks and then simulates [tx] on top
// of the sender's pending transactions.
func (d *Dispatcher) AdmitToPool(ctx context.Context, tx *Transaction, pool Pool) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.AdmitToPool")
	defer span.End()

	h, err := d.registry.Get(tx.Kind)
	if err != nil {
		return err
	}
	if r := d.rules.GetRules(tx.BlockHeight); !h.IsActivated(r) {
		d.metrics.poolRejected.Inc()
		return fmt.Errorf("%w: %s at height %d", ErrDeactivated, h.Name(), tx.BlockHeight)
	}
	err = pool.Admit(ctx, tx, func(q PoolQuery) error {
		if err := h.VerifyPoolEntry(ctx, tx, q); err != nil {
			return err
		}
		return d.simulate(ctx, tx, q)
	})
	if err != nil {
		d.metrics.poolRejected.Inc()
		d.log.Debug("transaction refused by pool",
			zap.Stringer("txID", tx.ID),
			zap.String("handler", h.Name()),
			zap.Error(err),
		)
	}
	return err
}

func (d *Dispatcher) simulate(ctx context.Context, tx *Transaction, q PoolQuery) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	view := d.repo.Clone()
	for _, pending := range q.GetAllBySender(tx.SenderID).All() {
		if err := d.apply(ctx, view, pending, nil); err != nil {
			return fmt.Errorf("pending tx %s: %w", pending.ID, err)
		}
	}
	return d.apply(ctx, view, tx, nil)
}

func (d *Dispatcher) apply(ctx context.Context, repo state.Repository, tx *Transaction, em Emitter) error {
	h, err := d.registry.Get(tx.Kind)
	if err != nil {
		return err
	}
	r := d.rules.GetRules(tx.BlockHeight)
	if !h.IsActivated(r) {
		return fmt.Errorf("%w: %s at height %d", ErrDeactivated, h.Name(), tx.BlockHeight)
	}
	if tx.SenderID == "" {
		return ErrMissingSender
	}

	sender := repo.FindByAddress(tx.SenderID)
	if err := h.VerifyApply(ctx, r, tx, sender, repo); err != nil {
		return err
	}
	if err := h.ApplyToSender(ctx, r, tx, repo); err != nil {
		return d.corrupted("apply", h, tx, err)
	}
	if err := h.ApplyToRecipient(ctx, r, tx, repo); err != nil {
		return d.corrupted("apply", h, tx, err)
	}

	if em != nil {
		h.EmitEvents(tx, repo, em)
		em.Dispatch(TransactionApplied, EventPayload{Transaction: tx})
	}
	return nil
}

func (d *Dispatcher) revert(ctx context.Context, repo state.Repository, tx *Transaction, em Emitter) error {
	h, err := d.registry.Get(tx.Kind)
	if err != nil {
		return err
	}
	r := d.rules.GetRules(tx.BlockHeight)
	if err := h.RevertForSender(ctx, r, tx, repo); err != nil {
		return d.corrupted("revert", h, tx, err)
	}
	if err := h.RevertForRecipient(ctx, r, tx, repo); err != nil {
		return d.corrupted("revert", h, tx, err)
	}
	if em != nil {
		em.Dispatch(TransactionReverted, EventPayload{Transaction: tx})
	}
	return nil
}

// corrupted reports a failure after validation passed. The batch view is
// discarded by the caller.
func (d *Dispatcher) corrupted(op string, h Handler, tx *Transaction, err error) error {
	d.log.Error("ledger batch corrupted",
		zap.String("op", op),
		zap.String("handler", h.Name()),
		zap.Stringer("txID", tx.ID),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s %s: %w", ErrCorruptedBatch, op, h.Name(), err)
}

// ApplyForged folds a produced block into its delegate.
func (d *Dispatcher) ApplyForged(ctx context.Context, s *ForgedSummary, last *LastForgedBlock) error {
	_, span := d.tracer.Start(ctx, "Dispatcher.ApplyForged")
	defer span.End()

	return d.updateDelegate(s.Username, func(del *wallet.Delegate) error {
		s.AddTo(del)
		if last != nil {
			del.LastBlock = last.LastBlock()
		}
		return nil
	})
}

// RevertForged undoes [ApplyForged]. [previous] becomes the delegate's last
// block and may be nil.
func (d *Dispatcher) RevertForged(ctx context.Context, s *ForgedSummary, previous *LastForgedBlock) error {
	_, span := d.tracer.Start(ctx, "Dispatcher.RevertForged")
	defer span.End()

	return d.updateDelegate(s.Username, func(del *wallet.Delegate) error {
		if err := s.SubtractFrom(del); err != nil {
			return err
		}
		del.LastBlock = previous.LastBlock()
		return nil
	})
}

// SetRanks stores externally computed ranks. Delegates missing from [ranks]
// become unranked. All ranks are committed together.
func (d *Dispatcher) SetRanks(ctx context.Context, ranks map[string]uint32) error {
	_, span := d.tracer.Start(ctx, "Dispatcher.SetRanks")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()

	view := d.repo.Clone()
	for username := range ranks {
		if _, err := view.FindByUsername(username); err != nil {
			return err
		}
	}
	for _, w := range state.Collect(d.repo.AllByUsername()) {
		del, ok := wallet.DelegateKey.Get(w)
		if !ok || del.Rank == ranks[del.Username] {
			continue
		}
		del, _ = wallet.DelegateKey.Get(view.FindByAddress(w.Address()))
		del.Rank = ranks[del.Username]
	}
	return view.Commit()
}

func (d *Dispatcher) updateDelegate(username string, fn func(*wallet.Delegate) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	view := d.repo.Clone()
	w, err := view.FindByUsername(username)
	if err != nil {
		return err
	}
	del, ok := wallet.DelegateKey.Get(w)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWalletNotADelegate, username)
	}
	if err := fn(del); err != nil {
		return err
	}
	return view.Commit()
}

// Bootstrap rebuilds the repository from genesis and confirmed history. The
// base effects of every transaction are replayed first so balances, nonces
// and public keys are final before handlers rebuild their attributes.
func (d *Dispatcher) Bootstrap(ctx context.Context, src BootstrapSources) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.Bootstrap")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	plan, err := d.registry.BootstrapPlan()
	if err != nil {
		return err
	}

	for _, a := range src.Allocations {
		w := d.repo.FindByAddress(a.Address)
		if err := w.IncreaseBalance(&a.Balance); err != nil {
			return err
		}
		if a.PublicKey != "" && w.RevealPrimaryKey(a.PublicKey, 0) {
			if err := d.repo.Reindex(w); err != nil {
				return err
			}
		}
	}

	replayed, err := replay(ctx, src.History, Criteria{}, func(tx *Transaction) error {
		if _, err := d.registry.Get(tx.Kind); err != nil {
			return err
		}
		if err := ApplyBaseToSender(tx, d.repo); err != nil {
			return err
		}
		return ApplyBaseToRecipient(tx, d.repo)
	})
	if err != nil {
		return fmt.Errorf("replay base effects: %w", err)
	}
	d.metrics.txsReplayed.Add(float64(replayed))

	env := &BootstrapEnv{
		Repository: d.repo,
		History:    src.History,
		Summaries:  src.Summaries,
		Rules:      d.rules,
		Log:        d.log,
	}
	for i, level := range plan {
		g, gctx := errgroup.WithContextN(ctx, src.Parallelism, 0)
		for _, group := range level {
			group := group
			g.Go(func() error {
				for _, h := range group {
					if err := h.Bootstrap(gctx, env); err != nil {
						return fmt.Errorf("bootstrap %s: %w", h.Name(), err)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		d.log.Debug("bootstrapped handler level",
			zap.Int("level", i),
			zap.Int("groups", len(level)),
		)
	}

	elapsed := time.Since(start)
	d.metrics.bootstrap.Observe(float64(elapsed))
	d.log.Info("bootstrapped ledger",
		zap.Int("allocations", len(src.Allocations)),
		zap.Int("transactions", replayed),
		zap.Int("wallets", d.repo.Len()),
		zap.Duration("t", elapsed),
	)
	return nil
}
