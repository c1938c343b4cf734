// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mempool holds transactions admitted ahead of block inclusion.
package mempool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/list"
	"github.com/ava-labs/dposledger/lockmap"
)

var (
	_ chain.Pool      = (*Mempool)(nil)
	_ chain.PoolQuery = (*Mempool)(nil)

	ErrDuplicate   = errors.New("transaction already in pool")
	ErrFull        = errors.New("pool is full")
	ErrSenderLimit = errors.New("sender has too many pending transactions")
)

type entry struct {
	tx *chain.Transaction
}

func (e *entry) ID() ids.ID {
	return e.tx.ID
}

type pending struct {
	all *list.Element[*entry]
	own *list.Element[*entry]
}

type Config struct {
	MaxSize       int      `yaml:"maxSize"`
	MaxSenderSize int      `yaml:"maxSenderSize"`
	ExemptSenders []string `yaml:"exemptSenders"`
}

func NewDefaultConfig() Config {
	return Config{
		MaxSize:       100_000,
		MaxSenderSize: 150,
	}
}

// Mempool keeps admission order overall and per sender. Admission of
// transactions sharing a kind or a sender is serialized, so the checks of
// one admission always observe the result of the previous one.
type Mempool struct {
	tracer  trace.Tracer
	log     logging.Logger
	metrics *metrics
	locks   *lockmap.Lockmap

	mu sync.RWMutex

	maxSize       int
	maxSenderSize int
	exempt        set.Set[string]

	all      list.List[*entry]
	bySender map[string]*list.List[*entry]
	entries  map[ids.ID]*pending
}

func New(
	tracer trace.Tracer,
	log logging.Logger,
	cfg Config,
	r prometheus.Registerer,
) (*Mempool, error) {
	m, err := newMetrics(r)
	if err != nil {
		return nil, err
	}
	return &Mempool{
		tracer:        tracer,
		log:           log,
		metrics:       m,
		locks:         lockmap.New(64),
		maxSize:       cfg.MaxSize,
		maxSenderSize: cfg.MaxSenderSize,
		exempt:        set.Of(cfg.ExemptSenders...),
		bySender:      map[string]*list.List[*entry]{},
		entries:       map[ids.ID]*pending{},
	}, nil
}

// admissionKeys serializes admissions that could see each other's
// transaction in their pool checks.
func admissionKeys(tx *chain.Transaction) []string {
	return append([]string{
		fmt.Sprintf("kind/%d/%d", tx.Kind.Group, tx.Kind.Type),
		"sender/" + tx.SenderID,
	}, tx.Claims()...)
}

// Admit runs [check] against the pool and stores [tx] if it passes.
func (m *Mempool) Admit(ctx context.Context, tx *chain.Transaction, check func(chain.PoolQuery) error) error {
	_, span := m.tracer.Start(ctx, "Mempool.Admit")
	defer span.End()

	unlock := m.locks.LockAll(admissionKeys(tx)...)
	defer unlock()

	if m.Has(tx.ID) {
		m.metrics.rejected.Inc()
		return fmt.Errorf("%w: %s", ErrDuplicate, tx.ID)
	}
	if err := check(m); err != nil {
		m.metrics.rejected.Inc()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.all.Size() >= m.maxSize {
		m.metrics.rejected.Inc()
		return fmt.Errorf("%w: %d transactions", ErrFull, m.all.Size())
	}
	if own, ok := m.bySender[tx.SenderID]; ok && own.Size() >= m.maxSenderSize && !m.exempt.Contains(tx.SenderID) {
		m.metrics.rejected.Inc()
		return fmt.Errorf("%w: %s", ErrSenderLimit, tx.SenderID)
	}
	m.push(tx, false)
	m.metrics.admitted.Inc()
	m.log.Debug("admitted transaction",
		zap.Stringer("txID", tx.ID),
		zap.String("sender", tx.SenderID),
	)
	return nil
}

// assumes [m.mu] is held
func (m *Mempool) push(tx *chain.Transaction, front bool) {
	e := &entry{tx: tx}
	own, ok := m.bySender[tx.SenderID]
	if !ok {
		own = &list.List[*entry]{}
		m.bySender[tx.SenderID] = own
	}
	p := &pending{}
	if front {
		p.all = m.all.PushFront(e)
		p.own = own.PushFront(e)
	} else {
		p.all = m.all.PushBack(e)
		p.own = own.PushBack(e)
	}
	m.entries[tx.ID] = p
	m.metrics.size.Set(float64(m.all.Size()))
}

// assumes [m.mu] is held
func (m *Mempool) remove(id ids.ID) bool {
	p, ok := m.entries[id]
	if !ok {
		return false
	}
	delete(m.entries, id)
	tx := m.all.Remove(p.all).tx
	own := m.bySender[tx.SenderID]
	own.Remove(p.own)
	if own.Size() == 0 {
		delete(m.bySender, tx.SenderID)
	}
	m.metrics.size.Set(float64(m.all.Size()))
	return true
}

// Restore puts the transactions of a reverted block back in front of the
// pool, keeping their block order. Limits are not enforced.
func (m *Mempool) Restore(ctx context.Context, txs []*chain.Transaction) {
	_, span := m.tracer.Start(ctx, "Mempool.Restore")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(txs) - 1; i >= 0; i-- {
		if _, ok := m.entries[txs[i].ID]; ok {
			continue
		}
		m.push(txs[i], true)
	}
}

// Remove drops [txs], typically because a block included them.
func (m *Mempool) Remove(ctx context.Context, txs []*chain.Transaction) int {
	_, span := m.tracer.Start(ctx, "Mempool.Remove")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, tx := range txs {
		if m.remove(tx.ID) {
			removed++
		}
	}
	return removed
}

// RemoveStale drops the pending transactions of [sender] whose nonce is not
// above [nonce].
func (m *Mempool) RemoveStale(ctx context.Context, sender string, nonce uint64) int {
	_, span := m.tracer.Start(ctx, "Mempool.RemoveStale")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	own, ok := m.bySender[sender]
	if !ok {
		return 0
	}
	var stale []ids.ID
	for _, e := range own.Values() {
		if e.tx.Nonce <= nonce {
			stale = append(stale, e.tx.ID)
		}
	}
	for _, id := range stale {
		m.remove(id)
	}
	if len(stale) > 0 {
		m.log.Debug("removed stale transactions",
			zap.String("sender", sender),
			zap.Int("count", len(stale)),
		)
	}
	return len(stale)
}

// RemoveSender drops every pending transaction of [sender].
func (m *Mempool) RemoveSender(ctx context.Context, sender string) int {
	_, span := m.tracer.Start(ctx, "Mempool.RemoveSender")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	own, ok := m.bySender[sender]
	if !ok {
		return 0
	}
	values := own.Values()
	for _, e := range values {
		m.remove(e.tx.ID)
	}
	return len(values)
}

func (m *Mempool) Has(id ids.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[id]
	return ok
}

func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.all.Size()
}

// GetAll returns a cursor over a snapshot of the pool in admission order.
func (m *Mempool) GetAll() chain.PoolCursor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return newCursor(values(&m.all))
}

func (m *Mempool) GetAllBySender(address string) chain.PoolCursor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	own, ok := m.bySender[address]
	if !ok {
		return newCursor(nil)
	}
	return newCursor(values(own))
}

func values(l *list.List[*entry]) []*chain.Transaction {
	out := make([]*chain.Transaction, 0, l.Size())
	for e := l.First(); e != nil; e = e.Next() {
		out = append(out, e.Value().tx)
	}
	return out
}
