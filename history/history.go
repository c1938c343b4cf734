// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package history stores confirmed transactions and forged block summaries,
// the inputs of a ledger bootstrap.
package history

import (
	"context"
	"errors"

	"github.com/ava-labs/dposledger/chain"
)

var (
	ErrHeightNotIncreasing = errors.New("block height not increasing")
	ErrNotLatestBlock      = errors.New("not the latest block")
	ErrUnknownProducer     = errors.New("unknown block producer")
	ErrSummaryUnderflow    = errors.New("forged summary underflow")
)

// History is an append-only log of confirmed blocks that can drop its latest
// block.
type History interface {
	chain.TransactionHistory

	// Append records the transactions of block [height] in block order,
	// together with its producer's credit when [p] is not nil.
	Append(ctx context.Context, height uint64, txs []*chain.Transaction, p *Production) error
	// Truncate removes block [height], which must be the latest.
	Truncate(ctx context.Context, height uint64) error
	// LastHeight returns the latest appended height, if any.
	LastHeight() (uint64, bool)
	// Productions returns every recorded producer credit by height.
	Productions(ctx context.Context) ([]*Production, error)
}

// Production is what the producer of one block is credited with.
type Production struct {
	Summary *chain.ForgedSummary
	Last    *chain.LastForgedBlock
}

// LoadSummaries folds every production of [h] into a new [Summaries].
func LoadSummaries(ctx context.Context, h History) (*Summaries, error) {
	ps, err := h.Productions(ctx)
	if err != nil {
		return nil, err
	}
	s := NewSummaries()
	for _, p := range ps {
		s.Add(p.Summary, p.Last)
	}
	return s, nil
}

// sliceIterator walks an in-memory snapshot.
type sliceIterator struct {
	txs []*chain.Transaction
	i   int
}

func newSliceIterator(txs []*chain.Transaction) *sliceIterator {
	return &sliceIterator{txs: txs, i: -1}
}

func (it *sliceIterator) Next() bool {
	if it.i+1 >= len(it.txs) {
		it.i = len(it.txs)
		return false
	}
	it.i++
	return true
}

func (it *sliceIterator) Transaction() *chain.Transaction {
	if it.i < 0 || it.i >= len(it.txs) {
		return nil
	}
	return it.txs[it.i]
}

func (*sliceIterator) Error() error { return nil }

func (it *sliceIterator) Release() {
	it.txs = nil
}
