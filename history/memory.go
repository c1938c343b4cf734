// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/ava-labs/dposledger/chain"
)

var _ History = (*Memory)(nil)

type block struct {
	height uint64
	txs    []*chain.Transaction
	p      *Production
}

// Memory is a [History] kept in process memory.
type Memory struct {
	l      sync.RWMutex
	blocks []block
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, height uint64, txs []*chain.Transaction, p *Production) error {
	m.l.Lock()
	defer m.l.Unlock()

	if n := len(m.blocks); n > 0 && height <= m.blocks[n-1].height {
		return fmt.Errorf("%w: %d after %d", ErrHeightNotIncreasing, height, m.blocks[n-1].height)
	}
	m.blocks = append(m.blocks, block{
		height: height,
		txs:    append([]*chain.Transaction(nil), txs...),
		p:      p,
	})
	return nil
}

func (m *Memory) Truncate(_ context.Context, height uint64) error {
	m.l.Lock()
	defer m.l.Unlock()

	n := len(m.blocks)
	if n == 0 || m.blocks[n-1].height != height {
		return fmt.Errorf("%w: %d", ErrNotLatestBlock, height)
	}
	m.blocks[n-1] = block{}
	m.blocks = m.blocks[:n-1]
	return nil
}

func (m *Memory) LastHeight() (uint64, bool) {
	m.l.RLock()
	defer m.l.RUnlock()

	if len(m.blocks) == 0 {
		return 0, false
	}
	return m.blocks[len(m.blocks)-1].height, true
}

func (m *Memory) Productions(context.Context) ([]*Production, error) {
	m.l.RLock()
	defer m.l.RUnlock()

	var out []*Production
	for _, b := range m.blocks {
		if b.p != nil {
			out = append(out, b.p)
		}
	}
	return out, nil
}

func (m *Memory) FetchByCriteria(_ context.Context, c chain.Criteria) (chain.TxIterator, error) {
	m.l.RLock()
	defer m.l.RUnlock()

	var txs []*chain.Transaction
	for _, b := range m.blocks {
		for _, tx := range b.txs {
			if c.Matches(tx) {
				txs = append(txs, tx)
			}
		}
	}
	return newSliceIterator(txs), nil
}
