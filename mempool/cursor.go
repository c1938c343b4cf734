// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import "github.com/ava-labs/dposledger/chain"

var _ chain.PoolCursor = (*cursor)(nil)

// cursor filters a snapshot lazily: predicates run on [Has] and [All].
type cursor struct {
	txs     []*chain.Transaction
	filters []func(*chain.Transaction) bool
}

func newCursor(txs []*chain.Transaction) *cursor {
	return &cursor{txs: txs}
}

func (c *cursor) where(fn func(*chain.Transaction) bool) chain.PoolCursor {
	filters := make([]func(*chain.Transaction) bool, len(c.filters), len(c.filters)+1)
	copy(filters, c.filters)
	return &cursor{txs: c.txs, filters: append(filters, fn)}
}

func (c *cursor) WhereKind(tx *chain.Transaction) chain.PoolCursor {
	kind := tx.Kind
	return c.where(func(p *chain.Transaction) bool {
		return p.Kind == kind
	})
}

func (c *cursor) WherePredicate(fn func(*chain.Transaction) bool) chain.PoolCursor {
	return c.where(fn)
}

func (c *cursor) matches(tx *chain.Transaction) bool {
	for _, f := range c.filters {
		if !f(tx) {
			return false
		}
	}
	return true
}

func (c *cursor) Has() bool {
	for _, tx := range c.txs {
		if c.matches(tx) {
			return true
		}
	}
	return false
}

func (c *cursor) All() []*chain.Transaction {
	var out []*chain.Transaction
	for _, tx := range c.txs {
		if c.matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}
