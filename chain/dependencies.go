// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"slices"

	"github.com/holiman/uint256"
)

// Criteria selects confirmed transactions. An empty criteria matches
// everything.
type Criteria struct {
	Kinds []Kind
}

func (c Criteria) Matches(tx *Transaction) bool {
	return len(c.Kinds) == 0 || slices.Contains(c.Kinds, tx.Kind)
}

// TxIterator yields confirmed transactions in canonical order.
type TxIterator interface {
	Next() bool
	Transaction() *Transaction
	Error() error
	Release()
}

type TransactionHistory interface {
	FetchByCriteria(ctx context.Context, c Criteria) (TxIterator, error)
}

// ForgedSummary aggregates the blocks produced by one delegate.
type ForgedSummary struct {
	Username        string
	TotalFees       uint256.Int
	TotalFeesBurned uint256.Int
	TotalRewards    uint256.Int
	Donations       uint256.Int
	TotalProduced   uint64
}

type LastForgedBlock struct {
	Username  string
	Height    uint64
	ID        string
	Reward    uint256.Int
	Donations uint256.Int
}

type BlockSummarySource interface {
	DelegatesForgedBlocks(ctx context.Context) ([]*ForgedSummary, error)
	LastForgedBlocks(ctx context.Context) ([]*LastForgedBlock, error)
}

// PoolCursor is a lazy filter over pending transactions.
type PoolCursor interface {
	// WhereKind keeps transactions of the same kind as [tx].
	WhereKind(tx *Transaction) PoolCursor
	WherePredicate(fn func(*Transaction) bool) PoolCursor
	Has() bool
	All() []*Transaction
}

type PoolQuery interface {
	GetAll() PoolCursor
	GetAllBySender(address string) PoolCursor
}

// Pool admits transactions. [check] runs while the pool holds the admission
// lock of the transaction's group, so concurrent submissions of conflicting
// transactions are serialized.
type Pool interface {
	Admit(ctx context.Context, tx *Transaction, check func(PoolQuery) error) error
}

type SignatureVerifier interface {
	Verify(msg []byte, publicKey string, signature string) bool
}
