// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

// Handler validates and applies one transaction kind.
//
// Apply and revert are exact inverses: applying and then reverting a
// transaction leaves the repository unchanged. Validation runs before any
// mutation, so a rejected transaction has no effect.
type Handler interface {
	Name() string
	Kind() Kind
	// Dependencies are the kinds whose bootstrap must finish first.
	Dependencies() []Kind
	// WalletAttributes are the attribute paths this handler writes.
	WalletAttributes() []string
	IsActivated(r Rules) bool

	// Bootstrap rebuilds the handler's state from confirmed history.
	Bootstrap(ctx context.Context, env *BootstrapEnv) error

	VerifyPoolEntry(ctx context.Context, tx *Transaction, pool PoolQuery) error
	VerifyApply(ctx context.Context, r Rules, tx *Transaction, sender *wallet.Wallet, repo state.Repository) error

	ApplyToSender(ctx context.Context, r Rules, tx *Transaction, repo state.Repository) error
	ApplyToRecipient(ctx context.Context, r Rules, tx *Transaction, repo state.Repository) error
	RevertForSender(ctx context.Context, r Rules, tx *Transaction, repo state.Repository) error
	RevertForRecipient(ctx context.Context, r Rules, tx *Transaction, repo state.Repository) error

	EmitEvents(tx *Transaction, repo state.Repository, e Emitter)
}

// IndexProvider is implemented by handlers that maintain a secondary index.
type IndexProvider interface {
	Indexers() []state.Indexer
}

type BootstrapEnv struct {
	Repository state.Repository
	History    TransactionHistory
	Summaries  BlockSummarySource
	Rules      RuleFactory
	Log        logging.Logger
}

// Replay calls [fn] for every confirmed transaction of [kind] in canonical
// order and returns how many were visited.
func Replay(ctx context.Context, history TransactionHistory, kind Kind, fn func(*Transaction) error) (int, error) {
	return replay(ctx, history, Criteria{Kinds: []Kind{kind}}, fn)
}

func replay(ctx context.Context, history TransactionHistory, c Criteria, fn func(*Transaction) error) (int, error) {
	if history == nil {
		return 0, nil
	}
	it, err := history.FetchByCriteria(ctx, c)
	if err != nil {
		return 0, err
	}
	defer it.Release()

	n := 0
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		tx := it.Transaction()
		if err := fn(tx); err != nil {
			return n, fmt.Errorf("replay %s: %w", tx.ID, err)
		}
		n++
	}
	return n, it.Error()
}
