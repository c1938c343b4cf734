// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var _ chain.Handler = (*Transfer)(nil)

// Transfer moves an amount between wallets. Its effects are entirely the
// base ones, which the dispatcher replays before handler bootstrap.
type Transfer struct {
	chain.BaseHandler
}

func (*Transfer) Name() string {
	return "transfer"
}

func (*Transfer) Kind() chain.Kind {
	return TransferKind
}

func (t *Transfer) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	if tx.RecipientID == "" {
		return chain.ErrMissingRecipient
	}
	return t.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}
