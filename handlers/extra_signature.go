// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/crypto/ed25519"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var _ chain.Handler = (*ExtraSignature)(nil)

// ExtraSignature registers the wallet's extra key. Every later transaction
// of the wallet must carry a signature by that key.
type ExtraSignature struct {
	chain.BaseHandler
}

func (*ExtraSignature) Name() string {
	return "extraSignature"
}

func (*ExtraSignature) Kind() chain.Kind {
	return ExtraSignatureKind
}

func (*ExtraSignature) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	_, err := chain.Replay(ctx, env.History, ExtraSignatureKind, func(tx *chain.Transaction) error {
		key, err := extraKeyOf(tx)
		if err != nil {
			return err
		}
		w, err := sender(tx, repo)
		if err != nil {
			return err
		}
		if err := w.SetPublicKey(wallet.Extra, key); err != nil {
			return err
		}
		return repo.Reindex(w)
	})
	return err
}

func (*ExtraSignature) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("%s already has an extra signature transaction in the pool", tx.SenderID)
	}
	return nil
}

func (h *ExtraSignature) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	key, err := extraKeyOf(tx)
	if err != nil {
		return err
	}
	if _, ok := w.PublicKey(wallet.Extra); ok {
		return chain.ErrExtraSignatureAlreadyRegistered
	}
	if primary, ok := w.PublicKey(wallet.Primary); (ok && primary == key) || repo.HasByPublicKey(key, wallet.Extra) {
		return chain.ErrPublicKeyAlreadyAssociated
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *ExtraSignature) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := h.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	key, err := extraKeyOf(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	if err := w.SetPublicKey(wallet.Extra, key); err != nil {
		return fmt.Errorf("%w: %w", chain.ErrBrokenInvariant, err)
	}
	return repo.Reindex(w)
}

func (h *ExtraSignature) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	w.ForgetPublicKey(wallet.Extra)
	if err := repo.Reindex(w); err != nil {
		return err
	}
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*ExtraSignature) EmitEvents(tx *chain.Transaction, _ state.Repository, e chain.Emitter) {
	e.Dispatch(chain.ExtraSignatureRegistered, chain.EventPayload{Transaction: tx})
}

func extraKeyOf(tx *chain.Transaction) (string, error) {
	if tx.Asset == nil || tx.Asset.ExtraSignature == nil {
		return "", chain.ErrMissingAsset
	}
	key := tx.Asset.ExtraSignature.PublicKey
	if _, err := ed25519.ParsePublicKey(key); err != nil {
		return "", fmt.Errorf("%w: %w", chain.ErrInvalidAsset, err)
	}
	return key, nil
}
