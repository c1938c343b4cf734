// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

const (
	BusinessesIndex   = "businesses"
	BridgechainsIndex = "bridgechains"

	// businessSequence numbers registered businesses from 1.
	businessSequence = "businesses"
)

var (
	_ chain.Handler       = (*Business)(nil)
	_ chain.IndexProvider = (*Business)(nil)
)

// Business registers the sender as a business. Ids come from a sequence
// owned by the repository, so a reverted registration frees its id for the
// next one.
type Business struct {
	chain.BaseHandler
}

func (*Business) Name() string {
	return "businessRegistration"
}

func (*Business) Kind() chain.Kind {
	return BusinessKind
}

func (*Business) WalletAttributes() []string {
	return wallet.BusinessPaths
}

func (*Business) IsActivated(r chain.Rules) bool {
	return r.Magistrate()
}

func (*Business) Indexers() []state.Indexer {
	return []state.Indexer{{
		Name: BusinessesIndex,
		Keys: func(w *wallet.Wallet) []string {
			b, ok := wallet.BusinessKey.Get(w)
			if !ok {
				return nil
			}
			return []string{strconv.FormatUint(b.ID, 10)}
		},
	}}
}

func (*Business) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	_, err := chain.Replay(ctx, env.History, BusinessKind, func(tx *chain.Transaction) error {
		return registerBusiness(tx, repo)
	})
	return err
}

func (*Business) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("Business registration for %s already in the pool", tx.SenderID)
	}
	return nil
}

func (h *Business) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	if _, err := businessOf(tx); err != nil {
		return err
	}
	if wallet.BusinessKey.Has(w) {
		return chain.ErrBusinessAlreadyRegistered
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *Business) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := h.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	return registerBusiness(tx, repo)
}

func (h *Business) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	b, ok := wallet.BusinessKey.Get(w)
	if !ok {
		return fmt.Errorf("%w: %s has no business to revert", chain.ErrBrokenInvariant, w.Address())
	}
	if err := wallet.BusinessKey.Forget(w); err != nil {
		return err
	}
	if err := repo.Reindex(w); err != nil {
		return err
	}
	if err := repo.RevertSequence(businessSequence, b.ID); err != nil {
		return fmt.Errorf("%w: %w", chain.ErrBrokenInvariant, err)
	}
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*Business) EmitEvents(tx *chain.Transaction, repo state.Repository, e chain.Emitter) {
	payload := chain.EventPayload{Transaction: tx}
	if b, ok := wallet.BusinessKey.Get(repo.FindByAddress(tx.SenderID)); ok {
		payload.BusinessID = b.ID
	}
	e.Dispatch(chain.BusinessRegistered, payload)
}

func registerBusiness(tx *chain.Transaction, repo state.Repository) error {
	asset, err := businessOf(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	if err := wallet.BusinessKey.Set(w, &wallet.Business{
		ID:    repo.NextSequence(businessSequence),
		Asset: *asset,
	}); err != nil {
		return err
	}
	return repo.Reindex(w)
}

func businessOf(tx *chain.Transaction) (*wallet.BusinessAsset, error) {
	if tx.Asset == nil || tx.Asset.Business == nil {
		return nil, chain.ErrMissingAsset
	}
	if tx.Asset.Business.Name == "" {
		return nil, fmt.Errorf("%w: business name is empty", chain.ErrInvalidAsset)
	}
	return tx.Asset.Business, nil
}
