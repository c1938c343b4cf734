// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var (
	_ chain.Handler       = (*Bridgechain)(nil)
	_ chain.IndexProvider = (*Bridgechain)(nil)
)

// Bridgechain attaches a bridgechain, identified by its genesis hash, to the
// sender's business.
type Bridgechain struct {
	chain.BaseHandler
}

func (*Bridgechain) Name() string {
	return "bridgechainRegistration"
}

func (*Bridgechain) Kind() chain.Kind {
	return BridgechainKind
}

func (*Bridgechain) Dependencies() []chain.Kind {
	return []chain.Kind{BusinessKind}
}

func (*Bridgechain) WalletAttributes() []string {
	return wallet.BridgechainPaths
}

func (*Bridgechain) IsActivated(r chain.Rules) bool {
	return r.Magistrate() && r.Bridgechains()
}

func (*Bridgechain) Indexers() []state.Indexer {
	return []state.Indexer{{
		Name: BridgechainsIndex,
		Keys: func(w *wallet.Wallet) []string {
			b, ok := wallet.BusinessKey.Get(w)
			if !ok {
				return nil
			}
			return maps.Keys(b.Bridgechains)
		},
	}}
}

func (*Bridgechain) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	_, err := chain.Replay(ctx, env.History, BridgechainKind, func(tx *chain.Transaction) error {
		return registerBridgechain(tx, repo)
	})
	return err
}

func (*Bridgechain) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	asset, err := bridgechainOf(tx)
	if err != nil {
		return err
	}
	pending := pool.GetAll().WhereKind(tx).WherePredicate(func(o *chain.Transaction) bool {
		return o.Asset != nil && o.Asset.Bridgechain != nil && o.Asset.Bridgechain.GenesisHash == asset.GenesisHash
	}).Has()
	if pending {
		return chain.NewPendingError("Bridgechain registration for '%s' already in the pool", asset.GenesisHash)
	}
	return nil
}

func (h *Bridgechain) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	asset, err := bridgechainOf(tx)
	if err != nil {
		return err
	}
	b, ok := wallet.BusinessKey.Get(w)
	if !ok {
		return chain.ErrBusinessNotRegistered
	}
	if _, ok := b.Bridgechains[asset.GenesisHash]; ok || repo.HasByIndex(BridgechainsIndex, asset.GenesisHash) {
		return fmt.Errorf("%w: %s", chain.ErrBridgechainAlreadyRegistered, asset.GenesisHash)
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *Bridgechain) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := h.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	return registerBridgechain(tx, repo)
}

func (h *Bridgechain) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	asset, err := bridgechainOf(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	b, ok := wallet.BusinessKey.Get(w)
	if !ok || !b.RemoveBridgechain(asset.GenesisHash) {
		return fmt.Errorf("%w: %s has no bridgechain %s", chain.ErrBrokenInvariant, w.Address(), asset.GenesisHash)
	}
	if err := repo.Reindex(w); err != nil {
		return err
	}
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*Bridgechain) EmitEvents(tx *chain.Transaction, repo state.Repository, e chain.Emitter) {
	payload := chain.EventPayload{Transaction: tx}
	if b, ok := wallet.BusinessKey.Get(repo.FindByAddress(tx.SenderID)); ok {
		payload.BusinessID = b.ID
	}
	e.Dispatch(chain.BridgechainRegistered, payload)
}

func registerBridgechain(tx *chain.Transaction, repo state.Repository) error {
	asset, err := bridgechainOf(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	b, ok := wallet.BusinessKey.Get(w)
	if !ok {
		return fmt.Errorf("%w: %s", chain.ErrBrokenInvariant, chain.ErrBusinessNotRegistered)
	}
	bc := *asset
	bc.SeedNodes = append([]string(nil), asset.SeedNodes...)
	b.AddBridgechain(&bc)
	return repo.Reindex(w)
}

func bridgechainOf(tx *chain.Transaction) (*wallet.BridgechainAsset, error) {
	if tx.Asset == nil || tx.Asset.Bridgechain == nil {
		return nil, chain.ErrMissingAsset
	}
	if tx.Asset.Bridgechain.GenesisHash == "" {
		return nil, fmt.Errorf("%w: genesis hash is empty", chain.ErrInvalidAsset)
	}
	return tx.Asset.Bridgechain, nil
}
