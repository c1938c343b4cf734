// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var _ chain.Handler = (*Resignation)(nil)

// Resignation resigns a delegate, permanently or temporarily, or revokes a
// temporary resignation. Every action pushes an entry on the delegate's
// resignation history; revert pops it.
type Resignation struct {
	chain.BaseHandler
}

func (*Resignation) Name() string {
	return "resignation"
}

func (*Resignation) Kind() chain.Kind {
	return ResignationKind
}

func (*Resignation) Dependencies() []chain.Kind {
	return []chain.Kind{DelegateRegistrationKind}
}

func (*Resignation) WalletAttributes() []string {
	return []string{"delegate.resignations"}
}

func (*Resignation) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	_, err := chain.Replay(ctx, env.History, ResignationKind, func(tx *chain.Transaction) error {
		entry, err := resignationOf(tx)
		if err != nil {
			return err
		}
		w, err := sender(tx, repo)
		if err != nil {
			return err
		}
		d, ok := wallet.DelegateKey.Get(w)
		if !ok {
			return fmt.Errorf("%w: %s is not a delegate", chain.ErrBrokenInvariant, w.Address())
		}
		d.PushResignation(entry)
		return nil
	})
	return err
}

func (*Resignation) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("%s already has a resignation transaction in the pool", tx.SenderID)
	}
	return nil
}

func (h *Resignation) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	entry, err := resignationOf(tx)
	if err != nil {
		return err
	}
	d, ok := wallet.DelegateKey.Get(w)
	if !ok {
		return chain.ErrWalletNotADelegate
	}

	current := d.Resignation()
	switch entry.Type {
	case wallet.NotResigned:
		switch current.Type {
		case wallet.NotResigned:
			return chain.ErrWalletNotResigned
		case wallet.PermanentResignation:
			return chain.ErrIrrevocableResignation
		}
		if delay := r.ResignationRevocationBlocks(); tx.BlockHeight < current.Height+delay {
			return fmt.Errorf(
				"%w: resigned at %d, revocable from %d",
				chain.ErrNotEnoughTimeSinceResignation,
				current.Height,
				current.Height+delay,
			)
		}
	default:
		switch {
		case current.Type == wallet.PermanentResignation:
			return chain.ErrWalletAlreadyPermanentlyResigned
		case current.Type == wallet.TemporaryResignation && entry.Type == wallet.TemporaryResignation:
			return chain.ErrWalletAlreadyTemporarilyResigned
		}
		if current.Type == wallet.NotResigned {
			active := activeDelegates(repo)
			if active <= int(r.ActiveDelegates()) {
				return fmt.Errorf("%w: %d active, %d required", chain.ErrNotEnoughDelegates, active, r.ActiveDelegates())
			}
		}
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *Resignation) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := h.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	entry, err := resignationOf(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	d, ok := wallet.DelegateKey.Get(w)
	if !ok {
		return fmt.Errorf("%w: %s is not a delegate", chain.ErrBrokenInvariant, w.Address())
	}
	d.PushResignation(entry)
	return repo.Reindex(w)
}

func (h *Resignation) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	d, ok := wallet.DelegateKey.Get(w)
	if !ok || !d.PopResignation() {
		return fmt.Errorf("%w: %s has no resignation to revert", chain.ErrBrokenInvariant, w.Address())
	}
	if err := repo.Reindex(w); err != nil {
		return err
	}
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*Resignation) EmitEvents(tx *chain.Transaction, repo state.Repository, e chain.Emitter) {
	username, _ := state.Username(repo.FindByAddress(tx.SenderID))
	payload := chain.EventPayload{Transaction: tx, Username: username}
	if tx.Asset.Resignation.Action == chain.RevokeResignation {
		e.Dispatch(chain.DelegateResignRevoked, payload)
		return
	}
	e.Dispatch(chain.DelegateResigned, payload)
}

func resignationOf(tx *chain.Transaction) (wallet.Resignation, error) {
	if tx.Asset == nil || tx.Asset.Resignation == nil {
		return wallet.Resignation{}, chain.ErrMissingAsset
	}
	entry := wallet.Resignation{Height: tx.BlockHeight}
	switch tx.Asset.Resignation.Action {
	case chain.ResignPermanently:
		entry.Type = wallet.PermanentResignation
	case chain.ResignTemporarily:
		entry.Type = wallet.TemporaryResignation
	case chain.RevokeResignation:
		entry.Type = wallet.NotResigned
	default:
		return wallet.Resignation{}, fmt.Errorf("%w: resignation action %d", chain.ErrInvalidAsset, tx.Asset.Resignation.Action)
	}
	return entry, nil
}

// activeDelegates counts the delegates that have not resigned.
func activeDelegates(repo state.Repository) int {
	it := repo.AllByUsername()
	defer it.Release()

	active := 0
	for it.Next() {
		if d, ok := wallet.DelegateKey.Get(it.Wallet()); ok && !d.IsResigned() {
			active++
		}
	}
	return active
}
