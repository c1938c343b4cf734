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

var _ chain.Handler = (*Upgrade)(nil)

// Upgrade turns a wallet holding a username into a block producer.
type Upgrade struct {
	chain.BaseHandler
}

func (*Upgrade) Name() string {
	return "upgrade"
}

func (*Upgrade) Kind() chain.Kind {
	return UpgradeKind
}

func (*Upgrade) Dependencies() []chain.Kind {
	return []chain.Kind{RegistrationKind}
}

func (*Upgrade) WalletAttributes() []string {
	return wallet.DelegatePaths
}

func (*Upgrade) IsActivated(r chain.Rules) bool {
	return r.BlockProducerUpgrades()
}

func (*Upgrade) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	_, err := chain.Replay(ctx, env.History, UpgradeKind, func(tx *chain.Transaction) error {
		w, err := sender(tx, repo)
		if err != nil {
			return err
		}
		username, ok := wallet.UsernameKey.Get(w)
		if !ok {
			return fmt.Errorf("%w: %s", chain.ErrBrokenInvariant, chain.ErrWalletHasNoUsername)
		}
		if err := SeedBlockProducer(w, string(username)); err != nil {
			return err
		}
		return repo.Reindex(w)
	})
	return err
}

func (*Upgrade) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("%s already has a block producer upgrade transaction in the pool", tx.SenderID)
	}
	return nil
}

func (u *Upgrade) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	if !wallet.UsernameKey.Has(w) {
		return chain.ErrWalletHasNoUsername
	}
	if wallet.DelegateKey.Has(w) {
		return chain.ErrWalletAlreadyDelegate
	}
	return u.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (u *Upgrade) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := u.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	username, ok := wallet.UsernameKey.Get(w)
	if !ok {
		return fmt.Errorf("%w: %s", chain.ErrBrokenInvariant, chain.ErrWalletHasNoUsername)
	}
	if err := SeedBlockProducer(w, string(username)); err != nil {
		return err
	}
	return repo.Reindex(w)
}

func (u *Upgrade) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	if err := ForgetBlockProducer(w); err != nil {
		return err
	}
	if err := repo.Reindex(w); err != nil {
		return err
	}
	return u.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*Upgrade) EmitEvents(tx *chain.Transaction, repo state.Repository, e chain.Emitter) {
	username, _ := state.Username(repo.FindByAddress(tx.SenderID))
	e.Dispatch(chain.BlockProducerUpgraded, chain.EventPayload{Transaction: tx, Username: username})
}

// SeedBlockProducer gives [w] a fresh delegate profile under [username].
func SeedBlockProducer(w *wallet.Wallet, username string) error {
	return wallet.DelegateKey.Set(w, wallet.NewDelegate(username))
}

func ForgetBlockProducer(w *wallet.Wallet) error {
	if err := wallet.DelegateKey.Forget(w); err != nil {
		return fmt.Errorf("%w: %w", chain.ErrBrokenInvariant, err)
	}
	return nil
}
