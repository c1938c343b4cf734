// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/codec"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var _ chain.Handler = (*Registration)(nil)

var UsernamePaths = []string{"username"}

// Registration claims a username. Once usernames auto-upgrade, the wallet
// also becomes a block producer.
type Registration struct {
	chain.BaseHandler
}

func (*Registration) Name() string {
	return "registration"
}

func (*Registration) Kind() chain.Kind {
	return RegistrationKind
}

func (*Registration) WalletAttributes() []string {
	return paths(wallet.DelegatePaths, UsernamePaths)
}

func (*Registration) IsActivated(r chain.Rules) bool {
	return r.UsernameRegistrations()
}

func (*Registration) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	_, err := chain.Replay(ctx, env.History, RegistrationKind, func(tx *chain.Transaction) error {
		username, err := registeredUsername(tx)
		if err != nil {
			return err
		}
		w, err := sender(tx, repo)
		if err != nil {
			return err
		}
		if env.Rules.GetRules(tx.BlockHeight).AutoUpgradeUsernames() {
			if err := SeedBlockProducer(w, username); err != nil {
				return err
			}
		}
		if err := wallet.UsernameKey.Set(w, wallet.Username(username)); err != nil {
			return err
		}
		return repo.Reindex(w)
	})
	return err
}

func (*Registration) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("%s already has a registration transaction in the pool", tx.SenderID)
	}
	username, err := registeredUsername(tx)
	if err != nil {
		return err
	}
	if pendingUsername(pool, username) {
		return chain.NewPendingError("Registration for '%s' already in the pool", username)
	}
	return nil
}

func (h *Registration) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	username, err := registeredUsername(tx)
	if err != nil {
		return err
	}
	if _, ok := state.Username(w); ok {
		return chain.ErrWalletAlreadyHasUsername
	}
	if repo.HasByUsername(username) {
		return &chain.UsernameAlreadyRegisteredError{Username: username}
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *Registration) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := h.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	username, err := registeredUsername(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	if r.AutoUpgradeUsernames() {
		if err := SeedBlockProducer(w, username); err != nil {
			return err
		}
	}
	if err := wallet.UsernameKey.Set(w, wallet.Username(username)); err != nil {
		return err
	}
	return repo.Reindex(w)
}

func (h *Registration) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	if r.AutoUpgradeUsernames() {
		if err := ForgetBlockProducer(w); err != nil {
			return err
		}
	}
	if err := wallet.UsernameKey.Forget(w); err != nil {
		return fmt.Errorf("%w: %w", chain.ErrBrokenInvariant, err)
	}
	if err := repo.Reindex(w); err != nil {
		return err
	}
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

// EmitEvents also announces the block producer when the registration
// auto-upgraded the wallet.
func (*Registration) EmitEvents(tx *chain.Transaction, repo state.Repository, e chain.Emitter) {
	payload := chain.EventPayload{Transaction: tx, Username: tx.Asset.Registration.Username}
	e.Dispatch(chain.UsernameRegistered, payload)
	if wallet.DelegateKey.Has(repo.FindByAddress(tx.SenderID)) {
		e.Dispatch(chain.DelegateRegistered, payload)
	}
}

func registeredUsername(tx *chain.Transaction) (string, error) {
	if tx.Asset == nil || tx.Asset.Registration == nil {
		return "", chain.ErrMissingAsset
	}
	username := tx.Asset.Registration.Username
	if err := codec.VerifyUsername(username); err != nil {
		return "", fmt.Errorf("%w: %w", chain.ErrInvalidAsset, err)
	}
	return username, nil
}
