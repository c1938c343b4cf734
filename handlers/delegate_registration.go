// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var _ chain.Handler = (*DelegateRegistration)(nil)

// DelegateRegistration registers a block producer under a new username. Its
// bootstrap runs after every other delegate producing kind and folds the
// forged block summaries into the delegates.
type DelegateRegistration struct {
	chain.BaseHandler
}

func (*DelegateRegistration) Name() string {
	return "delegateRegistration"
}

func (*DelegateRegistration) Kind() chain.Kind {
	return DelegateRegistrationKind
}

func (*DelegateRegistration) Dependencies() []chain.Kind {
	return []chain.Kind{UpgradeKind}
}

func (*DelegateRegistration) WalletAttributes() []string {
	return wallet.DelegatePaths
}

func (*DelegateRegistration) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	registered, err := chain.Replay(ctx, env.History, DelegateRegistrationKind, func(tx *chain.Transaction) error {
		username, err := registeredUsername(tx)
		if err != nil {
			return err
		}
		w, err := sender(tx, repo)
		if err != nil {
			return err
		}
		if err := SeedBlockProducer(w, username); err != nil {
			return err
		}
		return repo.Reindex(w)
	})
	if err != nil {
		return err
	}
	if env.Summaries == nil {
		return nil
	}

	forged, err := env.Summaries.DelegatesForgedBlocks(ctx)
	if err != nil {
		return err
	}
	for _, s := range forged {
		if s.Username == "" {
			continue
		}
		d, err := delegateByUsername(repo, s.Username)
		if err != nil {
			return err
		}
		s.AddTo(d)
	}

	last, err := env.Summaries.LastForgedBlocks(ctx)
	if err != nil {
		return err
	}
	for _, b := range last {
		if b.Username == "" {
			continue
		}
		d, err := delegateByUsername(repo, b.Username)
		if err != nil {
			return err
		}
		lastBlock := b.LastBlock()
		donations, _ := chain.Donations(env.Rules.GetRules(b.Height), &b.Reward)
		lastBlock.Donations = *donations
		d.LastBlock = lastBlock
	}

	env.Log.Info("bootstrapped delegates",
		zap.Int("registrations", registered),
		zap.Int("forgers", len(forged)),
	)
	return nil
}

func (*DelegateRegistration) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("%s already has a delegate registration transaction in the pool", tx.SenderID)
	}
	username, err := registeredUsername(tx)
	if err != nil {
		return err
	}
	if pendingUsername(pool, username) {
		return chain.NewPendingError("Delegate registration for '%s' already in the pool", username)
	}
	return nil
}

func (h *DelegateRegistration) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	username, err := registeredUsername(tx)
	if err != nil {
		return err
	}
	if wallet.DelegateKey.Has(w) {
		return chain.ErrWalletAlreadyDelegate
	}
	if wallet.UsernameKey.Has(w) {
		return chain.ErrWalletAlreadyHasUsername
	}
	if repo.HasByUsername(username) {
		return &chain.UsernameAlreadyRegisteredError{Username: username}
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *DelegateRegistration) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
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
	if err := SeedBlockProducer(w, username); err != nil {
		return err
	}
	return repo.Reindex(w)
}

func (h *DelegateRegistration) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
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
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*DelegateRegistration) EmitEvents(tx *chain.Transaction, _ state.Repository, e chain.Emitter) {
	e.Dispatch(chain.DelegateRegistered, chain.EventPayload{
		Transaction: tx,
		Username:    tx.Asset.Registration.Username,
	})
}

func delegateByUsername(repo state.Repository, username string) (*wallet.Delegate, error) {
	w, err := repo.FindByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chain.ErrBrokenInvariant, err)
	}
	d, ok := wallet.DelegateKey.Get(w)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a delegate", chain.ErrBrokenInvariant, username)
	}
	return d, nil
}
