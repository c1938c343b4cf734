// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/consts"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/utils"
	"github.com/ava-labs/dposledger/wallet"
)

var _ chain.Handler = (*Vote)(nil)

// Vote replaces the sender's votes. Each voted delegate is credited with the
// voted share of the sender's balance for as long as the vote stands.
type Vote struct {
	chain.BaseHandler
}

func (*Vote) Name() string {
	return "vote"
}

func (*Vote) Kind() chain.Kind {
	return VoteKind
}

func (*Vote) Dependencies() []chain.Kind {
	return []chain.Kind{DelegateRegistrationKind}
}

func (*Vote) WalletAttributes() []string {
	return paths(wallet.VotesPaths, []string{"delegate.voteBalance", "delegate.voters"})
}

// Bootstrap rebuilds every vote history first and credits delegates once,
// from final balances.
func (*Vote) Bootstrap(ctx context.Context, env *chain.BootstrapEnv) error {
	repo := env.Repository
	if _, err := chain.Replay(ctx, env.History, VoteKind, func(tx *chain.Transaction) error {
		next, err := votesOf(tx)
		if err != nil {
			return err
		}
		w, err := sender(tx, repo)
		if err != nil {
			return err
		}
		votes, ok := wallet.VotesKey.Get(w)
		if !ok {
			votes = &wallet.Votes{}
			if err := wallet.VotesKey.Set(w, votes); err != nil {
				return err
			}
		}
		votes.Replace(next)
		return nil
	}); err != nil {
		return err
	}

	it := repo.AllByAddress()
	defer it.Release()
	for it.Next() {
		w := it.Wallet()
		votes, ok := wallet.VotesKey.Get(w)
		if !ok || len(votes.Current) == 0 {
			continue
		}
		if err := credit(repo, votes.Current, w.Balance()); err != nil {
			return err
		}
	}
	return nil
}

func (*Vote) VerifyPoolEntry(_ context.Context, tx *chain.Transaction, pool chain.PoolQuery) error {
	if pendingFromSender(pool, tx) {
		return chain.NewPendingError("%s already has a vote transaction in the pool", tx.SenderID)
	}
	return nil
}

func (h *Vote) VerifyApply(ctx context.Context, r chain.Rules, tx *chain.Transaction, w *wallet.Wallet, repo state.Repository) error {
	next, err := votesOf(tx)
	if err != nil {
		return err
	}
	if limit := r.MaxVotes(); uint32(len(next)) > limit {
		return fmt.Errorf("%w: %d votes, at most %d", chain.ErrVotedForTooManyDelegates, len(next), limit)
	}

	var total uint64
	for _, username := range sortedUsernames(next) {
		bps := next[username]
		if bps == 0 {
			return fmt.Errorf("%w: '%s'", chain.ErrZeroPercentVote, username)
		}
		total += uint64(bps)

		voted, err := repo.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: '%s'", chain.ErrVotedForNonDelegate, username)
		}
		d, ok := wallet.DelegateKey.Get(voted)
		if !ok {
			return fmt.Errorf("%w: '%s'", chain.ErrVotedForNonDelegate, username)
		}
		if d.Resignation().Type == wallet.PermanentResignation {
			return fmt.Errorf("%w: '%s'", chain.ErrVotedForResignedDelegate, username)
		}
	}
	if len(next) > 0 && total != consts.BasisPoints {
		return fmt.Errorf("%w: got %s%%", chain.ErrInvalidVotePercentage, utils.FormatBasisPoints(total))
	}

	var current map[string]uint16
	if votes, ok := wallet.VotesKey.Get(w); ok {
		current = votes.Current
	}
	switch {
	case len(next) == 0 && len(current) == 0:
		return chain.ErrUnvoteMismatch
	case len(next) > 0 && sameVotes(current, next):
		return chain.ErrAlreadyVoted
	}
	return h.BaseHandler.VerifyApply(ctx, r, tx, w, repo)
}

func (h *Vote) ApplyToSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	if err := h.BaseHandler.ApplyToSender(ctx, r, tx, repo); err != nil {
		return err
	}
	next, err := votesOf(tx)
	if err != nil {
		return err
	}
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	votes, ok := wallet.VotesKey.Get(w)
	if !ok {
		votes = &wallet.Votes{}
		if err := wallet.VotesKey.Set(w, votes); err != nil {
			return err
		}
	}
	balance := w.Balance()
	if err := debit(repo, votes.Current, balance); err != nil {
		return err
	}
	votes.Replace(next)
	return credit(repo, votes.Current, balance)
}

func (h *Vote) RevertForSender(ctx context.Context, r chain.Rules, tx *chain.Transaction, repo state.Repository) error {
	w, err := sender(tx, repo)
	if err != nil {
		return err
	}
	votes, ok := wallet.VotesKey.Get(w)
	if !ok {
		return fmt.Errorf("%w: %s has no votes to revert", chain.ErrBrokenInvariant, w.Address())
	}
	balance := w.Balance()
	if err := debit(repo, votes.Current, balance); err != nil {
		return err
	}
	if !votes.Restore() {
		return fmt.Errorf("%w: %s has no vote history", chain.ErrBrokenInvariant, w.Address())
	}
	if err := credit(repo, votes.Current, balance); err != nil {
		return err
	}
	if votes.Empty() {
		if err := wallet.VotesKey.Forget(w); err != nil {
			return err
		}
	}
	return h.BaseHandler.RevertForSender(ctx, r, tx, repo)
}

func (*Vote) EmitEvents(tx *chain.Transaction, _ state.Repository, e chain.Emitter) {
	e.Dispatch(chain.WalletVoted, chain.EventPayload{Transaction: tx})
}

func votesOf(tx *chain.Transaction) (map[string]uint16, error) {
	if tx.Asset == nil || tx.Asset.Votes == nil {
		return nil, chain.ErrMissingAsset
	}
	for username, bps := range tx.Asset.Votes.Votes {
		if bps > consts.BasisPoints {
			return nil, fmt.Errorf("%w: '%s' at %s%%", chain.ErrInvalidVotePercentage, username, utils.FormatBasisPoints(uint64(bps)))
		}
	}
	return tx.Asset.Votes.Votes, nil
}

// credit adds the weight of [votes] at [balance] and counts the voter.
func credit(repo state.Repository, votes map[string]uint16, balance *uint256.Int) error {
	if err := chain.AddVoteWeight(repo, votes, balance); err != nil {
		return err
	}
	for username := range votes {
		d, err := delegateByUsername(repo, username)
		if err != nil {
			return err
		}
		d.Voters++
	}
	return nil
}

func debit(repo state.Repository, votes map[string]uint16, balance *uint256.Int) error {
	if err := chain.RemoveVoteWeight(repo, votes, balance); err != nil {
		return err
	}
	for username := range votes {
		d, err := delegateByUsername(repo, username)
		if err != nil {
			return err
		}
		if d.Voters == 0 {
			return fmt.Errorf("%w: %s has no voters", chain.ErrBrokenInvariant, username)
		}
		d.Voters--
	}
	return nil
}

func sameVotes(a, b map[string]uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func sortedUsernames(votes map[string]uint16) []string {
	usernames := make([]string, 0, len(votes))
	for username := range votes {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	return usernames
}
