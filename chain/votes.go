// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

// WithVoteWeight runs [mutate] on the balance of [w] and moves the voted
// delegates' vote balance by the change in weight.
func WithVoteWeight(repo state.Repository, w *wallet.Wallet, mutate func() error) error {
	votes, ok := wallet.VotesKey.Get(w)
	if !ok || len(votes.Current) == 0 {
		return mutate()
	}
	before := w.Balance()
	if err := mutate(); err != nil {
		return err
	}
	if err := RemoveVoteWeight(repo, votes.Current, before); err != nil {
		return err
	}
	return AddVoteWeight(repo, votes.Current, w.Balance())
}

// AddVoteWeight credits each delegate in [votes] with its share of [balance].
func AddVoteWeight(repo state.Repository, votes map[string]uint16, balance *uint256.Int) error {
	for username, bps := range votes {
		d, err := votedDelegate(repo, username)
		if err != nil {
			return err
		}
		d.VoteBalance.Add(&d.VoteBalance, wallet.Weight(balance, bps))
	}
	return nil
}

func RemoveVoteWeight(repo state.Repository, votes map[string]uint16, balance *uint256.Int) error {
	for username, bps := range votes {
		d, err := votedDelegate(repo, username)
		if err != nil {
			return err
		}
		weight := wallet.Weight(balance, bps)
		if d.VoteBalance.Lt(weight) {
			return fmt.Errorf("%w: vote balance of %s below %s", ErrBrokenInvariant, username, weight.Dec())
		}
		d.VoteBalance.Sub(&d.VoteBalance, weight)
	}
	return nil
}

func votedDelegate(repo state.Repository, username string) (*wallet.Delegate, error) {
	w, err := repo.FindByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%w: voted delegate %s: %w", ErrBrokenInvariant, username, err)
	}
	d, ok := wallet.DelegateKey.Get(w)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a delegate", ErrBrokenInvariant, username)
	}
	return d, nil
}
