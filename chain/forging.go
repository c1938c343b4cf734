// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/wallet"
)

// AddTo folds the summary into the delegate's accumulators.
func (s *ForgedSummary) AddTo(d *wallet.Delegate) {
	d.ForgedFees.Add(&d.ForgedFees, &s.TotalFees)
	d.BurnedFees.Add(&d.BurnedFees, &s.TotalFeesBurned)
	d.ForgedRewards.Add(&d.ForgedRewards, &s.TotalRewards)
	d.Donations.Add(&d.Donations, &s.Donations)
	d.ProducedBlocks += s.TotalProduced
}

// SubtractFrom is the inverse of [AddTo]. [d] is left untouched on error.
func (s *ForgedSummary) SubtractFrom(d *wallet.Delegate) error {
	for _, pair := range []struct {
		name  string
		have  *uint256.Int
		minus *uint256.Int
	}{
		{"forgedFees", &d.ForgedFees, &s.TotalFees},
		{"burnedFees", &d.BurnedFees, &s.TotalFeesBurned},
		{"forgedRewards", &d.ForgedRewards, &s.TotalRewards},
		{"donations", &d.Donations, &s.Donations},
	} {
		if pair.have.Lt(pair.minus) {
			return fmt.Errorf("%w: %s of %s below %s", ErrBrokenInvariant, pair.name, d.Username, pair.minus.Dec())
		}
	}
	if d.ProducedBlocks < s.TotalProduced {
		return fmt.Errorf("%w: producedBlocks of %s below %d", ErrBrokenInvariant, d.Username, s.TotalProduced)
	}
	d.ForgedFees.Sub(&d.ForgedFees, &s.TotalFees)
	d.BurnedFees.Sub(&d.BurnedFees, &s.TotalFeesBurned)
	d.ForgedRewards.Sub(&d.ForgedRewards, &s.TotalRewards)
	d.Donations.Sub(&d.Donations, &s.Donations)
	d.ProducedBlocks -= s.TotalProduced
	return nil
}

func (b *LastForgedBlock) LastBlock() *wallet.LastBlock {
	if b == nil {
		return nil
	}
	return &wallet.LastBlock{
		Height:    b.Height,
		ID:        b.ID,
		Reward:    b.Reward,
		Donations: b.Donations,
	}
}
