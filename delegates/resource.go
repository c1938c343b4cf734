// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delegates

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/consts"
	"github.com/ava-labs/dposledger/utils"
	"github.com/ava-labs/dposledger/wallet"
)

// Percent is a ratio in basis points.
type Percent uint64

func (p Percent) String() string {
	return utils.FormatBasisPoints(uint64(p))
}

type Votes struct {
	Balance uint256.Int
	Voters  uint64
	// Percent of the total supply, rounded down.
	Percent Percent
}

type Blocks struct {
	Produced uint64
	Missed   uint64
	Last     *wallet.LastBlock
}

type Forged struct {
	Fees       uint256.Int
	BurnedFees uint256.Int
	Rewards    uint256.Int
	DevFunds   uint256.Int
	// Total is fees - burnedFees + rewards - devFunds and may be negative.
	Total *big.Int
}

// Resource is the read model of one delegate.
type Resource struct {
	Username        string
	Address         string
	PublicKey       string
	Votes           Votes
	Rank            uint32
	IsResigned      bool
	ResignationType wallet.ResignationType
	Blocks          Blocks
	Forged          Forged
}

func newResource(w *wallet.Wallet, d *wallet.Delegate, supply *uint256.Int) *Resource {
	publicKey, _ := w.PublicKey(wallet.Primary)
	resignation := d.Resignation()
	r := &Resource{
		Username:  d.Username,
		Address:   w.Address(),
		PublicKey: publicKey,
		Votes: Votes{
			Balance: d.VoteBalance,
			Voters:  d.Voters,
			Percent: VotePercent(&d.VoteBalance, supply),
		},
		Rank:            d.Rank,
		IsResigned:      resignation.Type != wallet.NotResigned,
		ResignationType: resignation.Type,
		Blocks: Blocks{
			Produced: d.ProducedBlocks,
			Missed:   d.MissedBlocks,
		},
		Forged: Forged{
			Fees:       d.ForgedFees,
			BurnedFees: d.BurnedFees,
			Rewards:    d.ForgedRewards,
			DevFunds:   d.Donations,
			Total:      d.ForgedTotal(),
		},
	}
	if d.LastBlock != nil {
		lb := *d.LastBlock
		r.Blocks.Last = &lb
	}
	return r
}

// VotePercent is voteBalance / supply in basis points. A zero supply yields
// zero.
func VotePercent(voteBalance *uint256.Int, supply *uint256.Int) Percent {
	if supply.IsZero() {
		return 0
	}
	p := new(big.Int).Mul(voteBalance.ToBig(), big.NewInt(consts.BasisPoints))
	p.Quo(p, supply.ToBig())
	return Percent(p.Uint64())
}
