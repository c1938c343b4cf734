// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/consts"
)

// Rules is the protocol configuration in force at one height. It is handed
// to every validation and apply call.
type Rules interface {
	Height() uint64

	ActiveDelegates() uint32
	MaxVotes() uint32
	ExtendedHeaders() bool
	// MinFee returns the fee floor of [k]. Zero means no floor.
	MinFee(k Kind) uint64

	UsernameRegistrations() bool
	AutoUpgradeUsernames() bool
	BlockProducerUpgrades() bool
	Magistrate() bool
	Bridgechains() bool

	ResignationRevocationBlocks() uint64
	// DevFund maps addresses to their share of block rewards in basis
	// points.
	DevFund() map[string]uint16
}

type RuleFactory interface {
	GetRules(height uint64) Rules
}

// Donations splits [reward] between the dev fund addresses of [r]. The
// total is the sum of the individual shares.
func Donations(r Rules, reward *uint256.Int) (*uint256.Int, map[string]*uint256.Int) {
	total := new(uint256.Int)
	shares := map[string]*uint256.Int{}
	for address, bps := range r.DevFund() {
		share := new(uint256.Int).Mul(reward, uint256.NewInt(uint64(bps)))
		share.Div(share, uint256.NewInt(consts.BasisPoints))
		shares[address] = share
		total.Add(total, share)
	}
	return total, shares
}
