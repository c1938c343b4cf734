// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"math/big"

	"github.com/holiman/uint256"
)

// DelegatePaths are the attribute paths owned by block producers.
var DelegatePaths = []string{
	"delegate",
	"delegate.username",
	"delegate.voteBalance",
	"delegate.forgedFees",
	"delegate.burnedFees",
	"delegate.forgedRewards",
	"delegate.donations",
	"delegate.producedBlocks",
	"delegate.missedBlocks",
	"delegate.rank",
	"delegate.round",
	"delegate.voters",
	"delegate.lastBlock",
	"delegate.resignations",
}

type ResignationType uint8

const (
	NotResigned ResignationType = iota
	TemporaryResignation
	PermanentResignation
)

func (r ResignationType) String() string {
	switch r {
	case NotResigned:
		return "none"
	case TemporaryResignation:
		return "temporary"
	case PermanentResignation:
		return "permanent"
	default:
		return "unknown"
	}
}

// Resignation is one entry of a delegate's resignation history. A revocation
// is recorded as a [NotResigned] entry.
type Resignation struct {
	Type   ResignationType
	Height uint64
}

type LastBlock struct {
	Height    uint64
	ID        string
	Reward    uint256.Int
	Donations uint256.Int
}

// Delegate is the block producer profile. Accumulators are exact integers;
// rank and round are assigned outside the ledger.
type Delegate struct {
	Username       string
	VoteBalance    uint256.Int
	ForgedFees     uint256.Int
	BurnedFees     uint256.Int
	ForgedRewards  uint256.Int
	Donations      uint256.Int
	ProducedBlocks uint64
	MissedBlocks   uint64
	Rank           uint32
	Round          uint64
	Voters         uint64
	LastBlock      *LastBlock
	Resignations   []Resignation
}

// NewDelegate returns a profile with every accumulator zeroed.
func NewDelegate(username string) *Delegate {
	return &Delegate{Username: username}
}

func (d *Delegate) Clone() Attribute {
	c := *d
	if d.LastBlock != nil {
		lb := *d.LastBlock
		c.LastBlock = &lb
	}
	if len(d.Resignations) > 0 {
		c.Resignations = append([]Resignation(nil), d.Resignations...)
	} else {
		c.Resignations = nil
	}
	return &c
}

// Resignation returns the current resignation entry.
func (d *Delegate) Resignation() Resignation {
	if len(d.Resignations) == 0 {
		return Resignation{Type: NotResigned}
	}
	return d.Resignations[len(d.Resignations)-1]
}

func (d *Delegate) IsResigned() bool {
	return d.Resignation().Type != NotResigned
}

func (d *Delegate) PushResignation(r Resignation) {
	d.Resignations = append(d.Resignations, r)
}

// PopResignation removes the latest entry. It reports false when there is
// nothing to remove.
func (d *Delegate) PopResignation() bool {
	if len(d.Resignations) == 0 {
		return false
	}
	d.Resignations = d.Resignations[:len(d.Resignations)-1]
	if len(d.Resignations) == 0 {
		d.Resignations = nil
	}
	return true
}

// ForgedTotal is fees - burnedFees + rewards - donations. The operation
// order is fixed so every node derives the same value.
func (d *Delegate) ForgedTotal() *big.Int {
	total := new(big.Int).Set(d.ForgedFees.ToBig())
	total.Sub(total, d.BurnedFees.ToBig())
	total.Add(total, d.ForgedRewards.ToBig())
	total.Sub(total, d.Donations.ToBig())
	return total
}

// Username is the attribute claimed by username registrations.
type Username string

func (u Username) Clone() Attribute {
	return u
}
