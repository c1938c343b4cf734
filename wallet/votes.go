// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/ava-labs/dposledger/consts"
)

var VotesPaths = []string{
	"votes",
	"votes.current",
	"votes.history",
}

// Votes maps delegate usernames to a share of the voter's balance in basis
// points. History keeps the previous vote sets so reverts are exact.
type Votes struct {
	Current map[string]uint16
	History []map[string]uint16
}

func (v *Votes) Clone() Attribute {
	c := &Votes{Current: copyVotes(v.Current)}
	if len(v.History) > 0 {
		c.History = make([]map[string]uint16, len(v.History))
		for i, h := range v.History {
			c.History[i] = copyVotes(h)
		}
	}
	return c
}

// Replace records the current set in the history and makes [next] current.
func (v *Votes) Replace(next map[string]uint16) {
	v.History = append(v.History, v.Current)
	v.Current = copyVotes(next)
}

// Restore is the inverse of [Replace]. It reports false if there is no
// history to restore from.
func (v *Votes) Restore() bool {
	if len(v.History) == 0 {
		return false
	}
	v.Current = v.History[len(v.History)-1]
	v.History = v.History[:len(v.History)-1]
	if len(v.History) == 0 {
		v.History = nil
	}
	return true
}

// Empty reports whether the bundle carries no state at all.
func (v *Votes) Empty() bool {
	return len(v.Current) == 0 && len(v.History) == 0
}

// Weight is the part of [balance] credited to a delegate voted with [bps].
func Weight(balance *uint256.Int, bps uint16) *uint256.Int {
	w := new(uint256.Int).Mul(balance, uint256.NewInt(uint64(bps)))
	return w.Div(w, uint256.NewInt(consts.BasisPoints))
}

func copyVotes(v map[string]uint16) map[string]uint16 {
	if len(v) == 0 {
		return nil
	}
	return maps.Clone(v)
}
