// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import "github.com/ava-labs/dposledger/wallet"

var _ Iterator = (*iterator)(nil)

// iterator walks positions [0, end) captured when it was created, so wallets
// created during the walk are not visited.
type iterator struct {
	end int
	pos int
	at  func(i int) (*wallet.Wallet, bool)

	current  *wallet.Wallet
	released bool
}

func newIterator(end int, at func(i int) (*wallet.Wallet, bool)) *iterator {
	return &iterator{
		end: end,
		pos: -1,
		at:  at,
	}
}

func (it *iterator) Next() bool {
	if it.released {
		return false
	}
	for it.pos+1 < it.end {
		it.pos++
		w, ok := it.at(it.pos)
		if ok {
			it.current = w
			return true
		}
	}
	it.current = nil
	return false
}

func (it *iterator) Wallet() *wallet.Wallet {
	return it.current
}

func (it *iterator) Release() {
	it.released = true
	it.current = nil
}

// Collect drains [it] into a slice.
func Collect(it Iterator) []*wallet.Wallet {
	defer it.Release()

	var wallets []*wallet.Wallet
	for it.Next() {
		wallets = append(wallets, it.Wallet())
	}
	return wallets
}
