// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package handlers holds the transaction kinds of the ledger.
package handlers

import (
	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

const (
	CoreGroup       uint32 = 1
	MagistrateGroup uint32 = 2
)

var (
	TransferKind             = chain.Kind{Group: CoreGroup, Type: 0}
	ExtraSignatureKind       = chain.Kind{Group: CoreGroup, Type: 1}
	DelegateRegistrationKind = chain.Kind{Group: CoreGroup, Type: 2}
	VoteKind                 = chain.Kind{Group: CoreGroup, Type: 3}
	ResignationKind          = chain.Kind{Group: CoreGroup, Type: 7}
	RegistrationKind         = chain.Kind{Group: CoreGroup, Type: 11}
	UpgradeKind              = chain.Kind{Group: CoreGroup, Type: 12}

	BusinessKind    = chain.Kind{Group: MagistrateGroup, Type: 0}
	BridgechainKind = chain.Kind{Group: MagistrateGroup, Type: 3}
)

// Default returns every handler of the ledger in bootstrap registration
// order.
func Default(verifier chain.SignatureVerifier) []chain.Handler {
	base := chain.BaseHandler{Verifier: verifier}
	return []chain.Handler{
		&Transfer{BaseHandler: base},
		&ExtraSignature{BaseHandler: base},
		&Registration{BaseHandler: base},
		&Upgrade{BaseHandler: base},
		&DelegateRegistration{BaseHandler: base},
		&Vote{BaseHandler: base},
		&Resignation{BaseHandler: base},
		&Business{BaseHandler: base},
		&Bridgechain{BaseHandler: base},
	}
}

// pendingFromSender reports whether the sender of [tx] already has a pending
// transaction of the same kind.
func pendingFromSender(pool chain.PoolQuery, tx *chain.Transaction) bool {
	return pool.GetAllBySender(tx.SenderID).WhereKind(tx).Has()
}

// pendingUsername reports whether any pending transaction claims [username].
func pendingUsername(pool chain.PoolQuery, username string) bool {
	return pool.GetAll().WherePredicate(func(o *chain.Transaction) bool {
		return o.Asset != nil && o.Asset.Registration != nil && o.Asset.Registration.Username == username
	}).Has()
}

func sender(tx *chain.Transaction, repo state.Repository) (*wallet.Wallet, error) {
	if tx.SenderID == "" {
		return nil, chain.ErrMissingSender
	}
	return repo.FindByAddress(tx.SenderID), nil
}

func paths(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
