// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import "errors"

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrIndexConflict     = errors.New("index key held by another wallet")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrDuplicateIndex    = errors.New("duplicate index")
	ErrSequenceMismatch  = errors.New("sequence revert out of order")
	ErrViewCommitted     = errors.New("view already committed")
	ErrNoAddressFunction = errors.New("no address derivation configured")
)
