// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import "errors"

var (
	ErrUndeclaredAttribute = errors.New("attribute is not declared")
	ErrInvalidAttribute    = errors.New("invalid attribute path")
	ErrMissingAttribute    = errors.New("attribute is not set")
	ErrPublicKeyAlreadySet = errors.New("public key already set for slot")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrNonceUnderflow      = errors.New("nonce underflow")
)
