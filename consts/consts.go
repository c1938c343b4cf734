// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consts

const (
	IDLen     = 32
	Uint16Len = 2
	Uint32Len = 4
	Uint64Len = 8
	MaxUint16 = ^uint16(0)
	MaxUint64 = ^uint64(0)

	// BasisPoints is the denominator of every percentage stored in the
	// ledger (votes, dev fund shares).
	BasisPoints = 10_000

	// HRP is the default human-readable part of wallet addresses.
	HRP = "dpos"

	// NativeDecimals is the number of decimals of the native asset.
	NativeDecimals = 8

	MaxUsernameLen = 20
)
