// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/consts"
)

var ErrInvalidBalance = errors.New("invalid balance")

// FormatBalance renders [bal] base units as a decimal string with
// [consts.NativeDecimals] fractional digits.
func FormatBalance(bal *uint256.Int) string {
	s := bal.ToBig().String()
	if len(s) <= consts.NativeDecimals {
		s = strings.Repeat("0", consts.NativeDecimals-len(s)+1) + s
	}
	split := len(s) - consts.NativeDecimals
	return s[:split] + "." + s[split:]
}

// ParseBalance is the inverse of [FormatBalance]. Inputs without a fractional
// part are accepted.
func ParseBalance(bal string) (*uint256.Int, error) {
	whole, frac, _ := strings.Cut(bal, ".")
	if len(frac) > consts.NativeDecimals {
		return nil, fmt.Errorf("%w: too many decimals in %q", ErrInvalidBalance, bal)
	}
	frac += strings.Repeat("0", consts.NativeDecimals-len(frac))
	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBalance, bal)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows", ErrInvalidBalance, bal)
	}
	return out, nil
}

// FormatBasisPoints renders [bps] (1/100th of a percent) as a percentage
// with two decimals.
func FormatBasisPoints(bps uint64) string {
	return fmt.Sprintf("%d.%02d", bps/100, bps%100)
}
