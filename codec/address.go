// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/formatting/address"
	"github.com/btcsuite/btcd/btcutil"
)

// AddressLen is the length of the payload encoded in a wallet address.
const AddressLen = 20

// AddressFromPublicKey derives the bech32 wallet address owned by
// [publicKey]. The payload is the RIPEMD160(SHA256) digest of the key.
func AddressFromPublicKey(hrp string, publicKey []byte) (string, error) {
	if len(publicKey) == 0 {
		return "", ErrFieldNotPopulated
	}
	return address.FormatBech32(hrp, btcutil.Hash160(publicKey))
}

// AddressFromHexKey is [AddressFromPublicKey] for hex-encoded keys.
func AddressFromHexKey(hrp string, publicKey string) (string, error) {
	b, err := hex.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return AddressFromPublicKey(hrp, b)
}

// ParseAddress returns the payload of [addr] after checking that it was
// encoded with [hrp].
func ParseAddress(hrp string, addr string) ([]byte, error) {
	gotHRP, payload, err := address.ParseBech32(addr)
	if err != nil {
		return nil, err
	}
	if gotHRP != hrp {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrIncorrectHRP, hrp, gotHRP)
	}
	if len(payload) != AddressLen {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, len(payload))
	}
	return payload, nil
}
