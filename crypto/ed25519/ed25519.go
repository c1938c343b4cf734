// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ed25519

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/hdevalence/ed25519consensus"
)

type (
	PublicKey  [ed25519.PublicKeySize]byte
	PrivateKey [ed25519.PrivateKeySize]byte
	Signature  [ed25519.SignatureSize]byte
)

// Signatures are checked with the ZIP-215 validity criteria
// (https://zips.z.cash/zip-0215) so every node agrees on the same set of
// valid extra signatures, regardless of which library produced them.
const (
	PublicKeyLen      = ed25519.PublicKeySize
	PrivateKeyLen     = ed25519.PrivateKeySize
	PrivateKeySeedLen = ed25519.SeedSize
	SignatureLen      = ed25519.SignatureSize
)

var (
	EmptyPublicKey  = [ed25519.PublicKeySize]byte{}
	EmptyPrivateKey = [ed25519.PrivateKeySize]byte{}
	EmptySignature  = [ed25519.SignatureSize]byte{}
)

// GeneratePrivateKey returns a Ed25519 PrivateKey.
func GeneratePrivateKey() (PrivateKey, error) {
	_, k, err := ed25519.GenerateKey(nil)
	if err != nil {
		return EmptyPrivateKey, err
	}
	return PrivateKey(k), nil
}

// PublicKey returns a PublicKey associated with the Ed25519 PrivateKey p.
// The PublicKey is the last 32 bytes of p.
func (p PrivateKey) PublicKey() PublicKey {
	return PublicKey(p[PrivateKeySeedLen:])
}

func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// Sign returns a valid signature for msg using pk.
func Sign(msg []byte, pk PrivateKey) Signature {
	sig := ed25519.Sign(pk[:], msg)
	return Signature(sig)
}

// Verify returns whether s is a valid signature of msg by p.
func Verify(msg []byte, p PublicKey, s Signature) bool {
	return ed25519consensus.Verify(p[:], msg, s[:])
}

func ParsePublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != PublicKeyLen {
		return EmptyPublicKey, fmt.Errorf("%w: %q", ErrInvalidPublicKey, s)
	}
	return PublicKey(b), nil
}

func ParseSignature(s string) (Signature, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != SignatureLen {
		return EmptySignature, fmt.Errorf("%w: %q", ErrInvalidSignature, s)
	}
	return Signature(b), nil
}

// Verifier checks hex-encoded extra signatures over a transaction digest.
type Verifier struct{}

func (Verifier) Verify(msg []byte, publicKey string, signature string) bool {
	pk, err := ParsePublicKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := ParseSignature(signature)
	if err != nil {
		return false
	}
	return Verify(msg, pk, sig)
}
