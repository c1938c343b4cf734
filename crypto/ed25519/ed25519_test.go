// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ed25519

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePrivateKeyDifferent(t *testing.T) {
	require := require.New(t)

	a, err := GeneratePrivateKey()
	require.NoError(err)
	b, err := GeneratePrivateKey()
	require.NoError(err)
	require.NotEqual(a, b)
	require.NotEqual(EmptyPublicKey, a.PublicKey())
}

func TestSignVerify(t *testing.T) {
	require := require.New(t)

	priv, err := GeneratePrivateKey()
	require.NoError(err)
	msg := []byte("msg")
	sig := Sign(msg, priv)
	require.True(Verify(msg, priv.PublicKey(), sig))
	require.False(Verify([]byte("other"), priv.PublicKey(), sig))
}

func TestVerifierHex(t *testing.T) {
	require := require.New(t)

	priv, err := GeneratePrivateKey()
	require.NoError(err)
	msg := []byte("digest")
	sig := Sign(msg, priv)

	v := Verifier{}
	require.True(v.Verify(msg, priv.PublicKey().String(), sig.String()))
	require.False(v.Verify(msg, "nothex", sig.String()))
	require.False(v.Verify(msg, priv.PublicKey().String(), "00"))

	other, err := GeneratePrivateKey()
	require.NoError(err)
	require.False(v.Verify(msg, other.PublicKey().String(), sig.String()))
}

func TestParseErrors(t *testing.T) {
	require := require.New(t)

	_, err := ParsePublicKey("abcd")
	require.ErrorIs(err, ErrInvalidPublicKey)
	_, err = ParseSignature("abcd")
	require.ErrorIs(err, ErrInvalidSignature)
}
