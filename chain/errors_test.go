// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{
			name: "state",
			err:  fmt.Errorf("%w: alice", ErrVotedForNonDelegate),
			kind: ErrStateValidation,
		},
		{
			name: "username",
			err:  &UsernameAlreadyRegisteredError{Username: "alice"},
			kind: ErrStateValidation,
		},
		{
			name: "nonce",
			err:  &UnexpectedNonceError{Expected: 2, Actual: 3},
			kind: ErrStateValidation,
		},
		{
			name: "pool",
			err:  NewPendingError("%s already in the pool", "x"),
			kind: ErrPoolAdmission,
		},
		{
			name: "structural",
			err:  ErrMissingAsset,
			kind: ErrStructural,
		},
		{
			name: "wrapped structural",
			err:  Structural(errors.New("boom")),
			kind: ErrStructural,
		},
	}
	kinds := []error{ErrStateValidation, ErrPoolAdmission, ErrStructural, ErrDeactivated}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			for _, k := range kinds {
				require.Equal(k == tt.kind, errors.Is(tt.err, k), k)
			}
		})
	}
}

func TestUsernameAlreadyRegisteredMessage(t *testing.T) {
	require := require.New(t)

	err := &UsernameAlreadyRegisteredError{Username: "alice"}
	require.Equal("delegate name 'alice' is already registered", err.Error())
}

func TestPendingErrorCode(t *testing.T) {
	require := require.New(t)

	err := NewPendingError("%s already has a delegate registration transaction in the pool", "addr")
	require.Equal(CodePending, err.Code)
	require.Equal("addr already has a delegate registration transaction in the pool", err.Message)
}
