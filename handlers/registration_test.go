// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

func TestRegistrationThenUpgrade(t *testing.T) {
	require := require.New(t)

	h := newHarness(t, defaultRules(), nil)
	h.fund("carol", 10)

	h.mustApply(h.tx(RegistrationKind, "carol", registration("carol")))
	carol := h.repo.FindByAddress("carol")
	username, ok := wallet.UsernameKey.Get(carol)
	require.True(ok)
	require.Equal(wallet.Username("carol"), username)
	require.False(wallet.DelegateKey.Has(carol))
	require.True(h.repo.HasByUsername("carol"))

	err := h.d.Apply(h.ctx, h.tx(RegistrationKind, "carol", registration("carol2")))
	require.ErrorIs(err, chain.ErrWalletAlreadyHasUsername)

	upgrade := h.tx(UpgradeKind, "carol", nil)
	h.requireInverse(upgrade)
	h.mustApply(upgrade)
	require.Equal("carol", h.delegateOf("carol").Username)

	err = h.d.Apply(h.ctx, h.tx(UpgradeKind, "carol", nil))
	require.ErrorIs(err, chain.ErrWalletAlreadyDelegate)
}

func TestUpgradeRequiresUsername(t *testing.T) {
	h := newHarness(t, defaultRules(), nil)
	h.fund("carol", 10)

	err := h.d.Apply(h.ctx, h.tx(UpgradeKind, "carol", nil))
	require.ErrorIs(t, err, chain.ErrWalletHasNoUsername)
}

func TestRegistrationAutoUpgrade(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	rules := defaultRules()
	rules.autoUpgrade = true
	emitter := chain.NewMockEmitter(ctrl)
	h := newHarness(t, rules, emitter)
	h.fund("carol", 10)

	tx := h.tx(RegistrationKind, "carol", registration("carol"))
	payload := chain.EventPayload{Transaction: tx, Username: "carol"}
	gomock.InOrder(
		emitter.EXPECT().Dispatch(chain.UsernameRegistered, payload),
		emitter.EXPECT().Dispatch(chain.DelegateRegistered, payload),
		emitter.EXPECT().Dispatch(chain.TransactionApplied, chain.EventPayload{Transaction: tx}),
	)
	h.mustApply(tx)
	require.Equal("carol", h.delegateOf("carol").Username)

	emitter.EXPECT().Dispatch(chain.TransactionReverted, chain.EventPayload{Transaction: tx})
	require.NoError(h.d.Revert(h.ctx, tx))
	carol := h.repo.FindByAddress("carol")
	require.False(wallet.DelegateKey.Has(carol))
	require.False(wallet.UsernameKey.Has(carol))
	require.False(h.repo.HasByUsername("carol"))
}

func TestRegistrationDeactivated(t *testing.T) {
	require := require.New(t)

	rules := defaultRules()
	rules.noUsernames = true
	rules.noUpgrades = true
	h := newHarness(t, rules, nil)
	h.fund("carol", 10)

	err := h.d.Apply(h.ctx, h.tx(RegistrationKind, "carol", registration("carol")))
	require.ErrorIs(err, chain.ErrDeactivated)
	err = h.d.Apply(h.ctx, h.tx(UpgradeKind, "carol", nil))
	require.ErrorIs(err, chain.ErrDeactivated)
	err = h.d.AdmitToPool(h.ctx, h.tx(RegistrationKind, "carol", registration("carol")), &testPool{})
	require.ErrorIs(err, chain.ErrDeactivated)

	// delegate registration is always available
	h.mustApply(h.tx(DelegateRegistrationKind, "carol", registration("carol")))
}

func TestRegistrationPool(t *testing.T) {
	require := require.New(t)

	h := newHarness(t, defaultRules(), nil)
	h.fund("carol", 10)
	h.fund("dan", 10)
	pool := &testPool{}

	require.NoError(h.d.AdmitToPool(h.ctx, h.tx(RegistrationKind, "carol", registration("carol")), pool))

	again := h.tx(RegistrationKind, "carol", registration("carol2"))
	again.Nonce++
	var poolErr *chain.PoolError
	require.ErrorAs(h.d.AdmitToPool(h.ctx, again, pool), &poolErr)
	require.Equal("carol already has a registration transaction in the pool", poolErr.Message)

	require.ErrorAs(h.d.AdmitToPool(h.ctx, h.tx(DelegateRegistrationKind, "dan", registration("carol")), pool), &poolErr)
	require.Equal("Delegate registration for 'carol' already in the pool", poolErr.Message)

	upgrade := h.tx(UpgradeKind, "carol", nil)
	upgrade.Nonce++
	require.NoError(h.d.AdmitToPool(h.ctx, upgrade, pool))

	upgradeAgain := h.tx(UpgradeKind, "carol", nil)
	upgradeAgain.Nonce += 2
	require.ErrorAs(h.d.AdmitToPool(h.ctx, upgradeAgain, pool), &poolErr)
	require.Equal("carol already has a block producer upgrade transaction in the pool", poolErr.Message)
}

func TestUsernameIndexFollowsDelegate(t *testing.T) {
	require := require.New(t)

	h := newHarness(t, defaultRules(), nil)
	h.delegate("dave", 10)

	snap, err := h.repo.GetIndex(state.UsernamesIndex)
	require.NoError(err)
	address, ok := snap.Get("dave")
	require.True(ok)
	require.Equal("dave", address)
}
