// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/crypto/ed25519"
)

var balances = []struct {
	address string
	balance uint64
}{
	{"alice", 1_000},
	{"bob", 500},
	{"dave", 100},
	{"erin", 100},
	{"carol", 50},
	{"acme", 50},
}

func fundAll(h *harness) []*chain.Allocation {
	allocations := make([]*chain.Allocation, 0, len(balances))
	for _, b := range balances {
		h.fund(b.address, b.balance)
		allocations = append(allocations, allocation(b.address, b.balance))
	}
	return allocations
}

func TestBootstrapMatchesLiveApply(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		require := require.New(t)

		live := newHarness(t, defaultRules(), nil)
		allocations := fundAll(live)
		alicePK := newKey(t)
		bobExtra := newKey(t)

		live.mustApply(live.tx(DelegateRegistrationKind, "dave", registration("dave")))
		live.mustApply(live.tx(DelegateRegistrationKind, "erin", registration("erin")))
		live.mustApply(live.tx(RegistrationKind, "carol", registration("carol")))
		live.mustApply(live.tx(UpgradeKind, "carol", nil))

		reveal := transfer(live, "alice", "bob", 100)
		reveal.SenderPublicKey = alicePK.PublicKey().String()
		live.mustApply(reveal)
		live.mustApply(live.tx(VoteKind, "alice", votes(map[string]uint16{"dave": 10_000})))
		live.mustApply(live.tx(VoteKind, "bob", votes(map[string]uint16{"dave": 5_000, "erin": 5_000})))
		live.mustApply(transfer(live, "bob", "alice", 33))
		live.mustApply(live.tx(VoteKind, "alice", votes(map[string]uint16{"erin": 2_000, "carol": 8_000})))

		live.mustApply(live.tx(ResignationKind, "dave", resign(chain.ResignTemporarily)))
		live.mustApply(live.tx(ResignationKind, "dave", resign(chain.RevokeResignation)))
		live.mustApply(live.tx(ResignationKind, "carol", resign(chain.ResignPermanently)))

		live.mustApply(live.tx(BusinessKind, "acme", business("acme")))
		live.mustApply(live.tx(BusinessKind, "bob", business("bob")))
		live.mustApply(live.tx(BridgechainKind, "acme", bridgechain("aa", "10.0.0.1")))
		live.mustApply(live.tx(BridgechainKind, "acme", bridgechain("bb")))

		live.mustApply(live.tx(ExtraSignatureKind, "bob", extraSignature(bobExtra.PublicKey())))
		signed := transfer(live, "bob", "erin", 7)
		signed.ExtraSignature = ed25519.Sign(signed.Digest(), bobExtra).String()
		live.mustApply(signed)

		replayed := newHarness(t, defaultRules(), nil)
		require.NoError(replayed.d.Bootstrap(replayed.ctx, chain.BootstrapSources{
			History:     live.history(),
			Allocations: allocations,
			Parallelism: parallelism,
		}))
		requireSameState(t, live, replayed)

		// the rebuilt ledger keeps going from where the live one is
		next := transfer(replayed, "alice", "dave", 1)
		require.NoError(live.d.DryRun(live.ctx, next))
		require.NoError(replayed.d.Apply(replayed.ctx, next))
	}
}

func TestBootstrapAutoUpgrade(t *testing.T) {
	require := require.New(t)

	rules := defaultRules()
	rules.autoUpgrade = true
	live := newHarness(t, rules, nil)
	allocations := fundAll(live)

	live.mustApply(live.tx(RegistrationKind, "carol", registration("carol")))
	live.mustApply(live.tx(VoteKind, "alice", votes(map[string]uint16{"carol": 10_000})))

	replayed := newHarness(t, rules, nil)
	require.NoError(replayed.d.Bootstrap(replayed.ctx, chain.BootstrapSources{
		History:     live.history(),
		Allocations: allocations,
	}))
	requireSameState(t, live, replayed)
	require.Equal(uint64(999), replayed.delegateOf("carol").VoteBalance.Uint64())
}

func TestBootstrapRejectsBrokenHistory(t *testing.T) {
	require := require.New(t)

	live := newHarness(t, defaultRules(), nil)
	allocations := fundAll(live)
	live.mustApply(live.tx(DelegateRegistrationKind, "dave", registration("dave")))
	live.mustApply(live.tx(VoteKind, "alice", votes(map[string]uint16{"dave": 10_000})))

	// drop the registration the vote depends on
	history := live.history()[1:]
	replayed := newHarness(t, defaultRules(), nil)
	err := replayed.d.Bootstrap(replayed.ctx, chain.BootstrapSources{
		History:     history,
		Allocations: allocations,
	})
	require.ErrorIs(err, chain.ErrBrokenInvariant)
}
