// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/wallet"
)

func TestViewIsolation(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)

	base := repo.FindByAddress("a")
	require.NoError(base.IncreaseBalance(uint256.NewInt(100)))

	view := repo.Clone()
	w := view.FindByAddress("a")
	require.NotSame(base, w)
	require.True(base.Equal(w))

	require.NoError(w.DecreaseBalance(uint256.NewInt(40)))
	require.NoError(wallet.UsernameKey.Set(w, wallet.Username("alice")))
	require.NoError(view.Reindex(w))
	view.FindByAddress("b")

	require.Equal(uint64(100), base.Balance().Uint64())
	require.False(repo.HasByUsername("alice"))
	require.False(repo.HasByAddress("b"))
	require.True(view.HasByUsername("alice"))
	require.True(view.HasByAddress("b"))
	require.Same(w, view.FindByAddress("a"))
}

func TestViewCommit(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)
	setUsername(t, repo, "a", "alice")

	view := repo.Clone()
	a := view.FindByAddress("a")
	require.NoError(wallet.UsernameKey.Forget(a))
	require.NoError(view.Reindex(a))
	setUsername(t, view, "b", "alice")
	require.Equal(uint64(1), view.NextSequence(businessesIndex))

	require.NoError(view.Commit())
	require.ErrorIs(view.Commit(), ErrViewCommitted)

	found, err := repo.FindByUsername("alice")
	require.NoError(err)
	require.Equal("b", found.Address())
	require.False(repo.FindByAddress("a").HasAttribute("username"))
	require.Equal(uint64(1), repo.Sequence(businessesIndex))
	require.Equal(2, repo.Len())

	snapshot, err := repo.GetIndex(UsernamesIndex)
	require.NoError(err)
	require.Equal(map[string]string{"alice": "b"}, snapshot.entries)
}

func TestViewIndexConflict(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)
	setUsername(t, repo, "a", "alice")

	view := repo.Clone()
	b := view.FindByAddress("b")
	require.NoError(wallet.UsernameKey.Set(b, wallet.Username("alice")))
	require.ErrorIs(view.Reindex(b), ErrIndexConflict)
}

func TestViewForgetAndSnapshot(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)
	setUsername(t, repo, "a", "alice")
	setUsername(t, repo, "b", "bob")

	view := repo.Clone()
	require.NoError(view.ForgetByIndex(UsernamesIndex, "alice"))
	setUsername(t, view, "c", "carol")

	snapshot, err := view.GetIndex(UsernamesIndex)
	require.NoError(err)
	require.Equal([]string{"bob", "carol"}, snapshot.Keys())
	require.Equal([]string{"b", "c"}, snapshot.Values())

	parent, err := repo.GetIndex(UsernamesIndex)
	require.NoError(err)
	require.Equal([]string{"alice", "bob"}, parent.Keys())
}

func TestViewIterators(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)
	setUsername(t, repo, "a", "alice")
	repo.FindByAddress("b")

	view := repo.Clone()
	setUsername(t, view, "c", "carol")
	touched := view.Touched()

	var addrs []string
	for _, w := range Collect(view.AllByAddress()) {
		addrs = append(addrs, w.Address())
	}
	require.Equal([]string{"a", "b", "c"}, addrs)

	usernames := Collect(view.AllByUsername())
	require.Len(usernames, 2)
	require.Equal("a", usernames[0].Address())
	require.Equal("c", usernames[1].Address())

	// iterating copies nothing into the view
	require.Equal(touched, view.Touched())
	require.Same(usernames[1], view.FindByAddress("c"))
	require.NotSame(usernames[0], view.FindByAddress("a"))
}

func TestNestedViewCommit(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)

	outer := repo.Clone()
	require.NoError(outer.FindByAddress("a").IncreaseBalance(uint256.NewInt(7)))

	inner := outer.Clone()
	require.Equal(uint64(7), inner.FindByAddress("a").Balance().Uint64())
	setUsername(t, inner, "b", "bob")
	require.Equal(uint64(1), inner.NextSequence(businessesIndex))
	require.False(outer.HasByUsername("bob"))

	require.NoError(inner.Commit())
	require.True(outer.HasByUsername("bob"))
	require.Equal(uint64(1), outer.Sequence(businessesIndex))
	require.False(repo.HasByAddress("a"))

	require.NoError(outer.Commit())
	require.True(repo.HasByUsername("bob"))
	require.Equal(uint64(7), repo.FindByAddress("a").Balance().Uint64())
	require.Equal(2, repo.Len())
}

func TestViewFindByPublicKey(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)

	view := repo.Clone()
	w, err := view.FindByPublicKey("k1", wallet.Primary)
	require.NoError(err)
	require.Equal("addr-k1", w.Address())
	require.True(view.HasByPublicKey("k1", wallet.Primary))
	require.False(repo.HasByPublicKey("k1", wallet.Primary))

	_, err = view.FindByPublicKey("k1", wallet.Extra)
	require.ErrorIs(err, ErrWalletNotFound)
}

func TestViewSequenceRevert(t *testing.T) {
	require := require.New(t)
	repo := newTestRepository(t)
	require.Equal(uint64(1), repo.NextSequence(businessesIndex))

	view := repo.Clone()
	require.Equal(uint64(2), view.NextSequence(businessesIndex))
	require.ErrorIs(view.RevertSequence(businessesIndex, 1), ErrSequenceMismatch)
	require.NoError(view.RevertSequence(businessesIndex, 2))
	require.NoError(view.RevertSequence(businessesIndex, 1))
	require.Equal(uint64(0), view.Sequence(businessesIndex))
	require.Equal(uint64(1), repo.Sequence(businessesIndex))
}
