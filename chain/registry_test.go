// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func names(groups [][]Handler) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		for _, h := range g {
			out[i] = append(out[i], h.Name())
		}
	}
	return out
}

func TestRegistryDuplicateKind(t *testing.T) {
	require := require.New(t)

	_, err := NewRegistry(newTransferHandler(), newTransferHandler())
	require.ErrorIs(err, ErrDuplicateHandler)
}

func TestRegistryGet(t *testing.T) {
	require := require.New(t)

	transfer := newTransferHandler()
	r, err := NewRegistry(transfer)
	require.NoError(err)

	h, err := r.Get(transferKind)
	require.NoError(err)
	require.Equal(transfer, h)

	_, err = r.Get(Kind{Group: 9, Type: 9})
	require.ErrorIs(err, ErrInvalidTransactionType)
}

func TestRegistryDeclaresAttributes(t *testing.T) {
	require := require.New(t)

	r, err := NewRegistry(&testHandler{
		name:  "delegate",
		kind:  Kind{Group: 1, Type: 2},
		attrs: []string{"delegate", "delegate.username"},
	})
	require.NoError(err)
	require.True(r.Attributes().Has("delegate.username"))
	require.False(r.Attributes().Has("votes"))
}

func TestBootstrapPlan(t *testing.T) {
	require := require.New(t)

	var (
		a = &testHandler{name: "a", kind: Kind{Type: 1}, attrs: []string{"delegate"}}
		b = &testHandler{name: "b", kind: Kind{Type: 2}, attrs: []string{"delegate.resignations"}}
		c = &testHandler{name: "c", kind: Kind{Type: 3}, attrs: []string{"votes"}, deps: []Kind{{Type: 1}}}
		d = &testHandler{name: "d", kind: Kind{Type: 4}}
		e = &testHandler{name: "e", kind: Kind{Type: 5}, attrs: []string{"business"}, deps: []Kind{{Type: 3}, {Type: 4}}}
		f = &testHandler{name: "f", kind: Kind{Type: 6}, attrs: []string{"username", "delegate.voters"}}
	)
	r, err := NewRegistry(a, b, c, d, e, f)
	require.NoError(err)

	plan, err := r.BootstrapPlan()
	require.NoError(err)
	require.Len(plan, 3)
	require.Equal([][]string{{"a", "b", "f"}, {"d"}}, names(plan[0]))
	require.Equal([][]string{{"c"}}, names(plan[1]))
	require.Equal([][]string{{"e"}}, names(plan[2]))
}

func TestBootstrapPlanMissingDependency(t *testing.T) {
	require := require.New(t)

	r, err := NewRegistry(&testHandler{name: "vote", kind: Kind{Type: 3}, deps: []Kind{{Type: 2}}})
	require.NoError(err)

	_, err = r.BootstrapPlan()
	require.ErrorIs(err, ErrMissingDependency)
}

func TestBootstrapPlanCycle(t *testing.T) {
	require := require.New(t)

	r, err := NewRegistry(
		&testHandler{name: "x", kind: Kind{Type: 1}, deps: []Kind{{Type: 2}}},
		&testHandler{name: "y", kind: Kind{Type: 2}, deps: []Kind{{Type: 1}}},
		&testHandler{name: "z", kind: Kind{Type: 3}},
	)
	require.NoError(err)

	_, err = r.BootstrapPlan()
	require.ErrorIs(err, ErrDependencyCycle)
	require.ErrorContains(err, "x, y")
}
