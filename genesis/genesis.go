// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis loads the initial allocations and the milestone schedule
// of a network.
package genesis

import (
	"errors"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v2"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/codec"
	"github.com/ava-labs/dposledger/consts"
)

var (
	ErrInvalidAllocation = errors.New("invalid allocation")
	ErrInvalidMilestone  = errors.New("invalid milestone")
)

type Allocation struct {
	// Address is derived from PublicKey when empty.
	Address   string `yaml:"address,omitempty"`
	PublicKey string `yaml:"publicKey,omitempty"`
	// Balance is a base-10 amount of the smallest unit.
	Balance string `yaml:"balance"`
}

type Genesis struct {
	HRP         string        `yaml:"hrp"`
	Allocations []*Allocation `yaml:"allocations"`
	Milestones  []*Milestone  `yaml:"milestones"`
}

func NewDefaultGenesis() *Genesis {
	activeDelegates := uint32(51)
	maxVotes := uint32(1)
	return &Genesis{
		HRP: consts.HRP,
		Milestones: []*Milestone{{
			Height:          1,
			ActiveDelegates: &activeDelegates,
			MaxVotes:        &maxVotes,
		}},
	}
}

// Load reads a YAML genesis from [path].
func Load(path string) (*Genesis, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes [b] on top of [NewDefaultGenesis] and verifies the result.
func Parse(b []byte) (*Genesis, error) {
	g := NewDefaultGenesis()
	if err := yaml.UnmarshalStrict(b, g); err != nil {
		return nil, err
	}
	if err := g.Verify(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Genesis) Verify() error {
	if len(g.HRP) == 0 {
		return fmt.Errorf("%w: missing hrp", ErrInvalidAllocation)
	}
	if _, err := g.ChainAllocations(); err != nil {
		return err
	}
	_, err := NewRuleFactory(g.Milestones)
	return err
}

// ChainAllocations resolves addresses and balances. An address may only be
// allocated once.
func (g *Genesis) ChainAllocations() ([]*chain.Allocation, error) {
	seen := make(map[string]struct{}, len(g.Allocations))
	out := make([]*chain.Allocation, 0, len(g.Allocations))
	for i, a := range g.Allocations {
		balance, err := uint256.FromDecimal(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("%w: %d: balance %q: %w", ErrInvalidAllocation, i, a.Balance, err)
		}
		address := a.Address
		switch {
		case len(address) == 0 && len(a.PublicKey) == 0:
			return nil, fmt.Errorf("%w: %d: missing address", ErrInvalidAllocation, i)
		case len(a.PublicKey) > 0:
			derived, err := codec.AddressFromHexKey(g.HRP, a.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("%w: %d: %w", ErrInvalidAllocation, i, err)
			}
			if len(address) > 0 && address != derived {
				return nil, fmt.Errorf("%w: %d: address %s does not match public key", ErrInvalidAllocation, i, address)
			}
			address = derived
		default:
			if _, err := codec.ParseAddress(g.HRP, address); err != nil {
				return nil, fmt.Errorf("%w: %d: %w", ErrInvalidAllocation, i, err)
			}
		}
		if _, ok := seen[address]; ok {
			return nil, fmt.Errorf("%w: duplicate address %s", ErrInvalidAllocation, address)
		}
		seen[address] = struct{}{}
		out = append(out, &chain.Allocation{
			Address:   address,
			PublicKey: a.PublicKey,
			Balance:   *balance,
		})
	}
	return out, nil
}

func (g *Genesis) RuleFactory() (*RuleFactory, error) {
	return NewRuleFactory(g.Milestones)
}
