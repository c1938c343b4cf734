// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/consts"
)

var (
	_ chain.Rules       = (*Rules)(nil)
	_ chain.RuleFactory = (*RuleFactory)(nil)
)

// Milestone changes the rules from [Height] on. Unset fields keep the value
// of the previous milestone.
type Milestone struct {
	Height uint64 `yaml:"height"`

	ActiveDelegates *uint32 `yaml:"activeDelegates,omitempty"`
	MaxVotes        *uint32 `yaml:"maxVotes,omitempty"`
	ExtendedHeaders *bool   `yaml:"extendedHeaders,omitempty"`

	UsernameRegistrations *bool `yaml:"usernameRegistrations,omitempty"`
	AutoUpgradeUsernames  *bool `yaml:"autoUpgradeUsernamesToBlockProducers,omitempty"`
	BlockProducerUpgrades *bool `yaml:"blockProducerUpgrades,omitempty"`
	Magistrate            *bool `yaml:"magistrate,omitempty"`
	Bridgechains          *bool `yaml:"bridgechains,omitempty"`

	ResignationRevocationBlocks *uint64 `yaml:"resignationRevocationBlocks,omitempty"`

	// Fees are keyed by "group/type" and replace the fee of that kind only.
	Fees map[string]uint64 `yaml:"fees,omitempty"`
	// DevFund replaces the whole table when set.
	DevFund map[string]uint16 `yaml:"devFund,omitempty"`
}

type feeKey struct {
	group uint32
	typ   uint16
}

func parseFeeKey(s string) (feeKey, error) {
	g, t, ok := strings.Cut(s, "/")
	if !ok {
		return feeKey{}, fmt.Errorf("%w: fee key %q", ErrInvalidMilestone, s)
	}
	group, err := strconv.ParseUint(g, 10, 32)
	if err != nil {
		return feeKey{}, fmt.Errorf("%w: fee key %q: %w", ErrInvalidMilestone, s, err)
	}
	typ, err := strconv.ParseUint(t, 10, 16)
	if err != nil {
		return feeKey{}, fmt.Errorf("%w: fee key %q: %w", ErrInvalidMilestone, s, err)
	}
	return feeKey{group: uint32(group), typ: uint16(typ)}, nil
}

// Rules is the merged milestone in force from [Rules.Height].
type Rules struct {
	height uint64

	activeDelegates uint32
	maxVotes        uint32
	extendedHeaders bool

	usernameRegistrations bool
	autoUpgradeUsernames  bool
	blockProducerUpgrades bool
	magistrate            bool
	bridgechains          bool

	revocationBlocks uint64
	fees             map[feeKey]uint64
	devFund          map[string]uint16
}

func defaultRules() *Rules {
	return &Rules{
		activeDelegates:       51,
		maxVotes:              1,
		usernameRegistrations: true,
		blockProducerUpgrades: true,
		magistrate:            true,
		bridgechains:          true,
		fees:                  map[feeKey]uint64{},
		devFund:               map[string]uint16{},
	}
}

// apply returns a copy of [r] with [m] merged on top.
func (r *Rules) apply(m *Milestone) (*Rules, error) {
	next := *r
	next.height = m.Height
	next.fees = maps.Clone(r.fees)
	next.devFund = maps.Clone(r.devFund)

	if m.ActiveDelegates != nil {
		next.activeDelegates = *m.ActiveDelegates
	}
	if m.MaxVotes != nil {
		next.maxVotes = *m.MaxVotes
	}
	if m.ExtendedHeaders != nil {
		next.extendedHeaders = *m.ExtendedHeaders
	}
	if m.UsernameRegistrations != nil {
		next.usernameRegistrations = *m.UsernameRegistrations
	}
	if m.AutoUpgradeUsernames != nil {
		next.autoUpgradeUsernames = *m.AutoUpgradeUsernames
	}
	if m.BlockProducerUpgrades != nil {
		next.blockProducerUpgrades = *m.BlockProducerUpgrades
	}
	if m.Magistrate != nil {
		next.magistrate = *m.Magistrate
	}
	if m.Bridgechains != nil {
		next.bridgechains = *m.Bridgechains
	}
	if m.ResignationRevocationBlocks != nil {
		next.revocationBlocks = *m.ResignationRevocationBlocks
	}
	for k, fee := range m.Fees {
		key, err := parseFeeKey(k)
		if err != nil {
			return nil, err
		}
		next.fees[key] = fee
	}
	if m.DevFund != nil {
		total := 0
		for address, bps := range m.DevFund {
			if bps == 0 {
				return nil, fmt.Errorf("%w: zero dev fund share for %s", ErrInvalidMilestone, address)
			}
			total += int(bps)
		}
		if total > consts.BasisPoints {
			return nil, fmt.Errorf("%w: dev fund shares sum to %d", ErrInvalidMilestone, total)
		}
		next.devFund = maps.Clone(m.DevFund)
	}
	if next.activeDelegates == 0 {
		return nil, fmt.Errorf("%w: no active delegates at %d", ErrInvalidMilestone, m.Height)
	}
	if next.maxVotes == 0 {
		return nil, fmt.Errorf("%w: no votes allowed at %d", ErrInvalidMilestone, m.Height)
	}
	return &next, nil
}

func (r *Rules) Height() uint64 { return r.height }

func (r *Rules) ActiveDelegates() uint32 { return r.activeDelegates }

func (r *Rules) MaxVotes() uint32 { return r.maxVotes }

func (r *Rules) ExtendedHeaders() bool { return r.extendedHeaders }

func (r *Rules) MinFee(k chain.Kind) uint64 {
	return r.fees[feeKey{group: k.Group, typ: k.Type}]
}

func (r *Rules) UsernameRegistrations() bool { return r.usernameRegistrations }

func (r *Rules) AutoUpgradeUsernames() bool { return r.autoUpgradeUsernames }

func (r *Rules) BlockProducerUpgrades() bool { return r.blockProducerUpgrades }

func (r *Rules) Magistrate() bool { return r.magistrate }

func (r *Rules) Bridgechains() bool { return r.bridgechains }

func (r *Rules) ResignationRevocationBlocks() uint64 { return r.revocationBlocks }

func (r *Rules) DevFund() map[string]uint16 { return r.devFund }

// RuleFactory selects the milestone in force at a height.
type RuleFactory struct {
	rules []*Rules
}

// NewRuleFactory merges [milestones] in height order. Heights must be
// unique.
func NewRuleFactory(milestones []*Milestone) (*RuleFactory, error) {
	sorted := append([]*Milestone(nil), milestones...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height < sorted[j].Height
	})

	f := &RuleFactory{}
	current := defaultRules()
	for i, m := range sorted {
		if i > 0 && m.Height == sorted[i-1].Height {
			return nil, fmt.Errorf("%w: duplicate height %d", ErrInvalidMilestone, m.Height)
		}
		next, err := current.apply(m)
		if err != nil {
			return nil, err
		}
		f.rules = append(f.rules, next)
		current = next
	}
	if len(f.rules) == 0 {
		f.rules = append(f.rules, current)
	}
	return f, nil
}

// GetRules returns the latest milestone at or below [height]. Heights before
// the first milestone use the first milestone.
func (f *RuleFactory) GetRules(height uint64) chain.Rules {
	i := sort.Search(len(f.rules), func(i int) bool {
		return f.rules[i].height > height
	})
	if i == 0 {
		return f.rules[0]
	}
	return f.rules[i-1]
}
